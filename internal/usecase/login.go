package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

// Login authenticates against the service and starts a session.
type Login struct {
	auth    ports.Authenticator
	session ports.SessionWriter
}

func NewLogin(auth ports.Authenticator, session ports.SessionWriter) *Login {
	return &Login{auth: auth, session: session}
}

func (uc *Login) Execute(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return &domain.OpError{
			Op:   "usecase.login",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("username and password are required: %w", domain.ErrInvalidRequest),
		}
	}

	tok, err := uc.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	uc.session.SetSession(tok.AccessToken)
	return nil
}
