package backend

import (
	"context"
	"errors"
	"net/url"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

type Auth struct {
	c Caller
}

var _ ports.Authenticator = (*Auth)(nil)

// Login exchanges credentials for a token. It does not touch the session.
func (a *Auth) Login(ctx context.Context, username, password string) (domain.Token, error) {
	var tok domain.Token
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	if err := a.c.PostForm(ctx, apiPrefix+"/auth/login", form, &tok); err != nil {
		return domain.Token{}, err
	}
	if tok.AccessToken == "" {
		return domain.Token{}, &domain.OpError{
			Op:   "backend.login",
			Kind: domain.KindParse,
			Path: apiPrefix + "/auth/login",
			Err:  errors.New("response carries no access_token"),
		}
	}
	return tok, nil
}
