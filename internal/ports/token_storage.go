package ports

import (
	"context"

	"github.com/aalvaropc/doclane/internal/domain"
)

// TokenStorage persists the single session of the console.
// Load returns a zero Session (and no error) when nothing is stored.
type TokenStorage interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context) error
}
