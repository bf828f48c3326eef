package tokenstore

import (
	"fmt"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

// Open builds the storage selected by cfg. The returned close func is never nil.
func Open(cfg domain.SessionConfig) (ports.TokenStorage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage {
	case domain.StorageMemory:
		return NewMemoryStore(), noop, nil
	case domain.StorageFile, "":
		return NewFileStore(cfg.Path), noop, nil
	case domain.StorageRedis:
		rs, err := NewRedisStore(cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, noop, err
		}
		return rs, rs.Close, nil
	default:
		return nil, noop, &domain.OpError{
			Op:   "tokenstore.open",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("unsupported session storage %q: %w", cfg.Storage, domain.ErrInvalidConfig),
		}
	}
}
