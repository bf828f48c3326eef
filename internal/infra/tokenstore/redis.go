package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

const defaultRedisKey = "doclane:session"

// RedisStore shares one console session between machines through Redis.
// The key expires together with the session.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "tokenstore.redis.parse_url",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("parse redis url: %w", err),
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &domain.OpError{
			Op:   "tokenstore.redis.ping",
			Kind: domain.KindNetwork,
			Err:  fmt.Errorf("connect to redis: %w", err),
		}
	}

	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

var _ ports.TokenStorage = (*RedisStore)(nil)

func (r *RedisStore) Load(ctx context.Context) (domain.Session, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, nil
		}
		return domain.Session{}, &domain.OpError{
			Op:   "tokenstore.redis.load",
			Kind: domain.KindNetwork,
			Err:  err,
		}
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, &domain.OpError{
			Op:   "tokenstore.redis.load",
			Kind: domain.KindParse,
			Err:  err,
		}
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s domain.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return &domain.OpError{Op: "tokenstore.redis.marshal", Kind: domain.KindExecution, Err: err}
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		// Already expired: nothing worth storing.
		return r.Delete(ctx)
	}

	if err := r.client.Set(ctx, r.key, b, ttl).Err(); err != nil {
		return &domain.OpError{Op: "tokenstore.redis.save", Kind: domain.KindNetwork, Err: err}
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return &domain.OpError{Op: "tokenstore.redis.delete", Kind: domain.KindNetwork, Err: err}
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
