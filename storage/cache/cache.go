// Package cache keeps the revoked access tokens until they expire.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/langhour/tracker/core"
)

const revokedKeyPrefix = "lht:revoked:"

// Blocklist records revoked token ids (JWT "jti").
type Blocklist interface {
	// Revoke blocks jti for ttl. A non-positive ttl is a no-op: the token has already expired.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NewBlocklist returns a redis blocklist when an address is configured, an in-memory one otherwise.
func NewBlocklist(ctx context.Context, conf *core.Config) (Blocklist, func() error, error) {
	if conf.Redis.Address == "" {
		return NewMemoryBlocklist(), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, core.NewTransientError("redis ping", err)
	}
	return NewRedisBlocklist(client), client.Close, nil
}

type redisBlocklist struct {
	client *redis.Client
}

func NewRedisBlocklist(client *redis.Client) Blocklist {
	return &redisBlocklist{client: client}
}

func (bl *redisBlocklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := bl.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return core.NewTransientError("revoking token", err)
	}
	return nil
}

func (bl *redisBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := bl.client.Get(ctx, revokedKeyPrefix+jti).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, core.NewTransientError("checking token", err)
	}
	return true, nil
}

type memoryBlocklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
	nowFunc func() time.Time
}

func NewMemoryBlocklist() Blocklist {
	return &memoryBlocklist{revoked: make(map[string]time.Time), nowFunc: time.Now}
}

func (bl *memoryBlocklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	bl.mu.Lock()
	defer bl.mu.Unlock()

	now := bl.nowFunc()
	for id, exp := range bl.revoked {
		if !exp.After(now) {
			delete(bl.revoked, id)
		}
	}
	bl.revoked[jti] = now.Add(ttl)
	return nil
}

func (bl *memoryBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	exp, ok := bl.revoked[jti]
	return ok && exp.After(bl.nowFunc()), nil
}
