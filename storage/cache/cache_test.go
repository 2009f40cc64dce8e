package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core"
)

func TestRedisBlocklist(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bl := NewRedisBlocklist(client)

	revoked, err := bl.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "abc", time.Minute))
	revoked, err = bl.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Minute, mr.TTL(revokedKeyPrefix+"abc"))

	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "expired", 0))
	assert.False(t, mr.Exists(revokedKeyPrefix+"expired"))

	mr.Close()
	_, err = bl.IsRevoked(ctx, "abc")
	assert.True(t, core.IsTransient(err))
}

func TestMemoryBlocklist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	bl := NewMemoryBlocklist().(*memoryBlocklist)
	bl.nowFunc = func() time.Time { return now }

	require.NoError(t, bl.Revoke(ctx, "abc", time.Minute))
	require.NoError(t, bl.Revoke(ctx, "", time.Minute))
	revoked, _ := bl.IsRevoked(ctx, "abc")
	assert.True(t, revoked)
	revoked, _ = bl.IsRevoked(ctx, "other")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = bl.IsRevoked(ctx, "abc")
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "def", time.Minute))
	assert.Len(t, bl.revoked, 1) // expired ids are swept on write
}

func TestNewBlocklist_memoryFallback(t *testing.T) {
	bl, closeFn, err := NewBlocklist(context.Background(), &core.Config{})
	require.NoError(t, err)
	assert.IsType(t, &memoryBlocklist{}, bl)
	assert.NoError(t, closeFn())
}
