package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineyio/aiguard"
	aigredis "github.com/ineyio/aiguard/redis"
)

func newTestBackend(t *testing.T, opts ...aigredis.Option) (*aigredis.Backend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return aigredis.New(client, opts...), mr
}

func TestIncr_CountsWithinWindow(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := b.Incr(ctx, "chat:A", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	}
}

func TestIncr_WindowExpiryResetsCounter(t *testing.T) {
	b, mr := newTestBackend(t)
	ctx := context.Background()

	_, _, err := b.Incr(ctx, "chat:A", time.Minute)
	require.NoError(t, err)
	_, _, err = b.Incr(ctx, "chat:A", time.Minute)
	require.NoError(t, err)

	mr.FastForward(time.Minute)

	count, _, err := b.Incr(ctx, "chat:A", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "a fresh window starts from zero")
}

func TestIncr_IndependentKeys(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, _, err := b.Incr(ctx, "chat:A", time.Minute)
	require.NoError(t, err)

	count, _, err := b.Incr(ctx, "chat:B", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNew_WithKeyPrefix(t *testing.T) {
	b, mr := newTestBackend(t, aigredis.WithKeyPrefix("custom:"))

	_, _, err := b.Incr(context.Background(), "chat:A", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("custom:chat:A"))
}

func TestReset_DeletesWindow(t *testing.T) {
	b, mr := newTestBackend(t)
	ctx := context.Background()

	_, _, err := b.Incr(ctx, "chat:A", time.Minute)
	require.NoError(t, err)
	require.NoError(t, b.Reset(ctx, "chat:A"))
	assert.False(t, mr.Exists("aiguard:window:chat:A"))

	count, _, err := b.Incr(ctx, "chat:A", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIncr_ServerDownReturnsBackendError(t *testing.T) {
	b, mr := newTestBackend(t)
	mr.Close()

	_, _, err := b.Incr(context.Background(), "chat:A", time.Minute)
	require.Error(t, err)

	var be *aiguard.BackendError
	assert.ErrorAs(t, err, &be)
	assert.Equal(t, "incr", be.Op)
}

// The limiter should enforce its quota through this backend, and keep
// enforcing it in-memory once the server disappears mid-outage.
func TestRateLimiter_WithRedisBackend(t *testing.T) {
	b, mr := newTestBackend(t)

	l, err := aiguard.NewRateLimiter(
		aiguard.LimiterConfig{Prefix: "chat", MaxRequests: 2, WindowMs: 60000},
		aiguard.WithBackend(b),
	)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, l.Check(ctx, "A").Allowed)
	assert.True(t, l.Check(ctx, "A").Allowed)
	assert.False(t, l.Check(ctx, "A").Allowed)
	assert.Equal(t, aiguard.ModeDistributed, l.Mode())

	mr.Close()

	// Fresh local window after the outage: the budget applies again.
	assert.True(t, l.Check(ctx, "A").Allowed)
	assert.True(t, l.Check(ctx, "A").Allowed)
	assert.False(t, l.Check(ctx, "A").Allowed)
	assert.Equal(t, aiguard.ModeInMemory, l.Mode())
}
