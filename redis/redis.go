// Package redis provides a Redis-backed counter Backend for aiguard.
//
// The increment and the window bookkeeping run in a single Lua script, so
// many application instances can enforce one shared quota per identity
// without read-then-write races.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ineyio/aiguard"
)

// Backend is a Redis-backed fixed-window counter.
type Backend struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ aiguard.Backend = (*Backend)(nil)

// Option configures Backend.
type Option func(*Backend)

// WithKeyPrefix sets the Redis key prefix (default "aiguard:window:").
func WithKeyPrefix(prefix string) Option {
	return func(b *Backend) { b.keyPrefix = prefix }
}

// New creates a Redis-backed counter backend.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Backend {
	b := &Backend{
		client:    client,
		keyPrefix: "aiguard:window:",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// incrScript atomically increments a fixed-window counter.
// KEYS[1] = window key
// ARGV[1] = window length in milliseconds
//
// The first increment of a window arms the expiry; the PTTL guard repairs
// a key left without one (for example after a partial failure).
// Returns {count, pttl_ms}.
var incrScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Incr implements aiguard.Backend. The caller's context bounds the round
// trip; on error the limiter falls back to its local counter.
func (b *Backend) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := incrScript.Run(ctx, b.client, []string{b.keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, &aiguard.BackendError{Op: "incr", Key: key, Err: err}
	}
	if len(vals) != 2 {
		return 0, 0, &aiguard.BackendError{Op: "incr", Key: key, Err: aiguard.ErrBackendUnavailable}
	}

	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// Reset deletes the window for a key. Intended for tests and operator
// tooling, not the request path.
func (b *Backend) Reset(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.keyPrefix+key).Err(); err != nil {
		return &aiguard.BackendError{Op: "reset", Key: key, Err: err}
	}
	return nil
}
