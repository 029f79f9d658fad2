package aiguard

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Limiter modes reported by RateLimiter.Mode.
const (
	ModeDistributed = "distributed"
	ModeInMemory    = "in-memory"
)

const defaultBackendTimeout = 150 * time.Millisecond

// UnknownIdentity is the shared bucket used when a caller passes an empty
// identity. All unidentified clients throttle together; callers should
// resolve an identity whenever possible.
const UnknownIdentity = "unknown"

// RateLimiter admits or rejects requests per client identity over a fixed
// time window. A distributed backend can be attached so multiple replicas
// share one counter; when it errors or times out, the check falls back to a
// process-local counter instead of failing the request.
type RateLimiter struct {
	cfg         LimiterConfig
	distributed Backend
	local       *MemoryBackend
	timeout     time.Duration
	logger      *slog.Logger
	degraded    atomic.Bool
}

// LimiterOption configures a RateLimiter.
type LimiterOption func(*RateLimiter)

// WithBackend attaches a distributed counter backend. Without it the
// limiter runs purely in-memory.
func WithBackend(b Backend) LimiterOption {
	return func(l *RateLimiter) { l.distributed = b }
}

// WithBackendTimeout bounds each distributed backend call. After the
// timeout the check falls back to the in-memory counter.
func WithBackendTimeout(d time.Duration) LimiterOption {
	return func(l *RateLimiter) { l.timeout = d }
}

// WithLimiterLogger sets the logger used for backend fallback transitions.
func WithLimiterLogger(logger *slog.Logger) LimiterOption {
	return func(l *RateLimiter) { l.logger = logger }
}

// NewRateLimiter creates a RateLimiter for the given config.
// cfg.WindowMs must be positive; cfg.MaxRequests <= 0 is legal and rejects
// every request.
func NewRateLimiter(cfg LimiterConfig, opts ...LimiterOption) (*RateLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := &RateLimiter{
		cfg:     cfg,
		local:   NewMemoryBackend(),
		timeout: defaultBackendTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l, nil
}

// Check counts one request for the identity and reports whether it is
// admitted. It never returns an error: backend failures degrade to the
// in-memory counter, and an admitted-then-abandoned request keeps its
// count (no rollback on cancellation).
func (l *RateLimiter) Check(ctx context.Context, identity string) Decision {
	if identity == "" {
		identity = UnknownIdentity
	}
	key := l.cfg.Prefix + ":" + identity
	window := l.cfg.Window()

	count, ttl := l.incr(ctx, key, window)

	max := l.cfg.MaxRequests
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}

	d := Decision{
		Allowed:   max > 0 && count <= max,
		Count:     count,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}

// Mode reports which backend is currently serving checks, for health
// reporting. A limiter with no distributed backend, or one riding out a
// backend outage, reports ModeInMemory.
func (l *RateLimiter) Mode() string {
	if l.distributed != nil && !l.degraded.Load() {
		return ModeDistributed
	}
	return ModeInMemory
}

// incr runs the increment against the distributed backend when one is
// attached, falling back to the local counter on error. Transitions between
// the two are logged once, not per request.
func (l *RateLimiter) incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration) {
	if l.distributed != nil {
		cctx, cancel := context.WithTimeout(ctx, l.timeout)
		count, ttl, err := l.distributed.Incr(cctx, key, window)
		cancel()

		if err == nil {
			if l.degraded.CompareAndSwap(true, false) {
				l.logger.Info("rate limit backend recovered, resuming distributed mode",
					"prefix", l.cfg.Prefix,
				)
			}
			return count, ttl
		}

		if l.degraded.CompareAndSwap(false, true) {
			l.logger.Warn("rate limit backend unavailable, falling back to in-memory",
				"prefix", l.cfg.Prefix,
				"error", err,
			)
		}
	}

	count, ttl, _ := l.local.Incr(ctx, key, window)
	return count, ttl
}
