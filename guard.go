// Package aiguard guards a metered, cost-bearing AI provider from overuse.
//
// It admits or rejects client requests under a time-windowed quota, tracks
// monetary spend against hourly/daily ceilings, avoids redundant provider
// calls with a bounded LRU response cache, and flags oversized requests
// before they reach the provider. The provider call itself happens outside
// this package; callers consult the guard before the call and report cost
// after it.
//
// The usual flow for one request:
//
//	if v, ok := g.Lookup(key); ok {
//	    return v // cache hit, no provider cost
//	}
//	adm := g.Admit(ctx, identity, estimatedChars)
//	if adm.Blocked || !adm.Decision.Allowed {
//	    // reject: 503 for cost controls, 429 for rate limiting
//	}
//	resp, cost := callProvider(...)
//	g.Complete(key, resp, cost)
package aiguard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Guard composes the four admission components behind one constructor so
// request handlers hold a single explicitly-injected instance instead of
// package-level singletons.
type Guard struct {
	cfg     Config
	limiter *RateLimiter
	spend   *SpendingTracker
	cache   *ResponseCache
	tokens  *TokenBudgetGuard
	meter   Meter
}

type guardOptions struct {
	backend        Backend
	backendTimeout time.Duration
	logger         *slog.Logger
	meter          Meter
	limiter        *RateLimiter
}

// Option configures a Guard.
type Option func(*guardOptions)

// WithMeter sets the event observer. Defaults to a no-op meter.
func WithMeter(m Meter) Option {
	return func(o *guardOptions) { o.meter = m }
}

// WithLogger sets the logger handed to the rate limiter for backend
// fallback transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *guardOptions) { o.logger = logger }
}

// WithDistributedBackend attaches a shared counter backend (for example
// redis.New) so replicas enforce one quota together.
func WithDistributedBackend(b Backend) Option {
	return func(o *guardOptions) { o.backend = b }
}

// WithDistributedTimeout bounds each distributed backend call before the
// limiter falls back to its in-memory counter for that check.
func WithDistributedTimeout(d time.Duration) Option {
	return func(o *guardOptions) { o.backendTimeout = d }
}

// WithRateLimiter replaces the limiter the guard would otherwise build
// from its config. The other limiter options are ignored when set.
func WithRateLimiter(l *RateLimiter) Option {
	return func(o *guardOptions) { o.limiter = l }
}

// New creates a Guard from the given config. Configuration problems are
// returned here, once; nothing is validated per request.
func New(cfg Config, opts ...Option) (*Guard, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o guardOptions
	for _, opt := range opts {
		opt(&o)
	}

	limiter := o.limiter
	if limiter == nil {
		var lopts []LimiterOption
		if o.backend != nil {
			lopts = append(lopts, WithBackend(o.backend))
		}
		if o.backendTimeout > 0 {
			lopts = append(lopts, WithBackendTimeout(o.backendTimeout))
		}
		if o.logger != nil {
			lopts = append(lopts, WithLimiterLogger(o.logger))
		}
		var err error
		limiter, err = NewRateLimiter(cfg.Limiter, lopts...)
		if err != nil {
			return nil, err
		}
	}

	spend, err := NewSpendingTracker(cfg.Spend)
	if err != nil {
		return nil, err
	}
	cache, err := NewResponseCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	tokens, err := NewTokenBudgetGuard(cfg.TokenBudget)
	if err != nil {
		return nil, err
	}

	g := &Guard{
		cfg:     cfg,
		limiter: limiter,
		spend:   spend,
		cache:   cache,
		tokens:  tokens,
		meter:   o.meter,
	}
	if g.meter == nil {
		g.meter = &noopMeter{}
	}
	return g, nil
}

// Lookup consults the response cache before any quota is spent. A hit
// means the provider call can be skipped entirely.
func (g *Guard) Lookup(key string) (any, bool) {
	return g.cache.Get(key)
}

// Admit runs the admission pipeline for one request: rate limit check,
// then token budget evaluation, plus the current spend block flag. The
// request is counted even if the caller later abandons it.
func (g *Guard) Admit(ctx context.Context, identity string, estimatedChars int64) Admission {
	decision := g.limiter.Check(ctx, identity)
	estimate := g.tokens.Evaluate(estimatedChars)
	blocked := g.spend.Status().IsBlocked

	adm := Admission{
		RequestID: uuid.New().String(),
		Decision:  decision,
		Estimate:  estimate,
		Blocked:   blocked,
	}

	g.meter.OnAdmit(AdmitEvent{
		RequestID:       adm.RequestID,
		Identity:        identity,
		Allowed:         decision.Allowed,
		Count:           decision.Count,
		Mode:            g.limiter.Mode(),
		EstimatedTokens: estimate.EstimatedTokens,
		TokenStatus:     estimate.Status,
		RetryAfter:      decision.RetryAfter,
	})
	return adm
}

// Complete records the outcome of a successful provider call: the cost is
// added to both spend windows and the response is cached under key. Pass
// an empty key to skip caching (for example, non-cacheable requests).
func (g *Guard) Complete(key string, value any, costCents int64) {
	g.spend.Record(costCents)

	if key != "" {
		g.cache.Set(key, value)
	}

	st := g.spend.Status()
	g.meter.OnSpend(SpendEvent{
		CostCents:   costCents,
		HourlySpent: st.Hourly.SpentCents,
		DailySpent:  st.Daily.SpentCents,
		Blocked:     st.IsBlocked,
	})
}

// Limiter returns the rate limiter, for callers composing their own
// boundary layer.
func (g *Guard) Limiter() *RateLimiter { return g.limiter }

// Spending returns the spend tracker.
func (g *Guard) Spending() *SpendingTracker { return g.spend }

// Cache returns the response cache.
func (g *Guard) Cache() *ResponseCache { return g.cache }

// TokenBudget returns the token budget guard.
func (g *Guard) TokenBudget() *TokenBudgetGuard { return g.tokens }
