package aiguard

import "time"

// Decision is the outcome of a rate limit check.
type Decision struct {
	// Allowed reports whether the request is admitted.
	Allowed bool

	// Count is the number of requests observed in the current window,
	// including this one.
	Count int64

	// Remaining is the number of requests left in the current window.
	// Zero when denied.
	Remaining int64

	// RetryAfter is how long until the window resets. Only meaningful
	// when Allowed is false.
	RetryAfter time.Duration

	// ResetAt is the absolute time the current window resets.
	ResetAt time.Time
}

// SpendState classifies a spend window against its limit.
type SpendState string

const (
	SpendOK       SpendState = "ok"
	SpendWarning  SpendState = "warning"
	SpendExceeded SpendState = "exceeded"
)

// WindowStatus describes one spend window (hourly or daily).
type WindowStatus struct {
	SpentCents int64      `json:"spent"`
	LimitCents int64      `json:"limit"`
	Percentage float64    `json:"percentage"`
	Status     SpendState `json:"status"`
	ResetAt    time.Time  `json:"resetsAt"`
}

// SpendStatus is the aggregate spend report across both windows.
type SpendStatus struct {
	Hourly    WindowStatus `json:"hourly"`
	Daily     WindowStatus `json:"daily"`
	IsBlocked bool         `json:"isBlocked"`
}

// CacheMetrics holds monotonic cache counters. They reset only on process
// restart.
type CacheMetrics struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Writes    int64     `json:"writes"`
	Evictions int64     `json:"evictions"`
	StartedAt time.Time `json:"startedAt"`
}

// CacheStats is a point-in-time view of the response cache.
type CacheStats struct {
	Enabled bool         `json:"enabled"`
	Size    int          `json:"size"`
	MaxSize int          `json:"maxSize"`
	HitRate float64      `json:"hitRate"`
	Metrics CacheMetrics `json:"metrics"`
}

// TokenState classifies an estimated request size against the token budget.
type TokenState string

const (
	TokenOK       TokenState = "ok"
	TokenWarning  TokenState = "warning"
	TokenCritical TokenState = "critical"
)

// TokenEstimate is the outcome of a token budget evaluation.
type TokenEstimate struct {
	EstimatedTokens int64      `json:"estimatedTokens"`
	Status          TokenState `json:"status"`
}

// Admission bundles everything the boundary layer needs to act on one
// request: the rate limit decision, the size estimate, and whether cost
// controls have blocked the service.
type Admission struct {
	// RequestID correlates this decision across logs and responses.
	RequestID string
	Decision  Decision
	Estimate  TokenEstimate
	Blocked   bool
}
