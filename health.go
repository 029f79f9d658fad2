package aiguard

import (
	"encoding/json"
	"net/http"
)

// Overall health levels reported at the health endpoint.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// RateLimiterHealth is the limiter section of the health report.
type RateLimiterHealth struct {
	Mode string `json:"mode"`
}

// HealthReport aggregates the status of all guard components. Building it
// reads counters but never mutates admission state.
type HealthReport struct {
	Status      string            `json:"status"`
	Spending    SpendStatus       `json:"spending"`
	RateLimiter RateLimiterHealth `json:"rateLimiter"`
	TokenBudget TokenBudgetConfig `json:"tokenBudget"`
	Cache       CacheStats        `json:"cache"`
}

// Health builds the aggregate health report.
func (g *Guard) Health() HealthReport {
	spending := g.spend.Status()

	return HealthReport{
		Status:      healthLevel(spending),
		Spending:    spending,
		RateLimiter: RateLimiterHealth{Mode: g.limiter.Mode()},
		TokenBudget: g.tokens.Thresholds(),
		Cache:       g.cache.Stats(),
	}
}

func healthLevel(spending SpendStatus) string {
	switch {
	case spending.IsBlocked:
		return HealthCritical
	case spending.Hourly.Status == SpendWarning || spending.Daily.Status == SpendWarning:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// HealthHandler serves the health report as JSON for operators. The
// response carries Cache-Control: no-store so monitoring always observes
// current state.
func (g *Guard) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		// Always 200: a spend block degrades AI features, it does not
		// make the instance unservable, so the body carries the severity.
		_ = json.NewEncoder(w).Encode(g.Health())
	})
}
