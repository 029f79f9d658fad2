package aiguard

import "time"

// Meter observes guard events for monitoring/logging.
type Meter interface {
	// OnAdmit is called after every admission decision.
	OnAdmit(event AdmitEvent)

	// OnSpend is called when a completed request's cost is recorded.
	OnSpend(event SpendEvent)
}

// AdmitEvent describes one admission decision.
type AdmitEvent struct {
	RequestID       string
	Identity        string
	Allowed         bool
	Count           int64
	Mode            string
	EstimatedTokens int64
	TokenStatus     TokenState
	RetryAfter      time.Duration
}

// SpendEvent describes a recorded provider cost.
type SpendEvent struct {
	CostCents   int64
	HourlySpent int64
	DailySpent  int64
	Blocked     bool
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (m *noopMeter) OnAdmit(AdmitEvent) {}
func (m *noopMeter) OnSpend(SpendEvent) {}
