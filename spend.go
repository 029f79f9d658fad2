package aiguard

import (
	"sync"
	"time"
)

// SpendingTracker tallies monetary spend against hourly and daily ceilings.
//
// Windows are rolling periods anchored at construction time, not snapped to
// wall-clock boundaries. Rollover is lazy: any Record or Status call first
// advances windows whose reset time has passed. The tracker only reports;
// it never short-circuits calls itself, and recorded spend is never
// truncated at the limit.
type SpendingTracker struct {
	mu     sync.Mutex
	cfg    SpendConfig
	hourly spendWindow
	daily  spendWindow
	now    func() time.Time
}

type spendWindow struct {
	spentCents int64
	limitCents int64
	length     time.Duration
	start      time.Time
	resetAt    time.Time
}

// NewSpendingTracker creates a SpendingTracker. Both limits must be
// positive and WarningFraction must be in (0, 1).
func NewSpendingTracker(cfg SpendConfig) (*SpendingTracker, error) {
	if cfg.WarningFraction == 0 {
		cfg.WarningFraction = DefaultWarningFraction
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	t := &SpendingTracker{
		cfg: cfg,
		now: time.Now,
	}
	start := t.now()
	t.hourly = newSpendWindow(cfg.HourlyLimitCents, time.Hour, start)
	t.daily = newSpendWindow(cfg.DailyLimitCents, 24*time.Hour, start)
	return t, nil
}

func newSpendWindow(limitCents int64, length time.Duration, start time.Time) spendWindow {
	return spendWindow{
		limitCents: limitCents,
		length:     length,
		start:      start,
		resetAt:    start.Add(length),
	}
}

// Record adds a cost to both windows. Safe for concurrent use; concurrent
// increments are never lost.
func (t *SpendingTracker) Record(costCents int64) {
	if costCents < 0 {
		costCents = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.hourly.rollover(now)
	t.daily.rollover(now)
	t.hourly.spentCents += costCents
	t.daily.spentCents += costCents
}

// Status reports both windows and the aggregate block flag. It is safe to
// call at arbitrary concurrency; the lazy rollover it may perform is
// idempotent and does not change any admission decision.
func (t *SpendingTracker) Status() SpendStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.hourly.rollover(now)
	t.daily.rollover(now)

	hourly := t.hourly.status(t.cfg.WarningFraction)
	daily := t.daily.status(t.cfg.WarningFraction)

	return SpendStatus{
		Hourly:    hourly,
		Daily:     daily,
		IsBlocked: hourly.Status == SpendExceeded || daily.Status == SpendExceeded,
	}
}

// rollover advances the window until its reset time is in the future,
// zeroing the counter. Advancing by whole window lengths keeps the phase
// stable across idle periods.
func (w *spendWindow) rollover(now time.Time) {
	if now.Before(w.resetAt) {
		return
	}
	for !now.Before(w.resetAt) {
		w.start = w.resetAt
		w.resetAt = w.resetAt.Add(w.length)
	}
	w.spentCents = 0
}

func (w *spendWindow) status(warningFraction float64) WindowStatus {
	pct := float64(w.spentCents) / float64(w.limitCents)

	state := SpendOK
	switch {
	case w.spentCents >= w.limitCents:
		state = SpendExceeded
	case pct >= warningFraction:
		state = SpendWarning
	}

	return WindowStatus{
		SpentCents: w.spentCents,
		LimitCents: w.limitCents,
		Percentage: pct,
		Status:     state,
		ResetAt:    w.resetAt,
	}
}
