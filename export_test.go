package aiguard

import "time"

// Test hooks for deterministic window math.

// SetClock overrides the backend's time source.
func (m *MemoryBackend) SetClock(now func() time.Time) { m.now = now }

// SetClock overrides the tracker's time source and re-anchors both
// windows to it.
func (t *SpendingTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	start := now()
	t.hourly = newSpendWindow(t.cfg.HourlyLimitCents, time.Hour, start)
	t.daily = newSpendWindow(t.cfg.DailyLimitCents, 24*time.Hour, start)
}

// LocalBackend exposes the limiter's fallback counter.
func (l *RateLimiter) LocalBackend() *MemoryBackend { return l.local }
