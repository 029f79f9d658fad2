package aiguard

import (
	"context"
	"sync"
	"time"
)

// Backend is the counter store behind a RateLimiter. Implementations must
// perform the increment and the window bookkeeping as one atomic operation
// (a single round trip for networked stores) and be safe for concurrent use.
type Backend interface {
	// Incr increments the counter for key, creating the window when
	// absent and resetting it when the window has elapsed. It returns
	// the count after this increment and the time remaining until the
	// window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type memoryWindow struct {
	count int64
	start time.Time
}

// MemoryBackend is an in-process fixed-window counter backed by a map.
//
// It is safe for concurrent use, but its state is local to the process and
// is not shared across replicas. It doubles as the fallback store when a
// distributed backend is unreachable.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend constructs a MemoryBackend with empty state.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Incr implements Backend. It never returns an error.
func (m *MemoryBackend) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok {
		w = &memoryWindow{}
		m.windows[key] = w
		w.start = now
	} else if now.Sub(w.start) >= window {
		// Lazy rollover: the counter resets to zero, never decrements.
		w.count = 0
		w.start = now
	}

	w.count++
	ttl := w.start.Add(window).Sub(now)
	return w.count, ttl, nil
}

// Len returns the number of live windows. Used by tests and health checks.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
