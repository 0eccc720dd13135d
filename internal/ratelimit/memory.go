package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
}

// MemoryCounter is an in-process Counter for single-instance deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxAge  time.Duration
	now     func() time.Time
}

// NewMemoryCounter creates an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Incr implements Counter.
func (m *MemoryCounter) Incr(_ context.Context, key string, length time.Duration) (int64, time.Time, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if length > m.maxAge {
		m.maxAge = length
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.start.Add(length)) {
		w = &window{start: now}
		m.windows[key] = w
	}
	w.count++

	return w.count, w.start.Add(length), nil
}

// Prune drops windows that can no longer affect a decision.
func (m *MemoryCounter) Prune() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.start.Add(m.maxAge)) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Run prunes expired windows every interval until ctx is cancelled.
func (m *MemoryCounter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}
