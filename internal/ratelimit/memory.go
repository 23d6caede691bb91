package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/clock"
)

type bucket struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// Memory is a single-process Limiter. One mutex guards all buckets; the
// critical section is a map lookup and an increment.
type Memory struct {
	clock   clock.Clock
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewMemory(c clock.Clock) *Memory {
	if c == nil {
		c = clock.System
	}
	return &Memory{clock: c, buckets: make(map[string]*bucket)}
}

func (m *Memory) Check(_ context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.Sub(b.windowStart) > b.window {
		m.buckets[key] = &bucket{count: 1, windowStart: now, window: window}
		return Decision{Allowed: max >= 1, Remaining: max - 1, ResetAt: now.Add(window)}, nil
	}
	reset := b.windowStart.Add(b.window)
	if b.count >= max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: reset}, nil
	}
	b.count++
	return Decision{Allowed: true, Remaining: max - b.count, ResetAt: reset}, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.buckets, key)
	m.mu.Unlock()
	return nil
}

// Sweep drops buckets whose window has elapsed and returns how many.
func (m *Memory) Sweep() int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, b := range m.buckets {
		if now.Sub(b.windowStart) > b.window {
			delete(m.buckets, k)
			n++
		}
	}
	return n
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
