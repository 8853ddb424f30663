package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker for a single process.
type MemoryLocker struct {
	mu      sync.Mutex
	keys    map[string]time.Time // key -> expiry
	now     func() time.Time
	ticker  *time.Ticker
	stop    chan struct{}
	stopped sync.Once
}

// NewMemoryLocker creates an in-memory locker with a background sweep of expired keys.
func NewMemoryLocker(opts ...MemoryOption) *MemoryLocker {
	cfg := &MemoryConfig{
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &MemoryLocker{
		keys:   make(map[string]time.Time),
		now:    cfg.Now,
		ticker: time.NewTicker(cfg.CleanupInterval),
		stop:   make(chan struct{}),
	}
	go m.cleanupExpired()
	return m
}

func (m *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.keys[key] = now.Add(ttl)
	return true, nil
}

func (m *MemoryLocker) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.keys, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of keys currently stored, expired or not.
func (m *MemoryLocker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// Close stops the background sweep.
func (m *MemoryLocker) Close() error {
	m.stopped.Do(func() {
		m.ticker.Stop()
		close(m.stop)
	})
	return nil
}

func (m *MemoryLocker) cleanupExpired() {
	for {
		select {
		case <-m.ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryLocker) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.keys {
		if !now.Before(exp) {
			delete(m.keys, k)
		}
	}
}

var _ Locker = (*MemoryLocker)(nil)
