package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryLockerTryLock(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)}
	m := NewMemoryLocker(WithMemoryClock(clock.Now))
	defer m.Close()
	ctx := context.Background()

	ok, err := m.TryLock(ctx, "dispatch:s1:email", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first TryLock = %v, %v; want true", ok, err)
	}
	ok, _ = m.TryLock(ctx, "dispatch:s1:email", time.Hour)
	if ok {
		t.Fatal("second TryLock should fail while held")
	}
	ok, _ = m.TryLock(ctx, "dispatch:s1:chat", time.Hour)
	if !ok {
		t.Fatal("different key should lock")
	}

	clock.Advance(time.Hour)
	ok, _ = m.TryLock(ctx, "dispatch:s1:email", time.Hour)
	if !ok {
		t.Fatal("expired lock should be re-acquirable")
	}
}

func TestMemoryLockerUnlock(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Close()
	ctx := context.Background()

	if err := m.Unlock(ctx, "missing"); err != nil {
		t.Fatalf("Unlock of absent key: %v", err)
	}
	if ok, _ := m.TryLock(ctx, "k", time.Minute); !ok {
		t.Fatal("TryLock failed")
	}
	if err := m.Unlock(ctx, "k"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if ok, _ := m.TryLock(ctx, "k", time.Minute); !ok {
		t.Fatal("TryLock after Unlock should succeed")
	}
}

func TestMemoryLockerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMemoryLocker(WithMemoryClock(clock.Now))
	defer m.Close()
	ctx := context.Background()

	_, _ = m.TryLock(ctx, "a", time.Second)
	_, _ = m.TryLock(ctx, "b", time.Minute)
	clock.Advance(2 * time.Second)
	m.sweep()
	if got := m.Len(); got != 1 {
		t.Fatalf("Len after sweep = %d, want 1", got)
	}
}

func TestMemoryLockerConcurrent(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.TryLock(context.Background(), "same", time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("winners = %d, want 1", wins.Load())
	}
}

func TestMemoryLockerCloseIdempotent(t *testing.T) {
	m := NewMemoryLocker()
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRedisWrapKey(t *testing.T) {
	c := &RedisLocker{prefix: "alertrelay"}
	if got := c.wrapKey("dispatch:s1:email"); got != "alertrelay:dispatch:s1:email" {
		t.Fatalf("wrapKey = %q", got)
	}
	c.prefix = ""
	if got := c.wrapKey("k"); got != "k" {
		t.Fatalf("wrapKey without prefix = %q", got)
	}
}
