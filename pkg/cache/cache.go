package cache

import (
	"context"
	"time"
)

// Locker takes short-lived exclusive keys.
type Locker interface {
	// TryLock sets key if absent and reports whether this call took it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock releases key. Releasing an absent key is not an error.
	Unlock(ctx context.Context, key string) error
	Close() error
}
