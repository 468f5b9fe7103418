package lock

import (
	"context"
	"time"
)

// Locker hands out named, expiring locks. A held lock that is never released
// expires after its ttl so a crashed run cannot wedge the pipeline.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}
