package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memLock struct {
	token   string
	expires time.Time
	noexp   bool
}

type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memLock
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]memLock{}, now: time.Now}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[key]; ok {
		if held.noexp || l.now().Before(held.expires) {
			return "", false, nil
		}
	}
	it := memLock{token: uuid.NewString()}
	if ttl <= 0 {
		it.noexp = true
	} else {
		it.expires = l.now().Add(ttl)
	}
	l.locks[key] = it
	return it.token, true, nil
}

func (l *MemoryLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[key]; ok && held.token == token {
		delete(l.locks, key)
	}
	return nil
}
