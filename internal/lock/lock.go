package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var ErrTimeout = errors.New("lock: wait timed out")

// KeyedMutex hands out one exclusive slot per key. Different keys never
// contend with each other.
type KeyedMutex struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		sems: make(map[string]*semaphore.Weighted),
	}
}

// Acquire blocks until the slot for key is free, wait elapses, or ctx is done.
// A non-positive wait means no bound beyond ctx. The returned func releases
// the slot and must be called exactly once.
func (m *KeyedMutex) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	sem := m.get(key)

	acquireCtx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	if err := sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTimeout
	}

	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

func (m *KeyedMutex) get(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sem, ok := m.sems[key]; ok {
		return sem
	}
	sem := semaphore.NewWeighted(1)
	m.sems[key] = sem
	return sem
}
