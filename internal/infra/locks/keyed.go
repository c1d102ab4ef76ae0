package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAcquireTimeout means the per-key slot stayed busy past the wait bound.
// Callers treat it as retryable and fail the booking closed.
var ErrAcquireTimeout = errors.New("locks: acquire timed out")

// Keyed hands out one exclusive slot per key. It serializes the
// check-then-act sequence of bookings that target the same venue while
// leaving unrelated venues untouched.
type Keyed struct {
	wait  time.Duration
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewKeyed builds a locker whose Acquire gives up after wait.
func NewKeyed(wait time.Duration) *Keyed {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Keyed{wait: wait, slots: make(map[string]chan struct{})}
}

// Acquire blocks until the key's slot frees up, the context ends, or the
// wait bound elapses. The returned release function is safe to call once on
// every exit path.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	slot := k.slot(key)
	timer := time.NewTimer(k.wait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrAcquireTimeout
	}
}

func (k *Keyed) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot, ok := k.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[key] = slot
	}
	return slot
}
