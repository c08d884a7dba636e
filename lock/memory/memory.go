// Package memory is an in-memory lock.Lock implementation backed by a
// map of named mutexes. It is single-process only, which is
// sufficient for tests and single-instance dev-mode; production
// multi-instance deployments use lock/redislock instead.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sharingcloud/prbot/lock"
)

// Lock is an in-memory lock.Lock. The zero value is not ready to use;
// call New.
type Lock struct {
	mu    sync.Mutex
	held  map[string]chan struct{}
}

// New returns a ready-to-use in-memory Lock.
func New() *Lock {
	return &Lock{held: map[string]chan struct{}{}}
}

type handle struct {
	l    *Lock
	name string
	done chan struct{}
	once sync.Once
}

func (h *handle) Release(_ context.Context) error {
	h.once.Do(func() {
		h.l.mu.Lock()
		if h.l.held[h.name] == h.done {
			delete(h.l.held, h.name)
		}
		h.l.mu.Unlock()
		close(h.done)
	})
	return nil
}

// WaitLockResource implements lock.Lock.
func (l *Lock) WaitLockResource(ctx context.Context, name string, timeout time.Duration) (lock.Handle, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		l.mu.Lock()
		existing, busy := l.held[name]
		if !busy {
			done := make(chan struct{})
			l.held[name] = done
			l.mu.Unlock()
			return &handle{l: l, name: name, done: done}, false, nil
		}
		l.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, true, nil
		}
		wait := remaining
		if wait > 10*time.Millisecond {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-existing:
			timer.Stop()
		case <-timer.C:
		}
	}
}
