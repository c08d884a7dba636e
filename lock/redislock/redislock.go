// Package redislock is the production lock.Lock backed by Redis, via
// go-redsync and go-redis (enrichment grounded on harness-Harness and
// other pack repos that use redsync/go-redis for distributed locking;
// mungegithub never needed cross-process locking since it runs a
// single polling process).
package redislock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"github.com/sharingcloud/prbot/lock"
	"github.com/sharingcloud/prbot/prerr"
)

// Lock is a redsync-backed lock.Lock.
type Lock struct {
	rs *redsync.Redsync
}

// New connects to a Redis instance at addr and returns a ready-to-use
// Lock.
func New(addr string) *Lock {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pool := goredis.NewPool(client)
	return &Lock{rs: redsync.New(pool)}
}

var _ lock.Lock = (*Lock)(nil)

type handle struct {
	mutex *redsync.Mutex
}

func (h *handle) Release(ctx context.Context) error {
	if _, err := h.mutex.ReleaseContext(ctx); err != nil {
		return prerr.Lock("release distributed lock", err)
	}
	return nil
}

// WaitLockResource attempts to acquire name for up to timeout,
// retrying every 10ms until either it succeeds or the deadline passes.
func (l *Lock) WaitLockResource(ctx context.Context, name string, timeout time.Duration) (lock.Handle, bool, error) {
	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(timeout),
		redsync.WithTries(1),
	)

	deadline := time.Now().Add(timeout)
	for {
		err := mutex.LockContext(ctx)
		if err == nil {
			return &handle{mutex: mutex}, false, nil
		}
		if time.Now().After(deadline) {
			return nil, true, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, prerr.Lock("wait for distributed lock", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
