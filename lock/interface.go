// Package lock defines the advisory-locking capability the bot uses to
// serialize concurrent webhook handling for the same named resource.
// A lock is identified by an opaque name. The timeout passed to
// WaitLockResource bounds how long an acquirer waits; the redislock
// adapter also uses it as the lock's expiry, while lock/memory holds a
// lock until it is released.
package lock

import (
	"context"
	"time"
)

// Handle is a held lock. Release is idempotent: releasing an
// already-released or expired Handle is a no-op.
type Handle interface {
	Release(ctx context.Context) error
}

// Lock is the capability object used to serialize access to named
// resources across goroutines (and, for the redislock adapter, across
// processes).
type Lock interface {
	// WaitLockResource attempts to acquire name, waiting up to
	// timeout for a competing holder to release it. alreadyLocked is
	// true when the timeout elapsed without acquiring the lock.
	WaitLockResource(ctx context.Context, name string, timeout time.Duration) (handle Handle, alreadyLocked bool, err error)
}

// UsingLock acquires name for the duration of fn and releases it
// afterwards, regardless of fn's outcome. It reports whether the lock
// was already held by someone else (in which case fn is not called).
func UsingLock(ctx context.Context, l Lock, name string, timeout time.Duration, fn func(ctx context.Context) error) (alreadyLocked bool, err error) {
	handle, already, err := l.WaitLockResource(ctx, name, timeout)
	if err != nil {
		return false, err
	}
	if already {
		return true, nil
	}
	defer handle.Release(ctx)
	return false, fn(ctx)
}
