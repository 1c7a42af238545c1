package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked refresh re-checks the lock.
const lockRetryDelay = 100 * time.Millisecond

// FileLock is an advisory lock file guarding refresh-and-write of the
// canonical dataset across processes.
type FileLock struct {
	fl *flock.Flock
}

// NewFileLock creates a lock backed by path (usually "<dataset>.lock").
func NewFileLock(path string) *FileLock {
	return &FileLock{fl: flock.New(path)}
}

// Lock blocks until the lock is held or ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	ok, err := l.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", l.fl.Path())
	}
	return nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	return l.fl.Unlock()
}
