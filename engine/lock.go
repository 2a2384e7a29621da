package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 250 * time.Millisecond

// Lock is a cross-process exclusive lock held while an engine instance runs.
// Two LibreOffice instances sharing one user profile corrupt each other, so
// lokit processes queue on this lock.
type Lock struct {
	fl *flock.Flock
}

// DefaultLockPath returns the lock file used when none is configured.
func DefaultLockPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "lokit", "engine.lock")
}

// AcquireLock blocks until the lock at path is held or ctx is done.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire engine lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire engine lock %s", path)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
