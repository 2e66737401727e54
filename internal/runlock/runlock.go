// Package runlock guards a snapshot store root against overlapping runs.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".run.lock"

// ErrRunInProgress is returned when another run already holds the store root.
var ErrRunInProgress = errors.New("another run is already in progress for this store root")

// Lock is an advisory lock on a store root. At most one run may hold it.
type Lock struct {
	fileLock *flock.Flock
}

// Acquire takes the advisory lock for root, failing fast with
// ErrRunInProgress when a concurrent run holds it.
func Acquire(root string) (*Lock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root %s: %w", root, err)
	}

	fileLock := flock.New(filepath.Join(root, lockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	return &Lock{fileLock: fileLock}, nil
}

// Release frees the lock.
func (l *Lock) Release() error {
	return l.fileLock.Unlock()
}
