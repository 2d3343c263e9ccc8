package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when a file lock cannot be taken in time.
var ErrLockTimeout = errors.New("timed out waiting for file lock")

const lockRetryDelay = 25 * time.Millisecond

// LockFile takes an flock on the sidecar file path+".lock". Exclusive locks
// serialize writers; shared locks only exclude writers. The returned function
// releases the lock.
func LockFile(ctx context.Context, path string, timeout time.Duration, exclusive bool) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fl := flock.New(path + ".lock")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var ok bool
	var err error
	if exclusive {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && !ok) {
		return nil, fmt.Errorf("%s: %w", path, ErrLockTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return fl.Unlock, nil
}
