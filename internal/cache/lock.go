package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockPollInterval = 100 * time.Millisecond
	lockTimeout      = 5 * time.Second
)

// acquireLock implements the specification's cache-directory lock:
// exclusive acquisition of `<cache_key>.lock`, polled every 100ms for up
// to 5s, failing with an error that names the lock path so an operator
// can find and inspect a stuck lock. gofrs/flock's TryLockContext gives
// the same poll-with-timeout shape as an OS-level advisory lock instead
// of a hand-rolled O_EXCL retry loop.
func acquireLock(path string) (*flock.Flock, error) {
	fl := flock.New(path)

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return nil, fmt.Errorf("cache: could not acquire lock %s within %s: %w", path, lockTimeout, err)
	}
	if !locked {
		return nil, fmt.Errorf("cache: could not acquire lock %s within %s", path, lockTimeout)
	}
	return fl, nil
}

func releaseLock(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	return fl.Unlock()
}
