// Package locking serializes work on the same entities
package locking

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired in time
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over
	ErrLockNotHeld = errors.New("lock not held")
)

// Unlock releases every key taken by a Lock call
type Unlock func()

// Locker acquires exclusive access to a set of keys
type Locker interface {
	// Lock blocks until every key is held, the context ends or the locker's
	// timeout elapses
	Lock(ctx context.Context, keys ...string) (Unlock, error)
}

// normalizeKeys sorts and dedupes keys so overlapping callers always acquire
// in the same order
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
