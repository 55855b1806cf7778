package cache

import (
	"time"
)

// Lease guards a named resource across processes for a bounded time
type Lease interface {
	// Acquire takes the lease if nobody holds it. It reports false, without
	// error, when another holder has it.
	Acquire(key string, ttl time.Duration) (bool, error)

	// Release gives the lease back
	Release(key string) error
}

// NoopLease always grants the lease; used when a single process owns the store
type NoopLease struct{}

// Acquire always succeeds
func (NoopLease) Acquire(string, time.Duration) (bool, error) { return true, nil }

// Release does nothing
func (NoopLease) Release(string) error { return nil }
