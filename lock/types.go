package lock

import (
	"errors"
	"time"

	"github.com/gelsogrove/shopME-sub006/types"
)

// Default tuning. All of these are overridable through Options.
const (
	// DefaultLockTTL force-expires a lock whose holder never released it.
	DefaultLockTTL = 30 * time.Second
	// DefaultSweepInterval is how often stale locks are force-expired.
	DefaultSweepInterval = 5 * time.Second
	// DefaultMaxQueue bounds the per-key FIFO of waiting operations.
	DefaultMaxQueue = 50
	// DefaultMaxRetries bounds re-execution of a failed queued operation.
	DefaultMaxRetries = 3
	// DefaultBackoffBase is the linear backoff unit between retries
	// (attempt n waits n * base).
	DefaultBackoffBase = 1 * time.Second
)

// ErrQueueFull is returned when a (customer, workspace) queue is at capacity.
// It is a deliberate backpressure signal, never a silent drop.
var ErrQueueFull = errors.New("cart operation queue is full")

// ErrRetriesExhausted is returned when a queued operation failed on every
// attempt within its retry budget.
var ErrRetriesExhausted = errors.New("cart operation retries exhausted")

// CartLock describes the exclusive execution slot currently held for a
// (customer, workspace) pair. Zero or one live lock exists per pair.
type CartLock struct {
	CustomerID  string
	WorkspaceID string
	Operation   types.CartOperationType
	LockID      string
	AcquiredAt  time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the lock's TTL has passed.
func (l *CartLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Key returns the serialization key for a (customer, workspace) pair.
func Key(customerID, workspaceID string) string {
	return workspaceID + ":" + customerID
}
