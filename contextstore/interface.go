// Package contextstore remembers short-lived disambiguation state between
// chat turns: the last candidate list a customer was shown and the outcome of
// their last cart operation.
//
// The store is a keyed TTL service. Backends implement the minimal keyed
// store contract (get/set/delete/sweep) so a single-instance deployment can
// run on an in-process map while a multi-instance deployment shares a Redis
// backend; the Service layered on top owns the domain operations and the one
// background sweep goroutine.
package contextstore

import "context"

// Backend is the keyed store a Service persists contexts in.
// Implementations must be safe for concurrent use.
//
// Get returns (nil, nil) when no live context exists for the key; an expired
// context must be evicted and reported as absent. Absence is never an error.
type Backend interface {
	Get(ctx context.Context, key string) (*ConversationContext, error)
	Set(ctx context.Context, key string, value *ConversationContext) error
	Delete(ctx context.Context, key string) error

	// Sweep evicts every expired context and returns how many it removed.
	// Backends with native expiry may make this a no-op.
	Sweep(ctx context.Context) (int, error)
}
