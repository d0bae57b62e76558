// Package cartstate keeps a cached cart view provably consistent with the
// authoritative store.
//
// The synchronizer rebuilds a normalized CartState from storage on every
// sync, stamps it with a canonical checksum, and replaces the cached copy
// wholesale. A periodic validator recomputes checksums and totals from the
// cached items and force-refreshes any state proven wrong: cached state is
// never trusted once a mismatch is detected, and repair is automatic.
package cartstate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gelsogrove/shopME-sub006/types"
)

// CacheStore is the keyed store cached cart states live in. Implementations
// must be safe for concurrent use. Get returns (nil, nil) when no entry
// exists; entries are always replaced wholesale, never patched.
type CacheStore interface {
	Get(ctx context.Context, key string) (*types.CartState, error)
	Set(ctx context.Context, key string, state *types.CartState) error
	Delete(ctx context.Context, key string) error

	// List snapshots every cached state, keyed as stored. The validator
	// iterates this.
	List(ctx context.Context) (map[string]*types.CartState, error)
}

// MemoryCache is an in-process CacheStore.
type MemoryCache struct {
	mu     sync.RWMutex
	states map[string]*types.CartState
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{states: make(map[string]*types.CartState)}
}

// Get returns a deep copy of the cached state, or (nil, nil).
func (c *MemoryCache) Get(ctx context.Context, key string) (*types.CartState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.states[key]
	if !ok {
		return nil, nil
	}
	return copyState(state), nil
}

// Set replaces the cached state for key.
func (c *MemoryCache) Set(ctx context.Context, key string, state *types.CartState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[key] = copyState(state)
	return nil
}

// Delete removes the cached state for key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, key)
	return nil
}

// List snapshots all cached states.
func (c *MemoryCache) List(ctx context.Context) (map[string]*types.CartState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*types.CartState, len(c.states))
	for key, state := range c.states {
		out[key] = copyState(state)
	}
	return out, nil
}

// corrupt is a test hook: it mutates the stored state in place, bypassing
// the wholesale-replacement rule, to simulate cache drift.
func (c *MemoryCache) corrupt(key string, mutate func(*types.CartState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[key]; ok {
		mutate(state)
	}
}

func copyState(state *types.CartState) *types.CartState {
	if state == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil
	}
	var out types.CartState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// Key returns the cache key for a (customer, workspace) pair.
func Key(customerID, workspaceID string) string {
	return workspaceID + ":" + customerID
}
