package contextstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend suitable for tests and
// single-instance deployments. It is thread-safe and stores deep copies so
// callers can never mutate a live entry in place.
type MemoryBackend struct {
	mu       sync.RWMutex
	contexts map[string]*ConversationContext

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		contexts: make(map[string]*ConversationContext),
		now:      time.Now,
	}
}

// Get returns the live context for key, or (nil, nil) when absent.
// An expired entry is evicted on the spot.
func (b *MemoryBackend) Get(ctx context.Context, key string) (*ConversationContext, error) {
	b.mu.RLock()
	cc, ok := b.contexts[key]
	b.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if cc.Expired(b.now()) {
		b.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry with a fresh one.
		if cur, ok := b.contexts[key]; ok && cur.Expired(b.now()) {
			delete(b.contexts, key)
		}
		b.mu.Unlock()
		return nil, nil
	}

	return deepCopy(cc), nil
}

// Set stores a deep copy of value under key, replacing any previous entry.
func (b *MemoryBackend) Set(ctx context.Context, key string, value *ConversationContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contexts[key] = deepCopy(value)
	return nil
}

// Delete removes the entry for key. Deleting an absent key is a no-op.
func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.contexts, key)
	return nil
}

// Sweep evicts every expired context.
func (b *MemoryBackend) Sweep(ctx context.Context) (int, error) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := 0
	for key, cc := range b.contexts {
		if cc.Expired(now) {
			delete(b.contexts, key)
			evicted++
		}
	}
	return evicted, nil
}

// Len returns the number of stored contexts, live or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.contexts)
}

func deepCopy(cc *ConversationContext) *ConversationContext {
	if cc == nil {
		return nil
	}
	data, err := json.Marshal(cc)
	if err != nil {
		return nil
	}
	var out ConversationContext
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}
