package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gelsogrove/shopME-sub006/types"
)

// collector gathers events for assertions; Publish is asynchronous so tests
// wait on the WaitGroup.
type collector struct {
	mu     sync.Mutex
	events []*Event
	wg     sync.WaitGroup
}

func (c *collector) listen(e *Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	c.wg.Done()
}

func (c *collector) byType(t EventType) []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestEventBus_SubscribeSpecificType(t *testing.T) {
	bus := NewEventBus()
	c := &collector{}
	c.wg.Add(1)

	bus.Subscribe(EventLockAcquired, c.listen)

	emitter := NewEmitter(bus, "cust-1", "ws-1")
	emitter.LockAcquired("lock-1", types.OpAdd)
	emitter.SyncCompleted(types.OpView, time.Millisecond, 2) // no listener

	c.wg.Wait()

	got := c.byType(EventLockAcquired)
	assert.Len(t, got, 1)
	assert.Equal(t, "cust-1", got[0].CustomerID)
	assert.Equal(t, "ws-1", got[0].WorkspaceID)

	data, ok := got[0].Data.(LockEventData)
	assert.True(t, ok)
	assert.Equal(t, "lock-1", data.LockID)
	assert.Equal(t, types.OpAdd, data.Operation)
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus()
	c := &collector{}
	c.wg.Add(2)

	bus.SubscribeAll(c.listen)

	emitter := NewEmitter(bus, "cust-1", "ws-1")
	emitter.QueueFull(types.OpAdd, 50)
	emitter.CacheHit()

	c.wg.Wait()

	assert.Len(t, c.byType(EventQueueFull), 1)
	assert.Len(t, c.byType(EventCacheHit), 1)
}

func TestEmitter_NilBusIsSilent(t *testing.T) {
	var emitter *Emitter

	// Must not panic.
	emitter.LockAcquired("lock-1", types.OpAdd)
	NewEmitter(nil, "c", "w").CacheMiss()
}

func TestEventBus_PanickingListenerIsContained(t *testing.T) {
	bus := NewEventBus()
	c := &collector{}
	c.wg.Add(1)

	bus.Subscribe(EventCacheHit, func(*Event) { panic("boom") })
	bus.Subscribe(EventCacheHit, c.listen)

	NewEmitter(bus, "c", "w").CacheHit()

	c.wg.Wait()
	assert.Len(t, c.byType(EventCacheHit), 1)
}
