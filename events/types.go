package events

import (
	"time"

	"github.com/gelsogrove/shopME-sub006/types"
)

// EventType identifies the type of event emitted by the engine.
type EventType string

const (
	// EventLockAcquired marks a successful lock acquisition.
	EventLockAcquired EventType = "lock.acquired"
	// EventLockReleased marks a lock release.
	EventLockReleased EventType = "lock.released"
	// EventLockExpired marks a lock force-expired by the stale sweep.
	EventLockExpired EventType = "lock.expired"

	// EventQueueEnqueued marks an operation queued behind a held lock.
	EventQueueEnqueued EventType = "queue.enqueued"
	// EventQueueFull marks an enqueue rejected for capacity.
	EventQueueFull EventType = "queue.full"
	// EventQueueRetry marks a retry of a failed queued operation.
	EventQueueRetry EventType = "queue.retry"
	// EventQueueDropped marks a queued operation dropped after exhausting
	// its retry budget.
	EventQueueDropped EventType = "queue.dropped"

	// EventSyncCompleted marks a completed cart state sync.
	EventSyncCompleted EventType = "sync.completed"
	// EventSyncFailed marks a failed cart state sync.
	EventSyncFailed EventType = "sync.failed"

	// EventCacheHit marks a cart state served from cache.
	EventCacheHit EventType = "cache.hit"
	// EventCacheMiss marks a cart state lookup that had to resync.
	EventCacheMiss EventType = "cache.miss"
	// EventCacheRefreshed marks a forced cache refresh.
	EventCacheRefreshed EventType = "cache.refreshed"

	// EventValidationCompleted marks a validation pass over a cached state.
	EventValidationCompleted EventType = "validation.completed"
	// EventInconsistencyDetected marks a checksum or total mismatch.
	EventInconsistencyDetected EventType = "validation.inconsistency"

	// EventRoutingDecided marks a routing decision for a message.
	EventRoutingDecided EventType = "routing.decided"
)

// EventData is implemented by all event payloads.
type EventData interface {
	eventData()
}

// Event represents an engine event delivered to listeners.
type Event struct {
	Type        EventType
	Timestamp   time.Time
	CustomerID  string
	WorkspaceID string
	Data        EventData
}

// baseEventData provides a shared marker implementation for all payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// LockEventData is the unified payload for lock lifecycle events.
type LockEventData struct {
	baseEventData
	LockID    string
	Operation types.CartOperationType
	// HeldFor is set on release/expiry.
	HeldFor time.Duration
}

// QueueEventData is the unified payload for queue lifecycle events.
type QueueEventData struct {
	baseEventData
	OperationID string
	Operation   types.CartOperationType
	Depth       int // queue depth after the transition
	Attempt     int // set on retry/dropped
	Error       error
}

// SyncEventData is the payload for sync completion and failure events.
type SyncEventData struct {
	baseEventData
	Operation types.CartOperationType
	Duration  time.Duration
	ItemCount int
	Error     error
}

// ValidationEventData is the payload for validation events.
type ValidationEventData struct {
	baseEventData
	Errors   int
	Warnings int
}

// RoutingEventData is the payload for routing decision events.
type RoutingEventData struct {
	baseEventData
	Path       types.RoutePath
	Action     types.RouteAction
	Confidence float64
}
