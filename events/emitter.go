package events

import (
	"time"

	"github.com/gelsogrove/shopME-sub006/types"
)

// Emitter publishes engine events for one (customer, workspace) pair.
// A nil Emitter (or one with a nil bus) silently drops every emit, so
// components can treat event publication as optional.
type Emitter struct {
	bus         *EventBus
	customerID  string
	workspaceID string
}

// NewEmitter creates an emitter bound to a customer and workspace.
func NewEmitter(bus *EventBus, customerID, workspaceID string) *Emitter {
	return &Emitter{
		bus:         bus,
		customerID:  customerID,
		workspaceID: workspaceID,
	}
}

func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	e.bus.Publish(&Event{
		Type:        eventType,
		Timestamp:   time.Now(),
		CustomerID:  e.customerID,
		WorkspaceID: e.workspaceID,
		Data:        data,
	})
}

// LockAcquired emits lock.acquired.
func (e *Emitter) LockAcquired(lockID string, op types.CartOperationType) {
	e.emit(EventLockAcquired, LockEventData{LockID: lockID, Operation: op})
}

// LockReleased emits lock.released.
func (e *Emitter) LockReleased(lockID string, op types.CartOperationType, heldFor time.Duration) {
	e.emit(EventLockReleased, LockEventData{LockID: lockID, Operation: op, HeldFor: heldFor})
}

// LockExpired emits lock.expired.
func (e *Emitter) LockExpired(lockID string, op types.CartOperationType, heldFor time.Duration) {
	e.emit(EventLockExpired, LockEventData{LockID: lockID, Operation: op, HeldFor: heldFor})
}

// QueueEnqueued emits queue.enqueued.
func (e *Emitter) QueueEnqueued(operationID string, op types.CartOperationType, depth int) {
	e.emit(EventQueueEnqueued, QueueEventData{OperationID: operationID, Operation: op, Depth: depth})
}

// QueueFull emits queue.full.
func (e *Emitter) QueueFull(op types.CartOperationType, depth int) {
	e.emit(EventQueueFull, QueueEventData{Operation: op, Depth: depth})
}

// QueueRetry emits queue.retry.
func (e *Emitter) QueueRetry(operationID string, op types.CartOperationType, attempt int, err error) {
	e.emit(EventQueueRetry, QueueEventData{OperationID: operationID, Operation: op, Attempt: attempt, Error: err})
}

// QueueDropped emits queue.dropped.
func (e *Emitter) QueueDropped(operationID string, op types.CartOperationType, attempt int, err error) {
	e.emit(EventQueueDropped, QueueEventData{OperationID: operationID, Operation: op, Attempt: attempt, Error: err})
}

// SyncCompleted emits sync.completed.
func (e *Emitter) SyncCompleted(op types.CartOperationType, duration time.Duration, itemCount int) {
	e.emit(EventSyncCompleted, SyncEventData{Operation: op, Duration: duration, ItemCount: itemCount})
}

// SyncFailed emits sync.failed.
func (e *Emitter) SyncFailed(op types.CartOperationType, duration time.Duration, err error) {
	e.emit(EventSyncFailed, SyncEventData{Operation: op, Duration: duration, Error: err})
}

// CacheHit emits cache.hit.
func (e *Emitter) CacheHit() {
	e.emit(EventCacheHit, baseEventData{})
}

// CacheMiss emits cache.miss.
func (e *Emitter) CacheMiss() {
	e.emit(EventCacheMiss, baseEventData{})
}

// CacheRefreshed emits cache.refreshed.
func (e *Emitter) CacheRefreshed() {
	e.emit(EventCacheRefreshed, baseEventData{})
}

// ValidationCompleted emits validation.completed.
func (e *Emitter) ValidationCompleted(errors, warnings int) {
	e.emit(EventValidationCompleted, ValidationEventData{Errors: errors, Warnings: warnings})
}

// InconsistencyDetected emits validation.inconsistency.
func (e *Emitter) InconsistencyDetected(errors, warnings int) {
	e.emit(EventInconsistencyDetected, ValidationEventData{Errors: errors, Warnings: warnings})
}

// RoutingDecided emits routing.decided.
func (e *Emitter) RoutingDecided(decision types.RoutingDecision) {
	e.emit(EventRoutingDecided, RoutingEventData{
		Path:       decision.Path,
		Action:     decision.Action,
		Confidence: decision.Confidence,
	})
}
