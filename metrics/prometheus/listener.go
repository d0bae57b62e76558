// Package prometheus exports cart engine metrics: lock contention, queue
// pressure, sync latency, cache effectiveness and validation outcomes.
package prometheus

import (
	"github.com/gelsogrove/shopME-sub006/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusPassed  = "passed"
	statusFailed  = "failed"
)

// MetricsListener records engine events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
// This method is designed to be used with EventBus.SubscribeAll.
func (l *MetricsListener) Handle(event *events.Event) {
	switch event.Type {
	case events.EventLockAcquired:
		RecordLockAcquired()
	case events.EventLockReleased:
		l.handleLockReleased(event)
	case events.EventLockExpired:
		l.handleLockExpired(event)
	case events.EventQueueEnqueued:
		l.handleQueueTransition(event, "enqueued")
	case events.EventQueueFull:
		l.handleQueueTransition(event, "rejected")
	case events.EventQueueRetry:
		l.handleQueueTransition(event, "retried")
	case events.EventQueueDropped:
		l.handleQueueTransition(event, "dropped")
	case events.EventSyncCompleted:
		l.handleSync(event, statusSuccess)
	case events.EventSyncFailed:
		l.handleSync(event, statusError)
	case events.EventCacheHit:
		RecordCacheLookup("hit")
	case events.EventCacheMiss:
		RecordCacheLookup("miss")
	case events.EventCacheRefreshed:
		RecordCacheLookup("refreshed")
	case events.EventValidationCompleted:
		l.handleValidation(event)
	case events.EventRoutingDecided:
		l.handleRoutingDecided(event)
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleLockReleased(event *events.Event) {
	if data, ok := event.Data.(events.LockEventData); ok {
		RecordLockReleased(string(data.Operation), data.HeldFor.Seconds())
	}
}

func (l *MetricsListener) handleLockExpired(event *events.Event) {
	if data, ok := event.Data.(events.LockEventData); ok {
		RecordLockExpired(string(data.Operation), data.HeldFor.Seconds())
	}
}

func (l *MetricsListener) handleQueueTransition(event *events.Event, transition string) {
	if data, ok := event.Data.(events.QueueEventData); ok {
		RecordQueueTransition(transition, data.Depth)
	}
}

func (l *MetricsListener) handleSync(event *events.Event, status string) {
	if data, ok := event.Data.(events.SyncEventData); ok {
		RecordSync(string(data.Operation), status, data.Duration.Seconds())
	}
}

func (l *MetricsListener) handleValidation(event *events.Event) {
	if data, ok := event.Data.(events.ValidationEventData); ok {
		RecordValidation(data.Errors, data.Warnings)
	}
}

func (l *MetricsListener) handleRoutingDecided(event *events.Event) {
	if data, ok := event.Data.(events.RoutingEventData); ok {
		RecordRoutingDecision(string(data.Path), string(data.Action), data.Confidence)
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
