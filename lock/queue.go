package lock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/types"
)

// acquirePollInterval is how often a consumer re-checks a slot that is
// unexpectedly still held (a stale lock not yet swept).
const acquirePollInterval = 10 * time.Millisecond

type executeResult struct {
	value any
	err   error
}

// queuedOperation is one unit of work waiting for (or holding) the key's
// execution slot.
type queuedOperation struct {
	id          string
	customerID  string
	workspaceID string
	opType      types.CartOperationType
	op          Operation
	ctx         context.Context

	enqueuedAt time.Time
	queued     bool // found the slot busy at submit time
	retryCount int
	maxRetries int

	result chan executeResult
}

// errKeyReaped reports that the sweep pruned this state between the caller's
// lookup and its submit. The caller re-fetches a fresh state and retries.
var errKeyReaped = errors.New("lock key state reaped")

// keyState owns serialization for one (customer, workspace) pair: the live
// lock, the bounded FIFO of waiting operations, and the consumer loop that
// executes them. The consumer runs on demand: it is started by the submit
// that finds the key idle and exits once the queue runs dry, so an idle key
// holds no goroutine.
//
// holder, generation, running and reaped are guarded by the Manager's mutex.
// generation is bumped whenever the sweep force-expires a lock, which tells
// the consumer that was stuck inside that operation to stand down once it
// returns.
type keyState struct {
	m           *Manager
	customerID  string
	workspaceID string

	tasks   chan *queuedOperation
	pending atomic.Int32 // waiting + running

	holder     *CartLock
	generation uint64
	running    bool
	reaped     bool
}

// newKeyState creates the state. The caller must hold m.mu.
func newKeyState(m *Manager, customerID, workspaceID string) *keyState {
	return &keyState{
		m:           m,
		customerID:  customerID,
		workspaceID: workspaceID,
		tasks:       make(chan *queuedOperation, m.maxQueue),
	}
}

// submit places a task in the FIFO, failing loudly at capacity, and makes
// sure a consumer is draining the queue.
func (ks *keyState) submit(task *queuedOperation) error {
	m := ks.m
	emitter := events.NewEmitter(m.bus, task.customerID, task.workspaceID)

	m.mu.Lock()
	if ks.reaped {
		m.mu.Unlock()
		return errKeyReaped
	}

	// The pending slot is read under the same mutex that serializes every
	// submit, so two near-simultaneous submissions on an idle key agree on
	// which of them ran direct and which waited its turn (and is therefore
	// entitled to the queued retry budget).
	task.queued = ks.pending.Load() > 0

	select {
	case ks.tasks <- task:
		ks.pending.Add(1)
	default:
		m.mu.Unlock()
		emitter.QueueFull(task.opType, cap(ks.tasks))
		logger.WarnContext(task.ctx, "cart operation rejected, queue full",
			"operation", string(task.opType),
			"capacity", cap(ks.tasks))
		return ErrQueueFull
	}

	if !ks.running {
		ks.running = true
		go ks.consume(ks.generation)
	}
	depth := len(ks.tasks)
	m.mu.Unlock()

	if task.queued {
		emitter.QueueEnqueued(task.id, task.opType, depth)
		logger.DebugContext(task.ctx, "cart operation queued",
			"operation_id", task.id,
			"operation", string(task.opType),
			"depth", depth)
	}
	return nil
}

// consume is the execution loop for this key. Exactly one consumer of the
// current generation runs at a time; a consumer whose generation went stale
// (its lock was force-expired while it was stuck) exits as soon as it
// regains control. A consumer that drains its queue parks instead of
// blocking, leaving the key goroutine-free until the next submit.
func (ks *keyState) consume(gen uint64) {
	for {
		ks.m.mu.Lock()
		if ks.generation != gen {
			ks.m.mu.Unlock()
			return
		}

		var task *queuedOperation
		select {
		case task = <-ks.tasks:
			ks.m.mu.Unlock()
		default:
			// Queue drained: park. submit holds the same mutex, so a
			// task pushed after this check restarts a consumer.
			ks.running = false
			ks.m.mu.Unlock()
			return
		}

		ks.run(task)
		ks.pending.Add(-1)
	}
}

// run executes a task under the key's lock, retrying queued failures with
// linear backoff, and always delivers exactly one result.
func (ks *keyState) run(task *queuedOperation) {
	emitter := events.NewEmitter(ks.m.bus, task.customerID, task.workspaceID)

	for {
		lk := ks.acquire(task)
		emitter.LockAcquired(lk.LockID, task.opType)

		value, err := invoke(task)

		heldFor := ks.m.now().Sub(lk.AcquiredAt)
		if ks.release(lk) {
			emitter.LockReleased(lk.LockID, task.opType, heldFor)
		}

		if err == nil {
			task.result <- executeResult{value: value}
			return
		}

		if !task.queued {
			// Direct operations fail once and propagate as-is.
			task.result <- executeResult{err: err}
			return
		}

		if task.retryCount >= task.maxRetries {
			logger.ErrorContext(task.ctx, "queued cart operation dropped after exhausting retries",
				"operation_id", task.id,
				"operation", string(task.opType),
				"attempts", task.retryCount+1,
				"error", err)
			emitter.QueueDropped(task.id, task.opType, task.retryCount, err)
			task.result <- executeResult{err: fmt.Errorf("%w: %v", ErrRetriesExhausted, err)}
			return
		}

		task.retryCount++
		emitter.QueueRetry(task.id, task.opType, task.retryCount, err)
		logger.WarnContext(task.ctx, "queued cart operation failed, retrying",
			"operation_id", task.id,
			"operation", string(task.opType),
			"attempt", task.retryCount,
			"error", err)

		// Linear backoff. Holding up the queue while backing off is
		// intentional: FIFO order per key must survive retries.
		time.Sleep(ks.m.backoffBase * time.Duration(task.retryCount))
	}
}

// acquire claims the key's slot, waiting out any stale holder.
func (ks *keyState) acquire(task *queuedOperation) *CartLock {
	m := ks.m
	for {
		now := m.now()

		m.mu.Lock()
		if ks.holder == nil || ks.holder.Expired(now) {
			lk := &CartLock{
				CustomerID:  task.customerID,
				WorkspaceID: task.workspaceID,
				Operation:   task.opType,
				LockID:      uuid.NewString(),
				AcquiredAt:  now,
				ExpiresAt:   now.Add(m.ttl),
			}
			ks.holder = lk
			m.mu.Unlock()
			return lk
		}
		m.mu.Unlock()

		time.Sleep(acquirePollInterval)
	}
}

// release frees the slot if we still hold it; a force-expired lock belongs to
// whoever re-acquired it and must not be touched.
func (ks *keyState) release(lk *CartLock) bool {
	ks.m.mu.Lock()
	defer ks.m.mu.Unlock()

	if ks.holder != nil && ks.holder.LockID == lk.LockID {
		ks.holder = nil
		return true
	}
	return false
}

// invoke runs the operation, converting a panic into an error so the lock is
// still released and the queue keeps moving.
func invoke(task *queuedOperation) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cart operation panicked: %v", r)
		}
	}()
	return task.op(task.ctx)
}
