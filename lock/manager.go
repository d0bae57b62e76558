// Package lock serializes cart mutations per (customer, workspace) pair.
//
// Each pair owns an exclusive, TTL-bounded execution slot. Operations that
// find the slot busy are queued in a bounded FIFO and executed by a single
// consumer loop per key, with linear retry backoff for queued failures.
// Operations on different pairs proceed fully in parallel. A periodic sweep
// force-expires locks whose holder crashed, so forward progress is guaranteed
// even if a release was missed.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/types"
)

// Operation is the unit of work executed under a lock.
type Operation func(ctx context.Context) (any, error)

// Manager grants exclusive execution slots per (customer, workspace) pair.
type Manager struct {
	mu   sync.Mutex
	keys map[string]*keyState

	ttl           time.Duration
	sweepInterval time.Duration
	maxQueue      int
	maxRetries    int
	backoffBase   time.Duration

	bus *events.EventBus
	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the lock TTL (default 30s).
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithSweepInterval overrides the stale-lock sweep interval (default 5s).
func WithSweepInterval(interval time.Duration) Option {
	return func(m *Manager) { m.sweepInterval = interval }
}

// WithMaxQueue overrides the per-key queue capacity (default 50).
func WithMaxQueue(n int) Option {
	return func(m *Manager) { m.maxQueue = n }
}

// WithMaxRetries overrides the queued-operation retry budget (default 3).
func WithMaxRetries(n int) Option {
	return func(m *Manager) { m.maxRetries = n }
}

// WithBackoffBase overrides the linear backoff unit (default 1s).
func WithBackoffBase(d time.Duration) Option {
	return func(m *Manager) { m.backoffBase = d }
}

// WithEventBus attaches an event bus for lock/queue lifecycle events.
func WithEventBus(bus *events.EventBus) Option {
	return func(m *Manager) { m.bus = bus }
}

// NewManager creates a lock manager. Call StartSweeper to enable stale-lock
// recovery in long-running processes.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		keys:          make(map[string]*keyState),
		ttl:           DefaultLockTTL,
		sweepInterval: DefaultSweepInterval,
		maxQueue:      DefaultMaxQueue,
		maxRetries:    DefaultMaxRetries,
		backoffBase:   DefaultBackoffBase,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs op while holding the exclusive slot for the pair.
//
// If the slot is free the operation runs immediately; otherwise it is queued
// behind the current holder (bounded FIFO, ErrQueueFull at capacity). The
// call blocks until the operation has run, terminally failed, or ctx is
// done. A still-queued operation is never cancelled by ctx: it keeps its
// place and its outcome is logged, but the early-returning caller only gets
// ctx.Err().
//
// Operations that ran on first attempt propagate their error as-is. Queued
// operations that keep failing are retried with linear backoff and dropped
// after the retry budget, surfacing ErrRetriesExhausted.
func (m *Manager) Execute(ctx context.Context, customerID, workspaceID string, opType types.CartOperationType, op Operation) (any, error) {
	key := Key(customerID, workspaceID)

	task := &queuedOperation{
		id:          uuid.NewString(),
		customerID:  customerID,
		workspaceID: workspaceID,
		opType:      opType,
		op:          op,
		ctx:         ctx,
		enqueuedAt:  m.now(),
		maxRetries:  m.maxRetries,
		result:      make(chan executeResult, 1),
	}

	for {
		ks := m.keyStateFor(key, customerID, workspaceID)
		err := ks.submit(task)
		if err == nil {
			break
		}
		if errors.Is(err, errKeyReaped) {
			// The sweep pruned the idle state between lookup and
			// submit; a fresh lookup re-registers the key.
			continue
		}
		return nil, err
	}

	select {
	case res := <-task.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do is a typed convenience wrapper around Execute.
func Do[T any](ctx context.Context, m *Manager, customerID, workspaceID string, opType types.CartOperationType, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := m.Execute(ctx, customerID, workspaceID, opType, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	return v.(T), nil
}

// CurrentLock returns a copy of the live lock for the pair, or nil.
func (m *Manager) CurrentLock(customerID, workspaceID string) *CartLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	ks, ok := m.keys[Key(customerID, workspaceID)]
	if !ok || ks.holder == nil || ks.holder.Expired(m.now()) {
		return nil
	}
	cp := *ks.holder
	return &cp
}

// QueueDepth returns how many operations are waiting or running for the pair.
func (m *Manager) QueueDepth(customerID, workspaceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ks, ok := m.keys[Key(customerID, workspaceID)]
	if !ok {
		return 0
	}
	return int(ks.pending.Load())
}

// StartSweeper launches the background loop that force-expires stale locks
// and kicks the corresponding queues. It stops when ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// sweep force-expires every stale lock, restarts abandoned consumers and
// prunes fully idle key states so the key map does not grow with every
// customer the process has ever seen.
func (m *Manager) sweep() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, ks := range m.keys {
		if ks.holder == nil {
			if !ks.running && ks.pending.Load() == 0 {
				// A late Execute still holding this state sees
				// reaped on submit and re-registers the key.
				ks.reaped = true
				delete(m.keys, key)
			}
			continue
		}
		if !ks.holder.Expired(now) {
			continue
		}

		stale := ks.holder
		ks.holder = nil
		ks.generation++

		logger.Warn("force-expired stale cart lock",
			"customer_id", stale.CustomerID,
			"workspace_id", stale.WorkspaceID,
			"lock_id", stale.LockID,
			"operation", string(stale.Operation),
			"held_for", now.Sub(stale.AcquiredAt))

		events.NewEmitter(m.bus, stale.CustomerID, stale.WorkspaceID).
			LockExpired(stale.LockID, stale.Operation, now.Sub(stale.AcquiredAt))

		// The consumer that held this lock is stuck inside its
		// operation. Start a replacement so queued work makes progress;
		// the stuck one will notice its stale generation and stand down.
		go ks.consume(ks.generation)
	}
}

// keyStateFor returns (creating if needed) the state for a key.
func (m *Manager) keyStateFor(key, customerID, workspaceID string) *keyState {
	m.mu.Lock()
	defer m.mu.Unlock()

	ks, ok := m.keys[key]
	if !ok {
		ks = newKeyState(m, customerID, workspaceID)
		m.keys[key] = ks
	}
	return ks
}
