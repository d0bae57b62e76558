package cartstate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/lock"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/storage"
	"github.com/gelsogrove/shopME-sub006/types"
)

// Default tuning.
const (
	// DefaultCacheTTL is how long a synced state is served without resync.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultValidateInterval is how often all cached states are validated.
	DefaultValidateInterval = 30 * time.Second

	// phantomProductName labels a line whose product no longer resolves.
	phantomProductName = "unknown product"
)

// refresh storms are throttled: at most 2 automatic force-refreshes per
// second across all keys, bursting to 5.
const (
	refreshRateLimit = rate.Limit(2)
	refreshBurst     = 5
)

// Synchronizer keeps cached cart views consistent with authoritative storage.
type Synchronizer struct {
	store    storage.CartStorage
	cache    CacheStore
	locks    *lock.Manager
	contexts *contextstore.Service
	bus      *events.EventBus

	cacheTTL         time.Duration
	validateInterval time.Duration
	refreshLimiter   *rate.Limiter

	now func() time.Time
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithCacheTTL overrides how long a cached state stays fresh (default 5m).
func WithCacheTTL(ttl time.Duration) SyncOption {
	return func(s *Synchronizer) { s.cacheTTL = ttl }
}

// WithValidateInterval overrides the background validation interval.
func WithValidateInterval(interval time.Duration) SyncOption {
	return func(s *Synchronizer) { s.validateInterval = interval }
}

// WithContextStore wires the conversation context store so every sync writes
// its result summary back for the next turn's routing decision.
func WithContextStore(contexts *contextstore.Service) SyncOption {
	return func(s *Synchronizer) { s.contexts = contexts }
}

// WithEventBus attaches an event bus for sync/cache/validation events.
func WithEventBus(bus *events.EventBus) SyncOption {
	return func(s *Synchronizer) { s.bus = bus }
}

// NewSynchronizer creates a synchronizer over the given storage, cache and
// lock manager.
func NewSynchronizer(store storage.CartStorage, cache CacheStore, locks *lock.Manager, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		store:            store,
		cache:            cache,
		locks:            locks,
		cacheTTL:         DefaultCacheTTL,
		validateInterval: DefaultValidateInterval,
		refreshLimiter:   rate.NewLimiter(refreshRateLimit, refreshBurst),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncCartState rebuilds the pair's cart view from authoritative storage and
// replaces the cached copy wholesale. The fetch runs under the pair's lock so
// a half-applied mutation can never be observed. operationLabel records what
// triggered the sync.
func (s *Synchronizer) SyncCartState(ctx context.Context, customerID, workspaceID string, operationLabel types.CartOperationType) (*types.CartState, error) {
	started := s.now()
	emitter := events.NewEmitter(s.bus, customerID, workspaceID)

	state, err := lock.Do(ctx, s.locks, customerID, workspaceID, types.OpView, func(ctx context.Context) (*types.CartState, error) {
		return s.buildState(ctx, customerID, workspaceID, operationLabel)
	})
	if err != nil {
		emitter.SyncFailed(operationLabel, s.now().Sub(started), err)
		return nil, err
	}

	if err := s.cache.Set(ctx, Key(customerID, workspaceID), state); err != nil {
		emitter.SyncFailed(operationLabel, s.now().Sub(started), err)
		return nil, fmt.Errorf("cache cart state: %w", err)
	}

	s.writeResultContext(ctx, state, operationLabel)

	emitter.SyncCompleted(operationLabel, s.now().Sub(started), len(state.Items))
	logger.DebugContext(ctx, "cart state synced",
		"customer_id", customerID,
		"workspace_id", workspaceID,
		"operation", string(operationLabel),
		"items", len(state.Items),
		"total", state.TotalAmount)

	return state, nil
}

// GetCartState serves the cached state while it is fresh, resyncing
// otherwise. Returns (nil, nil) only when no cart exists and a sync produced
// an empty view — an absent cache entry alone always triggers a resync.
func (s *Synchronizer) GetCartState(ctx context.Context, customerID, workspaceID string) (*types.CartState, error) {
	emitter := events.NewEmitter(s.bus, customerID, workspaceID)

	cached, err := s.cache.Get(ctx, Key(customerID, workspaceID))
	if err != nil {
		return nil, err
	}
	if cached != nil && s.now().Sub(cached.LastUpdated) <= s.cacheTTL {
		emitter.CacheHit()
		return cached, nil
	}

	emitter.CacheMiss()
	return s.SyncCartState(ctx, customerID, workspaceID, types.OpView)
}

// ForceRefresh drops the cached state and rebuilds it from storage.
func (s *Synchronizer) ForceRefresh(ctx context.Context, customerID, workspaceID string) (*types.CartState, error) {
	if err := s.cache.Delete(ctx, Key(customerID, workspaceID)); err != nil {
		return nil, err
	}

	state, err := s.SyncCartState(ctx, customerID, workspaceID, types.OpView)
	if err != nil {
		return nil, err
	}

	events.NewEmitter(s.bus, customerID, workspaceID).CacheRefreshed()
	return state, nil
}

// buildState fetches the authoritative cart and normalizes it. Must run
// under the pair's lock.
func (s *Synchronizer) buildState(ctx context.Context, customerID, workspaceID string, operationLabel types.CartOperationType) (*types.CartState, error) {
	cart, err := s.store.GetCart(ctx, customerID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("fetch authoritative cart: %w", err)
	}

	state := &types.CartState{
		CustomerID:    customerID,
		WorkspaceID:   workspaceID,
		Items:         []types.CartLineItem{},
		LastUpdated:   s.now(),
		LastOperation: operationLabel,
	}

	if cart != nil {
		for _, item := range cart.Items {
			line := types.CartLineItem{
				ID:        item.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}
			if item.Product != nil {
				line.ProductName = item.Product.Name
				line.ProductCode = item.Product.Code
				line.UnitPrice = item.Product.Price
				line.LineTotal = float64(item.Quantity) * item.Product.Price
			} else {
				// The product row is gone but the customer's line is
				// not: materialize it at zero so totals stay
				// explainable and nothing is silently billed.
				line.ProductName = phantomProductName
			}

			state.Items = append(state.Items, line)
			state.TotalAmount += line.LineTotal
			state.TotalItemCount += line.Quantity
		}
	}

	checksum, err := Checksum(state)
	if err != nil {
		return nil, fmt.Errorf("compute cart checksum: %w", err)
	}
	state.Checksum = checksum

	return state, nil
}

// writeResultContext records the sync outcome in the conversation context so
// the next turn's routing can see it. Best effort: a context write failure
// never fails a sync.
func (s *Synchronizer) writeResultContext(ctx context.Context, state *types.CartState, operationLabel types.CartOperationType) {
	if s.contexts == nil {
		return
	}

	result := &types.CartOperationResult{
		Success:      true,
		Operation:    operationLabel,
		Message:      fmt.Sprintf("cart has %d items, total %.2f", state.TotalItemCount, state.TotalAmount),
		CartSnapshot: state,
	}
	if err := s.contexts.SaveCartOperationResult(ctx, state.CustomerID, state.WorkspaceID, result); err != nil {
		logger.WarnContext(ctx, "failed to record sync result in conversation context",
			"customer_id", state.CustomerID,
			"workspace_id", state.WorkspaceID,
			"error", err)
	}
}
