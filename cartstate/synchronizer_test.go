package cartstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/lock"
	"github.com/gelsogrove/shopME-sub006/storage"
	"github.com/gelsogrove/shopME-sub006/types"
)

type syncFixture struct {
	store *storage.MemoryStore
	cache *MemoryCache
	sync  *Synchronizer
}

func newSyncFixture(t *testing.T, opts ...SyncOption) *syncFixture {
	store := storage.NewMemoryStore()
	cache := NewMemoryCache()
	locks := lock.NewManager()
	return &syncFixture{
		store: store,
		cache: cache,
		sync:  NewSynchronizer(store, cache, locks, opts...),
	}
}

func (f *syncFixture) seedCart(t *testing.T) {
	ctx := context.Background()
	f.store.AddProduct(storage.Product{ID: "p1", Name: "Mozzarella", Price: 4.5, Code: "MOZ-01", Stock: 20})
	f.store.AddProduct(storage.Product{ID: "p2", Name: "Burrata", Price: 5, Code: "BUR-01", Stock: 8})

	cart, err := f.store.CreateCart(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertCartItem(ctx, cart.ID, "p1", 2))
	require.NoError(t, f.store.UpsertCartItem(ctx, cart.ID, "p2", 1))
}

func TestSyncCartState_TotalsInvariant(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCart(t)

	state, err := f.sync.SyncCartState(context.Background(), "cust-1", "ws-1", types.OpAdd)
	require.NoError(t, err)

	require.Len(t, state.Items, 2)

	var wantAmount float64
	var wantCount int
	for _, item := range state.Items {
		assert.InDelta(t, float64(item.Quantity)*item.UnitPrice, item.LineTotal, 1e-9)
		wantAmount += item.LineTotal
		wantCount += item.Quantity
	}
	assert.InDelta(t, wantAmount, state.TotalAmount, 1e-9)
	assert.Equal(t, wantCount, state.TotalItemCount)
	assert.Equal(t, types.OpAdd, state.LastOperation)

	// The stored checksum matches a recomputation.
	sum, err := Checksum(state)
	require.NoError(t, err)
	assert.Equal(t, sum, state.Checksum)
}

func TestSyncCartState_NoCartYieldsEmptyState(t *testing.T) {
	f := newSyncFixture(t)

	state, err := f.sync.SyncCartState(context.Background(), "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Zero(t, state.TotalAmount)
	assert.Zero(t, state.TotalItemCount)
}

func TestSyncCartState_PhantomProduct(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCart(t)

	// p2 disappears from the catalog after being carted.
	f.store.DeleteProduct("p2")

	state, err := f.sync.SyncCartState(context.Background(), "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)
	require.Len(t, state.Items, 2, "dangling line must stay materialized")

	var phantom *types.CartLineItem
	for i := range state.Items {
		if state.Items[i].ProductID == "p2" {
			phantom = &state.Items[i]
		}
	}
	require.NotNil(t, phantom)
	assert.Equal(t, "unknown product", phantom.ProductName)
	assert.Zero(t, phantom.UnitPrice)
	assert.Zero(t, phantom.LineTotal)
	assert.Equal(t, 1, phantom.Quantity)

	// Totals only count resolvable lines, and still reconcile.
	assert.InDelta(t, 9.0, state.TotalAmount, 1e-9)
}

func TestGetCartState_ServesFreshCache(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	first, err := f.sync.SyncCartState(ctx, "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)

	// Mutate storage behind the cache's back; a fresh cache serves the
	// old view until TTL or an explicit sync.
	cart, err := f.store.GetCart(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertCartItem(ctx, cart.ID, "p1", 7))

	cached, err := f.sync.GetCartState(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, cached.Checksum)
}

func TestGetCartState_ResyncsWhenStale(t *testing.T) {
	f := newSyncFixture(t, WithCacheTTL(10*time.Millisecond))
	f.seedCart(t)
	ctx := context.Background()

	_, err := f.sync.SyncCartState(ctx, "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)

	cart, err := f.store.GetCart(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertCartItem(ctx, cart.ID, "p1", 7))

	time.Sleep(20 * time.Millisecond)

	state, err := f.sync.GetCartState(ctx, "cust-1", "ws-1")
	require.NoError(t, err)

	var qty int
	for _, item := range state.Items {
		if item.ProductID == "p1" {
			qty = item.Quantity
		}
	}
	assert.Equal(t, 7, qty, "stale cache must be rebuilt from storage")
}

func TestSyncCartState_WritesContextSummary(t *testing.T) {
	contexts := contextstore.NewService(contextstore.NewMemoryBackend())
	f := newSyncFixture(t, WithContextStore(contexts))
	f.seedCart(t)
	ctx := context.Background()

	_, err := f.sync.SyncCartState(ctx, "cust-1", "ws-1", types.OpAdd)
	require.NoError(t, err)

	cc, err := contexts.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	require.NotNil(t, cc)
	require.NotNil(t, cc.LastCartOperationResult)
	assert.True(t, cc.LastCartOperationResult.Success)
	assert.Equal(t, types.OpAdd, cc.LastCartOperationResult.Operation)
}

func TestValidate_CorruptionTriggersRefresh(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	_, err := f.sync.SyncCartState(ctx, "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)

	// Corrupt the cached total without updating the checksum.
	f.cache.corrupt(Key("cust-1", "ws-1"), func(s *types.CartState) {
		s.TotalAmount += 10
	})

	report, err := f.sync.Validate(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	assert.NotEmpty(t, report.Errors)

	// The auto-refresh restored a consistent state.
	report, err = f.sync.Validate(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.True(t, report.IsValid, "validation after auto-refresh must pass")
}

func TestValidate_StaleCacheIsWarningOnly(t *testing.T) {
	f := newSyncFixture(t, WithCacheTTL(5*time.Millisecond))
	f.seedCart(t)
	ctx := context.Background()

	_, err := f.sync.SyncCartState(ctx, "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	report, err := f.sync.Validate(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.True(t, report.IsValid, "staleness alone is not corruption")
	assert.NotEmpty(t, report.Warnings)
}

func TestValidate_NothingCached(t *testing.T) {
	f := newSyncFixture(t)

	report, err := f.sync.Validate(context.Background(), "cust-1", "ws-1")
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Inconsistencies)
}

func TestValidateAll_CoversEveryEntry(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	_, err := f.sync.SyncCartState(ctx, "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)

	f.store.AddProduct(storage.Product{ID: "p9", Name: "Scamorza", Price: 3})
	cart2, err := f.store.CreateCart(ctx, "cust-2", "ws-1")
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertCartItem(ctx, cart2.ID, "p9", 1))
	_, err = f.sync.SyncCartState(ctx, "cust-2", "ws-1", types.OpView)
	require.NoError(t, err)

	f.cache.corrupt(Key("cust-2", "ws-1"), func(s *types.CartState) {
		s.TotalItemCount = 42
	})

	require.NoError(t, f.sync.ValidateAll(ctx))

	// The corrupted entry was repaired in place.
	report, err := f.sync.Validate(ctx, "cust-2", "ws-1")
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}
