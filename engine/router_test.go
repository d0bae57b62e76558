package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelsogrove/shopME-sub006/cartstate"
	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/lock"
	"github.com/gelsogrove/shopME-sub006/storage"
	"github.com/gelsogrove/shopME-sub006/types"
)

type routerFixture struct {
	store    *storage.MemoryStore
	contexts *contextstore.Service
	states   *cartstate.Synchronizer
	router   *SmartCartRouter
}

func newRouterFixture(t *testing.T) *routerFixture {
	store := storage.NewMemoryStore()
	contexts := contextstore.NewService(contextstore.NewMemoryBackend())
	locks := lock.NewManager()
	states := cartstate.NewSynchronizer(store, cartstate.NewMemoryCache(), locks,
		cartstate.WithContextStore(contexts))
	router := NewSmartCartRouter(store, store, contexts, locks, states)
	return &routerFixture{store: store, contexts: contexts, states: states, router: router}
}

func (f *routerFixture) seedCatalog() {
	f.store.AddProduct(storage.Product{ID: "p1", Name: "Mozzarella di Bufala", Price: 4.5, Code: "MOZ-01", Stock: 20})
	f.store.AddProduct(storage.Product{ID: "p2", Name: "Mozzarella Fior di Latte", Price: 3.2, Code: "MOZ-02", Stock: 10})
	f.store.AddProduct(storage.Product{ID: "p3", Name: "Gorgonzola", Price: 6, Code: "GOR-01", Stock: 2})
}

func TestHandleMessage_AddSingleMatch(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()

	res, err := f.router.HandleMessage(context.Background(), "aggiungi 2 gorgonzola al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, types.OpAdd, res.Operation)
	require.NotNil(t, res.AddedItem)
	assert.Equal(t, "p3", res.AddedItem.ProductID)
	assert.Equal(t, 2, res.AddedItem.Quantity)

	require.NotNil(t, res.CartSnapshot)
	assert.Equal(t, 2, res.CartSnapshot.TotalItemCount)
	assert.InDelta(t, 12.0, res.CartSnapshot.TotalAmount, 1e-9)
}

func TestHandleMessage_AmbiguousAddThenOrdinalPick(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	res, err := f.router.HandleMessage(ctx, "aggiungi mozzarella al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.False(t, res.Success, "two matches need disambiguation")
	require.Len(t, res.Candidates, 2)
	first := res.Candidates[0]

	res, err = f.router.HandleMessage(ctx, "il primo", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.NotNil(t, res.AddedItem)
	assert.Equal(t, first.ID, res.AddedItem.ProductID)
	assert.Equal(t, 1, res.AddedItem.Quantity)
}

func TestHandleMessage_StockViolationIsStructured(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()

	res, err := f.router.HandleMessage(context.Background(), "aggiungi 5 gorgonzola al carrello", "cust-1", "ws-1")
	require.NoError(t, err, "stock violations are results, not errors")

	assert.False(t, res.Success)
	assert.Equal(t, types.OpAdd, res.Operation)
	assert.Contains(t, res.Message, "in stock")
}

func TestHandleMessage_StockCeilingCountsExistingQuantity(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	res, err := f.router.HandleMessage(ctx, "aggiungi 2 gorgonzola al carrello", "cust-1", "ws-1")
	require.NoError(t, err)
	require.True(t, res.Success)

	// Stock is 2 and the cart already holds 2.
	res, err = f.router.HandleMessage(ctx, "aggiungi 1 gorgonzola al carrello", "cust-1", "ws-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestHandleMessage_ViewCart(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	_, err := f.router.HandleMessage(ctx, "aggiungi 2 gorgonzola al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	res, err := f.router.HandleMessage(ctx, "mostra carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, types.OpView, res.Operation)
	require.NotNil(t, res.CartSnapshot)
	assert.Equal(t, 2, res.CartSnapshot.TotalItemCount)
}

func TestHandleMessage_ClearCart(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	_, err := f.router.HandleMessage(ctx, "aggiungi 2 gorgonzola al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	res, err := f.router.HandleMessage(ctx, "svuota il carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, types.OpClear, res.Operation)
	require.NotNil(t, res.CartSnapshot)
	assert.Zero(t, res.CartSnapshot.TotalItemCount)
}

func TestHandleMessage_AddByProductCode(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()

	res, err := f.router.HandleMessage(context.Background(), "aggiungi MOZ-01 al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.NotNil(t, res.AddedItem)
	assert.Equal(t, "p1", res.AddedItem.ProductID)
}

func TestHandleMessage_RemoveByProductCode(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	_, err := f.router.HandleMessage(ctx, "aggiungi MOZ-01 al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	res, err := f.router.HandleMessage(ctx, "togli MOZ-01 dal carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, types.OpRemove, res.Operation)
	assert.Zero(t, res.CartSnapshot.TotalItemCount)
}

func TestHandleMessage_UnknownProduct(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()

	res, err := f.router.HandleMessage(context.Background(), "aggiungi stracchino al carrello", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "stracchino")
}

func TestHandleMessage_ProductLookupSavesCandidates(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	res, err := f.router.HandleMessage(ctx, "mozzarella", "cust-1", "ws-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, types.OpView, res.Operation)
	assert.Len(t, res.Candidates, 2)

	cc, err := f.contexts.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Len(t, cc.LastProductCandidates, 2)
}

func TestHandleMessage_ConcurrentAddsAreNotLost(t *testing.T) {
	f := newRouterFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	// Two concurrent adds of the same product: the per-customer lock makes
	// the second read the first one's write, so neither update is lost.
	var wg sync.WaitGroup
	for _, msg := range []string{
		"aggiungi 1 bufala al carrello",
		"aggiungi 2 bufala al carrello",
	} {
		wg.Add(1)
		go func(msg string) {
			defer wg.Done()
			res, err := f.router.HandleMessage(ctx, msg, "cust-1", "ws-1")
			if assert.NoError(t, err) {
				assert.True(t, res.Success, res.Message)
			}
		}(msg)
	}
	wg.Wait()

	state, err := f.states.SyncCartState(ctx, "cust-1", "ws-1", types.OpView)
	require.NoError(t, err)
	assert.Equal(t, 3, state.TotalItemCount)
}
