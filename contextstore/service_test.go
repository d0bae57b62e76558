package contextstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelsogrove/shopME-sub006/types"
)

func candidates() []types.ProductCandidate {
	return []types.ProductCandidate{
		{ID: "p1", Name: "Mozzarella di Bufala", Price: 4.5, StockQuantity: 20},
		{ID: "p2", Name: "Mozzarella Fiordilatte", Price: 3.2, StockQuantity: 15},
		{ID: "p3", Name: "Burrata", Price: 5.0, StockQuantity: 8},
	}
}

func TestService_SaveAndGet(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, svc.SaveProductCandidates(ctx, "cust-1", "ws-1", candidates(), "mozzarella"))

	cc, err := svc.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, KindDisambiguation, cc.Kind)
	assert.Equal(t, "mozzarella", cc.LastSearchQuery)
	assert.Len(t, cc.LastProductCandidates, 3)
}

func TestService_GetMissingIsNil(t *testing.T) {
	svc := NewService(NewMemoryBackend())

	cc, err := svc.Get(context.Background(), "nobody", "nowhere")
	require.NoError(t, err)
	assert.Nil(t, cc)
}

func TestService_DisambiguationWindow(t *testing.T) {
	now := time.Now()
	current := now

	backend := NewMemoryBackend()
	backend.now = func() time.Time { return current }
	svc := NewService(backend, WithClock(func() time.Time { return current }))
	ctx := context.Background()

	require.NoError(t, svc.SaveProductCandidates(ctx, "cust-1", "ws-1", candidates(), "mozzarella"))

	// Retrievable inside the 5 minute window.
	current = now.Add(4 * time.Minute)

	cc, err := svc.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.NotNil(t, cc)

	// Gone past it.
	current = now.Add(6 * time.Minute)

	cc, err = svc.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.Nil(t, cc)
}

func TestService_ExpiresAtRecomputedOnKindChange(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, svc.SaveProductCandidates(ctx, "cust-1", "ws-1", candidates(), "mozzarella"))
	first, err := svc.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)

	require.NoError(t, svc.SaveCartOperationResult(ctx, "cust-1", "ws-1", &types.CartOperationResult{
		Success:   true,
		Operation: types.OpAdd,
	}))
	second, err := svc.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)

	assert.Equal(t, KindCartOperation, second.Kind)
	// Cart-operation contexts use the long window, so expiry moved out.
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))
	// Candidates survive the overwrite for later ordinal resolution.
	assert.Len(t, second.LastProductCandidates, 3)
}

func TestService_ResolveReference(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, svc.SaveProductCandidates(ctx, "cust-1", "ws-1", candidates(), "mozzarella"))

	tests := []struct {
		reference string
		wantID    string
	}{
		{"the first one", "p1"},
		{"il primo", "p1"},
		{"el primero", "p1"},
		{"o primeiro", "p1"},
		{"2", "p2"},
		{"la seconda", "p2"},
		{"the third", "p3"},
	}

	for _, tt := range tests {
		got, err := svc.ResolveReference(ctx, "cust-1", "ws-1", tt.reference)
		require.NoError(t, err, "reference: %q", tt.reference)
		require.NotNil(t, got, "reference: %q", tt.reference)
		assert.Equal(t, tt.wantID, got.ID, "reference: %q", tt.reference)
	}
}

func TestService_ResolveReference_OutOfRange(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, svc.SaveProductCandidates(ctx, "cust-1", "ws-1", candidates(), "mozzarella"))

	got, err := svc.ResolveReference(ctx, "cust-1", "ws-1", "the tenth one")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.ResolveReference(ctx, "cust-1", "ws-1", "9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_ResolveReference_NoContext(t *testing.T) {
	svc := NewService(NewMemoryBackend())

	got, err := svc.ResolveReference(context.Background(), "cust-1", "ws-1", "the first one")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_Clear(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, svc.SaveProductCandidates(ctx, "cust-1", "ws-1", candidates(), "q"))
	require.NoError(t, svc.Clear(ctx, "cust-1", "ws-1"))

	cc, err := svc.Get(ctx, "cust-1", "ws-1")
	require.NoError(t, err)
	assert.Nil(t, cc)
}

func TestMemoryBackend_Sweep(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	expired := &ConversationContext{
		CustomerID:  "cust-old",
		WorkspaceID: "ws-1",
		Kind:        KindGeneral,
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	live := &ConversationContext{
		CustomerID:  "cust-new",
		WorkspaceID: "ws-1",
		Kind:        KindGeneral,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, backend.Set(ctx, Key("cust-old", "ws-1"), expired))
	require.NoError(t, backend.Set(ctx, Key("cust-new", "ws-1"), live))

	evicted, err := backend.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, backend.Len())
}

func TestService_Sweeper(t *testing.T) {
	backend := NewMemoryBackend()
	svc := NewService(backend, WithSweepInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, backend.Set(ctx, Key("c", "w"), &ConversationContext{
		CustomerID:  "c",
		WorkspaceID: "w",
		Kind:        KindGeneral,
		ExpiresAt:   time.Now().Add(-time.Second),
	}))

	svc.StartSweeper(ctx)

	assert.Eventually(t, func() bool {
		return backend.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
