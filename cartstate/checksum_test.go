package cartstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelsogrove/shopME-sub006/types"
)

func testState() *types.CartState {
	return &types.CartState{
		CustomerID:  "cust-1",
		WorkspaceID: "ws-1",
		Items: []types.CartLineItem{
			{ID: "a", ProductID: "p1", ProductName: "Mozzarella", Quantity: 2, UnitPrice: 4.5, LineTotal: 9},
			{ID: "b", ProductID: "p2", ProductName: "Burrata", Quantity: 1, UnitPrice: 5, LineTotal: 5},
		},
		TotalAmount:    14,
		TotalItemCount: 3,
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	s := testState()

	first, err := Checksum(s)
	require.NoError(t, err)
	second, err := Checksum(s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex sha256
}

func TestChecksum_OrderInsensitive(t *testing.T) {
	s := testState()
	sum1, err := Checksum(s)
	require.NoError(t, err)

	reordered := testState()
	reordered.Items[0], reordered.Items[1] = reordered.Items[1], reordered.Items[0]
	sum2, err := Checksum(reordered)
	require.NoError(t, err)

	assert.Equal(t, sum1, sum2, "item order must not change the checksum")
}

func TestChecksum_SensitiveToValues(t *testing.T) {
	base, err := Checksum(testState())
	require.NoError(t, err)

	changedQty := testState()
	changedQty.Items[0].Quantity = 3
	sumQty, err := Checksum(changedQty)
	require.NoError(t, err)
	assert.NotEqual(t, base, sumQty)

	changedTotal := testState()
	changedTotal.TotalAmount = 99
	sumTotal, err := Checksum(changedTotal)
	require.NoError(t, err)
	assert.NotEqual(t, base, sumTotal)
}
