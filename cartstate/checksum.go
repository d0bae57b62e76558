package cartstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"

	"github.com/gelsogrove/shopME-sub006/types"
)

// checksumPayload is the canonical projection hashed into a CartState
// checksum. Items are sorted by line-item ID before hashing so the checksum
// is insensitive to storage ordering but sensitive to every value that
// matters.
type checksumPayload struct {
	CustomerID     string               `json:"customer_id"`
	WorkspaceID    string               `json:"workspace_id"`
	Items          []types.CartLineItem `json:"items"`
	TotalAmount    float64              `json:"total_amount"`
	TotalItemCount int                  `json:"total_item_count"`
}

// Checksum computes the deterministic fingerprint of a cart state: SHA-256
// over the RFC 8785 canonical JSON of the normalized state. Two states with
// the same lines and totals always hash identically, whatever order the
// lines arrived in.
func Checksum(state *types.CartState) (string, error) {
	items := make([]types.CartLineItem, len(state.Items))
	copy(items, state.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	payload := checksumPayload{
		CustomerID:     state.CustomerID,
		WorkspaceID:    state.WorkspaceID,
		Items:          items,
		TotalAmount:    state.TotalAmount,
		TotalItemCount: state.TotalItemCount,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal checksum payload: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize checksum payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
