package types

import "time"

// ProductCandidate is a lightweight, read-only projection of a catalog
// product, used to resolve references like "the second one" against a
// previously shown list. It is never a source of truth for pricing or stock.
type ProductCandidate struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Code          string  `json:"code,omitempty"`
	Category      string  `json:"category,omitempty"`
}

// CartLineItem is one line of a cart snapshot.
type CartLineItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductCode string  `json:"product_code,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"` // Quantity * UnitPrice
}

// CartState is the cached, normalized view of a customer's cart.
// It is rebuilt wholesale from authoritative storage on every sync and is
// never patched in place.
//
// Invariants after every sync:
//
//	TotalAmount    == Σ item.LineTotal
//	TotalItemCount == Σ item.Quantity
//	Checksum       == hash of the canonicalized state
type CartState struct {
	CustomerID     string             `json:"customer_id"`
	WorkspaceID    string             `json:"workspace_id"`
	Items          []CartLineItem     `json:"items"`
	TotalAmount    float64            `json:"total_amount"`
	TotalItemCount int                `json:"total_item_count"`
	LastUpdated    time.Time          `json:"last_updated"`
	LastOperation  CartOperationType  `json:"last_operation"`
	Checksum       string             `json:"checksum"`
}

// CartOperationResult is the structured outcome of a cart operation attempt.
// Business-rule failures (insufficient stock, unknown product, ambiguous
// reference) are expressed here with Success=false, never as errors, so the
// caller can relay them conversationally.
type CartOperationResult struct {
	Success   bool              `json:"success"`
	Operation CartOperationType `json:"operation"`
	Message   string            `json:"message"`

	// AddedItem is set when an add succeeded.
	AddedItem *CartLineItem `json:"added_item,omitempty"`

	// CartSnapshot is the cart view after the operation, when available.
	CartSnapshot *CartState `json:"cart_snapshot,omitempty"`

	// Candidates is set when the operation needs disambiguation: the
	// customer must pick one of these before the cart can change.
	Candidates []ProductCandidate `json:"candidates,omitempty"`
}
