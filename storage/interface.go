// Package storage defines the collaborator contracts the engine mutates and
// reads carts through. The authoritative cart always lives behind these
// interfaces; the engine's cached view is rebuilt from them and never trusted
// over them.
//
// Two implementations ship with the package: an in-memory store for tests and
// single-process experiments, and a GORM-backed store for a relational
// database.
package storage

import (
	"context"
	"errors"

	"github.com/gelsogrove/shopME-sub006/types"
)

// ErrCartNotFound is returned by operations that require an existing cart.
var ErrCartNotFound = errors.New("cart not found")

// Product is the catalog row a cart line item points at.
type Product struct {
	ID       string
	Name     string
	Price    float64
	Code     string
	Stock    int
	Category string
}

// CartItem is one authoritative cart line. Product is nil when the referenced
// product no longer resolves; callers must still materialize such lines.
type CartItem struct {
	ID        string
	ProductID string
	Quantity  int
	Product   *Product
}

// Cart is the authoritative cart for a (customer, workspace) pair.
type Cart struct {
	ID          string
	CustomerID  string
	WorkspaceID string
	Items       []CartItem
}

// CartStorage is the transactional store of record for carts.
type CartStorage interface {
	// GetCart returns the cart for the pair, or (nil, nil) when none exists.
	GetCart(ctx context.Context, customerID, workspaceID string) (*Cart, error)

	// CreateCart creates an empty cart for the pair.
	CreateCart(ctx context.Context, customerID, workspaceID string) (*Cart, error)

	// UpsertCartItem sets the absolute quantity of a product in a cart,
	// inserting the line when absent. Quantity zero removes the line.
	UpsertCartItem(ctx context.Context, cartID, productID string, quantity int) error

	// RemoveCartItem deletes a product's line from a cart.
	RemoveCartItem(ctx context.Context, cartID, productID string) error

	// ClearCart deletes every line from a cart.
	ClearCart(ctx context.Context, cartID string) error
}

// CatalogSearch resolves free-text product references against the catalog.
type CatalogSearch interface {
	// SearchProducts returns candidates for a free-text query, best first.
	SearchProducts(ctx context.Context, workspaceID, query string, limit int) ([]types.ProductCandidate, error)

	// FindByCode resolves an exact product code/SKU, or (nil, nil).
	FindByCode(ctx context.Context, workspaceID, code string) (*types.ProductCandidate, error)
}
