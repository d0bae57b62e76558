package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gelsogrove/shopME-sub006/types"
)

// MemoryStore is an in-memory CartStorage and CatalogSearch, for tests and
// single-process experiments. It is thread-safe.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*Product // productID -> product
	carts    map[string]*Cart    // cartID -> cart
	byPair   map[string]string   // workspaceID:customerID -> cartID
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*Product),
		carts:    make(map[string]*Cart),
		byPair:   make(map[string]string),
	}
}

// AddProduct seeds a catalog product.
func (s *MemoryStore) AddProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// DeleteProduct removes a product from the catalog, leaving any cart lines
// that reference it dangling (as a deleted product row would).
func (s *MemoryStore) DeleteProduct(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, productID)
}

// GetCart returns a deep copy of the pair's cart, or (nil, nil).
func (s *MemoryStore) GetCart(ctx context.Context, customerID, workspaceID string) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cartID, ok := s.byPair[pairKey(customerID, workspaceID)]
	if !ok {
		return nil, nil
	}
	return s.copyCart(s.carts[cartID]), nil
}

// CreateCart creates an empty cart for the pair.
func (s *MemoryStore) CreateCart(ctx context.Context, customerID, workspaceID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := &Cart{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		WorkspaceID: workspaceID,
	}
	s.carts[cart.ID] = cart
	s.byPair[pairKey(customerID, workspaceID)] = cart.ID
	return s.copyCart(cart), nil
}

// UpsertCartItem sets the absolute quantity of a product in a cart.
func (s *MemoryStore) UpsertCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			if quantity == 0 {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			} else {
				cart.Items[i].Quantity = quantity
			}
			return nil
		}
	}

	if quantity == 0 {
		return nil
	}
	cart.Items = append(cart.Items, CartItem{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
	})
	return nil
}

// RemoveCartItem deletes a product's line from a cart.
func (s *MemoryStore) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	return s.UpsertCartItem(ctx, cartID, productID, 0)
}

// ClearCart deletes every line from a cart.
func (s *MemoryStore) ClearCart(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	cart.Items = nil
	return nil
}

// SearchProducts matches the query against product names, case-insensitively.
func (s *MemoryStore) SearchProducts(ctx context.Context, workspaceID, query string, limit int) ([]types.ProductCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []types.ProductCandidate
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, candidateFrom(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindByCode resolves an exact product code.
func (s *MemoryStore) FindByCode(ctx context.Context, workspaceID, code string) (*types.ProductCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Code != "" && strings.EqualFold(p.Code, code) {
			c := candidateFrom(p)
			return &c, nil
		}
	}
	return nil, nil
}

// copyCart returns a deep copy with product projections resolved.
// Must be called with the lock held.
func (s *MemoryStore) copyCart(cart *Cart) *Cart {
	cp := &Cart{
		ID:          cart.ID,
		CustomerID:  cart.CustomerID,
		WorkspaceID: cart.WorkspaceID,
		Items:       make([]CartItem, len(cart.Items)),
	}
	for i, item := range cart.Items {
		cp.Items[i] = CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if p, ok := s.products[item.ProductID]; ok {
			prod := *p
			cp.Items[i].Product = &prod
		}
	}
	return cp
}

func candidateFrom(p *Product) types.ProductCandidate {
	return types.ProductCandidate{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.Stock,
		Code:          p.Code,
		Category:      p.Category,
	}
}

func pairKey(customerID, workspaceID string) string {
	return workspaceID + ":" + customerID
}
