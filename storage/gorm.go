package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelsogrove/shopME-sub006/types"
)

// productRow is the catalog table.
type productRow struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"index"`
	Price       float64
	Code        string `gorm:"index"`
	Stock       int
	Category    string
	WorkspaceID string `gorm:"index"`
}

func (productRow) TableName() string { return "products" }

// cartRow is the carts table: one cart per (customer, workspace).
type cartRow struct {
	ID          string `gorm:"primaryKey"`
	CustomerID  string `gorm:"index:idx_cart_pair,unique"`
	WorkspaceID string `gorm:"index:idx_cart_pair,unique"`
}

func (cartRow) TableName() string { return "carts" }

// cartItemRow is the cart lines table. No foreign key constraint to products:
// a deleted product must leave the line dangling, not cascade it away.
type cartItemRow struct {
	ID        string `gorm:"primaryKey"`
	CartID    string `gorm:"index:idx_item_cart;index:idx_item_line,unique"`
	ProductID string `gorm:"index:idx_item_line,unique"`
	Quantity  int
}

func (cartItemRow) TableName() string { return "cart_items" }

// GormStore is a CartStorage and CatalogSearch backed by a relational
// database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm.DB and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	store := &GormStore{db: db}
	if err := db.AutoMigrate(&productRow{}, &cartRow{}, &cartItemRow{}); err != nil {
		return nil, fmt.Errorf("migrate cart schema: %w", err)
	}
	return store, nil
}

// SeedProduct inserts or replaces a catalog product.
func (s *GormStore) SeedProduct(ctx context.Context, workspaceID string, p Product) error {
	row := productRow{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Code:        p.Code,
		Stock:       p.Stock,
		Category:    p.Category,
		WorkspaceID: workspaceID,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("seed product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product row, leaving cart lines dangling.
func (s *GormStore) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.db.WithContext(ctx).Delete(&productRow{}, "id = ?", productID).Error; err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// GetCart returns the pair's cart with product projections resolved, or
// (nil, nil) when no cart exists. Lines whose product is gone keep a nil
// Product.
func (s *GormStore) GetCart(ctx context.Context, customerID, workspaceID string) (*Cart, error) {
	var row cartRow
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND workspace_id = ?", customerID, workspaceID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var itemRows []cartItemRow
	if err := s.db.WithContext(ctx).
		Where("cart_id = ?", row.ID).
		Order("id").
		Find(&itemRows).Error; err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}

	cart := &Cart{
		ID:          row.ID,
		CustomerID:  row.CustomerID,
		WorkspaceID: row.WorkspaceID,
		Items:       make([]CartItem, 0, len(itemRows)),
	}
	for _, ir := range itemRows {
		item := CartItem{
			ID:        ir.ID,
			ProductID: ir.ProductID,
			Quantity:  ir.Quantity,
		}

		var pr productRow
		err := s.db.WithContext(ctx).Take(&pr, "id = ?", ir.ProductID).Error
		switch {
		case err == nil:
			item.Product = &Product{
				ID:       pr.ID,
				Name:     pr.Name,
				Price:    pr.Price,
				Code:     pr.Code,
				Stock:    pr.Stock,
				Category: pr.Category,
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Dangling line: materialized without a product.
		default:
			return nil, fmt.Errorf("resolve cart item product: %w", err)
		}

		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// CreateCart creates an empty cart for the pair.
func (s *GormStore) CreateCart(ctx context.Context, customerID, workspaceID string) (*Cart, error) {
	row := cartRow{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		WorkspaceID: workspaceID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return &Cart{ID: row.ID, CustomerID: customerID, WorkspaceID: workspaceID}, nil
}

// UpsertCartItem sets the absolute quantity of a product in a cart.
func (s *GormStore) UpsertCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart cartRow
		if err := tx.Take(&cart, "id = ?", cartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return fmt.Errorf("get cart: %w", err)
		}

		if quantity == 0 {
			if err := tx.Delete(&cartItemRow{}, "cart_id = ? AND product_id = ?", cartID, productID).Error; err != nil {
				return fmt.Errorf("delete cart item: %w", err)
			}
			return nil
		}

		var item cartItemRow
		err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item = cartItemRow{
				ID:        uuid.NewString(),
				CartID:    cartID,
				ProductID: productID,
				Quantity:  quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create cart item: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("get cart item: %w", err)
		}

		item.Quantity = quantity
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		return nil
	})
}

// RemoveCartItem deletes a product's line from a cart.
func (s *GormStore) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	return s.UpsertCartItem(ctx, cartID, productID, 0)
}

// ClearCart deletes every line from a cart.
func (s *GormStore) ClearCart(ctx context.Context, cartID string) error {
	if err := s.db.WithContext(ctx).Delete(&cartItemRow{}, "cart_id = ?", cartID).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// SearchProducts matches the query against product names within a workspace.
func (s *GormStore) SearchProducts(ctx context.Context, workspaceID, query string, limit int) ([]types.ProductCandidate, error) {
	q := s.db.WithContext(ctx).
		Where("workspace_id = ? AND name LIKE ?", workspaceID, "%"+query+"%").
		Order("name")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []productRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	out := make([]types.ProductCandidate, len(rows))
	for i, pr := range rows {
		out[i] = types.ProductCandidate{
			ID:            pr.ID,
			Name:          pr.Name,
			Price:         pr.Price,
			StockQuantity: pr.Stock,
			Code:          pr.Code,
			Category:      pr.Category,
		}
	}
	return out, nil
}

// FindByCode resolves an exact product code within a workspace.
func (s *GormStore) FindByCode(ctx context.Context, workspaceID, code string) (*types.ProductCandidate, error) {
	var pr productRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND code = ?", workspaceID, code).
		Take(&pr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product by code: %w", err)
	}

	return &types.ProductCandidate{
		ID:            pr.ID,
		Name:          pr.Name,
		Price:         pr.Price,
		StockQuantity: pr.Stock,
		Code:          pr.Code,
		Category:      pr.Category,
	}, nil
}

// Compile-time interface checks.
var (
	_ CartStorage   = (*GormStore)(nil)
	_ CatalogSearch = (*GormStore)(nil)
	_ CartStorage   = (*MemoryStore)(nil)
	_ CatalogSearch = (*MemoryStore)(nil)
)
