package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
)

// ItemRepository manages persistent cart items. Quantity writes run as
// single UPDATE statements so concurrent requests never lose increments to
// read-modify-write races.
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository binds the repository to the provided DB handle.
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	if tx == nil {
		return r
	}
	return &ItemRepository{db: tx}
}

// Insert creates a new cart line. A unique violation on (cart_id,
// product_id) means a concurrent insert won; callers fall back to an
// increment.
func (r *ItemRepository) Insert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// IncrementQuantity adds delta to an existing line in one statement and
// reports how many rows matched.
func (r *ItemRepository) IncrementQuantity(ctx context.Context, cartID, productID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	return result.RowsAffected, result.Error
}

// SetQuantity overwrites an existing line's quantity in one statement and
// reports how many rows matched.
func (r *ItemRepository) SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		UpdateColumn("quantity", quantity)
	return result.RowsAffected, result.Error
}

// FindByID loads a cart line with its product.
func (r *ItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByCartAndProduct loads one line by its natural key.
func (r *ItemRepository) FindByCartAndProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByCart returns all lines for a cart with products attached.
func (r *ItemRepository) ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByID removes one line.
func (r *ItemRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.CartItem{}).Error
}

// DeleteByCartAndProduct removes one line by its natural key and reports
// how many rows matched.
func (r *ItemRepository) DeleteByCartAndProduct(ctx context.Context, cartID, productID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// Repoint moves one line onto another cart. Used during merges for products
// the destination cart does not carry yet.
func (r *ItemRepository) Repoint(ctx context.Context, itemID, toCartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("cart_id", toCartID).Error
}
