package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
)

// Repository exposes persistence operations for carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart. The partial unique open-cart indexes surface a
// unique violation when the owner already has one; callers refetch.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByID loads a cart with its items and their products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOpenByCustomer loads the customer's open cart.
func (r *Repository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Where("customer_id = ? AND completed = ?", customerID, false).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOpenBySession loads the anonymous session's open cart.
func (r *Repository) FindOpenBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Where("session_id = ? AND completed = ?", sessionID, false).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AssignCustomer re-points an anonymous cart to the customer and clears the
// session binding. The open-cart index rejects it when the customer already
// has an open cart.
func (r *Repository) AssignCustomer(ctx context.Context, cartID, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"customer_id": customerID,
			"session_id":  nil,
		}).Error
}

// MarkCompleted freezes the cart after successful payment.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND completed = ?", id, false).
		Update("completed", true).Error
}

// Delete removes the cart and its items.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Cart{}).Error
}

// DeleteByCustomer removes every cart and cart item belonging to the
// customer, open or completed. Used by the profile cascade; callers run it
// inside a transaction.
func (r *Repository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.
		Where("cart_id IN (SELECT id FROM carts WHERE customer_id = ?)", customerID).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("customer_id = ?", customerID).Delete(&models.Cart{}).Error
}
