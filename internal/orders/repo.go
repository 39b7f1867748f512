package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
)

// Repository exposes persistence operations for orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
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

// Create inserts an order row.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateItems inserts the order's line items in one statement.
func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindByID loads an order with its items and their products.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Items.Product").
		Where("owner_id = ?", ownerID).
		Order("placed_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every order, newest first. Admin surface.
func (r *Repository) ListAll(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Items.Product").
		Order("placed_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus persists the settlement status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("pending_status", status).Error
}

// DeleteWithItems removes the order's items and then the order itself.
// Callers run it inside a transaction.
func (r *Repository) DeleteWithItems(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Order{}).Error
}

// DeleteByOwner removes every order and order item belonging to the owner.
// Used by the profile cascade; callers run it inside a transaction.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.
		Where("order_id IN (SELECT id FROM orders WHERE owner_id = ?)", ownerID).
		Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Where("owner_id = ?", ownerID).Delete(&models.Order{}).Error
}
