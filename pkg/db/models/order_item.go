package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots product and quantity at order creation time.
type OrderItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64     `gorm:"column:order_id;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
