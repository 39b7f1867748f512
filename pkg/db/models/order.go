package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
)

// Order is the immutable snapshot created from a cart at checkout. Only
// PendingStatus changes after creation.
type Order struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID       uuid.UUID         `gorm:"column:owner_id;type:uuid;not null"`
	PendingStatus enums.OrderStatus `gorm:"column:pending_status;not null;default:'Pending'"`
	PlacedAt      time.Time         `gorm:"column:placed_at;autoCreateTime"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID"`
}
