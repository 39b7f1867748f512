package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single open basket for one identity. An open cart belongs to
// exactly one of a customer or an anonymous session token; partial unique
// indexes enforce at most one open cart per owner. Once completed the cart
// is frozen and only kept for history.
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid"`
	SessionID  *string    `gorm:"column:session_id"`
	Completed  bool       `gorm:"column:completed;not null;default:false"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
