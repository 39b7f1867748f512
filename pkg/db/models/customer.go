package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the storefront-facing counterpart of a User, created in the
// same transaction as the User during registration.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FirstName *string   `gorm:"column:first_name"`
	LastName  *string   `gorm:"column:last_name"`
	Email     *string   `gorm:"column:email;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
