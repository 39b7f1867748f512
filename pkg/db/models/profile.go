package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile stores the public-facing details a customer maintains themselves.
type Profile struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Username   string    `gorm:"column:username;not null"`
	Bio        string    `gorm:"column:bio;not null;default:''"`
	PictureURL *string   `gorm:"column:picture_url"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
