package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
)

// Actor names who is performing a profile operation and with which role.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// ProfileDTO is the transport shape for a customer profile.
type ProfileDTO struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	Bio        string    `json:"bio"`
	PictureURL *string   `json:"picture_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateProfileDTO carries the fields accepted on profile creation.
type CreateProfileDTO struct {
	Username   string  `json:"username" validate:"required,min=3,max=64"`
	Bio        string  `json:"bio" validate:"max=500"`
	PictureURL *string `json:"picture_url" validate:"omitempty,url"`
}

// UpdateProfileDTO carries the fields accepted on profile update. Nil
// pointers leave the stored value untouched.
type UpdateProfileDTO struct {
	Username   *string `json:"username" validate:"omitempty,min=3,max=64"`
	Bio        *string `json:"bio" validate:"omitempty,max=500"`
	PictureURL *string `json:"picture_url" validate:"omitempty,url"`
}

func profileFromModel(profile *models.Profile) *ProfileDTO {
	return &ProfileDTO{
		ID:         profile.ID,
		UserID:     profile.UserID,
		Username:   profile.Username,
		Bio:        profile.Bio,
		PictureURL: profile.PictureURL,
		CreatedAt:  profile.CreatedAt,
		UpdatedAt:  profile.UpdatedAt,
	}
}
