package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
)

// ProfileRepository exposes persistence operations for customer profiles.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs a profile repo bound to the provided DB.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	if tx == nil {
		return r
	}
	return &ProfileRepository{db: tx}
}

// Create inserts a profile row. The unique user_id index rejects a second
// profile for the same user.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// FindByID loads a profile by its UUID.
func (r *ProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID loads the profile owned by the given user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListAll returns every profile, oldest first. Admin surface.
func (r *ProfileRepository) ListAll(ctx context.Context) ([]models.Profile, error) {
	var rows []models.Profile
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update applies the given column updates to the profile.
func (r *ProfileRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the profile row.
func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Profile{}).Error
}
