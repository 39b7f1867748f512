package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/internal/orders"
	"github.com/angelmondragon/fashionplace-backend/internal/users"
	"github.com/angelmondragon/fashionplace-backend/pkg/db"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListAll(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *gorm.DB) *ProfileRepository
}

type customerRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	WithTx(tx *gorm.DB) *Repository
}

type userRepository interface {
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *gorm.DB) *users.Repository
}

type orderPurger interface {
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
	WithTx(tx *gorm.DB) *orders.Repository
}

type cartPurger interface {
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error
	WithTx(tx *gorm.DB) *cart.Repository
}

// ProfileService manages customer profiles, including the account-wide
// delete cascade.
type ProfileService interface {
	Create(ctx context.Context, actor Actor, input CreateProfileDTO) (*ProfileDTO, error)
	Get(ctx context.Context, profileID uuid.UUID, actor Actor) (*ProfileDTO, error)
	Update(ctx context.Context, profileID uuid.UUID, actor Actor, input UpdateProfileDTO) (*ProfileDTO, error)
	List(ctx context.Context, actor Actor) ([]ProfileDTO, error)
	Delete(ctx context.Context, profileID uuid.UUID, actor Actor) error
}

type profileService struct {
	profiles  profileRepository
	customers customerRepository
	users     userRepository
	orders    orderPurger
	carts     cartPurger
	tx        txRunner
}

// ProfileServiceParams bundles the dependencies required to build the
// profile service.
type ProfileServiceParams struct {
	Profiles   profileRepository
	Customers  customerRepository
	Users      userRepository
	Orders     orderPurger
	Carts      cartPurger
	Transactor txRunner
}

// NewProfileService builds a profile service with the required dependencies.
func NewProfileService(params ProfileServiceParams) (ProfileService, error) {
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Transactor == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &profileService{
		profiles:  params.Profiles,
		customers: params.Customers,
		users:     params.Users,
		orders:    params.Orders,
		carts:     params.Carts,
		tx:        params.Transactor,
	}, nil
}

// Create stores the actor's profile. One profile per user; the unique
// user_id index backs the check under concurrent creates.
func (s *profileService) Create(ctx context.Context, actor Actor, input CreateProfileDTO) (*ProfileDTO, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	if _, err := s.profiles.FindByUserID(ctx, actor.UserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup profile")
	}

	profile, err := s.profiles.Create(ctx, &models.Profile{
		ID:         uuid.New(),
		UserID:     actor.UserID,
		Username:   username,
		Bio:        input.Bio,
		PictureURL: input.PictureURL,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
	}
	return profileFromModel(profile), nil
}

func (s *profileService) Get(ctx context.Context, profileID uuid.UUID, actor Actor) (*ProfileDTO, error) {
	profile, err := s.authorize(ctx, profileID, actor)
	if err != nil {
		return nil, err
	}
	return profileFromModel(profile), nil
}

// Update applies the non-nil fields and returns the refreshed profile.
func (s *profileService) Update(ctx context.Context, profileID uuid.UUID, actor Actor, input UpdateProfileDTO) (*ProfileDTO, error) {
	if _, err := s.authorize(ctx, profileID, actor); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		updates["username"] = username
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.PictureURL != nil {
		updates["picture_url"] = *input.PictureURL
	}

	if err := s.profiles.Update(ctx, profileID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}

	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile")
	}
	return profileFromModel(profile), nil
}

// List returns every profile for admins, or the actor's own profile.
func (s *profileService) List(ctx context.Context, actor Actor) ([]ProfileDTO, error) {
	if actor.IsAdmin() {
		rows, err := s.profiles.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list profiles")
		}
		out := make([]ProfileDTO, 0, len(rows))
		for i := range rows {
			out = append(out, *profileFromModel(&rows[i]))
		}
		return out, nil
	}

	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []ProfileDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup profile")
	}
	return []ProfileDTO{*profileFromModel(profile)}, nil
}

// Delete removes the profile and everything hanging off the account: order
// items, orders, carts, the customer row, the profile, and finally the user.
// All of it commits in one transaction.
func (s *profileService) Delete(ctx context.Context, profileID uuid.UUID, actor Actor) error {
	profile, err := s.authorize(ctx, profileID, actor)
	if err != nil {
		return err
	}

	customer, err := s.customers.FindByUserID(ctx, profile.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if customer != nil {
			if err := s.orders.WithTx(tx).DeleteByOwner(ctx, customer.ID); err != nil {
				return err
			}
			if err := s.carts.WithTx(tx).DeleteByCustomer(ctx, customer.ID); err != nil {
				return err
			}
			if err := s.customers.WithTx(tx).DeleteByUserID(ctx, profile.UserID); err != nil {
				return err
			}
		}
		if err := s.profiles.WithTx(tx).Delete(ctx, profileID); err != nil {
			return err
		}
		return s.users.WithTx(tx).Delete(ctx, profile.UserID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete account cascade")
	}
	return nil
}

func (s *profileService) authorize(ctx context.Context, profileID uuid.UUID, actor Actor) (*models.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup profile")
	}
	if actor.IsAdmin() || profile.UserID == actor.UserID {
		return profile, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "profile belongs to another user")
}
