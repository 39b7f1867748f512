package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/internal/customers"
	"github.com/angelmondragon/fashionplace-backend/internal/users"
	pkgauth "github.com/angelmondragon/fashionplace-backend/pkg/auth"
	"github.com/angelmondragon/fashionplace-backend/pkg/config"
	"github.com/angelmondragon/fashionplace-backend/pkg/db"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
	"github.com/angelmondragon/fashionplace-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller. Both flows
// accept the caller's guest session token so the anonymous cart survives
// signing in.
type Service interface {
	Register(ctx context.Context, req RegisterRequest, sessionToken string) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest, sessionToken string) (*AuthResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	WithTx(tx *gorm.DB) *users.Repository
}

type customerRepository interface {
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
	WithTx(tx *gorm.DB) *customers.Repository
}

type cartMerger interface {
	MergeOnAuthenticate(ctx context.Context, sessionToken string, customerID uuid.UUID) error
}

type service struct {
	users       userRepository
	customers   customerRepository
	carts       cartMerger
	tx          txRunner
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          userRepository
	Customers      customerRepository
	Carts          cartMerger
	Transactor     txRunner
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart merger required")
	}
	if params.Transactor == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		users:       params.Users,
		customers:   params.Customers,
		carts:       params.Carts,
		tx:          params.Transactor,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

// Register creates the user and its customer row in one transaction, folds
// in any anonymous cart after commit, and mints an access token.
func (s *service) Register(ctx context.Context, req RegisterRequest, sessionToken string) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var (
		user     *models.User
		customer *models.Customer
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)
		customerRepo := s.customers.WithTx(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		created, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         enums.RoleCustomer,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		first := req.FirstName
		last := req.LastName
		mail := email
		owned, err := customerRepo.Create(ctx, &models.Customer{
			ID:        uuid.New(),
			UserID:    created.ID,
			FirstName: &first,
			LastName:  &last,
			Email:     &mail,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
		}

		user = created
		customer = owned
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register")
	}

	s.mergeCart(ctx, sessionToken, customer.ID)

	return s.respond(user, time.Now().UTC())
}

// Login verifies credentials, folds in any anonymous cart, and mints an
// access token.
func (s *service) Login(ctx context.Context, req LoginRequest, sessionToken string) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	user.LastLoginAt = &now

	if customer, err := s.customers.FindByUserID(ctx, user.ID); err == nil {
		s.mergeCart(ctx, sessionToken, customer.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}

	return s.respond(user, now)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// mergeCart runs after the identity work commits. A failed merge never
// blocks sign-in; the guest cart simply stays behind its token.
func (s *service) mergeCart(ctx context.Context, sessionToken string, customerID uuid.UUID) {
	if sessionToken == "" {
		return
	}
	if err := s.carts.MergeOnAuthenticate(ctx, sessionToken, customerID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "cart merge on authenticate failed", err)
	}
}

func (s *service) respond(user *models.User, now time.Time) (*AuthResponse, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}
