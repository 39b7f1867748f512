package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
)

const (
	mergeLockAttempts = 5
	mergeLockBackoff  = 50 * time.Millisecond
)

// Service defines the behavior needed by the cart controllers and the auth
// merge hook.
type Service interface {
	ResolveOrCreate(ctx context.Context, identity Identity) (*CartDTO, error)
	Get(ctx context.Context, cartID uuid.UUID) (*CartDTO, error)
	Delete(ctx context.Context, cartID uuid.UUID) error
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*MutationResult, error)
	SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*MutationResult, error)
	UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*MutationResult, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Totals(ctx context.Context, cartID uuid.UUID) (*TotalsDTO, error)
	MergeOnAuthenticate(ctx context.Context, sessionToken string, customerID uuid.UUID) error
}

type cartRepository interface {
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindOpenBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	AssignCustomer(ctx context.Context, cartID, customerID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *gorm.DB) *Repository
}

type itemRepository interface {
	Insert(ctx context.Context, item *models.CartItem) error
	IncrementQuantity(ctx context.Context, cartID, productID uuid.UUID, delta int) (int64, error)
	SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	FindByCartAndProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByCartAndProduct(ctx context.Context, cartID, productID uuid.UUID) (int64, error)
	Repoint(ctx context.Context, itemID, toCartID uuid.UUID) error
	WithTx(tx *gorm.DB) *ItemRepository
}

type productFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type guestInvalidator interface {
	Invalidate(ctx context.Context, token string) error
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	carts    cartRepository
	items    itemRepository
	products productFinder
	sessions guestInvalidator
	locks    MergeLocker
	tx       transactor
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	CartRepo    cartRepository
	ItemRepo    itemRepository
	Products    productFinder
	Sessions    guestInvalidator
	MergeLocker MergeLocker
	Transactor  transactor
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.ItemRepo == nil {
		return nil, fmt.Errorf("cart item repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("guest session manager is required")
	}
	if params.MergeLocker == nil {
		return nil, fmt.Errorf("merge locker is required")
	}
	if params.Transactor == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	return &service{
		carts:    params.CartRepo,
		items:    params.ItemRepo,
		products: params.Products,
		sessions: params.Sessions,
		locks:    params.MergeLocker,
		tx:       params.Transactor,
	}, nil
}

// ResolveOrCreate returns the identity's open cart, creating one when none
// exists. Concurrent first calls race on the partial unique open-cart
// index; the loser refetches the winner's cart.
func (s *service) ResolveOrCreate(ctx context.Context, identity Identity) (*CartDTO, error) {
	switch {
	case identity.IsCustomer():
		cart, err := s.carts.FindOpenByCustomer(ctx, *identity.CustomerID)
		if err == nil {
			return cartFromModel(cart), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart")
		}
		created, err := s.carts.Create(ctx, &models.Cart{ID: uuid.New(), CustomerID: identity.CustomerID})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				cart, err := s.carts.FindOpenByCustomer(ctx, *identity.CustomerID)
				if err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refetch cart")
				}
				return cartFromModel(cart), nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
		}
		return cartFromModel(created), nil

	case identity.IsAnonymous():
		cart, err := s.carts.FindOpenBySession(ctx, identity.SessionToken)
		if err == nil {
			return cartFromModel(cart), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart")
		}
		token := identity.SessionToken
		created, err := s.carts.Create(ctx, &models.Cart{ID: uuid.New(), SessionID: &token})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				cart, err := s.carts.FindOpenBySession(ctx, identity.SessionToken)
				if err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refetch cart")
				}
				return cartFromModel(cart), nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
		}
		return cartFromModel(created), nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart identity is required")
	}
}

func (s *service) Get(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.findCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return cartFromModel(cart), nil
}

func (s *service) Delete(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.findCart(ctx, cartID); err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	return nil
}

// AddItem increments the product's line by quantity, creating the line when
// absent. The increment is a single UPDATE; a concurrent insert losing the
// unique-index race falls back to incrementing the winner's row.
func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*MutationResult, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]int{"quantity": quantity})
	}
	if err := s.requireOpenCart(ctx, cartID); err != nil {
		return nil, err
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}

	affected, err := s.items.IncrementQuantity(ctx, cartID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment cart item")
	}
	if affected == 0 {
		insertErr := s.items.Insert(ctx, &models.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
		})
		if insertErr != nil {
			if !db.IsUniqueViolation(insertErr, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, insertErr, "insert cart item")
			}
			if _, err := s.items.IncrementQuantity(ctx, cartID, productID, quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment cart item")
			}
		}
	}

	return s.mutationResult(ctx, cartID, productID)
}

// SetItemQuantity overwrites the product's line quantity. Zero deletes the
// line; negative input is rejected.
func (s *service) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*MutationResult, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative").
			WithDetails(map[string]int{"quantity": quantity})
	}
	if err := s.requireOpenCart(ctx, cartID); err != nil {
		return nil, err
	}

	if quantity == 0 {
		if _, err := s.items.DeleteByCartAndProduct(ctx, cartID, productID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
		}
		return s.aggregateResult(ctx, cartID)
	}

	affected, err := s.items.SetQuantity(ctx, cartID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cart item quantity")
	}
	if affected == 0 {
		if _, err := s.products.FindProductByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
		}
		insertErr := s.items.Insert(ctx, &models.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
		})
		if insertErr != nil {
			if !db.IsUniqueViolation(insertErr, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, insertErr, "insert cart item")
			}
			if _, err := s.items.SetQuantity(ctx, cartID, productID, quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cart item quantity")
			}
		}
	}

	return s.mutationResult(ctx, cartID, productID)
}

// UpdateItem overwrites one line's quantity addressed by item id. The item
// must belong to the cart.
func (s *service) UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*MutationResult, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart item")
	}
	if item.CartID != cartID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.SetItemQuantity(ctx, cartID, item.ProductID, quantity)
}

func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart item")
	}
	if item.CartID != cartID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err := s.items.DeleteByID(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
	}
	return nil
}

// Totals recomputes the cart aggregates from current product prices. It
// never mutates state.
func (s *service) Totals(ctx context.Context, cartID uuid.UUID) (*TotalsDTO, error) {
	if _, err := s.findCart(ctx, cartID); err != nil {
		return nil, err
	}
	items, err := s.items.ListByCart(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	totals := totalsFromItems(items)
	return &totals, nil
}

// MergeOnAuthenticate folds the session's anonymous cart into the
// customer's cart. Serialized per customer via a Redis lock; the row moves
// happen in one transaction. Shared products sum their quantities, the rest
// re-point to the customer cart, and the emptied anonymous cart is deleted.
// When the customer has no open cart the anonymous cart is reassigned
// wholesale. The guest token is invalidated afterwards.
func (s *service) MergeOnAuthenticate(ctx context.Context, sessionToken string, customerID uuid.UUID) error {
	if sessionToken == "" {
		return nil
	}

	release, err := s.acquireMergeLock(ctx, customerID)
	if err != nil {
		return err
	}
	defer release()

	anonCart, err := s.carts.FindOpenBySession(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.invalidateGuest(ctx, sessionToken)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup anonymous cart")
	}

	customerCart, err := s.carts.FindOpenByCustomer(ctx, customerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer cart")
	}

	if customerCart == nil {
		// No open customer cart: adopt the anonymous cart wholesale.
		if err := s.carts.AssignCustomer(ctx, anonCart.ID, customerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign anonymous cart")
		}
		return s.invalidateGuest(ctx, sessionToken)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		carts := s.carts.WithTx(tx)
		for _, item := range anonCart.Items {
			affected, err := items.IncrementQuantity(ctx, customerCart.ID, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if affected > 0 {
				if err := items.DeleteByID(ctx, item.ID); err != nil {
					return err
				}
				continue
			}
			if err := items.Repoint(ctx, item.ID, customerCart.ID); err != nil {
				return err
			}
		}
		return carts.Delete(ctx, anonCart.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge carts")
	}

	return s.invalidateGuest(ctx, sessionToken)
}

func (s *service) acquireMergeLock(ctx context.Context, customerID uuid.UUID) (func(), error) {
	for attempt := 0; attempt < mergeLockAttempts; attempt++ {
		release, acquired, err := s.locks.Acquire(ctx, customerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire merge lock")
		}
		if acquired {
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "merge canceled")
		case <-time.After(mergeLockBackoff):
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart merge already in progress")
}

func (s *service) invalidateGuest(ctx context.Context, token string) error {
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate guest session")
	}
	return nil
}

func (s *service) findCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart")
	}
	return cart, nil
}

func (s *service) requireOpenCart(ctx context.Context, cartID uuid.UUID) error {
	cart, err := s.findCart(ctx, cartID)
	if err != nil {
		return err
	}
	if cart.Completed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is completed")
	}
	return nil
}

func (s *service) mutationResult(ctx context.Context, cartID, productID uuid.UUID) (*MutationResult, error) {
	result, err := s.aggregateResult(ctx, cartID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.FindByCartAndProduct(ctx, cartID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart item")
	}
	dto := itemFromModel(*item)
	result.Item = &dto
	return result, nil
}

func (s *service) aggregateResult(ctx context.Context, cartID uuid.UUID) (*MutationResult, error) {
	items, err := s.items.ListByCart(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	totals := totalsFromItems(items)
	return &MutationResult{
		ItemCount:  totals.ItemCount,
		GrandTotal: totals.GrandTotal,
	}, nil
}
