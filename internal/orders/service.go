package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
}

type customerReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
}

// Service defines the order engine operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, cartID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor Actor) ([]OrderDTO, error)
	Get(ctx context.Context, orderID int64, actor Actor) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus, actor Actor) (*OrderDTO, error)
	Delete(ctx context.Context, orderID int64, actor Actor) error
}

type orderRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) error
	DeleteWithItems(ctx context.Context, id int64) error
	WithTx(tx *gorm.DB) *Repository
}

type service struct {
	repo      orderRepository
	carts     cartReader
	customers customerReader
	tx        txRunner
}

// ServiceParams bundles the dependencies required to build an order service.
type ServiceParams struct {
	Repo       orderRepository
	Carts      cartReader
	Customers  customerReader
	Transactor txRunner
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if params.Transactor == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      params.Repo,
		carts:     params.Carts,
		customers: params.Customers,
		tx:        params.Transactor,
	}, nil
}

// Create snapshots the cart into a new Pending order. Order plus all line
// items commit in one transaction; the cart is left untouched because the
// payment step still needs it.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, cartID uuid.UUID) (*OrderDTO, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Create(ctx, &models.Order{
			OwnerID:       ownerID,
			PendingStatus: enums.OrderStatusPending,
		})
		if err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	return s.reload(ctx, created.ID)
}

// List returns the actor's own orders, or every order for admins.
func (s *service) List(ctx context.Context, actor Actor) ([]OrderDTO, error) {
	var rows []models.Order
	if actor.IsAdmin() {
		all, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
		}
		rows = all
	} else {
		customer, err := s.actorCustomer(ctx, actor)
		if err != nil {
			return nil, err
		}
		own, err := s.repo.ListByOwner(ctx, customer.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
		}
		rows = own
	}

	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *orderFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, orderID int64, actor Actor) (*OrderDTO, error) {
	order, err := s.authorize(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	return orderFromModel(order), nil
}

// UpdateStatus moves a Pending order to Complete or Failed. Admin only;
// terminal states reject further transitions.
func (s *service) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus, actor Actor) (*OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]string{"pending_status": status.String()})
	}

	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.PendingStatus.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]string{
				"from": order.PendingStatus.String(),
				"to":   status.String(),
			})
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	return s.reload(ctx, orderID)
}

// Delete removes the order and its items in one transaction. Owner or admin.
func (s *service) Delete(ctx context.Context, orderID int64, actor Actor) error {
	if _, err := s.authorize(ctx, orderID, actor); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteWithItems(ctx, orderID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	return nil
}

func (s *service) find(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup order")
	}
	return order, nil
}

func (s *service) authorize(ctx context.Context, orderID int64, actor Actor) (*models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return order, nil
	}
	customer, err := s.actorCustomer(ctx, actor)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != customer.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return order, nil
}

func (s *service) actorCustomer(ctx context.Context, actor Actor) (*models.Customer, error) {
	customer, err := s.customers.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer account required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	return customer, nil
}

func (s *service) reload(ctx context.Context, orderID int64) (*OrderDTO, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orderFromModel(order), nil
}
