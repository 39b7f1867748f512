package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
)

type stubCartReader struct {
	carts map[uuid.UUID]*models.Cart
}

func (s *stubCartReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := s.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

type stubCustomerReader struct {
	customers map[uuid.UUID]*models.Customer
}

func (s *stubCustomerReader) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	customer, ok := s.customers[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return customer, nil
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type ordersServiceFixture struct {
	svc       Service
	db        *gorm.DB
	carts     *stubCartReader
	customers *stubCustomerReader
}

func newOrdersService(t *testing.T) *ordersServiceFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	carts := &stubCartReader{carts: map[uuid.UUID]*models.Cart{}}
	customers := &stubCustomerReader{customers: map[uuid.UUID]*models.Customer{}}

	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(db),
		Carts:      carts,
		Customers:  customers,
		Transactor: &gormTransactor{db: db},
	})
	require.NoError(t, err)

	return &ordersServiceFixture{svc: svc, db: db, carts: carts, customers: customers}
}

func (f *ordersServiceFixture) addCustomer(userID uuid.UUID) *models.Customer {
	customer := &models.Customer{ID: uuid.New(), UserID: userID}
	f.customers.customers[userID] = customer
	return customer
}

func (f *ordersServiceFixture) addCart(t *testing.T, items ...models.CartItem) *models.Cart {
	t.Helper()

	cart := &models.Cart{ID: uuid.New(), Items: items}
	f.carts.carts[cart.ID] = cart
	return cart
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, code, appErr.Code())
}

func TestServiceCreateSnapshotsCart(t *testing.T) {
	f := newOrdersService(t)
	ctx := context.Background()

	shirt := newProduct(t, f.db, "Linen Shirt", "39.50")
	belt := newProduct(t, f.db, "Leather Belt", "19.99")
	cart := f.addCart(t,
		models.CartItem{ProductID: shirt.ID, Quantity: 2},
		models.CartItem{ProductID: belt.ID, Quantity: 1},
	)
	owner := uuid.New()

	order, err := f.svc.Create(ctx, owner, cart.ID)
	require.NoError(t, err)

	assert.Equal(t, owner, order.OwnerID)
	assert.Equal(t, enums.OrderStatusPending, order.PendingStatus)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 3, order.ItemCount)
	assert.Equal(t, "98.99", order.GrandTotal)
	assert.Equal(t, "79.00", order.Items[0].SubTotal)
}

func TestServiceCreateCartNotFound(t *testing.T) {
	f := newOrdersService(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceCreateEmptyCart(t *testing.T) {
	f := newOrdersService(t)
	cart := f.addCart(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), cart.ID)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceGetAuthorization(t *testing.T) {
	f := newOrdersService(t)
	ctx := context.Background()

	shirt := newProduct(t, f.db, "Linen Shirt", "39.50")
	cart := f.addCart(t, models.CartItem{ProductID: shirt.ID, Quantity: 1})

	ownerUser := uuid.New()
	owner := f.addCustomer(ownerUser)
	strangerUser := uuid.New()
	f.addCustomer(strangerUser)

	order, err := f.svc.Create(ctx, owner.ID, cart.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, order.ID, Actor{UserID: ownerUser, Role: enums.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.Get(ctx, order.ID, Actor{UserID: strangerUser, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	got, err = f.svc.Get(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.Get(ctx, 9999, Actor{UserID: ownerUser, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceListScopesByRole(t *testing.T) {
	f := newOrdersService(t)
	ctx := context.Background()

	shirt := newProduct(t, f.db, "Linen Shirt", "39.50")
	cart := f.addCart(t, models.CartItem{ProductID: shirt.ID, Quantity: 1})

	aliceUser := uuid.New()
	alice := f.addCustomer(aliceUser)
	bobUser := uuid.New()
	bob := f.addCustomer(bobUser)

	_, err := f.svc.Create(ctx, alice.ID, cart.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, bob.ID, cart.ID)
	require.NoError(t, err)

	own, err := f.svc.List(ctx, Actor{UserID: aliceUser, Role: enums.RoleCustomer})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, alice.ID, own[0].OwnerID)

	all, err := f.svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestServiceUpdateStatus(t *testing.T) {
	f := newOrdersService(t)
	ctx := context.Background()

	shirt := newProduct(t, f.db, "Linen Shirt", "39.50")
	cart := f.addCart(t, models.CartItem{ProductID: shirt.ID, Quantity: 1})
	order, err := f.svc.Create(ctx, uuid.New(), cart.ID)
	require.NoError(t, err)

	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusComplete, Actor{UserID: uuid.New(), Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatus("Shipped"), admin)
	assertCode(t, err, pkgerrors.CodeValidation)

	updated, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusComplete, admin)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusComplete, updated.PendingStatus)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusFailed, admin)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestServiceDelete(t *testing.T) {
	f := newOrdersService(t)
	ctx := context.Background()

	shirt := newProduct(t, f.db, "Linen Shirt", "39.50")
	cart := f.addCart(t, models.CartItem{ProductID: shirt.ID, Quantity: 2})

	ownerUser := uuid.New()
	owner := f.addCustomer(ownerUser)
	strangerUser := uuid.New()
	f.addCustomer(strangerUser)

	order, err := f.svc.Create(ctx, owner.ID, cart.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, order.ID, Actor{UserID: strangerUser, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, f.svc.Delete(ctx, order.ID, Actor{UserID: ownerUser, Role: enums.RoleCustomer}))

	_, err = f.svc.Get(ctx, order.ID, Actor{UserID: ownerUser, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeNotFound)

	var itemCount int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	assert.Zero(t, itemCount)
}
