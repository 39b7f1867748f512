package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/internal/orders"
	"github.com/angelmondragon/fashionplace-backend/internal/users"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:customerssvc?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'customer',
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  first_name TEXT,
  last_name TEXT,
  email TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL,
  bio TEXT NOT NULL DEFAULT '',
  picture_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  image_url TEXT,
  new_arrival INTEGER NOT NULL DEFAULT 0,
  top_rated INTEGER NOT NULL DEFAULT 0,
  trending INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  customer_id TEXT,
  session_id TEXT,
  completed INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id TEXT NOT NULL,
  pending_status TEXT NOT NULL DEFAULT 'Pending',
  placed_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	for _, table := range []string{"order_items", "orders", "cart_items", "carts", "profiles", "customers", "users", "products"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type profileFixture struct {
	svc ProfileService
	db  *gorm.DB
}

func newProfileService(t *testing.T) *profileFixture {
	t.Helper()

	db := setupCustomersTestDB(t)
	svc, err := NewProfileService(ProfileServiceParams{
		Profiles:   NewProfileRepository(db),
		Customers:  NewRepository(db),
		Users:      users.NewRepository(db),
		Orders:     orders.NewRepository(db),
		Carts:      cart.NewRepository(db),
		Transactor: &gormTransactor{db: db},
	})
	require.NoError(t, err)

	return &profileFixture{svc: svc, db: db}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Role:         enums.RoleCustomer,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCustomer(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.Customer {
	t.Helper()

	customer := &models.Customer{ID: uuid.New(), UserID: userID}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, code, appErr.Code())
}

func TestProfileCreateOnePerUser(t *testing.T) {
	f := newProfileService(t)
	ctx := context.Background()

	user := seedUser(t, f.db, "ana@example.com")
	actor := Actor{UserID: user.ID, Role: enums.RoleCustomer}

	profile, err := f.svc.Create(ctx, actor, CreateProfileDTO{Username: "ana", Bio: "vintage hunter"})
	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)
	assert.Equal(t, user.ID, profile.UserID)

	_, err = f.svc.Create(ctx, actor, CreateProfileDTO{Username: "ana-two"})
	assertCode(t, err, pkgerrors.CodeConflict)

	_, err = f.svc.Create(ctx, Actor{UserID: uuid.New(), Role: enums.RoleCustomer}, CreateProfileDTO{Username: "  "})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestProfileGetAuthorization(t *testing.T) {
	f := newProfileService(t)
	ctx := context.Background()

	owner := seedUser(t, f.db, "owner@example.com")
	stranger := seedUser(t, f.db, "stranger@example.com")

	profile, err := f.svc.Create(ctx, Actor{UserID: owner.ID, Role: enums.RoleCustomer}, CreateProfileDTO{Username: "owner"})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, profile.ID, Actor{UserID: owner.ID, Role: enums.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)

	_, err = f.svc.Get(ctx, profile.ID, Actor{UserID: stranger.ID, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	got, err = f.svc.Get(ctx, profile.ID, Actor{UserID: stranger.ID, Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)

	_, err = f.svc.Get(ctx, uuid.New(), Actor{UserID: owner.ID, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestProfileUpdatePartialFields(t *testing.T) {
	f := newProfileService(t)
	ctx := context.Background()

	user := seedUser(t, f.db, "ana@example.com")
	actor := Actor{UserID: user.ID, Role: enums.RoleCustomer}

	profile, err := f.svc.Create(ctx, actor, CreateProfileDTO{Username: "ana", Bio: "vintage hunter"})
	require.NoError(t, err)

	bio := "streetwear now"
	updated, err := f.svc.Update(ctx, profile.ID, actor, UpdateProfileDTO{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "ana", updated.Username)
	assert.Equal(t, "streetwear now", updated.Bio)

	empty := "   "
	_, err = f.svc.Update(ctx, profile.ID, actor, UpdateProfileDTO{Username: &empty})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestProfileListScopesByRole(t *testing.T) {
	f := newProfileService(t)
	ctx := context.Background()

	ana := seedUser(t, f.db, "ana@example.com")
	bea := seedUser(t, f.db, "bea@example.com")

	_, err := f.svc.Create(ctx, Actor{UserID: ana.ID, Role: enums.RoleCustomer}, CreateProfileDTO{Username: "ana"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, Actor{UserID: bea.ID, Role: enums.RoleCustomer}, CreateProfileDTO{Username: "bea"})
	require.NoError(t, err)

	own, err := f.svc.List(ctx, Actor{UserID: ana.ID, Role: enums.RoleCustomer})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "ana", own[0].Username)

	all, err := f.svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.RoleCustomer})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProfileDeleteCascades(t *testing.T) {
	f := newProfileService(t)
	ctx := context.Background()

	user := seedUser(t, f.db, "ana@example.com")
	customer := seedCustomer(t, f.db, user.ID)
	actor := Actor{UserID: user.ID, Role: enums.RoleCustomer}

	profile, err := f.svc.Create(ctx, actor, CreateProfileDTO{Username: "ana"})
	require.NoError(t, err)

	product := &models.Product{ID: uuid.New(), Name: "Linen Shirt", Price: decimal.RequireFromString("39.50")}
	require.NoError(t, f.db.Create(product).Error)

	basket := &models.Cart{ID: uuid.New(), CustomerID: &customer.ID}
	require.NoError(t, f.db.Create(basket).Error)
	require.NoError(t, f.db.Create(&models.CartItem{
		ID:        uuid.New(),
		CartID:    basket.ID,
		ProductID: product.ID,
		Quantity:  2,
	}).Error)

	order := &models.Order{OwnerID: customer.ID, PendingStatus: enums.OrderStatusPending}
	require.NoError(t, f.db.Create(order).Error)
	require.NoError(t, f.db.Create(&models.OrderItem{
		OrderID:   order.ID,
		ProductID: product.ID,
		Quantity:  2,
	}).Error)

	require.NoError(t, f.svc.Delete(ctx, profile.ID, actor))

	counts := map[string]int64{}
	for _, table := range []string{"users", "customers", "profiles", "carts", "cart_items", "orders", "order_items"} {
		var n int64
		require.NoError(t, f.db.Table(table).Count(&n).Error)
		counts[table] = n
	}
	for table, n := range counts {
		assert.Zerof(t, n, "table %s should be empty", table)
	}

	_, err = f.svc.Get(ctx, profile.ID, actor)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestProfileDeleteForbiddenForStranger(t *testing.T) {
	f := newProfileService(t)
	ctx := context.Background()

	owner := seedUser(t, f.db, "owner@example.com")
	stranger := seedUser(t, f.db, "stranger@example.com")

	profile, err := f.svc.Create(ctx, Actor{UserID: owner.ID, Role: enums.RoleCustomer}, CreateProfileDTO{Username: "owner"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, profile.ID, Actor{UserID: stranger.ID, Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)
}
