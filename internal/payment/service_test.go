package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
)

type stubCartStore struct {
	carts     map[uuid.UUID]*models.Cart
	completed []uuid.UUID
}

func (s *stubCartStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := s.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

func (s *stubCartStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	s.completed = append(s.completed, id)
	return nil
}

type stubGateway struct {
	lastRequest CaptureRequest
	result      *CaptureResult
	err         error
}

func (g *stubGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	g.lastRequest = req
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func testCart(items ...models.CartItem) *models.Cart {
	return &models.Cart{ID: uuid.New(), Items: items}
}

func priced(name, price string, qty int) models.CartItem {
	return models.CartItem{
		ProductID: uuid.New(),
		Quantity:  qty,
		Product: &models.Product{
			Name:  name,
			Price: decimal.RequireFromString(price),
		},
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, code, appErr.Code())
}

func TestCaptureChargesGrandTotal(t *testing.T) {
	cart := testCart(priced("Linen Shirt", "39.50", 2), priced("Leather Belt", "19.99", 1))
	carts := &stubCartStore{carts: map[uuid.UUID]*models.Cart{cart.ID: cart}}
	gateway := &stubGateway{result: &CaptureResult{ChargeID: "ch_123", Status: "succeeded", Currency: "usd"}}

	svc, err := NewService(ServiceParams{Carts: carts, Gateway: gateway})
	require.NoError(t, err)

	receipt, err := svc.Capture(context.Background(), cart.ID, "tok_visa")
	require.NoError(t, err)

	assert.Equal(t, int64(9899), gateway.lastRequest.AmountMinorUnits)
	assert.Equal(t, "tok_visa", gateway.lastRequest.Token)
	assert.Equal(t, "ch_123", receipt.ChargeID)
	assert.Equal(t, "succeeded", receipt.Status)
	assert.Equal(t, "98.99", receipt.Amount)
	assert.Equal(t, []uuid.UUID{cart.ID}, carts.completed)
}

func TestCaptureValidation(t *testing.T) {
	cart := testCart(priced("Linen Shirt", "39.50", 1))
	carts := &stubCartStore{carts: map[uuid.UUID]*models.Cart{cart.ID: cart}}
	svc, err := NewService(ServiceParams{Carts: carts, Gateway: &stubGateway{}})
	require.NoError(t, err)

	_, err = svc.Capture(context.Background(), cart.ID, "")
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Capture(context.Background(), uuid.New(), "tok_visa")
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestCaptureEmptyCart(t *testing.T) {
	cart := testCart()
	carts := &stubCartStore{carts: map[uuid.UUID]*models.Cart{cart.ID: cart}}
	svc, err := NewService(ServiceParams{Carts: carts, Gateway: &stubGateway{}})
	require.NoError(t, err)

	_, err = svc.Capture(context.Background(), cart.ID, "tok_visa")
	assertCode(t, err, pkgerrors.CodeValidation)
	assert.Empty(t, carts.completed)
}

func TestCaptureCompletedCart(t *testing.T) {
	cart := testCart(priced("Linen Shirt", "39.50", 1))
	cart.Completed = true
	carts := &stubCartStore{carts: map[uuid.UUID]*models.Cart{cart.ID: cart}}
	svc, err := NewService(ServiceParams{Carts: carts, Gateway: &stubGateway{}})
	require.NoError(t, err)

	_, err = svc.Capture(context.Background(), cart.ID, "tok_visa")
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCaptureDeclineLeavesCartOpen(t *testing.T) {
	cart := testCart(priced("Linen Shirt", "39.50", 1))
	carts := &stubCartStore{carts: map[uuid.UUID]*models.Cart{cart.ID: cart}}
	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodePaymentDeclined, "Your card was declined.")}

	svc, err := NewService(ServiceParams{Carts: carts, Gateway: gateway})
	require.NoError(t, err)

	_, err = svc.Capture(context.Background(), cart.ID, "tok_chargeDeclined")
	assertCode(t, err, pkgerrors.CodePaymentDeclined)
	assert.Equal(t, "Your card was declined.", pkgerrors.As(err).Message())
	assert.Empty(t, carts.completed)
}
