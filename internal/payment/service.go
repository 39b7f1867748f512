package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	"github.com/angelmondragon/fashionplace-backend/pkg/money"
)

type cartStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

// ReceiptDTO is the transport shape for a captured payment.
type ReceiptDTO struct {
	CartID   uuid.UUID `json:"cart_id"`
	ChargeID string    `json:"charge_id"`
	Status   string    `json:"status"`
	Amount   string    `json:"amount"`
	Currency string    `json:"currency,omitempty"`
}

// Service charges a cart's grand total and freezes the cart on success.
type Service interface {
	Capture(ctx context.Context, cartID uuid.UUID, token string) (*ReceiptDTO, error)
}

type service struct {
	carts   cartStore
	gateway Gateway
}

// ServiceParams bundles the dependencies required to build a payment service.
type ServiceParams struct {
	Carts   cartStore
	Gateway Gateway
}

// NewService builds a payment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{carts: params.Carts, gateway: params.Gateway}, nil
}

// Capture charges the cart's recomputed grand total against the card token.
// The cart is marked completed only after the processor accepts the charge;
// a declined card leaves the cart open for another attempt.
func (s *service) Capture(ctx context.Context, cartID uuid.UUID, token string) (*ReceiptDTO, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}

	target, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart")
	}
	if target.Completed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already completed")
	}
	if len(target.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	total := cart.GrandTotalDecimal(target.Items)
	result, err := s.gateway.Capture(ctx, CaptureRequest{
		AmountMinorUnits: money.MinorUnits(total),
		Token:            token,
		Description:      fmt.Sprintf("cart %s", cartID),
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "capture payment")
	}

	if err := s.carts.MarkCompleted(ctx, cartID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete cart after capture")
	}

	return &ReceiptDTO{
		CartID:   cartID,
		ChargeID: result.ChargeID,
		Status:   result.Status,
		Amount:   money.Format(total),
		Currency: result.Currency,
	}, nil
}
