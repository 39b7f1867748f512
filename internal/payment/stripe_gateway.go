package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/charge"

	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/fashionplace-backend/pkg/stripe"
)

// chargeClient exposes the subset of Stripe operations the gateway needs.
type chargeClient interface {
	New(ctx context.Context, params *stripe.ChargeParams) (*stripe.Charge, error)
}

type stripeChargeClient struct{}

func (stripeChargeClient) New(ctx context.Context, params *stripe.ChargeParams) (*stripe.Charge, error) {
	if params != nil {
		params.Context = ctx
	}
	return charge.New(params)
}

// StripeGateway captures card charges through Stripe.
type StripeGateway struct {
	charges  chargeClient
	currency string
}

// NewStripeGateway wraps the shared Stripe client as a payment gateway.
func NewStripeGateway(client *pkgstripe.Client) (*StripeGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &StripeGateway{
		charges:  stripeChargeClient{},
		currency: client.Currency(),
	}, nil
}

// Capture creates a Stripe charge for the request amount. Card declines map
// to a PAYMENT_DECLINED error carrying Stripe's customer-facing message.
func (g *StripeGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if req.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}
	if req.AmountMinorUnits <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	currency := strings.TrimSpace(strings.ToLower(req.Currency))
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(req.AmountMinorUnits),
		Currency: stripe.String(currency),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if err := params.SetSource(req.Token); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment token")
	}

	ch, err := g.charges.New(ctx, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			msg := stripeErr.Msg
			if msg == "" {
				msg = "card declined"
			}
			return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, msg)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("stripe charge for %d %s", req.AmountMinorUnits, currency))
	}

	return &CaptureResult{
		ChargeID: ch.ID,
		Status:   string(ch.Status),
		Currency: string(ch.Currency),
	}, nil
}
