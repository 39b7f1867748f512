package payment

import "context"

// CaptureRequest describes a single charge against a tokenized card.
type CaptureRequest struct {
	AmountMinorUnits int64
	Currency         string
	Token            string
	Description      string
}

// CaptureResult reports the processor's view of a settled charge.
type CaptureResult struct {
	ChargeID string
	Status   string
	Currency string
}

// Gateway abstracts the payment processor. Declines come back as coded
// errors so callers can map them without knowing the processor.
type Gateway interface {
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
}
