package payment

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for payment provider failures.
var (
	ErrProviderUnreachable = errors.New("payment provider unreachable")
	ErrProviderTimeout     = errors.New("payment provider timeout")
	ErrChargeDeclined      = errors.New("charge declined")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrRefundFailed        = errors.New("refund failed")
	ErrUnknownReference    = errors.New("unknown payment reference")
)

// Provider is the interface for moving money in and out of escrow.
type Provider interface {
	// InitializeCharge starts collection of the escrow amount from the
	// client. Settlement is confirmed asynchronously via webhook or by
	// polling VerifyCharge.
	InitializeCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)

	// VerifyCharge checks the settlement state of a previously
	// initialized charge.
	VerifyCharge(ctx context.Context, reference string) (VerifyResult, error)

	// ReleasePayout transfers the worker payout out of escrow.
	ReleasePayout(ctx context.Context, req PayoutRequest) (PayoutResult, error)

	// Refund returns amount to the client for the given charge. A zero
	// amount refunds the full charge.
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)

	// VerifyWebhookSignature reports whether signature matches payload.
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// ChargeRequest describes an escrow collection from the client.
type ChargeRequest struct {
	Reference     string
	Email         string
	Amount        float64
	Currency      string
	PaymentMethod string
	CallbackURL   string
	Metadata      map[string]string
}

// ChargeResult is the outcome of initializing a charge.
type ChargeResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// VerifyResult reports the settlement state of a charge.
type VerifyResult struct {
	Reference     string
	Settled       bool
	Amount        float64
	Currency      string
	TransactionID string
	Channel       string
	PaidAt        time.Time
}

// PayoutRequest describes a transfer of the worker payout.
type PayoutRequest struct {
	Reference string
	WorkerID  string
	Amount    float64
	Currency  string
	Reason    string
}

// PayoutResult is the outcome of a payout transfer.
type PayoutResult struct {
	TransferCode string
	Status       string
}

// RefundRequest describes a full or partial refund of a charge.
type RefundRequest struct {
	Reference string
	Amount    float64
	Reason    string
}

// RefundResult is the outcome of a refund.
type RefundResult struct {
	RefundID string
	Status   string
}

// MinorUnits converts a major-unit amount to the smallest currency unit.
func MinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// MajorUnits converts a minor-unit amount back to major units.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
