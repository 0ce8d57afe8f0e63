package models

import "time"

// Escrow statuses. The ledger moves strictly forward: pending → held →
// one of the terminal states.
const (
	EscrowStatusPending       = "pending"
	EscrowStatusHeld          = "held"
	EscrowStatusReleased      = "released"
	EscrowStatusRefunded      = "refunded"
	EscrowStatusPartialRefund = "partial_refund"
)

// Payment methods accepted for escrow funding.
var PaymentMethods = []string{"mtn_momo", "vodafone_cash", "airtel_money", "card", "bank_transfer"}

// Escrow tracks platform-held funds for a job. Invariant:
// PlatformFee + WorkerPayout == Amount, exact after 2-decimal rounding.
type Escrow struct {
	Amount       float64 `json:"amount"`
	PlatformFee  float64 `json:"platform_fee"`
	WorkerPayout float64 `json:"worker_payout"`
	Status       string  `json:"status"`

	PaymentMethod    string `json:"payment_method,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	TransactionID    string `json:"transaction_id,omitempty"`

	PaidAt       *time.Time `json:"paid_at,omitempty"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	RefundAmount float64    `json:"refund_amount,omitempty"`
	RefundReason string     `json:"refund_reason,omitempty"`
}

// Terminal reports whether the escrow has reached a state that release and
// refund operations must not act on again.
func (e *Escrow) Terminal() bool {
	switch e.Status {
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusPartialRefund:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m string) bool {
	for _, s := range PaymentMethods {
		if s == m {
			return true
		}
	}
	return false
}
