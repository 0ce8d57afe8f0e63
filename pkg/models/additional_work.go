package models

import (
	"time"

	"github.com/google/uuid"
)

// Additional-work approval statuses.
const (
	AdditionalWorkPending  = "pending"
	AdditionalWorkApproved = "approved"
	AdditionalWorkRejected = "rejected"
)

// AdditionalWorkRequest is a mid-job scope change. It carries its own
// escrow-status field: the top-up charge is tracked independently of the
// primary escrow.
type AdditionalWorkRequest struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	RequestedBy uuid.UUID `json:"requested_by"`

	Status     string     `json:"status"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	EscrowStatus     string `json:"escrow_status"`
	PaymentReference string `json:"payment_reference,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
