package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute statuses.
const (
	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
	DisputeStatusEscalated   = "escalated"
)

// Dispute resolution types.
const (
	ResolutionWorkerReturns    = "worker_returns"
	ResolutionPartialRefund    = "partial_refund"
	ResolutionFullRefund       = "full_refund"
	ResolutionPaymentReleased  = "payment_released"
	ResolutionEscalatedToStaff = "escalated_to_staff"
)

// Who applied a resolution.
const (
	ResolvedByAuto  = "auto"
	ResolvedByStaff = "staff"
)

// DisputeReasons are the accepted reason codes for raising a dispute.
var DisputeReasons = []string{
	"work_not_completed", "poor_quality", "worker_no_show", "wrong_charges",
	"worker_rude", "client_not_available", "scope_disagreement", "payment_issue", "other",
}

// ValidDisputeReason reports whether r is a recognized reason code.
func ValidDisputeReason(r string) bool {
	for _, s := range DisputeReasons {
		if s == r {
			return true
		}
	}
	return false
}

// ValidResolution reports whether r is a recognized resolution type.
func ValidResolution(r string) bool {
	switch r {
	case ResolutionWorkerReturns, ResolutionPartialRefund, ResolutionFullRefund,
		ResolutionPaymentReleased, ResolutionEscalatedToStaff:
		return true
	}
	return false
}

// Evidence is a piece of supporting material attached to a dispute.
type Evidence struct {
	Type        string    `json:"type"` // photo | text | video
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Dispute is raised by either party against a job in execution. PriorStatus
// keeps the job status at raise time so a worker_returns resolution can
// reverse the disputed state.
type Dispute struct {
	RaisedBy   string    `json:"raised_by"` // client | worker
	RaisedByID uuid.UUID `json:"raised_by_id"`

	Reason      string     `json:"reason"`
	Description string     `json:"description"`
	Evidence    []Evidence `json:"evidence,omitempty"`

	Status         string     `json:"status"`
	Resolution     string     `json:"resolution,omitempty"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	RefundPercent  int        `json:"refund_percent,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"` // auto | staff
	StaffID        *uuid.UUID `json:"staff_id,omitempty"`

	PriorStatus         string     `json:"prior_status"`
	RaisedAt            time.Time  `json:"raised_at"`
	AutoResolveDeadline time.Time  `json:"auto_resolve_deadline"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
}

// Open reports whether the dispute still accepts evidence and resolutions.
func (d *Dispute) Open() bool {
	return d.Status == DisputeStatusOpen || d.Status == DisputeStatusUnderReview
}
