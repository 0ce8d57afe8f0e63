package models

import (
	"time"

	"github.com/google/uuid"
)

// Job lifecycle statuses. The main path runs pending through approved;
// cancelled, expired, and disputed are side states.
const (
	JobStatusPending       = "pending"
	JobStatusQuoted        = "quoted"
	JobStatusAccepted      = "accepted"
	JobStatusFunded        = "funded"
	JobStatusWorkerOnWay   = "worker_on_way"
	JobStatusWorkerArrived = "worker_arrived"
	JobStatusInProgress    = "in_progress"
	JobStatusCompleted     = "completed"
	JobStatusApproved      = "approved"
	JobStatusDisputed      = "disputed"
	JobStatusCancelled     = "cancelled"
	JobStatusExpired       = "expired"
)

// Urgency levels for a job posting.
const (
	UrgencyEmergency = "emergency"
	UrgencySoon      = "soon"
	UrgencyFlexible  = "flexible"
)

// Actor roles as asserted by the upstream gateway.
const (
	RoleClient = "client"
	RoleWorker = "worker"
	RoleStaff  = "staff"
)

// ServiceCategories lists the vocational categories a job may be posted under.
var ServiceCategories = []string{
	"plumbing", "electrical", "carpentry", "masonry", "painting", "welding",
	"tailoring", "cleaning", "hvac", "roofing", "tiling", "general_repair", "other",
}

// ValidCategory reports whether c is a known service category.
func ValidCategory(c string) bool {
	for _, s := range ServiceCategories {
		if s == c {
			return true
		}
	}
	return false
}

// Location is a job site: a coordinate pair plus a human-readable address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Landmark  string  `json:"landmark,omitempty"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
}

// AcceptedQuote records the winning quote. Set exactly once per job.
type AcceptedQuote struct {
	QuoteID    uuid.UUID `json:"quote_id"`
	WorkerID   uuid.UUID `json:"worker_id"`
	Amount     float64   `json:"amount"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Compensation is owed to a worker when the client cancels after the
// worker has committed to the job.
type Compensation struct {
	Amount float64 `json:"amount"`
	Status string  `json:"status"` // pending | paid
}

// Cancellation records who cancelled a job and why.
type Cancellation struct {
	CancelledBy   string        `json:"cancelled_by"` // client | worker | system
	CancelledByID uuid.UUID     `json:"cancelled_by_id"`
	Reason        string        `json:"reason,omitempty"`
	CancelledAt   time.Time     `json:"cancelled_at"`
	Compensation  *Compensation `json:"compensation,omitempty"`
}

// JobPosting is the aggregate root of the Quick-Hire lifecycle. The quotes,
// escrow, tracking, dispute, and additional-work sub-entities have no lifecycle
// outside the job and are persisted with it as a single unit of consistency.
// Version backs the store's conditional-update (compare-and-swap) semantics.
type JobPosting struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	ClientID    uuid.UUID `db:"client_id"   json:"client_id"`
	Category    string    `db:"category"    json:"category"`
	Title       string    `db:"title"       json:"title"`
	Description string    `db:"description" json:"description"`
	Urgency     string    `db:"urgency"     json:"urgency"`
	Location    Location  `json:"location"`
	Status      string    `db:"status" json:"status"`

	Quotes         []Quote                 `json:"quotes,omitempty"`
	AcceptedQuote  *AcceptedQuote          `json:"accepted_quote,omitempty"`
	Escrow         *Escrow                 `json:"escrow,omitempty"`
	Tracking       Tracking                `json:"tracking"`
	Dispute        *Dispute                `json:"dispute,omitempty"`
	AdditionalWork []AdditionalWorkRequest `json:"additional_work,omitempty"`
	Cancellation   *Cancellation           `json:"cancellation,omitempty"`

	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Version   int64     `db:"version"    json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CanAcceptQuotes reports whether the job is still open for quoting at the
// given instant: unaccepted, in an open status, and not past its expiry.
func (j *JobPosting) CanAcceptQuotes(now time.Time) bool {
	return (j.Status == JobStatusPending || j.Status == JobStatusQuoted) &&
		j.AcceptedQuote == nil &&
		now.Before(j.ExpiresAt)
}

// WorkerID returns the accepted worker's ID, or uuid.Nil if no quote has
// been accepted yet.
func (j *JobPosting) WorkerID() uuid.UUID {
	if j.AcceptedQuote == nil {
		return uuid.Nil
	}
	return j.AcceptedQuote.WorkerID
}

// IsParty reports whether the user is the client or the accepted worker.
func (j *JobPosting) IsParty(userID uuid.UUID) bool {
	return j.ClientID == userID || j.WorkerID() == userID
}

// FindQuote returns the quote with the given ID, or nil.
func (j *JobPosting) FindQuote(quoteID uuid.UUID) *Quote {
	for i := range j.Quotes {
		if j.Quotes[i].ID == quoteID {
			return &j.Quotes[i]
		}
	}
	return nil
}

// FindAdditionalWork returns the additional-work request with the given ID, or nil.
func (j *JobPosting) FindAdditionalWork(id uuid.UUID) *AdditionalWorkRequest {
	for i := range j.AdditionalWork {
		if j.AdditionalWork[i].ID == id {
			return &j.AdditionalWork[i]
		}
	}
	return nil
}
