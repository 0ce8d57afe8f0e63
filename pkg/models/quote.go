package models

import (
	"time"

	"github.com/google/uuid"
)

// Quote statuses.
const (
	QuoteStatusPending   = "pending"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusRejected  = "rejected"
	QuoteStatusWithdrawn = "withdrawn"
)

// Availability windows a worker may offer.
var AvailabilityWindows = []string{"30_mins", "1_hour", "2_hours", "today", "tomorrow"}

// Estimated durations a worker may quote.
var EstimatedDurations = []string{"30_mins", "1_hour", "2_hours", "half_day", "full_day", "2_days"}

// Quote is a worker's bid on a job posting. Quotes are rejected, not deleted,
// when another quote wins, so the full bidding history stays on the job.
type Quote struct {
	ID                uuid.UUID `json:"id"`
	WorkerID          uuid.UUID `json:"worker_id"`
	Amount            float64   `json:"amount"`
	Message           string    `json:"message,omitempty"`
	AvailableAt       string    `json:"available_at"`
	EstimatedDuration string    `json:"estimated_duration,omitempty"`
	IncludesTransport bool      `json:"includes_transport"`
	IncludesMaterials bool      `json:"includes_materials"`
	MaterialsCost     float64   `json:"materials_cost,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// ValidAvailability reports whether v is a recognized availability window.
func ValidAvailability(v string) bool {
	for _, s := range AvailabilityWindows {
		if s == v {
			return true
		}
	}
	return false
}

// ValidDuration reports whether v is a recognized estimated duration.
func ValidDuration(v string) bool {
	for _, s := range EstimatedDurations {
		if s == v {
			return true
		}
	}
	return false
}
