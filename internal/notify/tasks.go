package notify

import (
	"time"

	"github.com/google/uuid"
)

// Task type names routed through asynq.
const (
	TaskQuoteSubmitted  = "notify:quote_submitted"
	TaskQuoteAccepted   = "notify:quote_accepted"
	TaskQuoteRejected   = "notify:quote_rejected"
	TaskJobFunded       = "notify:job_funded"
	TaskWorkerOnWay     = "notify:worker_on_way"
	TaskWorkerArrived   = "notify:worker_arrived"
	TaskJobCompleted    = "notify:job_completed"
	TaskJobApproved     = "notify:job_approved"
	TaskJobCancelled    = "notify:job_cancelled"
	TaskJobExpired      = "notify:job_expired"
	TaskDisputeRaised   = "notify:dispute_raised"
	TaskDisputeResolved = "notify:dispute_resolved"
	TaskWorkRequested   = "notify:additional_work_requested"
	TaskWorkApproved    = "notify:additional_work_approved"
)

// Queue names. Disputes get their own queue so a backlog of routine
// notifications never delays them.
const (
	QueueEvents   = "events"
	QueueDisputes = "disputes"
)

// Event is the common payload for all job notifications. RecipientID is
// the user the notification is addressed to.
type Event struct {
	JobID       uuid.UUID `json:"job_id"`
	RecipientID string    `json:"recipient_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Amount      float64   `json:"amount,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
