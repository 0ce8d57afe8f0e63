package quickhire

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/internal/payment"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// RequestAdditionalWork lets the worker propose extra scope found mid-job.
// The request is billed separately from the primary escrow once the
// client approves it. Scope changes are frozen while a dispute is open.
func (s *Service) RequestAdditionalWork(ctx context.Context, jobID, workerID uuid.UUID, description string, amount float64) (*models.AdditionalWorkRequest, error) {
	if strings.TrimSpace(description) == "" {
		return nil, validationf("additional work description is required")
	}
	if amount <= 0 {
		return nil, validationf("additional work amount must be positive")
	}

	req := models.AdditionalWorkRequest{
		ID:          uuid.New(),
		Description: strings.TrimSpace(description),
		Amount:      amount,
		RequestedBy: workerID,
		Status:      models.AdditionalWorkPending,
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.WorkerID() != workerID {
			return ErrUnauthorized
		}
		if job.Status != models.JobStatusInProgress && job.Status != models.JobStatusWorkerArrived {
			return conflictf("job is %s; additional work can only be requested on site", job.Status)
		}
		if job.Dispute != nil && job.Dispute.Open() {
			return conflictf("scope changes are frozen while a dispute is open")
		}
		req.CreatedAt = s.now().UTC()
		job.AdditionalWork = append(job.AdditionalWork, req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TaskWorkRequested, notify.Event{
		JobID:       jobID,
		RecipientID: job.ClientID.String(),
		ActorID:     workerID.String(),
		Title:       "Additional work requested",
		Message:     fmt.Sprintf("The worker requested %.2f %s of additional work on %q", amount, s.policy.Currency, job.Title),
		Amount:      amount,
	})
	return job.FindAdditionalWork(req.ID), nil
}

// ApproveAdditionalWork is the client's decision on a pending request.
// Approval initializes a top-up charge; the new amount is held once the
// provider confirms settlement, same as the primary escrow.
func (s *Service) ApproveAdditionalWork(ctx context.Context, jobID, requestID, clientID uuid.UUID, approve bool, email, callbackURL string) (*payment.ChargeResult, error) {
	reference := newPaymentReference()
	var amount float64

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.ClientID != clientID {
			return ErrUnauthorized
		}
		if job.Dispute != nil && job.Dispute.Open() {
			return conflictf("scope changes are frozen while a dispute is open")
		}

		req := job.FindAdditionalWork(requestID)
		if req == nil {
			return fmt.Errorf("%w: additional work request %s", ErrNotFound, requestID)
		}
		if req.Status != models.AdditionalWorkPending {
			return conflictf("additional work request is already %s", req.Status)
		}

		now := s.now().UTC()
		if !approve {
			req.Status = models.AdditionalWorkRejected
			return nil
		}
		req.Status = models.AdditionalWorkApproved
		req.ApprovedAt = &now
		req.EscrowStatus = models.EscrowStatusPending
		req.PaymentReference = reference
		amount = req.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !approve {
		s.logger.InfoContext(ctx, "additional work rejected", "job_id", jobID, "request_id", requestID)
		return nil, nil
	}

	result, err := s.payments.InitializeCharge(ctx, payment.ChargeRequest{
		Reference:   reference,
		Email:       email,
		Amount:      amount,
		Currency:    s.policy.Currency,
		CallbackURL: callbackURL,
		Metadata: map[string]string{
			"job_id":       jobID.String(),
			"client_id":    clientID.String(),
			"request_id":   requestID.String(),
			"payment_type": "additional_work",
		},
	})
	if err != nil {
		return nil, escrowErr(jobID, "initialize additional work", err)
	}

	s.publish(ctx, notify.TaskWorkApproved, notify.Event{
		JobID:       jobID,
		RecipientID: job.WorkerID().String(),
		ActorID:     clientID.String(),
		Title:       "Additional work approved",
		Message:     fmt.Sprintf("The client approved %.2f %s of additional work on %q", amount, s.policy.Currency, job.Title),
		Amount:      amount,
	})

	s.logger.InfoContext(ctx, "additional work approved",
		"job_id", jobID, "request_id", requestID, "amount", amount, "reference", reference)
	return &result, nil
}
