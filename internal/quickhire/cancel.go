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

// CancelJob cancels a job. Held escrow is refunded to the client; when
// the client cancels after the worker has started travelling, the
// compensation share of the escrow goes to the worker instead of back to
// the client.
func (s *Service) CancelJob(ctx context.Context, jobID uuid.UUID, actor Actor, reason string) (*models.JobPosting, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, validationf("cancellation reason is required")
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if !job.IsParty(actor.ID) && !actor.Staff() {
			return ErrUnauthorized
		}
		if err := disputeFrozen(job); err != nil {
			return err
		}

		cancelledBy := models.RoleClient
		switch {
		case actor.Staff():
			cancelledBy = "system"
		case actor.ID == job.WorkerID():
			cancelledBy = models.RoleWorker
		}

		lateClientCancel := cancelledBy == models.RoleClient && job.Status == models.JobStatusWorkerOnWay

		if err := transition(job, models.JobStatusCancelled); err != nil {
			return err
		}

		now := s.now().UTC()
		cancellation := &models.Cancellation{
			CancelledBy:   cancelledBy,
			CancelledByID: actor.ID,
			Reason:        strings.TrimSpace(reason),
			CancelledAt:   now,
		}

		if job.Escrow != nil && job.Escrow.Status == models.EscrowStatusHeld {
			if lateClientCancel && s.policy.CancelCompensation > 0 {
				comp := round2(job.Escrow.Amount * s.policy.CancelCompensation)
				refund := round2(job.Escrow.Amount - comp)

				if _, err := s.payments.Refund(ctx, payment.RefundRequest{
					Reference: job.Escrow.PaymentReference,
					Amount:    refund,
					Reason:    reason,
				}); err != nil {
					return escrowErr(job.ID, "refund", err)
				}
				if _, err := s.payments.ReleasePayout(ctx, payment.PayoutRequest{
					Reference: job.Escrow.PaymentReference,
					WorkerID:  job.WorkerID().String(),
					Amount:    comp,
					Currency:  s.policy.Currency,
					Reason:    "late cancellation compensation",
				}); err != nil {
					return escrowErr(job.ID, "release", err)
				}

				job.Escrow.Status = models.EscrowStatusPartialRefund
				job.Escrow.RefundAmount = refund
				job.Escrow.RefundReason = reason
				job.Escrow.RefundedAt = &now
				cancellation.Compensation = &models.Compensation{Amount: comp, Status: "paid"}
			} else {
				if err := s.refundHeldEscrow(ctx, job, 100, reason); err != nil {
					return err
				}
			}
			if err := s.refundAdditionalWork(ctx, job, reason); err != nil {
				return err
			}
		}

		job.Cancellation = cancellation
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipient := job.WorkerID()
	if actor.ID == recipient || recipient == uuid.Nil {
		recipient = job.ClientID
	}
	s.publish(ctx, notify.TaskJobCancelled, notify.Event{
		JobID:       jobID,
		RecipientID: recipient.String(),
		ActorID:     actor.ID.String(),
		Title:       "Job cancelled",
		Message:     fmt.Sprintf("%q was cancelled: %s", job.Title, reason),
	})

	s.logger.InfoContext(ctx, "job cancelled",
		"job_id", jobID, "cancelled_by", job.Cancellation.CancelledBy, "reason", reason)
	return job, nil
}
