package quickhire

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/cache"
	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/internal/payment"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

const webhookDedupeTTL = 24 * time.Hour

// FundInput carries the fields the client submits to fund escrow.
type FundInput struct {
	PaymentMethod string
	Email         string
	CallbackURL   string
}

// InitializeEscrowPayment starts collection of the accepted amount into
// escrow. The payment reference is written to the job before the charge
// is initialized, so a settlement webhook can always find its job.
// Settlement arrives asynchronously via HandlePaymentWebhook or the
// ConfirmEscrowPayment polling path.
func (s *Service) InitializeEscrowPayment(ctx context.Context, jobID, clientID uuid.UUID, in FundInput) (*payment.ChargeResult, error) {
	if !models.ValidPaymentMethod(in.PaymentMethod) {
		return nil, validationf("unknown payment method %q", in.PaymentMethod)
	}

	reference := newPaymentReference()
	var escrowAmount float64

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.ClientID != clientID {
			return ErrUnauthorized
		}
		if job.Status != models.JobStatusAccepted {
			return conflictf("job is %s; escrow can only be funded from accepted", job.Status)
		}
		if job.Escrow == nil || job.Escrow.Status != models.EscrowStatusPending {
			return conflictf("escrow is not awaiting payment")
		}
		job.Escrow.PaymentMethod = in.PaymentMethod
		job.Escrow.PaymentReference = reference
		escrowAmount = job.Escrow.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.payments.InitializeCharge(ctx, payment.ChargeRequest{
		Reference:     reference,
		Email:         in.Email,
		Amount:        escrowAmount,
		Currency:      s.policy.Currency,
		PaymentMethod: in.PaymentMethod,
		CallbackURL:   in.CallbackURL,
		Metadata: map[string]string{
			"job_id":       jobID.String(),
			"client_id":    clientID.String(),
			"worker_id":    job.WorkerID().String(),
			"payment_type": "escrow",
		},
	})
	if err != nil {
		return nil, escrowErr(jobID, "initialize", err)
	}

	s.logger.InfoContext(ctx, "escrow payment initialized",
		"job_id", jobID, "reference", reference, "amount", escrowAmount, "method", in.PaymentMethod)
	return &result, nil
}

// paystackWebhookEvent is the envelope Paystack posts to the webhook URL.
type paystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64     `json:"id"`
		Reference string    `json:"reference"`
		Amount    int64     `json:"amount"`
		Currency  string    `json:"currency"`
		Channel   string    `json:"channel"`
		PaidAt    time.Time `json:"paid_at"`
	} `json:"data"`
}

// HandlePaymentWebhook processes a provider webhook delivery. Signature
// failures are rejected before any parsing. Deliveries are deduplicated
// by reference, so provider retries settle at most once.
func (s *Service) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.payments.VerifyWebhookSignature(payload, signature) {
		return fmt.Errorf("%w: webhook signature mismatch", ErrUnauthorized)
	}

	var event paystackWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return validationf("malformed webhook payload: %v", err)
	}
	if event.Event != "charge.success" {
		s.logger.DebugContext(ctx, "ignoring webhook event", "event", event.Event)
		return nil
	}
	if event.Data.Reference == "" {
		return validationf("webhook payload missing reference")
	}

	key := cache.WebhookKey(event.Data.Reference)
	fresh, err := s.cache.SetNX(ctx, key, []byte("1"), webhookDedupeTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook dedupe check failed, proceeding", "error", err)
	} else if !fresh {
		s.logger.InfoContext(ctx, "duplicate webhook delivery ignored", "reference", event.Data.Reference)
		return nil
	}

	if err := s.settlePayment(ctx, event.Data.Reference, settlement{
		TransactionID: fmt.Sprintf("%d", event.Data.ID),
		PaidAt:        event.Data.PaidAt,
	}); err != nil {
		// Release the dedupe key so the provider's redelivery gets
		// another attempt at settlement.
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "releasing webhook dedupe key failed",
				"reference", event.Data.Reference, "error", delErr)
		}
		return err
	}
	return nil
}

// ConfirmEscrowPayment verifies settlement directly with the provider.
// It backs the client's post-checkout callback and recovers jobs whose
// webhook delivery was lost.
func (s *Service) ConfirmEscrowPayment(ctx context.Context, jobID, clientID uuid.UUID) (*models.JobPosting, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID && job.WorkerID() != clientID {
		return nil, ErrUnauthorized
	}
	if job.Escrow == nil || job.Escrow.PaymentReference == "" {
		return nil, conflictf("no payment has been initialized for job %s", jobID)
	}
	if job.Escrow.Status != models.EscrowStatusPending {
		return job, nil
	}

	verify, err := s.payments.VerifyCharge(ctx, job.Escrow.PaymentReference)
	if err != nil {
		return nil, escrowErr(jobID, "verify", err)
	}
	if !verify.Settled {
		return nil, conflictf("payment %s has not settled", job.Escrow.PaymentReference)
	}

	if err := s.settlePayment(ctx, job.Escrow.PaymentReference, settlement{
		TransactionID: verify.TransactionID,
		PaidAt:        verify.PaidAt,
	}); err != nil {
		return nil, err
	}
	return s.loadJob(ctx, jobID)
}

type settlement struct {
	TransactionID string
	PaidAt        time.Time
}

// settlePayment applies a confirmed charge to whichever side of the job
// the reference belongs to: the primary escrow or an additional-work
// top-up. Settling an already-settled reference is a no-op.
func (s *Service) settlePayment(ctx context.Context, reference string, st settlement) error {
	job, err := s.store.GetJobByPaymentReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("%w: no job for payment reference %s", ErrNotFound, reference)
	}

	funded := false
	updated, err := s.mutateJob(ctx, job.ID, func(job *models.JobPosting) error {
		funded = false
		if job.Escrow != nil && job.Escrow.PaymentReference == reference {
			if job.Escrow.Status != models.EscrowStatusPending {
				return nil
			}
			if err := transition(job, models.JobStatusFunded); err != nil {
				return err
			}
			paidAt := st.PaidAt
			if paidAt.IsZero() {
				paidAt = s.now().UTC()
			}
			job.Escrow.Status = models.EscrowStatusHeld
			job.Escrow.TransactionID = st.TransactionID
			job.Escrow.PaidAt = &paidAt
			funded = true
			return nil
		}

		for i := range job.AdditionalWork {
			w := &job.AdditionalWork[i]
			if w.PaymentReference == reference {
				if w.EscrowStatus != models.EscrowStatusPending {
					return nil
				}
				w.EscrowStatus = models.EscrowStatusHeld
				return nil
			}
		}
		return fmt.Errorf("%w: reference %s not on job %s", ErrNotFound, reference, job.ID)
	})
	if err != nil {
		return err
	}

	if funded {
		s.publish(ctx, notify.TaskJobFunded, notify.Event{
			JobID:       updated.ID,
			RecipientID: updated.WorkerID().String(),
			Title:       "Escrow funded",
			Message:     fmt.Sprintf("Payment for %q is held in escrow; you can head to the site", updated.Title),
			Amount:      updated.Escrow.Amount,
		})
	}

	s.logger.InfoContext(ctx, "payment settled", "job_id", updated.ID, "reference", reference, "funded", funded)
	return nil
}

// releaseHeldEscrow pays the worker payout out of held escrow, mutating
// the in-memory job. Terminal escrow is a no-op, so repeated release
// attempts (client retries, dispute resolution after approval) settle
// exactly once. The transfer is keyed by the payment reference; the
// provider deduplicates repeats of the same reference.
func (s *Service) releaseHeldEscrow(ctx context.Context, job *models.JobPosting, reason string) error {
	e := job.Escrow
	if e == nil {
		return conflictf("job %s has no escrow", job.ID)
	}
	if e.Terminal() {
		return nil
	}
	if e.Status != models.EscrowStatusHeld {
		return conflictf("escrow is %s; funds are not held", e.Status)
	}

	_, err := s.payments.ReleasePayout(ctx, payment.PayoutRequest{
		Reference: e.PaymentReference,
		WorkerID:  job.WorkerID().String(),
		Amount:    e.WorkerPayout,
		Currency:  s.policy.Currency,
		Reason:    reason,
	})
	if err != nil {
		return escrowErr(job.ID, "release", err)
	}

	now := s.now().UTC()
	e.Status = models.EscrowStatusReleased
	e.ReleasedAt = &now
	return nil
}

// refundHeldEscrow returns percent of the held amount to the client.
// Below 100 percent the remainder, less the platform fee on it, is paid
// out to the worker in the same operation.
func (s *Service) refundHeldEscrow(ctx context.Context, job *models.JobPosting, percent int, reason string) error {
	if percent <= 0 || percent > 100 {
		return validationf("refund percent %d out of range", percent)
	}
	e := job.Escrow
	if e == nil {
		return conflictf("job %s has no escrow", job.ID)
	}
	if e.Terminal() {
		return nil
	}
	if e.Status != models.EscrowStatusHeld {
		return conflictf("escrow is %s; funds are not held", e.Status)
	}

	refund := round2(e.Amount * float64(percent) / 100)
	if _, err := s.payments.Refund(ctx, payment.RefundRequest{
		Reference: e.PaymentReference,
		Amount:    refund,
		Reason:    reason,
	}); err != nil {
		return escrowErr(job.ID, "refund", err)
	}

	if percent < 100 {
		_, payout := ComputeFees(e.Amount-refund, s.policy.FeeRate)
		if _, err := s.payments.ReleasePayout(ctx, payment.PayoutRequest{
			Reference: e.PaymentReference,
			WorkerID:  job.WorkerID().String(),
			Amount:    payout,
			Currency:  s.policy.Currency,
			Reason:    reason,
		}); err != nil {
			return escrowErr(job.ID, "release", err)
		}
	}

	now := s.now().UTC()
	if percent == 100 {
		e.Status = models.EscrowStatusRefunded
	} else {
		e.Status = models.EscrowStatusPartialRefund
	}
	e.RefundAmount = refund
	e.RefundReason = reason
	e.RefundedAt = &now
	return nil
}

// releaseAdditionalWork pays out every held additional-work charge, each
// less the platform fee.
func (s *Service) releaseAdditionalWork(ctx context.Context, job *models.JobPosting, reason string) error {
	for i := range job.AdditionalWork {
		w := &job.AdditionalWork[i]
		if w.EscrowStatus != models.EscrowStatusHeld {
			continue
		}
		_, payout := ComputeFees(w.Amount, s.policy.FeeRate)
		if _, err := s.payments.ReleasePayout(ctx, payment.PayoutRequest{
			Reference: w.PaymentReference,
			WorkerID:  job.WorkerID().String(),
			Amount:    payout,
			Currency:  s.policy.Currency,
			Reason:    reason,
		}); err != nil {
			return escrowErr(job.ID, "release additional work", err)
		}
		w.EscrowStatus = models.EscrowStatusReleased
	}
	return nil
}

// refundAdditionalWork returns every held additional-work charge to the
// client in full.
func (s *Service) refundAdditionalWork(ctx context.Context, job *models.JobPosting, reason string) error {
	for i := range job.AdditionalWork {
		w := &job.AdditionalWork[i]
		if w.EscrowStatus != models.EscrowStatusHeld {
			continue
		}
		if _, err := s.payments.Refund(ctx, payment.RefundRequest{
			Reference: w.PaymentReference,
			Amount:    w.Amount,
			Reason:    reason,
		}); err != nil {
			return escrowErr(job.ID, "refund additional work", err)
		}
		w.EscrowStatus = models.EscrowStatusRefunded
	}
	return nil
}

func newPaymentReference() string {
	return "QH-" + uuid.NewString()
}
