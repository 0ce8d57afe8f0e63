package quickhire

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// QuoteInput carries the fields a worker submits with a bid.
type QuoteInput struct {
	Amount            float64
	Message           string
	AvailableAt       string
	EstimatedDuration string
	IncludesTransport bool
	IncludesMaterials bool
	MaterialsCost     float64
}

// SubmitQuote places a worker's bid on an open job. The first quote moves
// the posting from pending to quoted. A worker holds at most one active
// quote per job; withdrawing frees the slot.
func (s *Service) SubmitQuote(ctx context.Context, jobID, workerID uuid.UUID, in QuoteInput) (*models.Quote, error) {
	if workerID == uuid.Nil {
		return nil, validationf("worker id is required")
	}
	if in.Amount < s.policy.MinQuoteAmount {
		return nil, validationf("quote amount %.2f is below the platform minimum %.2f", in.Amount, s.policy.MinQuoteAmount)
	}
	if !models.ValidAvailability(in.AvailableAt) {
		return nil, validationf("unknown availability window %q", in.AvailableAt)
	}
	if in.EstimatedDuration != "" && !models.ValidDuration(in.EstimatedDuration) {
		return nil, validationf("unknown estimated duration %q", in.EstimatedDuration)
	}
	if in.IncludesMaterials && in.MaterialsCost < 0 {
		return nil, validationf("materials cost cannot be negative")
	}

	quote := models.Quote{
		ID:                uuid.New(),
		WorkerID:          workerID,
		Amount:            in.Amount,
		Message:           strings.TrimSpace(in.Message),
		AvailableAt:       in.AvailableAt,
		EstimatedDuration: in.EstimatedDuration,
		IncludesTransport: in.IncludesTransport,
		IncludesMaterials: in.IncludesMaterials,
		MaterialsCost:     in.MaterialsCost,
		Status:            models.QuoteStatusPending,
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.ClientID == workerID {
			return validationf("cannot quote on your own job")
		}
		if !job.CanAcceptQuotes(s.now().UTC()) {
			return conflictf("job %s is no longer accepting quotes", jobID)
		}
		for i := range job.Quotes {
			q := &job.Quotes[i]
			if q.WorkerID == workerID && q.Status == models.QuoteStatusPending {
				return conflictf("worker already has an active quote on this job")
			}
		}

		quote.CreatedAt = s.now().UTC()
		job.Quotes = append(job.Quotes, quote)
		if job.Status == models.JobStatusPending {
			return transition(job, models.JobStatusQuoted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TaskQuoteSubmitted, notify.Event{
		JobID:       jobID,
		RecipientID: job.ClientID.String(),
		ActorID:     workerID.String(),
		Title:       "New quote received",
		Message:     fmt.Sprintf("A worker quoted %.2f %s for %q", quote.Amount, s.policy.Currency, job.Title),
		Amount:      quote.Amount,
	})

	s.logger.InfoContext(ctx, "quote submitted",
		"job_id", jobID, "quote_id", quote.ID, "worker_id", workerID, "amount", quote.Amount)
	return job.FindQuote(quote.ID), nil
}

// WithdrawQuote retracts a worker's own pending quote. Accepted or
// already-rejected quotes cannot be withdrawn.
func (s *Service) WithdrawQuote(ctx context.Context, jobID, quoteID, workerID uuid.UUID) error {
	_, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		q := job.FindQuote(quoteID)
		if q == nil {
			return fmt.Errorf("%w: quote %s", ErrNotFound, quoteID)
		}
		if q.WorkerID != workerID {
			return ErrUnauthorized
		}
		if q.Status != models.QuoteStatusPending {
			return conflictf("quote is %s and cannot be withdrawn", q.Status)
		}
		q.Status = models.QuoteStatusWithdrawn
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "quote withdrawn", "job_id", jobID, "quote_id", quoteID, "worker_id", workerID)
	return nil
}

// AcceptQuote picks the winning quote. At most one quote is ever
// accepted per job: the write is conditional on the job version, and the
// mutation re-checks that no quote has been accepted on the refetched
// job, so the loser of a concurrent accept gets a state conflict.
func (s *Service) AcceptQuote(ctx context.Context, jobID, quoteID, clientID uuid.UUID) (*models.JobPosting, error) {
	var accepted models.Quote

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.ClientID != clientID {
			return ErrUnauthorized
		}
		if job.AcceptedQuote != nil {
			return conflictf("a quote has already been accepted for job %s", jobID)
		}
		if !job.CanAcceptQuotes(s.now().UTC()) {
			return conflictf("job %s is no longer accepting quotes", jobID)
		}

		q := job.FindQuote(quoteID)
		if q == nil {
			return fmt.Errorf("%w: quote %s", ErrNotFound, quoteID)
		}
		if q.Status != models.QuoteStatusPending {
			return conflictf("quote is %s and cannot be accepted", q.Status)
		}

		now := s.now().UTC()
		q.Status = models.QuoteStatusAccepted
		accepted = *q
		for i := range job.Quotes {
			if job.Quotes[i].Status == models.QuoteStatusPending {
				job.Quotes[i].Status = models.QuoteStatusRejected
			}
		}

		job.AcceptedQuote = &models.AcceptedQuote{
			QuoteID:    q.ID,
			WorkerID:   q.WorkerID,
			Amount:     q.Amount,
			AcceptedAt: now,
		}

		fee, payout := ComputeFees(q.Amount, s.policy.FeeRate)
		job.Escrow = &models.Escrow{
			Amount:       q.Amount,
			PlatformFee:  fee,
			WorkerPayout: payout,
			Status:       models.EscrowStatusPending,
		}

		return transition(job, models.JobStatusAccepted)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TaskQuoteAccepted, notify.Event{
		JobID:       jobID,
		RecipientID: accepted.WorkerID.String(),
		ActorID:     clientID.String(),
		Title:       "Quote accepted",
		Message:     fmt.Sprintf("Your quote of %.2f %s for %q was accepted", accepted.Amount, s.policy.Currency, job.Title),
		Amount:      accepted.Amount,
	})
	for _, q := range job.Quotes {
		if q.Status == models.QuoteStatusRejected {
			s.publish(ctx, notify.TaskQuoteRejected, notify.Event{
				JobID:       jobID,
				RecipientID: q.WorkerID.String(),
				Title:       "Quote not selected",
				Message:     fmt.Sprintf("The client chose another quote for %q", job.Title),
			})
		}
	}

	s.logger.InfoContext(ctx, "quote accepted",
		"job_id", jobID, "quote_id", quoteID, "worker_id", accepted.WorkerID, "amount", accepted.Amount)
	return job, nil
}
