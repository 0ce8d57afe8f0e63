package quickhire

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// DisputeInput carries the fields a party submits when raising a dispute.
type DisputeInput struct {
	Reason      string
	Description string
	Evidence    []models.Evidence
}

// RaiseDispute freezes a job in execution. Either party may raise one
// from funded through completed, and for a grace window after approval.
// The prior status is kept so a worker-returns resolution can resume the
// job where it stopped.
func (s *Service) RaiseDispute(ctx context.Context, jobID uuid.UUID, actor Actor, in DisputeInput) (*models.JobPosting, error) {
	if !models.ValidDisputeReason(in.Reason) {
		return nil, validationf("unknown dispute reason %q", in.Reason)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, validationf("dispute description is required")
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if !job.IsParty(actor.ID) {
			return ErrUnauthorized
		}
		if job.Dispute != nil && job.Dispute.Open() {
			return conflictf("job %s already has an open dispute", jobID)
		}

		now := s.now().UTC()
		if job.Status == models.JobStatusApproved {
			approvedAt := job.UpdatedAt
			if job.Tracking.ClientApproval != nil {
				approvedAt = job.Tracking.ClientApproval.Timestamp
			}
			if now.After(approvedAt.Add(s.policy.DisputeGraceWindow)) {
				return conflictf("dispute window closed %s after approval", s.policy.DisputeGraceWindow)
			}
		}

		raisedBy := models.RoleClient
		if actor.ID == job.WorkerID() {
			raisedBy = models.RoleWorker
		}

		prior := job.Status
		if err := transition(job, models.JobStatusDisputed); err != nil {
			return err
		}

		evidence := make([]models.Evidence, len(in.Evidence))
		copy(evidence, in.Evidence)
		for i := range evidence {
			if evidence[i].UploadedAt.IsZero() {
				evidence[i].UploadedAt = now
			}
		}

		job.Dispute = &models.Dispute{
			RaisedBy:            raisedBy,
			RaisedByID:          actor.ID,
			Reason:              in.Reason,
			Description:         strings.TrimSpace(in.Description),
			Evidence:            evidence,
			Status:              models.DisputeStatusOpen,
			PriorStatus:         prior,
			RaisedAt:            now,
			AutoResolveDeadline: now.Add(s.policy.DisputeDeadline),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	other := job.ClientID
	if actor.ID == job.ClientID {
		other = job.WorkerID()
	}
	s.publish(ctx, notify.TaskDisputeRaised, notify.Event{
		JobID:       jobID,
		RecipientID: other.String(),
		ActorID:     actor.ID.String(),
		Title:       "Dispute raised",
		Message:     fmt.Sprintf("A dispute was raised on %q: %s", job.Title, in.Reason),
	})

	s.logger.InfoContext(ctx, "dispute raised",
		"job_id", jobID, "raised_by", job.Dispute.RaisedBy, "reason", in.Reason,
		"deadline", job.Dispute.AutoResolveDeadline)
	return job, nil
}

// AddDisputeEvidence attaches supporting material to an open dispute.
func (s *Service) AddDisputeEvidence(ctx context.Context, jobID uuid.UUID, actor Actor, evidence models.Evidence) (*models.JobPosting, error) {
	if evidence.URL == "" && evidence.Description == "" {
		return nil, validationf("evidence needs a url or a description")
	}

	return s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if !job.IsParty(actor.ID) && !actor.Staff() {
			return ErrUnauthorized
		}
		if job.Dispute == nil || !job.Dispute.Open() {
			return conflictf("job %s has no open dispute", jobID)
		}
		if evidence.UploadedAt.IsZero() {
			evidence.UploadedAt = s.now().UTC()
		}
		job.Dispute.Evidence = append(job.Dispute.Evidence, evidence)
		return nil
	})
}

// ResolutionInput carries a staff resolution decision.
type ResolutionInput struct {
	Resolution    string
	Note          string
	RefundPercent int
}

// ResolveDispute applies a staff decision to an open dispute. Monetary
// resolutions move the held escrow; worker_returns resumes the job
// instead.
func (s *Service) ResolveDispute(ctx context.Context, jobID uuid.UUID, actor Actor, in ResolutionInput) (*models.JobPosting, error) {
	if !actor.Staff() {
		return nil, ErrUnauthorized
	}
	if !models.ValidResolution(in.Resolution) {
		return nil, validationf("unknown resolution %q", in.Resolution)
	}
	if in.Resolution == models.ResolutionPartialRefund && (in.RefundPercent <= 0 || in.RefundPercent >= 100) {
		return nil, validationf("partial refund needs a percent between 1 and 99")
	}

	staffID := actor.ID
	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		return s.applyResolution(ctx, job, in, models.ResolvedByStaff, &staffID)
	})
	if err != nil {
		return nil, err
	}

	s.notifyResolution(ctx, job, in.Resolution)
	s.logger.InfoContext(ctx, "dispute resolved",
		"job_id", jobID, "resolution", in.Resolution, "resolved_by", models.ResolvedByStaff, "staff_id", staffID)
	return job, nil
}

// AutoResolveDueDisputes resolves every open dispute whose deadline has
// passed with the configured default resolution. It returns how many
// disputes were resolved. Jobs resolved by staff between listing and
// mutation are skipped, so repeated sweeps are harmless.
func (s *Service) AutoResolveDueDisputes(ctx context.Context, limit int) (int, error) {
	now := s.now().UTC()
	jobs, err := s.store.ListDueDisputes(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("listing due disputes: %w", err)
	}

	in := ResolutionInput{
		Resolution: s.policy.AutoResolution,
		Note:       "resolved automatically after the staff review deadline lapsed",
	}

	resolved := 0
	for _, due := range jobs {
		job, err := s.mutateJob(ctx, due.ID, func(job *models.JobPosting) error {
			if job.Dispute == nil || job.Dispute.Status != models.DisputeStatusOpen {
				return conflictf("dispute on job %s is no longer open", job.ID)
			}
			if job.Dispute.AutoResolveDeadline.After(now) {
				return conflictf("dispute on job %s is not yet due", job.ID)
			}
			return s.applyResolution(ctx, job, in, models.ResolvedByAuto, nil)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "auto-resolving dispute failed", "job_id", due.ID, "error", err)
			continue
		}
		resolved++
		s.notifyResolution(ctx, job, in.Resolution)
		s.logger.InfoContext(ctx, "dispute auto-resolved", "job_id", job.ID, "resolution", in.Resolution)
	}
	return resolved, nil
}

// applyResolution mutates the job for a resolution decision. Callers hold
// the job inside a conditional update.
func (s *Service) applyResolution(ctx context.Context, job *models.JobPosting, in ResolutionInput, resolvedBy string, staffID *uuid.UUID) error {
	if job.Dispute == nil || !job.Dispute.Open() {
		return conflictf("job %s has no open dispute", job.ID)
	}

	now := s.now().UTC()
	d := job.Dispute

	switch in.Resolution {
	case models.ResolutionPaymentReleased:
		if err := s.releaseHeldEscrow(ctx, job, "dispute resolved: payment released"); err != nil {
			return err
		}
		if err := s.releaseAdditionalWork(ctx, job, "dispute resolved: payment released"); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusApproved); err != nil {
			return err
		}

	case models.ResolutionFullRefund:
		if err := s.refundHeldEscrow(ctx, job, 100, "dispute resolved: full refund"); err != nil {
			return err
		}
		if err := s.refundAdditionalWork(ctx, job, "dispute resolved: full refund"); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusCancelled); err != nil {
			return err
		}
		job.Cancellation = &models.Cancellation{
			CancelledBy:   "system",
			Reason:        "dispute resolved with a full refund",
			CancelledAt:   now,
			CancelledByID: d.RaisedByID,
		}

	case models.ResolutionPartialRefund:
		if err := s.refundHeldEscrow(ctx, job, in.RefundPercent, "dispute resolved: partial refund"); err != nil {
			return err
		}
		if err := s.releaseAdditionalWork(ctx, job, "dispute resolved: partial refund"); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusApproved); err != nil {
			return err
		}
		d.RefundPercent = in.RefundPercent

	case models.ResolutionWorkerReturns:
		resume := d.PriorStatus
		switch resume {
		case models.JobStatusFunded, models.JobStatusWorkerOnWay,
			models.JobStatusWorkerArrived, models.JobStatusInProgress:
			// resume the job where the dispute interrupted it
		default:
			resume = models.JobStatusInProgress
		}
		if err := transition(job, resume); err != nil {
			return err
		}

	case models.ResolutionEscalatedToStaff:
		d.Status = models.DisputeStatusEscalated
		d.Resolution = in.Resolution
		d.ResolutionNote = in.Note
		d.ResolvedBy = resolvedBy
		d.StaffID = staffID
		return nil

	default:
		return validationf("unknown resolution %q", in.Resolution)
	}

	d.Status = models.DisputeStatusResolved
	d.Resolution = in.Resolution
	d.ResolutionNote = in.Note
	d.ResolvedBy = resolvedBy
	d.StaffID = staffID
	d.ResolvedAt = &now
	return nil
}

func (s *Service) notifyResolution(ctx context.Context, job *models.JobPosting, resolution string) {
	msg := fmt.Sprintf("The dispute on %q was resolved: %s", job.Title, resolution)
	for _, recipient := range []uuid.UUID{job.ClientID, job.WorkerID()} {
		if recipient == uuid.Nil {
			continue
		}
		s.publish(ctx, notify.TaskDisputeResolved, notify.Event{
			JobID:       job.ID,
			RecipientID: recipient.String(),
			Title:       "Dispute resolved",
			Message:     msg,
		})
	}
}

// DisputeStats summarizes dispute load for the staff dashboard.
type DisputeStats struct {
	Open     int           `json:"open"`
	DueSoon  int           `json:"due_soon"`
	Overdue  int           `json:"overdue"`
	Horizon  time.Duration `json:"-"`
	Sampled  int           `json:"sampled"`
	OldestAt *time.Time    `json:"oldest_at,omitempty"`
}

// DisputeOverview reports open disputes approaching or past their
// auto-resolve deadline.
func (s *Service) DisputeOverview(ctx context.Context, actor Actor, horizon time.Duration) (DisputeStats, error) {
	if !actor.Staff() {
		return DisputeStats{}, ErrUnauthorized
	}
	if horizon <= 0 {
		horizon = 12 * time.Hour
	}

	now := s.now().UTC()
	jobs, err := s.store.ListDueDisputes(ctx, now.Add(horizon), 500)
	if err != nil {
		return DisputeStats{}, fmt.Errorf("listing disputes: %w", err)
	}

	stats := DisputeStats{Horizon: horizon, Sampled: len(jobs)}
	for _, job := range jobs {
		if job.Dispute == nil {
			continue
		}
		stats.Open++
		if job.Dispute.AutoResolveDeadline.Before(now) {
			stats.Overdue++
		} else {
			stats.DueSoon++
		}
		if stats.OldestAt == nil || job.Dispute.RaisedAt.Before(*stats.OldestAt) {
			raisedAt := job.Dispute.RaisedAt
			stats.OldestAt = &raisedAt
		}
	}
	return stats, nil
}
