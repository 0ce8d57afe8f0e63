package quickhire

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/pkg/geo"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// RecordWorkerOnWay marks the accepted worker as travelling to the site.
func (s *Service) RecordWorkerOnWay(ctx context.Context, jobID, workerID uuid.UUID, lat, lng float64) (*models.JobPosting, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.WorkerID() != workerID {
			return ErrUnauthorized
		}
		if err := disputeFrozen(job); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusWorkerOnWay); err != nil {
			return err
		}
		job.Tracking.WorkerOnWay = &models.LocationPing{
			Timestamp: s.now().UTC(),
			Latitude:  lat,
			Longitude: lng,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TaskWorkerOnWay, notify.Event{
		JobID:       jobID,
		RecipientID: job.ClientID.String(),
		ActorID:     workerID.String(),
		Title:       "Worker on the way",
		Message:     fmt.Sprintf("Your worker is heading to the site for %q", job.Title),
	})
	return job, nil
}

// RecordArrival marks the worker as arrived and verifies the reported
// position against the job site geofence. A position outside the fence
// is recorded as unverified but never blocks the transition; GPS drift
// in dense areas would otherwise strand legitimate arrivals.
func (s *Service) RecordArrival(ctx context.Context, jobID, workerID uuid.UUID, lat, lng float64) (*models.JobPosting, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	var arrival models.ArrivalRecord

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.WorkerID() != workerID {
			return ErrUnauthorized
		}
		if err := disputeFrozen(job); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusWorkerArrived); err != nil {
			return err
		}

		site := geo.Point{Latitude: job.Location.Latitude, Longitude: job.Location.Longitude}
		reported := geo.Point{Latitude: lat, Longitude: lng}
		v := geo.Verify(site, reported, s.policy.GeofenceRadiusMeters)

		arrival = models.ArrivalRecord{
			Timestamp:      s.now().UTC(),
			Latitude:       lat,
			Longitude:      lng,
			Verified:       v.Verified,
			DistanceMeters: v.DistanceMeters,
		}
		job.Tracking.WorkerArrived = &arrival
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !arrival.Verified {
		s.logger.WarnContext(ctx, "arrival position outside geofence",
			"job_id", jobID, "worker_id", workerID, "distance_m", arrival.DistanceMeters)
	}

	s.publish(ctx, notify.TaskWorkerArrived, notify.Event{
		JobID:       jobID,
		RecipientID: job.ClientID.String(),
		ActorID:     workerID.String(),
		Title:       "Worker arrived",
		Message:     fmt.Sprintf("Your worker has arrived at the site for %q", job.Title),
	})
	return job, nil
}

// StartWork marks the job as underway.
func (s *Service) StartWork(ctx context.Context, jobID, workerID uuid.UUID) (*models.JobPosting, error) {
	return s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.WorkerID() != workerID {
			return ErrUnauthorized
		}
		if err := disputeFrozen(job); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusInProgress); err != nil {
			return err
		}
		now := s.now().UTC()
		job.Tracking.WorkStarted = &now
		return nil
	})
}

// CompletionInput carries the worker's completion claim.
type CompletionInput struct {
	Photos     []models.CompletionPhoto
	WorkerNote string
}

// CompleteWork records the worker's claim that the job is done. At least
// one photo is required; the photos are the evidence base if the client
// disputes instead of approving.
func (s *Service) CompleteWork(ctx context.Context, jobID, workerID uuid.UUID, in CompletionInput) (*models.JobPosting, error) {
	if len(in.Photos) == 0 {
		return nil, validationf("at least one completion photo is required")
	}
	for _, p := range in.Photos {
		if p.URL == "" {
			return nil, validationf("completion photo is missing its url")
		}
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.WorkerID() != workerID {
			return ErrUnauthorized
		}
		if err := disputeFrozen(job); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusCompleted); err != nil {
			return err
		}
		now := s.now().UTC()
		photos := make([]models.CompletionPhoto, len(in.Photos))
		copy(photos, in.Photos)
		for i := range photos {
			if photos[i].UploadedAt.IsZero() {
				photos[i].UploadedAt = now
			}
		}
		job.Tracking.WorkCompleted = &models.CompletionRecord{
			Timestamp:  now,
			Photos:     photos,
			WorkerNote: in.WorkerNote,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TaskJobCompleted, notify.Event{
		JobID:       jobID,
		RecipientID: job.ClientID.String(),
		ActorID:     workerID.String(),
		Title:       "Work completed",
		Message:     fmt.Sprintf("The worker marked %q complete; please review and approve", job.Title),
	})
	return job, nil
}

// ApprovalInput carries the client's sign-off plus an optional rating.
type ApprovalInput struct {
	Rating *int
	Review string
}

// ApproveCompletion is the client's sign-off. It releases the held
// escrow payout to the worker, along with any held additional-work
// charges, in the same operation.
func (s *Service) ApproveCompletion(ctx context.Context, jobID, clientID uuid.UUID, in ApprovalInput) (*models.JobPosting, error) {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, validationf("rating must be between 1 and 5")
	}

	job, err := s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.ClientID != clientID {
			return ErrUnauthorized
		}
		if err := disputeFrozen(job); err != nil {
			return err
		}
		if err := transition(job, models.JobStatusApproved); err != nil {
			return err
		}
		if err := s.releaseHeldEscrow(ctx, job, "job approved by client"); err != nil {
			return err
		}
		if err := s.releaseAdditionalWork(ctx, job, "job approved by client"); err != nil {
			return err
		}
		job.Tracking.ClientApproval = &models.RatingRecord{
			Timestamp: s.now().UTC(),
			Rating:    in.Rating,
			Review:    in.Review,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TaskJobApproved, notify.Event{
		JobID:       jobID,
		RecipientID: job.WorkerID().String(),
		ActorID:     clientID.String(),
		Title:       "Job approved, payment released",
		Message:     fmt.Sprintf("The client approved %q; your payout of %.2f %s is on its way", job.Title, job.Escrow.WorkerPayout, s.policy.Currency),
		Amount:      job.Escrow.WorkerPayout,
	})
	return job, nil
}

// RateClient lets the worker rate the client after the job is approved.
// The rating is recorded once.
func (s *Service) RateClient(ctx context.Context, jobID, workerID uuid.UUID, rating int, review string) (*models.JobPosting, error) {
	if rating < 1 || rating > 5 {
		return nil, validationf("rating must be between 1 and 5")
	}

	return s.mutateJob(ctx, jobID, func(job *models.JobPosting) error {
		if job.WorkerID() != workerID {
			return ErrUnauthorized
		}
		if job.Status != models.JobStatusApproved {
			return conflictf("job is %s; the client can be rated after approval", job.Status)
		}
		if job.Tracking.WorkerRating != nil {
			return conflictf("client has already been rated for this job")
		}
		job.Tracking.WorkerRating = &models.RatingRecord{
			Timestamp: s.now().UTC(),
			Rating:    &rating,
			Review:    review,
		}
		return nil
	})
}
