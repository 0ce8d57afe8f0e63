package quickhire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/cache"
	"github.com/quickhire-gh/quickhire/internal/config"
	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/internal/payment"
	"github.com/quickhire-gh/quickhire/internal/store"
	"github.com/quickhire-gh/quickhire/pkg/geo"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

const (
	// conflictRetries bounds refetch-and-reapply attempts when a
	// conditional update loses a race. Every mutation revalidates against
	// the refetched job, so retrying is safe.
	conflictRetries = 3

	jobStatusTTL  = 10 * time.Minute
	nearbyListTTL = 30 * time.Second
)

// Actor identifies the authenticated caller as asserted by the upstream
// gateway.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Staff reports whether the actor carries the staff role.
func (a Actor) Staff() bool { return a.Role == models.RoleStaff }

// Service implements the Quick-Hire job lifecycle. All mutations go
// through the store's conditional update, so concurrent callers race on
// the job version rather than on locks.
type Service struct {
	store    store.Store
	cache    cache.Cache
	payments payment.Provider
	notifier notify.Notifier
	policy   config.PolicyConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a Service from its collaborators.
func NewService(st store.Store, c cache.Cache, p payment.Provider, n notify.Notifier, policy config.PolicyConfig, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		cache:    c,
		payments: p,
		notifier: n,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateJobInput carries the fields a client submits to post a job.
type CreateJobInput struct {
	ClientID    uuid.UUID
	Category    string
	Title       string
	Description string
	Urgency     string
	Location    models.Location
}

// CreateJob posts a new job. The posting opens in pending and expires if
// no quote is accepted before the expiry window lapses.
func (s *Service) CreateJob(ctx context.Context, in CreateJobInput) (*models.JobPosting, error) {
	if in.ClientID == uuid.Nil {
		return nil, validationf("client id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationf("title is required")
	}
	if !models.ValidCategory(in.Category) {
		return nil, validationf("unknown category %q", in.Category)
	}
	switch in.Urgency {
	case models.UrgencyEmergency, models.UrgencySoon, models.UrgencyFlexible:
	case "":
		in.Urgency = models.UrgencyFlexible
	default:
		return nil, validationf("unknown urgency %q", in.Urgency)
	}
	if err := validateCoordinates(in.Location.Latitude, in.Location.Longitude); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Location.Address) == "" {
		return nil, validationf("location address is required")
	}

	now := s.now().UTC()
	job := &models.JobPosting{
		ID:          uuid.New(),
		ClientID:    in.ClientID,
		Category:    in.Category,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Urgency:     in.Urgency,
		Location:    in.Location,
		Status:      models.JobStatusPending,
		ExpiresAt:   now.Add(s.policy.JobExpiry),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	s.cacheStatus(ctx, job)
	s.logger.InfoContext(ctx, "job created",
		"job_id", job.ID, "client_id", job.ClientID, "category", job.Category, "urgency", job.Urgency)
	return job, nil
}

// GetJob fetches a job. Open postings are public so nearby workers can
// inspect them; once a quote is accepted only the parties and staff may
// read the job.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID, actor Actor) (*models.JobPosting, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	open := job.Status == models.JobStatusPending || job.Status == models.JobStatusQuoted
	if !open && !job.IsParty(actor.ID) && !actor.Staff() {
		return nil, ErrUnauthorized
	}
	return job, nil
}

// ListClientJobs returns the client's postings, newest first.
func (s *Service) ListClientJobs(ctx context.Context, clientID uuid.UUID, f store.JobFilter) ([]*models.JobPosting, int, error) {
	return s.store.ListJobsByClient(ctx, clientID, f)
}

// ListWorkerJobs returns jobs the worker has quoted on or won, newest first.
func (s *Service) ListWorkerJobs(ctx context.Context, workerID uuid.UUID, f store.JobFilter) ([]*models.JobPosting, int, error) {
	return s.store.ListJobsByWorker(ctx, workerID, f)
}

// NearbyJobs returns open jobs within radiusKm of the given point,
// nearest first. Results are cached briefly; discovery tolerates
// slightly stale listings.
func (s *Service) NearbyJobs(ctx context.Context, lat, lng float64, radiusKm float64, category string, limit int) ([]*models.JobPosting, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = s.policy.SearchRadiusKm
	}
	if category != "" && !models.ValidCategory(category) {
		return nil, validationf("unknown category %q", category)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	key := cache.NearbyKey(lat, lng, radiusKm, category)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var jobs []*models.JobPosting
		if err := json.Unmarshal(raw, &jobs); err == nil {
			return jobs, nil
		}
	}

	center := geo.Point{Latitude: lat, Longitude: lng}
	jobs, err := s.store.ListNearbyJobs(ctx, center, radiusKm*1000, category, limit)
	if err != nil {
		return nil, fmt.Errorf("listing nearby jobs: %w", err)
	}

	if raw, err := json.Marshal(jobs); err == nil {
		if err := s.cache.Set(ctx, key, raw, nearbyListTTL); err != nil {
			s.logger.WarnContext(ctx, "caching nearby jobs failed", "error", err)
		}
	}
	return jobs, nil
}

// loadJob fetches a job, mapping store errors into the service taxonomy.
func (s *Service) loadJob(ctx context.Context, jobID uuid.UUID) (*models.JobPosting, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return job, nil
}

// mutateJob applies fn to the job and persists it with a conditional
// update. On a version conflict it refetches and reapplies: fn always
// revalidates against the fresh job, so the loser of a race either
// succeeds on state that still permits its change or fails with the
// error fn returns for the new state.
func (s *Service) mutateJob(ctx context.Context, jobID uuid.UUID, fn func(job *models.JobPosting) error) (*models.JobPosting, error) {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		job, err := s.loadJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		if err := fn(job); err != nil {
			return nil, err
		}
		job.UpdatedAt = s.now().UTC()

		err = s.store.UpdateJob(ctx, job)
		if err == nil {
			s.cacheStatus(ctx, job)
			return job, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("updating job %s: %w", jobID, err)
		}
		lastErr = err
	}
	return nil, conflictf("job %s was modified concurrently: %v", jobID, lastErr)
}

// transition moves the job to the target status, failing with a state
// conflict if the lifecycle table forbids it.
func transition(job *models.JobPosting, to string) error {
	if !CanTransition(job.Status, to) {
		return conflictf("cannot move job from %s to %s", job.Status, to)
	}
	job.Status = to
	return nil
}

// disputeFrozen rejects party mutations while a dispute is open. The
// edges out of disputed in the lifecycle table belong to dispute
// resolutions, not to the parties.
func disputeFrozen(job *models.JobPosting) error {
	if job.Dispute != nil && job.Dispute.Open() {
		return conflictf("job %s is frozen by an open dispute", job.ID)
	}
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, job *models.JobPosting) {
	if err := s.cache.SetJobStatus(ctx, job.ID, job.Status, jobStatusTTL); err != nil {
		s.logger.WarnContext(ctx, "caching job status failed", "job_id", job.ID, "error", err)
	}
}

// publish sends a notification and logs on failure. Notification
// delivery never fails a lifecycle operation.
func (s *Service) publish(ctx context.Context, taskType string, event notify.Event) {
	event.OccurredAt = s.now().UTC()
	if err := s.notifier.Publish(ctx, taskType, event); err != nil {
		s.logger.WarnContext(ctx, "publishing notification failed",
			"task_type", taskType, "job_id", event.JobID, "error", err)
	}
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return validationf("latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return validationf("longitude %v out of range", lng)
	}
	return nil
}
