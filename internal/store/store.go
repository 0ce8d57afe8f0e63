package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quickhire-gh/quickhire/pkg/geo"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

var (
	// ErrNotFound is returned when a referenced job does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrVersionConflict is returned when a conditional update loses a race:
	// the job changed since it was read. Callers refetch and re-evaluate.
	ErrVersionConflict = errors.New("version conflict")
)

// JobFilter narrows job listings.
type JobFilter struct {
	Status string
	Page   int
	Limit  int
}

// Store is the data access interface for the JobPosting aggregate. The
// aggregate is the unit of consistency: UpdateJob persists the whole job
// (quotes, escrow, tracking, dispute, additional work) in one conditional
// write keyed on the version read, giving compare-and-swap semantics
// without a lock manager.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.JobPosting) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error)

	// UpdateJob writes the job only if the stored version still equals
	// job.Version, then bumps job.Version. Returns ErrVersionConflict if
	// another writer got there first.
	UpdateJob(ctx context.Context, job *models.JobPosting) error

	ListJobsByClient(ctx context.Context, clientID uuid.UUID, f JobFilter) ([]*models.JobPosting, int, error)
	ListJobsByWorker(ctx context.Context, workerID uuid.UUID, f JobFilter) ([]*models.JobPosting, int, error)

	// ListNearbyJobs returns open (pending/quoted) jobs within radiusMeters
	// of center, nearest first, optionally filtered by category.
	ListNearbyJobs(ctx context.Context, center geo.Point, radiusMeters float64, category string, limit int) ([]*models.JobPosting, error)

	// GetJobByPaymentReference resolves the job a payment webhook refers to.
	GetJobByPaymentReference(ctx context.Context, reference string) (*models.JobPosting, error)

	// ExpireStaleJobs bulk-transitions pending/quoted jobs whose expiry has
	// passed to expired, returning the number of rows touched. Jobs at
	// accepted or later are never touched. Safe to run repeatedly.
	ExpireStaleJobs(ctx context.Context, now time.Time) (int64, error)

	// ListDueDisputes returns jobs whose open dispute has passed its
	// auto-resolve deadline.
	ListDueDisputes(ctx context.Context, now time.Time, limit int) ([]*models.JobPosting, error)
}
