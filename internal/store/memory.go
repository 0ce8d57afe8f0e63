package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quickhire-gh/quickhire/pkg/geo"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// MemoryStore is an in-memory Store with the same conditional-update
// semantics as PostgresStore. It backs service tests and local development;
// jobs are deep-copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.JobPosting
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]*models.JobPosting)}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(job), nil
}

func (s *MemoryStore) GetJobByPaymentReference(ctx context.Context, reference string) (*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Escrow != nil && job.Escrow.PaymentReference == reference {
			return copyJob(job), nil
		}
		for _, w := range job.AdditionalWork {
			if w.PaymentReference == reference {
				return copyJob(job), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *models.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != job.Version {
		return ErrVersionConflict
	}
	stored := copyJob(job)
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = stored
	job.Version = stored.Version
	job.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) ListJobsByClient(ctx context.Context, clientID uuid.UUID, f JobFilter) ([]*models.JobPosting, int, error) {
	return s.list(func(j *models.JobPosting) bool {
		return j.ClientID == clientID && (f.Status == "" || j.Status == f.Status)
	}, f)
}

func (s *MemoryStore) ListJobsByWorker(ctx context.Context, workerID uuid.UUID, f JobFilter) ([]*models.JobPosting, int, error) {
	return s.list(func(j *models.JobPosting) bool {
		if f.Status != "" && j.Status != f.Status {
			return false
		}
		if j.WorkerID() == workerID {
			return true
		}
		for _, q := range j.Quotes {
			if q.WorkerID == workerID {
				return true
			}
		}
		return false
	}, f)
}

func (s *MemoryStore) list(match func(*models.JobPosting) bool, f JobFilter) ([]*models.JobPosting, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.JobPosting
	for _, job := range s.jobs {
		if match(job) {
			all = append(all, copyJob(job))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) ListNearbyJobs(ctx context.Context, center geo.Point, radiusMeters float64, category string, limit int) ([]*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		job  *models.JobPosting
		dist float64
	}
	var matches []scored
	for _, job := range s.jobs {
		if job.Status != models.JobStatusPending && job.Status != models.JobStatusQuoted {
			continue
		}
		if category != "" && job.Category != category {
			continue
		}
		d := geo.Distance(center, geo.Point{
			Latitude:  job.Location.Latitude,
			Longitude: job.Location.Longitude,
		})
		if d <= radiusMeters {
			matches = append(matches, scored{job: copyJob(job), dist: d})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	jobs := make([]*models.JobPosting, len(matches))
	for i, m := range matches {
		jobs[i] = m.job
	}
	return jobs, nil
}

func (s *MemoryStore) ExpireStaleJobs(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var touched int64
	for _, job := range s.jobs {
		if (job.Status == models.JobStatusPending || job.Status == models.JobStatusQuoted) &&
			job.ExpiresAt.Before(now) {
			job.Status = models.JobStatusExpired
			job.Version++
			job.UpdatedAt = now
			touched++
		}
	}
	return touched, nil
}

func (s *MemoryStore) ListDueDisputes(ctx context.Context, now time.Time, limit int) ([]*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*models.JobPosting
	for _, job := range s.jobs {
		if job.Dispute != nil &&
			job.Dispute.Status == models.DisputeStatusOpen &&
			job.Dispute.AutoResolveDeadline.Before(now) {
			due = append(due, copyJob(job))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].Dispute.AutoResolveDeadline.Before(due[j].Dispute.AutoResolveDeadline)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// copyJob deep-copies the aggregate via a JSON round trip. Cheap enough for
// an in-memory store and guaranteed to match the wire shape.
func copyJob(job *models.JobPosting) *models.JobPosting {
	b, err := json.Marshal(job)
	if err != nil {
		panic(err)
	}
	var out models.JobPosting
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}
