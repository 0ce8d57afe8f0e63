package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickhire-gh/quickhire/pkg/geo"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, client_id, category, title, description, urgency,
	lat, lng, address, landmark, city, region, status,
	quotes, accepted_quote, escrow, tracking, dispute, additional_work, cancellation,
	expires_at, version, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.JobPosting) error {
	quotes, acceptedQuote, escrow, tracking, dispute, additionalWork, cancellation, err := marshalSubEntities(job)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quick_jobs (
			id, client_id, category, title, description, urgency,
			lat, lng, address, landmark, city, region, status,
			quotes, accepted_quote, escrow, tracking, dispute, additional_work, cancellation,
			payment_reference, dispute_status, dispute_deadline,
			expires_at, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23,
			$24, $25, $26, $27
		)`,
		job.ID, job.ClientID, job.Category, job.Title, job.Description, job.Urgency,
		job.Location.Latitude, job.Location.Longitude, job.Location.Address,
		job.Location.Landmark, job.Location.City, job.Location.Region, job.Status,
		quotes, acceptedQuote, escrow, tracking, dispute, additionalWork, cancellation,
		paymentReference(job), disputeStatus(job), disputeDeadline(job),
		job.ExpiresAt, job.Version, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM quick_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetJobByPaymentReference(ctx context.Context, reference string) (*models.JobPosting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM quick_jobs
		 WHERE payment_reference = $1
		    OR EXISTS (
		        SELECT 1 FROM jsonb_array_elements(additional_work) w
		        WHERE w->>'payment_reference' = $1
		    )`, reference)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by payment reference: %w", err)
	}
	return job, nil
}

// UpdateJob persists the full aggregate conditionally on the version the
// caller read. Zero rows touched means either a lost race or a missing job;
// the follow-up existence check disambiguates.
func (s *PostgresStore) UpdateJob(ctx context.Context, job *models.JobPosting) error {
	quotes, acceptedQuote, escrow, tracking, dispute, additionalWork, cancellation, err := marshalSubEntities(job)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE quick_jobs SET
			category = $3, title = $4, description = $5, urgency = $6,
			lat = $7, lng = $8, address = $9, landmark = $10, city = $11, region = $12,
			status = $13,
			quotes = $14, accepted_quote = $15, escrow = $16, tracking = $17,
			dispute = $18, additional_work = $19, cancellation = $20,
			payment_reference = $21, dispute_status = $22, dispute_deadline = $23,
			expires_at = $24, version = version + 1, updated_at = $25
		 WHERE id = $1 AND version = $2`,
		job.ID, job.Version,
		job.Category, job.Title, job.Description, job.Urgency,
		job.Location.Latitude, job.Location.Longitude, job.Location.Address,
		job.Location.Landmark, job.Location.City, job.Location.Region,
		job.Status,
		quotes, acceptedQuote, escrow, tracking, dispute, additionalWork, cancellation,
		paymentReference(job), disputeStatus(job), disputeDeadline(job),
		job.ExpiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM quick_jobs WHERE id = $1)`, job.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	job.Version++
	job.UpdatedAt = now
	return nil
}

func (s *PostgresStore) ListJobsByClient(ctx context.Context, clientID uuid.UUID, f JobFilter) ([]*models.JobPosting, int, error) {
	where := `client_id = $1`
	args := []any{clientID}
	if f.Status != "" {
		where += ` AND status = $2`
		args = append(args, f.Status)
	}
	return s.listJobs(ctx, where, args, f)
}

func (s *PostgresStore) ListJobsByWorker(ctx context.Context, workerID uuid.UUID, f JobFilter) ([]*models.JobPosting, int, error) {
	where := `(accepted_quote->>'worker_id' = $1
		OR EXISTS (SELECT 1 FROM jsonb_array_elements(quotes) q WHERE q->>'worker_id' = $1))`
	args := []any{workerID.String()}
	if f.Status != "" {
		where += ` AND status = $2`
		args = append(args, f.Status)
	}
	return s.listJobs(ctx, where, args, f)
}

func (s *PostgresStore) listJobs(ctx context.Context, where string, args []any, f JobFilter) ([]*models.JobPosting, int, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quick_jobs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM quick_jobs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		jobColumns, where, limit, (page-1)*limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobPosting
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// ListNearbyJobs pre-filters with a bounding box on the indexed lat/lng
// columns, then refines with the exact great-circle distance.
func (s *PostgresStore) ListNearbyJobs(ctx context.Context, center geo.Point, radiusMeters float64, category string, limit int) ([]*models.JobPosting, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	minLat, maxLat, minLng, maxLng := geo.BoundingBox(center, radiusMeters)

	query := `SELECT ` + jobColumns + ` FROM quick_jobs
		WHERE status IN ('pending', 'quoted')
		  AND lat BETWEEN $1 AND $2
		  AND lng BETWEEN $3 AND $4`
	args := []any{minLat, maxLat, minLng, maxLng}
	if category != "" {
		query += ` AND category = $5`
		args = append(args, category)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nearby jobs: %w", err)
	}
	defer rows.Close()

	type scored struct {
		job  *models.JobPosting
		dist float64
	}
	var matches []scored
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		d := geo.Distance(center, geo.Point{
			Latitude:  job.Location.Latitude,
			Longitude: job.Location.Longitude,
		})
		if d <= radiusMeters {
			matches = append(matches, scored{job: job, dist: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
	if len(matches) > limit {
		matches = matches[:limit]
	}

	jobs := make([]*models.JobPosting, len(matches))
	for i, m := range matches {
		jobs[i] = m.job
	}
	return jobs, nil
}

func (s *PostgresStore) ExpireStaleJobs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quick_jobs
		 SET status = 'expired', version = version + 1, updated_at = $1
		 WHERE status IN ('pending', 'quoted') AND expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListDueDisputes(ctx context.Context, now time.Time, limit int) ([]*models.JobPosting, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM quick_jobs
		 WHERE dispute_status = 'open' AND dispute_deadline < $1
		 ORDER BY dispute_deadline ASC LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due disputes: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobPosting
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// --- row mapping ---

func marshalSubEntities(job *models.JobPosting) (quotes, acceptedQuote, escrow, tracking, dispute, additionalWork, cancellation []byte, err error) {
	if quotes, err = json.Marshal(orEmptySlice(job.Quotes)); err != nil {
		return
	}
	if acceptedQuote, err = marshalNullable(job.AcceptedQuote); err != nil {
		return
	}
	if escrow, err = marshalNullable(job.Escrow); err != nil {
		return
	}
	if tracking, err = json.Marshal(job.Tracking); err != nil {
		return
	}
	if dispute, err = marshalNullable(job.Dispute); err != nil {
		return
	}
	if additionalWork, err = json.Marshal(orEmptySlice(job.AdditionalWork)); err != nil {
		return
	}
	cancellation, err = marshalNullable(job.Cancellation)
	return
}

func orEmptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func paymentReference(job *models.JobPosting) *string {
	if job.Escrow == nil || job.Escrow.PaymentReference == "" {
		return nil
	}
	return &job.Escrow.PaymentReference
}

func disputeStatus(job *models.JobPosting) *string {
	if job.Dispute == nil {
		return nil
	}
	return &job.Dispute.Status
}

func disputeDeadline(job *models.JobPosting) *time.Time {
	if job.Dispute == nil {
		return nil
	}
	return &job.Dispute.AutoResolveDeadline
}

func scanJob(row pgx.Row) (*models.JobPosting, error) {
	var (
		job                                       models.JobPosting
		quotes, tracking, additionalWork          []byte
		acceptedQuote, escrow, dispute, cancelled []byte
	)

	err := row.Scan(
		&job.ID, &job.ClientID, &job.Category, &job.Title, &job.Description, &job.Urgency,
		&job.Location.Latitude, &job.Location.Longitude, &job.Location.Address,
		&job.Location.Landmark, &job.Location.City, &job.Location.Region, &job.Status,
		&quotes, &acceptedQuote, &escrow, &tracking, &dispute, &additionalWork, &cancelled,
		&job.ExpiresAt, &job.Version, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(quotes, &job.Quotes); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	if err := json.Unmarshal(tracking, &job.Tracking); err != nil {
		return nil, fmt.Errorf("decode tracking: %w", err)
	}
	if err := json.Unmarshal(additionalWork, &job.AdditionalWork); err != nil {
		return nil, fmt.Errorf("decode additional work: %w", err)
	}
	if acceptedQuote != nil {
		job.AcceptedQuote = &models.AcceptedQuote{}
		if err := json.Unmarshal(acceptedQuote, job.AcceptedQuote); err != nil {
			return nil, fmt.Errorf("decode accepted quote: %w", err)
		}
	}
	if escrow != nil {
		job.Escrow = &models.Escrow{}
		if err := json.Unmarshal(escrow, job.Escrow); err != nil {
			return nil, fmt.Errorf("decode escrow: %w", err)
		}
	}
	if dispute != nil {
		job.Dispute = &models.Dispute{}
		if err := json.Unmarshal(dispute, job.Dispute); err != nil {
			return nil, fmt.Errorf("decode dispute: %w", err)
		}
	}
	if cancelled != nil {
		job.Cancellation = &models.Cancellation{}
		if err := json.Unmarshal(cancelled, job.Cancellation); err != nil {
			return nil, fmt.Errorf("decode cancellation: %w", err)
		}
	}

	return &job, nil
}
