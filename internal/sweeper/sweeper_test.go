package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickhire-gh/quickhire/internal/cache"
	"github.com/quickhire-gh/quickhire/internal/config"
	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/internal/payment/mock"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/internal/store"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

func TestSweepExpiresStalePostings(t *testing.T) {
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := config.PolicyConfig{
		Currency:       "GHS",
		FeeRate:        0.15,
		MinQuoteAmount: 25,
		JobExpiry:      24 * time.Hour,
		AutoResolution: models.ResolutionPaymentReleased,
	}
	svc := quickhire.NewService(st, cache.NewMemoryCache(), mock.NewMockProvider(), notify.NewNopNotifier(), policy, logger)

	ctx := context.Background()
	stale := &models.JobPosting{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		Category:  "plumbing",
		Title:     "Old posting",
		Status:    models.JobStatusPending,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	fresh := &models.JobPosting{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		Category:  "plumbing",
		Title:     "Fresh posting",
		Status:    models.JobStatusPending,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.CreateJob(ctx, stale))
	require.NoError(t, st.CreateJob(ctx, fresh))

	sw := New(st, svc, time.Minute, 10, logger)
	sw.Sweep(ctx)

	got, err := st.GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusExpired, got.Status)

	got, err = st.GetJob(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
}

func TestRunStopsOnCancel(t *testing.T) {
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := quickhire.NewService(st, cache.NewMemoryCache(), mock.NewMockProvider(), notify.NewNopNotifier(), config.PolicyConfig{}, logger)

	sw := New(st, svc, 10*time.Millisecond, 10, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
