package quickhire

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickhire-gh/quickhire/internal/cache"
	"github.com/quickhire-gh/quickhire/internal/config"
	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/internal/payment"
	"github.com/quickhire-gh/quickhire/internal/payment/mock"
	"github.com/quickhire-gh/quickhire/internal/store"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

type testEnv struct {
	svc      *Service
	store    *store.MemoryStore
	cache    *cache.MemoryCache
	payments *mock.MockProvider
	notifier *notify.NopNotifier
}

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		Currency:             "GHS",
		FeeRate:              0.15,
		MinQuoteAmount:       25,
		GeofenceRadiusMeters: 100,
		JobExpiry:            24 * time.Hour,
		DisputeDeadline:      48 * time.Hour,
		DisputeGraceWindow:   24 * time.Hour,
		AutoResolution:       models.ResolutionPaymentReleased,
		CancelCompensation:   0.05,
		SearchRadiusKm:       10,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store.NewMemoryStore(),
		cache:    cache.NewMemoryCache(),
		payments: mock.NewMockProvider(),
		notifier: notify.NewNopNotifier(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewService(env.store, env.cache, env.payments, env.notifier, testPolicy(), logger)
	return env
}

func validCreateInput(clientID uuid.UUID) CreateJobInput {
	return CreateJobInput{
		ClientID:    clientID,
		Category:    "plumbing",
		Title:       "Burst pipe under the sink",
		Description: "Water everywhere, need someone now",
		Urgency:     models.UrgencyEmergency,
		Location: models.Location{
			Latitude:  5.6037,
			Longitude: -0.1870,
			Address:   "12 Oxford Street, Osu",
			City:      "Accra",
			Region:    "Greater Accra",
		},
	}
}

func validQuote() QuoteInput {
	return QuoteInput{
		Amount:      200,
		Message:     "Can be there in 30 minutes",
		AvailableAt: "30_mins",
	}
}

// postAndQuote creates a job with one pending quote and returns both.
func postAndQuote(t *testing.T, env *testEnv, clientID, workerID uuid.UUID) (*models.JobPosting, *models.Quote) {
	t.Helper()
	ctx := context.Background()
	job, err := env.svc.CreateJob(ctx, validCreateInput(clientID))
	require.NoError(t, err)
	quote, err := env.svc.SubmitQuote(ctx, job.ID, workerID, validQuote())
	require.NoError(t, err)
	return job, quote
}

// fundJob drives a job with an accepted quote through webhook settlement.
func fundJob(t *testing.T, env *testEnv, jobID, clientID uuid.UUID) *models.JobPosting {
	t.Helper()
	ctx := context.Background()

	_, err := env.svc.InitializeEscrowPayment(ctx, jobID, clientID, FundInput{
		PaymentMethod: "mtn_momo",
		Email:         "client@example.test",
	})
	require.NoError(t, err)

	job, err := env.store.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.NotEmpty(t, job.Escrow.PaymentReference)

	require.NoError(t, env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, job.Escrow.PaymentReference), "sig"))

	job, err = env.store.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusFunded, job.Status)
	return job
}

func webhookPayload(t *testing.T, reference string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"event": "charge.success",
		"data": map[string]any{
			"id":        12345,
			"reference": reference,
			"amount":    20000,
			"currency":  "GHS",
			"channel":   "mobile_money",
		},
	})
	require.NoError(t, err)
	return payload
}

// driveToCompleted takes a funded job through the execution path.
func driveToCompleted(t *testing.T, env *testEnv, jobID, workerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	_, err := env.svc.RecordWorkerOnWay(ctx, jobID, workerID, 5.60, -0.19)
	require.NoError(t, err)
	_, err = env.svc.RecordArrival(ctx, jobID, workerID, 5.6037, -0.1870)
	require.NoError(t, err)
	_, err = env.svc.StartWork(ctx, jobID, workerID)
	require.NoError(t, err)
	_, err = env.svc.CompleteWork(ctx, jobID, workerID, CompletionInput{
		Photos: []models.CompletionPhoto{{URL: "https://photos.example.test/done.jpg"}},
	})
	require.NoError(t, err)
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID := uuid.New()

	tests := []struct {
		name   string
		mutate func(in *CreateJobInput)
	}{
		{"missing client", func(in *CreateJobInput) { in.ClientID = uuid.Nil }},
		{"empty title", func(in *CreateJobInput) { in.Title = "  " }},
		{"unknown category", func(in *CreateJobInput) { in.Category = "alchemy" }},
		{"unknown urgency", func(in *CreateJobInput) { in.Urgency = "yesterday" }},
		{"latitude out of range", func(in *CreateJobInput) { in.Location.Latitude = 91 }},
		{"longitude out of range", func(in *CreateJobInput) { in.Location.Longitude = -181 }},
		{"missing address", func(in *CreateJobInput) { in.Location.Address = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput(clientID)
			tt.mutate(&in)
			_, err := env.svc.CreateJob(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateJobSetsExpiry(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }

	job, err := env.svc.CreateJob(context.Background(), validCreateInput(uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, now.Add(24*time.Hour), job.ExpiresAt)
	assert.Nil(t, job.Escrow)
}

func TestSubmitQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQuoted, stored.Status)
	assert.Equal(t, models.QuoteStatusPending, quote.Status)

	t.Run("below minimum", func(t *testing.T) {
		in := validQuote()
		in.Amount = 24.99
		_, err := env.svc.SubmitQuote(ctx, job.ID, uuid.New(), in)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("own job", func(t *testing.T) {
		_, err := env.svc.SubmitQuote(ctx, job.ID, clientID, validQuote())
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("duplicate active quote", func(t *testing.T) {
		_, err := env.svc.SubmitQuote(ctx, job.ID, workerID, validQuote())
		assert.ErrorIs(t, err, ErrStateConflict)
	})

	t.Run("resubmit after withdrawal", func(t *testing.T) {
		require.NoError(t, env.svc.WithdrawQuote(ctx, job.ID, quote.ID, workerID))
		_, err := env.svc.SubmitQuote(ctx, job.ID, workerID, validQuote())
		assert.NoError(t, err)
	})
}

func TestAcceptQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, winner, loser := uuid.New(), uuid.New(), uuid.New()

	job, winningQuote := postAndQuote(t, env, clientID, winner)
	_, err := env.svc.SubmitQuote(ctx, job.ID, loser, validQuote())
	require.NoError(t, err)

	updated, err := env.svc.AcceptQuote(ctx, job.ID, winningQuote.ID, clientID)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusAccepted, updated.Status)
	require.NotNil(t, updated.AcceptedQuote)
	assert.Equal(t, winner, updated.AcceptedQuote.WorkerID)

	require.NotNil(t, updated.Escrow)
	assert.Equal(t, models.EscrowStatusPending, updated.Escrow.Status)
	assert.Equal(t, 200.0, updated.Escrow.Amount)
	assert.Equal(t, 30.0, updated.Escrow.PlatformFee)
	assert.Equal(t, 170.0, updated.Escrow.WorkerPayout)

	for _, q := range updated.Quotes {
		if q.WorkerID == loser {
			assert.Equal(t, models.QuoteStatusRejected, q.Status)
		}
	}
	assert.Equal(t, 1, env.notifier.Count(notify.TaskQuoteAccepted))
	assert.Equal(t, 1, env.notifier.Count(notify.TaskQuoteRejected))

	t.Run("second accept conflicts", func(t *testing.T) {
		_, err := env.svc.AcceptQuote(ctx, job.ID, winningQuote.ID, clientID)
		assert.ErrorIs(t, err, ErrStateConflict)
	})

	t.Run("not the client", func(t *testing.T) {
		_, err := env.svc.AcceptQuote(ctx, job.ID, winningQuote.ID, winner)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAcceptQuoteConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID := uuid.New()

	job, first := postAndQuote(t, env, clientID, uuid.New())
	second, err := env.svc.SubmitQuote(ctx, job.ID, uuid.New(), validQuote())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, quoteID := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, quoteID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.svc.AcceptQuote(ctx, job.ID, quoteID, clientID)
		}(i, quoteID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrStateConflict)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one accept must win")

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AcceptedQuote)

	acceptedCount := 0
	for _, q := range stored.Quotes {
		if q.Status == models.QuoteStatusAccepted {
			acceptedCount++
		}
	}
	assert.Equal(t, 1, acceptedCount)
}

func TestEscrowFundingViaWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)

	funded := fundJob(t, env, job.ID, clientID)
	assert.Equal(t, models.EscrowStatusHeld, funded.Escrow.Status)
	assert.NotNil(t, funded.Escrow.PaidAt)
	assert.Equal(t, "12345", funded.Escrow.TransactionID)
	assert.Equal(t, 1, env.notifier.Count(notify.TaskJobFunded))

	t.Run("duplicate delivery is ignored", func(t *testing.T) {
		err := env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, funded.Escrow.PaymentReference), "sig")
		require.NoError(t, err)
		assert.Equal(t, 1, env.notifier.Count(notify.TaskJobFunded))
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		env.payments.SignatureValid = false
		defer func() { env.payments.SignatureValid = true }()
		err := env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, "QH-whatever"), "bad")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown reference", func(t *testing.T) {
		err := env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, "QH-missing"), "sig")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("failed settlement keeps redeliveries alive", func(t *testing.T) {
		err := env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, "QH-retry-me"), "sig")
		assert.ErrorIs(t, err, ErrNotFound)

		// A redelivery of the same reference must reach settlement
		// again instead of being dropped as a duplicate.
		err = env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, "QH-retry-me"), "sig")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLifecycleMainPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	driveToCompleted(t, env, job.ID, workerID)

	rating := 5
	approved, err := env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{Rating: &rating, Review: "great work"})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusApproved, approved.Status)
	assert.Equal(t, models.EscrowStatusReleased, approved.Escrow.Status)
	assert.NotNil(t, approved.Escrow.ReleasedAt)
	require.NotNil(t, approved.Tracking.ClientApproval)
	assert.Equal(t, 5, *approved.Tracking.ClientApproval.Rating)

	require.Equal(t, 1, env.payments.PayoutCount())
	assert.Equal(t, 170.0, env.payments.Payouts[0].Amount)

	t.Run("worker rates client", func(t *testing.T) {
		rated, err := env.svc.RateClient(ctx, job.ID, workerID, 4, "paid promptly")
		require.NoError(t, err)
		require.NotNil(t, rated.Tracking.WorkerRating)

		_, err = env.svc.RateClient(ctx, job.ID, workerID, 1, "changed my mind")
		assert.ErrorIs(t, err, ErrStateConflict)
	})

	t.Run("second approval conflicts and pays nothing", func(t *testing.T) {
		_, err := env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{})
		assert.ErrorIs(t, err, ErrStateConflict)
		assert.Equal(t, 1, env.payments.PayoutCount())
	})
}

func TestTransitionLegality(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)

	// Skipping ahead from quoted fails everywhere on the execution path.
	_, err := env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.6, -0.19)
	assert.ErrorIs(t, err, ErrUnauthorized) // no accepted worker yet

	_, err = env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)

	// Accepted but unfunded: the worker cannot start travelling.
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.6, -0.19)
	assert.ErrorIs(t, err, ErrStateConflict)

	fundJob(t, env, job.ID, clientID)

	// Funded: arrival before on-way is illegal.
	_, err = env.svc.RecordArrival(ctx, job.ID, workerID, 5.6037, -0.1870)
	assert.ErrorIs(t, err, ErrStateConflict)

	// Completion before starting is illegal.
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.6, -0.19)
	require.NoError(t, err)
	_, err = env.svc.CompleteWork(ctx, job.ID, workerID, CompletionInput{
		Photos: []models.CompletionPhoto{{URL: "https://photos.example.test/p.jpg"}},
	})
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestArrivalGeofence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.55, -0.20)
	require.NoError(t, err)

	// Roughly 1.2 km away: transition succeeds, verification fails.
	arrived, err := env.svc.RecordArrival(ctx, job.ID, workerID, 5.6037, -0.1760)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusWorkerArrived, arrived.Status)
	require.NotNil(t, arrived.Tracking.WorkerArrived)
	assert.False(t, arrived.Tracking.WorkerArrived.Verified)
	assert.Greater(t, arrived.Tracking.WorkerArrived.DistanceMeters, 100)
}

func TestCompleteWorkRequiresPhoto(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CompleteWork(context.Background(), uuid.New(), uuid.New(), CompletionInput{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDisputeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()
	staff := Actor{ID: uuid.New(), Role: models.RoleStaff}

	setup := func(t *testing.T) uuid.UUID {
		t.Helper()
		job, quote := postAndQuote(t, env, clientID, workerID)
		_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
		require.NoError(t, err)
		fundJob(t, env, job.ID, clientID)
		driveToCompleted(t, env, job.ID, workerID)

		disputed, err := env.svc.RaiseDispute(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, DisputeInput{
			Reason:      "poor_quality",
			Description: "The leak came back within an hour",
		})
		require.NoError(t, err)
		require.Equal(t, models.JobStatusDisputed, disputed.Status)
		require.Equal(t, models.JobStatusCompleted, disputed.Dispute.PriorStatus)
		return job.ID
	}

	t.Run("payment released", func(t *testing.T) {
		jobID := setup(t)
		payoutsBefore := env.payments.PayoutCount()

		job, err := env.svc.ResolveDispute(ctx, jobID, staff, ResolutionInput{
			Resolution: models.ResolutionPaymentReleased,
			Note:       "photos show the work was done",
		})
		require.NoError(t, err)

		assert.Equal(t, models.JobStatusApproved, job.Status)
		assert.Equal(t, models.EscrowStatusReleased, job.Escrow.Status)
		assert.Equal(t, models.DisputeStatusResolved, job.Dispute.Status)
		assert.Equal(t, models.ResolvedByStaff, job.Dispute.ResolvedBy)
		assert.Equal(t, payoutsBefore+1, env.payments.PayoutCount())
	})

	t.Run("full refund cancels the job", func(t *testing.T) {
		jobID := setup(t)
		refundsBefore := env.payments.RefundCount()

		job, err := env.svc.ResolveDispute(ctx, jobID, staff, ResolutionInput{
			Resolution: models.ResolutionFullRefund,
			Note:       "worker never finished",
		})
		require.NoError(t, err)

		assert.Equal(t, models.JobStatusCancelled, job.Status)
		assert.Equal(t, models.EscrowStatusRefunded, job.Escrow.Status)
		assert.Equal(t, 200.0, job.Escrow.RefundAmount)
		assert.Equal(t, refundsBefore+1, env.payments.RefundCount())
	})

	t.Run("partial refund splits the escrow", func(t *testing.T) {
		jobID := setup(t)

		job, err := env.svc.ResolveDispute(ctx, jobID, staff, ResolutionInput{
			Resolution:    models.ResolutionPartialRefund,
			RefundPercent: 30,
			Note:          "work partially done",
		})
		require.NoError(t, err)

		assert.Equal(t, models.EscrowStatusPartialRefund, job.Escrow.Status)
		assert.Equal(t, 60.0, job.Escrow.RefundAmount)
		assert.Equal(t, 30, job.Dispute.RefundPercent)

		// Remaining 140 less the 15% fee goes to the worker.
		last := env.payments.Payouts[len(env.payments.Payouts)-1]
		assert.Equal(t, 119.0, last.Amount)
	})

	t.Run("worker returns resumes the job", func(t *testing.T) {
		jobID := setup(t)

		job, err := env.svc.ResolveDispute(ctx, jobID, staff, ResolutionInput{
			Resolution: models.ResolutionWorkerReturns,
			Note:       "worker agreed to fix it",
		})
		require.NoError(t, err)

		assert.Equal(t, models.JobStatusInProgress, job.Status)
		assert.Equal(t, models.EscrowStatusHeld, job.Escrow.Status)
	})

	t.Run("staff only", func(t *testing.T) {
		jobID := setup(t)
		_, err := env.svc.ResolveDispute(ctx, jobID, Actor{ID: clientID, Role: models.RoleClient}, ResolutionInput{
			Resolution: models.ResolutionFullRefund,
		})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestOpenDisputeFreezesPartyOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	driveToCompleted(t, env, job.ID, workerID)

	_, err = env.svc.RaiseDispute(ctx, job.ID, Actor{ID: workerID, Role: models.RoleWorker}, DisputeInput{
		Reason:      "payment_issue",
		Description: "Client is refusing to approve finished work",
	})
	require.NoError(t, err)

	payouts, refunds := env.payments.PayoutCount(), env.payments.RefundCount()

	// None of the party operations may move a disputed job; only a
	// resolution can.
	_, err = env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{})
	assert.ErrorIs(t, err, ErrStateConflict)

	_, err = env.svc.CancelJob(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, "changed my mind")
	assert.ErrorIs(t, err, ErrStateConflict)

	_, err = env.svc.StartWork(ctx, job.ID, workerID)
	assert.ErrorIs(t, err, ErrStateConflict)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDisputed, stored.Status)
	assert.Equal(t, models.EscrowStatusHeld, stored.Escrow.Status)
	assert.True(t, stored.Dispute.Open())
	assert.Equal(t, payouts, env.payments.PayoutCount())
	assert.Equal(t, refunds, env.payments.RefundCount())
}

func TestWorkerReturnsResumesPriorStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()
	staff := Actor{ID: uuid.New(), Role: models.RoleStaff}

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.60, -0.19)
	require.NoError(t, err)

	disputed, err := env.svc.RaiseDispute(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, DisputeInput{
		Reason:      "worker_no_show",
		Description: "Worker has been on the way for three hours",
	})
	require.NoError(t, err)
	require.Equal(t, models.JobStatusWorkerOnWay, disputed.Dispute.PriorStatus)

	resolved, err := env.svc.ResolveDispute(ctx, job.ID, staff, ResolutionInput{
		Resolution: models.ResolutionWorkerReturns,
		Note:       "worker confirmed they are still coming",
	})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusWorkerOnWay, resolved.Status)
	assert.Equal(t, models.EscrowStatusHeld, resolved.Escrow.Status)

	// Execution continues from where the dispute interrupted it.
	_, err = env.svc.RecordArrival(ctx, job.ID, workerID, 5.6037, -0.1870)
	require.NoError(t, err)
}

func TestDisputeAutoResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := start
	env.svc.now = func() time.Time { return now }

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	driveToCompleted(t, env, job.ID, workerID)

	disputed, err := env.svc.RaiseDispute(ctx, job.ID, Actor{ID: workerID, Role: models.RoleWorker}, DisputeInput{
		Reason:      "payment_issue",
		Description: "Client is refusing to approve finished work",
	})
	require.NoError(t, err)
	assert.Equal(t, start.Add(48*time.Hour), disputed.Dispute.AutoResolveDeadline)

	// Not yet due.
	resolved, err := env.svc.AutoResolveDueDisputes(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)

	now = start.Add(48*time.Hour + time.Minute)
	resolved, err = env.svc.AutoResolveDueDisputes(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusApproved, stored.Status)
	assert.Equal(t, models.EscrowStatusReleased, stored.Escrow.Status)
	assert.Equal(t, models.ResolvedByAuto, stored.Dispute.ResolvedBy)
	assert.Equal(t, models.ResolutionPaymentReleased, stored.Dispute.Resolution)

	t.Run("second sweep is a no-op", func(t *testing.T) {
		payouts := env.payments.PayoutCount()
		resolved, err := env.svc.AutoResolveDueDisputes(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, resolved)
		assert.Equal(t, payouts, env.payments.PayoutCount())
	})
}

func TestDisputeGraceWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := start
	env.svc.now = func() time.Time { return now }

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	driveToCompleted(t, env, job.ID, workerID)
	_, err = env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{})
	require.NoError(t, err)

	in := DisputeInput{Reason: "poor_quality", Description: "Failed the next day"}

	t.Run("inside the window", func(t *testing.T) {
		now = start.Add(12 * time.Hour)
		disputed, err := env.svc.RaiseDispute(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, in)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusDisputed, disputed.Status)
	})

	t.Run("after the window", func(t *testing.T) {
		env2 := newTestEnv(t)
		now2 := start
		env2.svc.now = func() time.Time { return now2 }

		job2, quote2 := postAndQuote(t, env2, clientID, workerID)
		_, err := env2.svc.AcceptQuote(ctx, job2.ID, quote2.ID, clientID)
		require.NoError(t, err)
		fundJob(t, env2, job2.ID, clientID)
		driveToCompleted(t, env2, job2.ID, workerID)
		_, err = env2.svc.ApproveCompletion(ctx, job2.ID, clientID, ApprovalInput{})
		require.NoError(t, err)

		now2 = start.Add(25 * time.Hour)
		_, err = env2.svc.RaiseDispute(ctx, job2.ID, Actor{ID: clientID, Role: models.RoleClient}, in)
		assert.ErrorIs(t, err, ErrStateConflict)
	})
}

func TestCancelWithCompensation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.6, -0.19)
	require.NoError(t, err)

	cancelled, err := env.svc.CancelJob(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, "found someone on site")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	require.NotNil(t, cancelled.Cancellation.Compensation)
	assert.Equal(t, 10.0, cancelled.Cancellation.Compensation.Amount)
	assert.Equal(t, models.EscrowStatusPartialRefund, cancelled.Escrow.Status)
	assert.Equal(t, 190.0, cancelled.Escrow.RefundAmount)

	require.Equal(t, 1, env.payments.PayoutCount())
	assert.Equal(t, 10.0, env.payments.Payouts[0].Amount)
}

func TestCancelBeforeFundingRefundsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)

	cancelled, err := env.svc.CancelJob(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, "no longer needed")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.Cancellation.Compensation)
	assert.Equal(t, 0, env.payments.RefundCount())
	assert.Equal(t, 0, env.payments.PayoutCount())

	t.Run("terminal jobs reject further work", func(t *testing.T) {
		_, err := env.svc.SubmitQuote(ctx, job.ID, uuid.New(), validQuote())
		assert.ErrorIs(t, err, ErrStateConflict)
	})
}

func TestAdditionalWorkFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.6, -0.19)
	require.NoError(t, err)
	_, err = env.svc.RecordArrival(ctx, job.ID, workerID, 5.6037, -0.1870)
	require.NoError(t, err)
	_, err = env.svc.StartWork(ctx, job.ID, workerID)
	require.NoError(t, err)

	req, err := env.svc.RequestAdditionalWork(ctx, job.ID, workerID, "Valve behind the wall is also corroded", 80)
	require.NoError(t, err)
	assert.Equal(t, models.AdditionalWorkPending, req.Status)

	result, err := env.svc.ApproveAdditionalWork(ctx, job.ID, req.ID, clientID, true, "client@example.test", "")
	require.NoError(t, err)
	require.NotNil(t, result)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	approved := stored.FindAdditionalWork(req.ID)
	require.NotNil(t, approved)
	assert.Equal(t, models.AdditionalWorkApproved, approved.Status)
	assert.Equal(t, models.EscrowStatusPending, approved.EscrowStatus)

	// Settle the top-up charge via webhook.
	require.NoError(t, env.svc.HandlePaymentWebhook(ctx, webhookPayload(t, approved.PaymentReference), "sig"))

	stored, err = env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowStatusHeld, stored.FindAdditionalWork(req.ID).EscrowStatus)

	// Approval releases both the primary payout and the top-up.
	_, err = env.svc.CompleteWork(ctx, job.ID, workerID, CompletionInput{
		Photos: []models.CompletionPhoto{{URL: "https://photos.example.test/done.jpg"}},
	})
	require.NoError(t, err)
	final, err := env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{})
	require.NoError(t, err)

	assert.Equal(t, models.EscrowStatusReleased, final.Escrow.Status)
	assert.Equal(t, models.EscrowStatusReleased, final.FindAdditionalWork(req.ID).EscrowStatus)
	require.Equal(t, 2, env.payments.PayoutCount())
	assert.Equal(t, 170.0, env.payments.Payouts[0].Amount)
	assert.Equal(t, 68.0, env.payments.Payouts[1].Amount)
}

func TestAdditionalWorkBlockedDuringDispute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	_, err = env.svc.RecordWorkerOnWay(ctx, job.ID, workerID, 5.6, -0.19)
	require.NoError(t, err)
	_, err = env.svc.RecordArrival(ctx, job.ID, workerID, 5.6037, -0.1870)
	require.NoError(t, err)
	_, err = env.svc.StartWork(ctx, job.ID, workerID)
	require.NoError(t, err)

	_, err = env.svc.RaiseDispute(ctx, job.ID, Actor{ID: clientID, Role: models.RoleClient}, DisputeInput{
		Reason:      "wrong_charges",
		Description: "Worker is asking for cash outside the app",
	})
	require.NoError(t, err)

	_, err = env.svc.RequestAdditionalWork(ctx, job.ID, workerID, "More pipe needed", 50)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestExpiredJobsStopAcceptingQuotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID := uuid.New()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := start
	env.svc.now = func() time.Time { return now }

	job, err := env.svc.CreateJob(ctx, validCreateInput(clientID))
	require.NoError(t, err)

	now = start.Add(24*time.Hour + time.Minute)

	_, err = env.svc.SubmitQuote(ctx, job.ID, uuid.New(), validQuote())
	assert.ErrorIs(t, err, ErrStateConflict)

	expired, err := env.store.ExpireStaleJobs(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusExpired, stored.Status)

	t.Run("expiry sweep is idempotent", func(t *testing.T) {
		expired, err := env.store.ExpireStaleJobs(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 0, expired)
	})
}

func TestGetJobVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID, stranger := uuid.New(), uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)

	// Open postings are public.
	_, err := env.svc.GetJob(ctx, job.ID, Actor{ID: stranger, Role: models.RoleWorker})
	require.NoError(t, err)

	_, err = env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)

	_, err = env.svc.GetJob(ctx, job.ID, Actor{ID: stranger, Role: models.RoleWorker})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.GetJob(ctx, job.ID, Actor{ID: workerID, Role: models.RoleWorker})
	assert.NoError(t, err)

	_, err = env.svc.GetJob(ctx, job.ID, Actor{ID: uuid.New(), Role: models.RoleStaff})
	assert.NoError(t, err)

	_, err = env.svc.GetJob(ctx, uuid.New(), Actor{ID: clientID, Role: models.RoleClient})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEscrowErrorRollsBackApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clientID, workerID := uuid.New(), uuid.New()

	job, quote := postAndQuote(t, env, clientID, workerID)
	_, err := env.svc.AcceptQuote(ctx, job.ID, quote.ID, clientID)
	require.NoError(t, err)
	fundJob(t, env, job.ID, clientID)
	driveToCompleted(t, env, job.ID, workerID)

	boom := errors.New("provider down")
	env.payments.ReleasePayoutFunc = func(_ context.Context, _ payment.PayoutRequest) (payment.PayoutResult, error) {
		return payment.PayoutResult{}, boom
	}

	_, err = env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{})

	var escrowErr *EscrowError
	require.ErrorAs(t, err, &escrowErr)
	assert.Equal(t, job.ID, escrowErr.JobID)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status, "failed release must not advance the job")
	assert.Equal(t, models.EscrowStatusHeld, stored.Escrow.Status)

	t.Run("retry succeeds once the provider recovers", func(t *testing.T) {
		env.payments.ReleasePayoutFunc = nil
		approved, err := env.svc.ApproveCompletion(ctx, job.ID, clientID, ApprovalInput{})
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusApproved, approved.Status)
	})
}

func TestNearbyJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := func(lat, lng float64, category string) *models.JobPosting {
		in := validCreateInput(uuid.New())
		in.Category = category
		in.Location.Latitude = lat
		in.Location.Longitude = lng
		job, err := env.svc.CreateJob(ctx, in)
		require.NoError(t, err)
		return job
	}

	near := post(5.6040, -0.1875, "plumbing")
	far := post(6.6666, -1.6163, "plumbing") // Kumasi, ~200 km away
	electrical := post(5.6030, -0.1880, "electrical")

	jobs, err := env.svc.NearbyJobs(ctx, 5.6037, -0.1870, 10, "", 50)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, near.ID, jobs[0].ID, "nearest job first")

	for _, j := range jobs {
		assert.NotEqual(t, far.ID, j.ID)
	}

	t.Run("category filter", func(t *testing.T) {
		jobs, err := env.svc.NearbyJobs(ctx, 5.6037, -0.1870, 10, "electrical", 50)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, electrical.ID, jobs[0].ID)
	})
}
