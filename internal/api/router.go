package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	WebhookHandler http.HandlerFunc

	CreateJob  http.HandlerFunc
	GetJob     http.HandlerFunc
	NearbyJobs http.HandlerFunc
	ListMyJobs http.HandlerFunc
	CancelJob  http.HandlerFunc

	SubmitQuote   http.HandlerFunc
	WithdrawQuote http.HandlerFunc
	AcceptQuote   http.HandlerFunc

	InitializeEscrow http.HandlerFunc
	ConfirmEscrow    http.HandlerFunc

	WorkerOnWay  http.HandlerFunc
	Arrive       http.HandlerFunc
	StartWork    http.HandlerFunc
	CompleteWork http.HandlerFunc
	Approve      http.HandlerFunc
	RateClient   http.HandlerFunc

	RaiseDispute    http.HandlerFunc
	DisputeEvidence http.HandlerFunc
	ResolveDispute  http.HandlerFunc
	DisputeOverview http.HandlerFunc

	RequestAdditionalWork http.HandlerFunc
	DecideAdditionalWork  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public: health check and the provider webhook, which authenticates
	// with a body signature instead of actor headers.
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/webhooks/paystack", orNotImplemented(deps.WebhookHandler))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Actor)
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/api/v1/jobs/nearby", orNotImplemented(deps.NearbyJobs))
		r.Get("/api/v1/jobs/mine", orNotImplemented(deps.ListMyJobs))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJob))

		r.Post("/api/v1/jobs/{jobID}/dispute", orNotImplemented(deps.RaiseDispute))
		r.Post("/api/v1/jobs/{jobID}/dispute/evidence", orNotImplemented(deps.DisputeEvidence))

		// Client operations
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(models.RoleClient))

			r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
			r.Post("/api/v1/jobs/{jobID}/quotes/{quoteID}/accept", orNotImplemented(deps.AcceptQuote))
			r.Post("/api/v1/jobs/{jobID}/escrow", orNotImplemented(deps.InitializeEscrow))
			r.Post("/api/v1/jobs/{jobID}/escrow/confirm", orNotImplemented(deps.ConfirmEscrow))
			r.Post("/api/v1/jobs/{jobID}/approve", orNotImplemented(deps.Approve))
			r.Post("/api/v1/jobs/{jobID}/additional-work/{requestID}/decision", orNotImplemented(deps.DecideAdditionalWork))
		})

		// Worker operations
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(models.RoleWorker))

			r.Post("/api/v1/jobs/{jobID}/quotes", orNotImplemented(deps.SubmitQuote))
			r.Delete("/api/v1/jobs/{jobID}/quotes/{quoteID}", orNotImplemented(deps.WithdrawQuote))
			r.Post("/api/v1/jobs/{jobID}/on-way", orNotImplemented(deps.WorkerOnWay))
			r.Post("/api/v1/jobs/{jobID}/arrive", orNotImplemented(deps.Arrive))
			r.Post("/api/v1/jobs/{jobID}/start", orNotImplemented(deps.StartWork))
			r.Post("/api/v1/jobs/{jobID}/complete", orNotImplemented(deps.CompleteWork))
			r.Post("/api/v1/jobs/{jobID}/rate-client", orNotImplemented(deps.RateClient))
			r.Post("/api/v1/jobs/{jobID}/additional-work", orNotImplemented(deps.RequestAdditionalWork))
		})

		// Staff operations
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(models.RoleStaff))

			r.Post("/api/v1/jobs/{jobID}/dispute/resolve", orNotImplemented(deps.ResolveDispute))
			r.Get("/api/v1/disputes/overview", orNotImplemented(deps.DisputeOverview))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
