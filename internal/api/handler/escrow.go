package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
)

// NewInitializeEscrowHandler returns the handler for
// POST /api/v1/jobs/{jobID}/escrow.
func NewInitializeEscrowHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			PaymentMethod string `json:"payment_method"`
			Email         string `json:"email"`
			CallbackURL   string `json:"callback_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.InitializeEscrowPayment(r.Context(), jobID, actor.ID, quickhire.FundInput{
			PaymentMethod: req.PaymentMethod,
			Email:         req.Email,
			CallbackURL:   req.CallbackURL,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewConfirmEscrowHandler returns the handler for
// POST /api/v1/jobs/{jobID}/escrow/confirm. It backs the post-checkout
// callback when the webhook has not landed yet.
func NewConfirmEscrowHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		job, err := svc.ConfirmEscrowPayment(r.Context(), jobID, actor.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewPaystackWebhookHandler returns the handler for
// POST /api/v1/webhooks/paystack. The provider authenticates with a body
// signature, not an actor header, so this route sits outside the actor
// middleware.
func NewPaystackWebhookHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Unreadable body", nil)
			return
		}

		err = svc.HandlePaymentWebhook(r.Context(), payload, r.Header.Get("x-paystack-signature"))
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, map[string]string{"status": "processed"})
	}
}
