package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
)

// NewRequestAdditionalWorkHandler returns the handler for
// POST /api/v1/jobs/{jobID}/additional-work.
func NewRequestAdditionalWorkHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Description string  `json:"description"`
			Amount      float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		request, err := svc.RequestAdditionalWork(r.Context(), jobID, actor.ID, req.Description, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		response.Created(w, request)
	}
}

// NewAdditionalWorkDecisionHandler returns the handler for
// POST /api/v1/jobs/{jobID}/additional-work/{requestID}/decision. An
// approval responds with the checkout details for the top-up charge.
func NewAdditionalWorkDecisionHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}
		requestID, ok := pathUUID(w, r, "requestID")
		if !ok {
			return
		}

		var req struct {
			Approve     bool   `json:"approve"`
			Email       string `json:"email"`
			CallbackURL string `json:"callback_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.ApproveAdditionalWork(r.Context(), jobID, requestID, actor.ID, req.Approve, req.Email, req.CallbackURL)
		if err != nil {
			writeError(w, err)
			return
		}
		if result == nil {
			response.JSON(w, map[string]string{"status": "rejected"})
			return
		}
		response.JSON(w, result)
	}
}
