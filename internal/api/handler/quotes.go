package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
)

// NewSubmitQuoteHandler returns the handler for POST /api/v1/jobs/{jobID}/quotes.
func NewSubmitQuoteHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Amount            float64 `json:"amount"`
			Message           string  `json:"message"`
			AvailableAt       string  `json:"available_at"`
			EstimatedDuration string  `json:"estimated_duration"`
			IncludesTransport bool    `json:"includes_transport"`
			IncludesMaterials bool    `json:"includes_materials"`
			MaterialsCost     float64 `json:"materials_cost"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		quote, err := svc.SubmitQuote(r.Context(), jobID, actor.ID, quickhire.QuoteInput{
			Amount:            req.Amount,
			Message:           req.Message,
			AvailableAt:       req.AvailableAt,
			EstimatedDuration: req.EstimatedDuration,
			IncludesTransport: req.IncludesTransport,
			IncludesMaterials: req.IncludesMaterials,
			MaterialsCost:     req.MaterialsCost,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.Created(w, quote)
	}
}

// NewWithdrawQuoteHandler returns the handler for
// DELETE /api/v1/jobs/{jobID}/quotes/{quoteID}.
func NewWithdrawQuoteHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}
		quoteID, ok := pathUUID(w, r, "quoteID")
		if !ok {
			return
		}

		if err := svc.WithdrawQuote(r.Context(), jobID, quoteID, actor.ID); err != nil {
			writeError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewAcceptQuoteHandler returns the handler for
// POST /api/v1/jobs/{jobID}/quotes/{quoteID}/accept.
func NewAcceptQuoteHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}
		quoteID, ok := pathUUID(w, r, "quoteID")
		if !ok {
			return
		}

		job, err := svc.AcceptQuote(r.Context(), jobID, quoteID, actor.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}
