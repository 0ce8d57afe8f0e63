package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// NewRaiseDisputeHandler returns the handler for POST /api/v1/jobs/{jobID}/dispute.
func NewRaiseDisputeHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Reason      string            `json:"reason"`
			Description string            `json:"description"`
			Evidence    []models.Evidence `json:"evidence"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.RaiseDispute(r.Context(), jobID, actor, quickhire.DisputeInput{
			Reason:      req.Reason,
			Description: req.Description,
			Evidence:    req.Evidence,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.Created(w, job)
	}
}

// NewDisputeEvidenceHandler returns the handler for
// POST /api/v1/jobs/{jobID}/dispute/evidence.
func NewDisputeEvidenceHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req models.Evidence
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.AddDisputeEvidence(r.Context(), jobID, actor, req)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewResolveDisputeHandler returns the handler for
// POST /api/v1/jobs/{jobID}/dispute/resolve.
func NewResolveDisputeHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Resolution    string `json:"resolution"`
			Note          string `json:"note"`
			RefundPercent int    `json:"refund_percent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.ResolveDispute(r.Context(), jobID, actor, quickhire.ResolutionInput{
			Resolution:    req.Resolution,
			Note:          req.Note,
			RefundPercent: req.RefundPercent,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewDisputeOverviewHandler returns the handler for GET /api/v1/disputes/overview.
func NewDisputeOverviewHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)

		horizon := 12 * time.Hour
		if raw := r.URL.Query().Get("horizon"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"horizon must be a duration like 6h", nil)
				return
			}
			horizon = parsed
		}

		stats, err := svc.DisputeOverview(r.Context(), actor, horizon)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, stats)
	}
}
