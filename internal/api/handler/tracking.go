package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

type positionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewWorkerOnWayHandler returns the handler for POST /api/v1/jobs/{jobID}/on-way.
func NewWorkerOnWayHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req positionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.RecordWorkerOnWay(r.Context(), jobID, actor.ID, req.Latitude, req.Longitude)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewArrivalHandler returns the handler for POST /api/v1/jobs/{jobID}/arrive.
func NewArrivalHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req positionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.RecordArrival(r.Context(), jobID, actor.ID, req.Latitude, req.Longitude)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewStartWorkHandler returns the handler for POST /api/v1/jobs/{jobID}/start.
func NewStartWorkHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		job, err := svc.StartWork(r.Context(), jobID, actor.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewCompleteWorkHandler returns the handler for POST /api/v1/jobs/{jobID}/complete.
func NewCompleteWorkHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Photos     []models.CompletionPhoto `json:"photos"`
			WorkerNote string                   `json:"worker_note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.CompleteWork(r.Context(), jobID, actor.ID, quickhire.CompletionInput{
			Photos:     req.Photos,
			WorkerNote: req.WorkerNote,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewApproveHandler returns the handler for POST /api/v1/jobs/{jobID}/approve.
func NewApproveHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Rating *int   `json:"rating"`
			Review string `json:"review"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.ApproveCompletion(r.Context(), jobID, actor.ID, quickhire.ApprovalInput{
			Rating: req.Rating,
			Review: req.Review,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewRateClientHandler returns the handler for POST /api/v1/jobs/{jobID}/rate-client.
func NewRateClientHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Rating int    `json:"rating"`
			Review string `json:"review"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.RateClient(r.Context(), jobID, actor.ID, req.Rating, req.Review)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}
