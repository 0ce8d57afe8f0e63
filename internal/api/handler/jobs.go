package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/internal/store"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// NewCreateJobHandler returns the handler for POST /api/v1/jobs.
func NewCreateJobHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)

		var req struct {
			Category    string          `json:"category"`
			Title       string          `json:"title"`
			Description string          `json:"description"`
			Urgency     string          `json:"urgency"`
			Location    models.Location `json:"location"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.CreateJob(r.Context(), quickhire.CreateJobInput{
			ClientID:    actor.ID,
			Category:    req.Category,
			Title:       req.Title,
			Description: req.Description,
			Urgency:     req.Urgency,
			Location:    req.Location,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.Created(w, job)
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		job, err := svc.GetJob(r.Context(), jobID, actor)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewNearbyJobsHandler returns the handler for GET /api/v1/jobs/nearby.
func NewNearbyJobsHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "lat is required", nil)
			return
		}
		lng, err := strconv.ParseFloat(q.Get("lng"), 64)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "lng is required", nil)
			return
		}

		radiusKm, _ := strconv.ParseFloat(q.Get("radius_km"), 64)
		limit, _ := strconv.Atoi(q.Get("limit"))

		jobs, err := svc.NearbyJobs(r.Context(), lat, lng, radiusKm, q.Get("category"), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, jobs)
	}
}

// NewListMyJobsHandler returns the handler for GET /api/v1/jobs/mine: the
// caller's own postings for clients, quoted and assigned jobs for workers.
func NewListMyJobsHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		filter := listFilter(r)

		var (
			jobs  []*models.JobPosting
			total int
			err   error
		)
		if actor.Role == models.RoleWorker {
			jobs, total, err = svc.ListWorkerJobs(r.Context(), actor.ID, filter)
		} else {
			jobs, total, err = svc.ListClientJobs(r.Context(), actor.ID, filter)
		}
		if err != nil {
			writeError(w, err)
			return
		}

		response.Collection(w, jobs, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewCancelJobHandler returns the handler for POST /api/v1/jobs/{jobID}/cancel.
func NewCancelJobHandler(svc *quickhire.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r)
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.CancelJob(r.Context(), jobID, actor, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

func listFilter(r *http.Request) store.JobFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return store.JobFilter{
		Status: q.Get("status"),
		Page:   page,
		Limit:  limit,
	}
}
