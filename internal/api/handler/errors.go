package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
)

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var escrowErr *quickhire.EscrowError
	switch {
	case errors.As(err, &escrowErr):
		response.Error(w, http.StatusBadGateway, "PAYMENT_PROVIDER_ERROR",
			"The payment provider rejected or failed the operation", map[string]any{
				"job_id":    escrowErr.JobID,
				"operation": escrowErr.Op,
			})
	case errors.Is(err, quickhire.ErrValidation):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, quickhire.ErrUnauthorized):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, quickhire.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, quickhire.ErrStateConflict):
		response.Error(w, http.StatusConflict, "STATE_CONFLICT", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// pathUUID parses a UUID route parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			param+" must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
