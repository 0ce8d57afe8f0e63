package handler

import (
	"net/http"

	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/cache"
	"github.com/quickhire-gh/quickhire/internal/store"
)

// NewHealthHandler reports liveness of the store and cache.
func NewHealthHandler(st store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"service":  "ok",
			"database": "ok",
			"redis":    "ok",
		}
		healthy := true

		if err := st.Ping(r.Context()); err != nil {
			status["database"] = "unreachable"
			healthy = false
		}
		if err := c.Ping(r.Context()); err != nil {
			status["redis"] = "unreachable"
			healthy = false
		}

		if !healthy {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more dependencies are unreachable", status)
			return
		}
		response.JSON(w, status)
	}
}
