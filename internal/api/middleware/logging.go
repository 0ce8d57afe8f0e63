package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logger emits one structured line per request. When the gateway
// forwarded an identity, the actor fields are included so request logs
// can be joined against marketplace activity.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if actorID := r.Header.Get(HeaderActorID); actorID != "" {
			attrs = append(attrs, "actor_id", actorID)
			if role := r.Header.Get(HeaderActorRole); role != "" {
				attrs = append(attrs, "actor_role", role)
			}
		}
		slog.Info("request", attrs...)
	})
}
