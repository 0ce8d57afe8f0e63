package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/quickhire-gh/quickhire/internal/api/response"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/pkg/models"
)

// Headers the upstream gateway asserts after authenticating the caller.
// The service trusts them; it never sees credentials itself.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Actor extracts the gateway-asserted identity and stores it on the
// request context. Requests without a valid identity are rejected.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(HeaderActorID))
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY",
				"A valid "+HeaderActorID+" header is required", nil)
			return
		}

		role := r.Header.Get(HeaderActorRole)
		switch role {
		case models.RoleClient, models.RoleWorker, models.RoleStaff:
		default:
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY",
				HeaderActorRole+" must be client, worker, or staff", nil)
			return
		}

		ctx := setActor(r.Context(), quickhire.Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose actor does not carry the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY",
					"No actor on request", nil)
				return
			}
			if actor.Role != role {
				response.Error(w, http.StatusForbidden, "FORBIDDEN",
					"This operation requires the "+role+" role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
