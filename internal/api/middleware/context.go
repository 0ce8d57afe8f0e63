package middleware

import (
	"context"
	"net/http"

	"github.com/quickhire-gh/quickhire/internal/quickhire"
)

type contextKey string

const actorKey contextKey = "actor"

func setActor(ctx context.Context, actor quickhire.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the authenticated actor placed by the Actor middleware.
func GetActor(r *http.Request) (quickhire.Actor, bool) {
	actor, ok := r.Context().Value(actorKey).(quickhire.Actor)
	return actor, ok
}
