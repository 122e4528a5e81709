package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/openmarket/marketplace-backend/api/responses"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

type actorKey struct{}

const actorIDHeader = "X-Actor-Id"

// Actor reads the caller's identity from the X-Actor-Id header. Requests
// without a parseable actor are rejected before they reach a controller.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(actorIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "actor id header is required"))
				return
			}
			actorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor id"))
				return
			}

			ctx := WithActorID(r.Context(), actorID)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActorID injects an actor into the context directly, bypassing the
// header. Used by tests and internal calls.
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorIDFromContext returns the actor set by Actor, or uuid.Nil.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
