package middleware

import (
	"context"
	"net/http"

	"github.com/markethub/storefront-gateway/api/responses"
	"github.com/markethub/storefront-gateway/api/validators"
	"github.com/markethub/storefront-gateway/pkg/auth"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
)

// ActorResolver turns a bearer token into the calling actor.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (auth.Actor, error)
}

// Auth resolves the bearer token and seeds the request context with the actor. The token is
// also attached for forwarding so marketplace calls act on the caller's behalf.
func Auth(resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			ctx := marketplace.WithToken(r.Context(), token)
			actor, err := resolver.Resolve(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithActor(ctx, actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID)
				ctx = logg.WithActorRole(ctx, actor.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
