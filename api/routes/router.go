package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/markethub/storefront-gateway/api/controllers"
	cartcontrollers "github.com/markethub/storefront-gateway/api/controllers/cart"
	ordercontrollers "github.com/markethub/storefront-gateway/api/controllers/orders"
	"github.com/markethub/storefront-gateway/api/middleware"
	"github.com/markethub/storefront-gateway/internal/cart"
	checkoutsvc "github.com/markethub/storefront-gateway/internal/checkout"
	"github.com/markethub/storefront-gateway/internal/orders"
	"github.com/markethub/storefront-gateway/pkg/config"
	"github.com/markethub/storefront-gateway/pkg/enums"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/metrics"
)

// Store backs rate limiting and idempotency replay. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type requestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store Store,
	redisPinger controllers.Pinger,
	apiPinger controllers.Pinger,
	resolver middleware.ActorResolver,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	attempts controllers.PaymentAttempts,
	requests requestObserver,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(requests),
		middleware.CORS(cfg.CORS),
	)

	apiPolicy := middleware.NewRateLimitPolicy(
		"api",
		cfg.RateLimit.APIWindow,
		cfg.RateLimit.APIIPLimit,
		cfg.RateLimit.APIUserLimit,
	)
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisPinger, apiPinger))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/statuses", controllers.Statuses())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(resolver, logg))
			r.Use(middleware.RateLimit(apiPolicy, store, logg))
			r.Use(middleware.Idempotency(store, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartcontrollers.CartFetch(cartService, logg))
					r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
					r.Put("/items/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
					r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
				})

				r.With(middleware.RateLimit(checkoutPolicy, store, logg)).
					Post("/checkout", controllers.Checkout(checkoutService, logg))

				r.Route("/payments/attempts/{orderId}", func(r chi.Router) {
					r.Get("/", controllers.PaymentAttempt(attempts, logg))
					r.Delete("/", controllers.PaymentAttemptClose(attempts, logg))
					r.With(middleware.RateLimit(checkoutPolicy, store, logg)).
						Post("/retry", controllers.PaymentRetry(checkoutService, logg))
				})
			})

			r.Get("/orders", ordercontrollers.List(ordersService, logg))
			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersService, logg))
				r.With(middleware.RequireRole(logg, enums.UserRoleCustomer, enums.UserRoleAdmin)).
					Post("/cancel", ordercontrollers.CancelOrder(ordersService, logg))
			})

			r.Route("/suborders/{suborderId}", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleMerchant, enums.UserRoleHubStaff))
				r.Get("/actions", ordercontrollers.SuborderActions(ordersService, logg))
				r.Post("/status", ordercontrollers.SuborderStatus(ordersService, logg))
			})
		})
	})

	return r
}
