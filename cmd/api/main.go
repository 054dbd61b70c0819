package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/markethub/storefront-gateway/api/controllers"
	"github.com/markethub/storefront-gateway/api/routes"
	"github.com/markethub/storefront-gateway/internal/cart"
	"github.com/markethub/storefront-gateway/internal/checkout"
	"github.com/markethub/storefront-gateway/internal/orders"
	"github.com/markethub/storefront-gateway/internal/payments"
	"github.com/markethub/storefront-gateway/internal/session"
	"github.com/markethub/storefront-gateway/pkg/config"
	"github.com/markethub/storefront-gateway/pkg/events"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
	"github.com/markethub/storefront-gateway/pkg/metrics"
	"github.com/markethub/storefront-gateway/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-gateway"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-gateway",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "gateway stopped with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := clockwork.NewRealClock()

	// Without redis a dev instance still runs: the checkout lock goes in-process and the
	// profile cache, rate limits and idempotency replay are off.
	var (
		store       routes.Store
		redisPinger controllers.Pinger
		lock        cart.Lock
		profiles    *redis.Client
	)
	redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
	switch {
	case redisErr == nil:
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		redisLock, lockErr := cart.NewRedisLock(redisClient, cfg.Checkout.LockTTL)
		if lockErr != nil {
			return lockErr
		}
		store, redisPinger, lock, profiles = redisClient, redisClient, redisLock, redisClient
	case cfg.App.IsDev():
		logg.WarnErr(ctx, "redis unavailable, using in-process checkout lock", redisErr)
		lock = cart.NewMemoryLock(cfg.Checkout.LockTTL, clock)
	default:
		return redisErr
	}

	api, err := marketplace.NewClient(
		cfg.API.BaseURL(),
		marketplace.WithFallbackURL(cfg.API.FallbackURL()),
		marketplace.WithTimeout(cfg.API.Timeout),
		marketplace.WithObserver(metrics.NewUpstreamMetrics(registry)),
	)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka, logg)
		if err != nil {
			return err
		}
		publisher = kafkaPublisher
	}
	defer func() {
		err = multierr.Append(err, publisher.Close())
	}()

	poller, err := payments.NewPoller(api, cfg.Payment,
		payments.WithClock(clock),
		payments.WithLogger(logg),
		payments.WithMetrics(metrics.NewPaymentMetrics(registry)),
		payments.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(api, lock, logg)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(api, poller, lock, publisher, metrics.NewCheckoutMetrics(registry), logg)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(api, poller, publisher, logg)
	if err != nil {
		return err
	}

	var resolver *session.Resolver
	if profiles != nil {
		resolver, err = session.NewResolver(cfg.JWT, api, profiles, cfg.Session, clock, logg)
	} else {
		resolver, err = session.NewResolver(cfg.JWT, api, nil, cfg.Session, clock, logg)
	}
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			store,
			redisPinger,
			api,
			resolver,
			cartService,
			checkoutService,
			ordersService,
			poller,
			metrics.NewHTTPMetrics(registry),
			registry,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"api_target":   cfg.API.BaseURL(),
		"api_fallback": cfg.API.FallbackURL(),
		"kafka":        cfg.Kafka.Enabled(),
	})
	logg.Info(logCtx, "starting storefront gateway")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down storefront gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			poller.Shutdown(shutdownCtx),
		)
	})
	return g.Wait()
}
