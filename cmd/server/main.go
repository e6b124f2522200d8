package main

import (
	"context"
	"time"

	"github.com/flexprice/ratelimiter/internal/api"
	v1 "github.com/flexprice/ratelimiter/internal/api/v1"
	"github.com/flexprice/ratelimiter/internal/cache"
	"github.com/flexprice/ratelimiter/internal/config"
	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/postgres"
	"github.com/flexprice/ratelimiter/internal/provider"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	repo "github.com/flexprice/ratelimiter/internal/repository/postgres"
	"github.com/flexprice/ratelimiter/internal/sentry"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,

			cache.NewInMemoryCache,

			postgres.NewDB,

			sentry.NewSentryService,

			provideRateLimitsConfig,
			provideCounterStore,
			provideEngine,
			provideSubscriptionProvider,
			service.NewRateLimitService,

			v1.NewHealthHandler,
			v1.NewRateLimitHandler,
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

// provideRateLimitsConfig decodes config.RateLimitConfig into the
// domain's RateLimitsConfig. Fatal at fx.Provide time if the "none"
// tier is missing (§7 ConfigError policy — the core must not silently
// fall back).
func provideRateLimitsConfig(cfg *config.Configuration) (ratelimit.RateLimitsConfig, error) {
	return service.BuildRateLimitsConfig(cfg.RateLimit)
}

func provideCounterStore(db *postgres.DB, log *logger.Logger) ratelimit.CounterStore {
	return repo.NewRateLimitCounterRepository(db, log)
}

func provideEngine(store ratelimit.CounterStore) *ratelimit.Engine {
	return ratelimit.NewEngine(store)
}

// provideSubscriptionProvider chooses the HTTP-backed adapter when a
// live provider is configured, falling back to the static/config-driven
// one otherwise — the same config-before-network precedence the
// teacher's auth middleware uses (config keys checked before
// secretService.VerifyAPIKey; SPEC_FULL.md §4 item 6).
func provideSubscriptionProvider(cfg *config.Configuration, log *logger.Logger, c cache.Cache) provider.SubscriptionProvider {
	if cfg.Provider.BaseURL == "" {
		return provider.NewStaticProvider(nil)
	}
	return provider.NewHTTPProvider(cfg, log, c)
}

func provideHandlers(health *v1.HealthHandler, rateLimit *v1.RateLimitHandler) api.Handlers {
	return api.Handlers{
		Health:    health,
		RateLimit: rateLimit,
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, svc service.RateLimitService, log *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, svc, log)
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, r *gin.Engine, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			return nil
		},
	})
}
