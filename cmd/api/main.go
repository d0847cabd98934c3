package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/localeventfinder/internal/adapters/cache"
	"github.com/zatekoja/localeventfinder/internal/adapters/providers/eventsources"
	"github.com/zatekoja/localeventfinder/internal/api/handlers"
	"github.com/zatekoja/localeventfinder/internal/api/middleware"
	"github.com/zatekoja/localeventfinder/internal/api/routes"
	"github.com/zatekoja/localeventfinder/internal/application/services"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/clients/redis"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	"github.com/zatekoja/localeventfinder/pkg/config"
	"github.com/zatekoja/localeventfinder/pkg/retry"
	"github.com/zatekoja/localeventfinder/pkg/secrets"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pull provider credentials from Vault before config reads the environment
	vaultCfg, err := secrets.LoadVaultConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read Vault configuration")
	}
	vaultResult, err := secrets.ApplyVaultSecrets(ctx, vaultCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load secrets from Vault")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)
	logger := observability.GetLogger()
	if vaultResult.Enabled {
		logger.Info().Str("path", vaultResult.Path).Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("Vault secrets applied")
	}

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, observability.SetupOptions{
			ServiceName:    cfg.OTEL.ServiceName,
			ServiceVersion: cfg.OTEL.ServiceVersion,
			Environment:    cfg.Environment,
			Endpoint:       cfg.OTEL.Endpoint,
			SampleRatio:    cfg.OTEL.SampleRatio,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sourceMetrics := observability.NewSourceMetrics(registry)

	cacheProvider, closeCache := newCacheProvider(ctx, cfg)
	defer closeCache()

	sourceRegistry := buildSourceRegistry(cfg, sourceMetrics)
	stats := sourceRegistry.Stats()
	for _, info := range stats.Sources {
		logger.Info().
			Str("source", string(info.Name)).
			Bool("enabled", info.Enabled).
			Bool("configured", info.Configured).
			Msg("Event source registered")
	}
	if stats.Enabled == 0 {
		logger.Warn().Msg("No event source is usable; searches will fail until one is configured")
	}

	eventHandler := handlers.NewEventHandler(
		services.NewEventAggregator(sourceRegistry, sourceMetrics),
		services.NewEventLookup(sourceRegistry),
		services.NewCategoryService(sourceRegistry, cacheProvider, cfg.Cache.CategoryTTL),
		sourceRegistry,
	)

	routerOpts := routes.Options{
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        metrics,
	}
	if cfg.RateLimit.Enabled {
		trustedProxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid RATE_LIMIT_TRUSTED_PROXIES")
		}
		routerOpts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, trustedProxies...)
	}
	handler := routes.NewRouter(eventHandler, routerOpts).SetupRoutes()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	logger.Info().Msg("Server stopped")
}

// newCacheProvider returns Redis when it is enabled and reachable, otherwise
// the in-process LRU.
func newCacheProvider(ctx context.Context, cfg *config.Config) (providers.CacheProvider, func()) {
	logger := observability.GetLogger()
	memory := cache.NewMemoryAdapter(cfg.Cache.MemorySize, cfg.Cache.CategoryTTL)

	if !cfg.Redis.Enabled {
		logger.Info().Msg("Redis disabled; using in-memory category cache")
		return memory, func() {}
	}

	retryCfg := retry.DefaultConfig("redis")
	retryCfg.MaxTotalTimeout = 15 * time.Second
	client, err := redis.NewClient(ctx, &cfg.Redis, retryCfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Redis client; using in-memory category cache")
		return memory, func() {}
	}

	logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
	return cache.NewRedisAdapter(client, "eventfinder:"), func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing Redis client")
		}
	}
}

// buildSourceRegistry registers the adapters in merge order
func buildSourceRegistry(cfg *config.Config, metrics *observability.SourceMetrics) *services.SourceRegistry {
	registry := services.NewSourceRegistry()
	for _, setting := range eventsources.NewSources(cfg.Sources, metrics) {
		registry.Register(setting.Source, setting.Enabled)
	}
	return registry
}
