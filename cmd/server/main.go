package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	quoteapp "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/application/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/auth"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/cache"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/commerce"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/config"
	csvimport "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/import"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/persistence"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/scheduler"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/handler"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/middleware"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}

	// Log export has to exist before the logger so zap can tee into it
	logProvider, err := telemetry.NewLoggerProvider(ctx, telCfg)
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logProvider.Core(telCfg.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting quote service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("draft_store", cfg.Draft.Store),
	)

	// Initialize tracing and metrics
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter(telCfg.ServiceName)

	// Quote pipeline instruments
	quoteMetrics, err := telemetry.NewQuoteMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register quote metrics", zap.Error(err))
	}

	// Initialize draft store (Redis, memory or SQL)
	storeFactory := cache.NewDraftStoreFactory(cfg.Draft, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	drafts, err := openDraftStore(ctx, cfg, storeFactory, log, tracerProvider.IsEnabled())
	if err != nil {
		log.Fatal("Failed to open quote draft store", zap.Error(err))
	}
	defer func() {
		if err := drafts.close(); err != nil {
			log.Error("Error closing quote draft store", zap.Error(err))
		}
	}()
	// Start the purge scheduler for stores without native expiry
	if drafts.purge != nil {
		if err := drafts.purge.Start(ctx); err != nil {
			log.Fatal("Failed to start draft purge scheduler", zap.Error(err))
		}
	}

	// Request keys for idempotent draft writes
	requestKeys, err := storeFactory.CreateIdempotencyStore(ctx)
	if err != nil {
		log.Fatal("Failed to open request key store", zap.Error(err))
	}
	defer func() {
		_ = requestKeys.Close()
	}()

	// Initialize commerce platform client
	commerceClient, err := commerce.NewClient(commerce.Config{
		BaseURL:      cfg.Commerce.BaseURL,
		APIToken:     cfg.Commerce.APIToken,
		Timeout:      cfg.Commerce.Timeout,
		RetryCount:   cfg.Commerce.RetryCount,
		RetryWait:    cfg.Commerce.RetryWait,
		RetryMaxWait: cfg.Commerce.RetryMaxWait,
		CacheSize:    cfg.Commerce.CacheSize,
		CacheTTL:     cfg.Commerce.CacheTTL,
	}, log)
	if err != nil {
		log.Fatal("Failed to create commerce client", zap.Error(err))
	}

	// Initialize application services
	validationService := quoteapp.NewValidationService(commerceClient, log,
		quoteapp.WithMaxConcurrency(cfg.Validation.MaxConcurrency),
		quoteapp.WithValidationMetrics(quoteMetrics),
	)
	draftService := quoteapp.NewDraftService(drafts.repo, quoteMetrics, log,
		quoteapp.WithIdempotency(requestKeys, cfg.Draft.IdempotencyTTL),
	)
	bulkService := quoteapp.NewBulkService(commerceClient, validationService, draftService, log,
		quoteapp.WithQuickOrderOptions(csvimport.QuickOrderOptions{
			MaxRows:     cfg.Bulk.MaxRows,
			MaxErrors:   cfg.Bulk.MaxErrors,
			MaxQuantity: cfg.Bulk.MaxQuantity,
		}),
		quoteapp.WithBulkMetrics(quoteMetrics),
	)
	pricingService := quoteapp.NewPricingService(commerceClient, log)

	// Initialize HTTP handlers
	quoteHandler := handler.NewQuoteHandler(validationService, bulkService, pricingService)
	draftHandler := handler.NewDraftHandler(draftService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, map[string]handler.HealthCheck{
		"draft_store": drafts.ping,
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()
	// Configure trusted proxies
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}

	// Configure CORS from config
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing and HTTP metrics
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: telCfg.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		httpMetrics,
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Resolve the buyer session on API routes
	buyerAuth := middleware.DefaultBuyerAuthConfig(auth.NewSessionService(cfg.JWT))
	buyerAuth.Required = cfg.JWT.Required
	buyerAuth.Logger = log

	// Setup API routes using router
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(
			middleware.BuyerAuth(buyerAuth),
			middleware.TracingAttributeInjector(),
			middleware.SpanErrorMarker(),
		).
		Register(router.QuoteRoutes(quoteHandler)).
		Register(router.DraftRoutes(draftHandler)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if drafts.purge != nil {
		if err := drafts.purge.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping draft purge scheduler", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// draftStore is the configured draft repository with its lifecycle hooks
type draftStore struct {
	repo  quote.DraftRepository
	ping  handler.HealthCheck
	close func() error
	// purge is set for stores that do not expire drafts themselves
	purge *scheduler.DraftPurgeScheduler
}

// openDraftStore builds the draft repository named by draft.store. The sql
// store is migrated on open.
func openDraftStore(ctx context.Context, cfg *config.Config, factory *cache.DraftStoreFactory, log *zap.Logger, tracing bool) (*draftStore, error) {
	if cfg.Draft.Store != config.DraftStoreSQL {
		store, err := factory.CreateStore(ctx)
		if err != nil {
			return nil, err
		}
		ping := func(context.Context) error { return nil }
		if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
			ping = pinger.Ping
		}
		return &draftStore{repo: store, ping: ping, close: store.Close}, nil
	}

	tracingCfg := telemetry.DefaultDBTracingConfig()
	tracingCfg.Enabled = tracing
	tracingCfg.DBSystem = persistence.DBSystem(cfg.Database.Driver)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, cfg.Log.Level),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(tracingCfg, log)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate quote draft schema: %w", err)
	}
	log.Info("Using SQL quote draft store", zap.String("driver", cfg.Database.Driver))

	repo := persistence.NewGormQuoteDraftRepository(db.DB, cfg.Draft.MaxRetries, cfg.Draft.RetryBase)
	purgeCfg := scheduler.DefaultDraftPurgeSchedulerConfig()
	purgeCfg.Interval = cfg.Draft.PurgeInterval
	purgeCfg.MaxAge = cfg.Draft.TTL
	purge, err := scheduler.NewDraftPurgeScheduler(repo, log, purgeCfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &draftStore{
		repo:  repo,
		ping:  func(context.Context) error { return db.Ping() },
		close: db.Close,
		purge: purge,
	}, nil
}
