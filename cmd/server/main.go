package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	catalogapp "github.com/openlib/backend/internal/application/catalog"
	lendingapp "github.com/openlib/backend/internal/application/lending"
	"github.com/openlib/backend/internal/application/reporting"
	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared/valueobject"
	"github.com/openlib/backend/internal/infrastructure/cache"
	"github.com/openlib/backend/internal/infrastructure/config"
	"github.com/openlib/backend/internal/infrastructure/event"
	"github.com/openlib/backend/internal/infrastructure/logger"
	"github.com/openlib/backend/internal/infrastructure/persistence"
	"github.com/openlib/backend/internal/infrastructure/telemetry"
	"github.com/openlib/backend/internal/interfaces/http/handler"
	"github.com/openlib/backend/internal/interfaces/http/middleware"
	"github.com/openlib/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck // stdout sync fails on some platforms

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("failed to shut down tracer provider", zap.Error(err))
		}
	}()

	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("failed to stop event bus", zap.Error(err))
		}
	}()

	bookRepo := persistence.NewGormBookRepository(db.DB)
	loanRepo := persistence.NewGormLoanRepository(db.DB)

	dailyRate, err := valueobject.NewMoneyUSDFromString(cfg.Lending.DailyFineRate)
	if err != nil {
		log.Fatal("invalid lending.daily_fine_rate", zap.Error(err))
	}
	finePolicy := lending.NewFinePolicy(dailyRate)

	bookService := catalogapp.NewBookService(bookRepo, loanRepo)
	bookService.SetEventPublisher(eventBus)

	lendingService := lendingapp.NewLendingService(bookRepo, loanRepo, finePolicy, log)
	lendingService.SetEventPublisher(eventBus)
	lendingService.SetLoanDays(cfg.Lending.DefaultLoanDays)
	lendingService.SetFlagWriteAttempts(cfg.Lending.FlagWriteAttempts)
	lendingService.SetRetryBackoff(cfg.Lending.RetryBackoff)

	reportService := reporting.NewReportService(bookRepo, loanRepo, finePolicy, log)
	if cfg.Report.CacheEnabled {
		factory := cache.NewReportCacheFactory(cfg.Redis, cache.WithLogger(log))
		reportCache, err := factory.CreateCache()
		if err != nil {
			log.Fatal("failed to create report cache", zap.Error(err))
		}
		reportService.SetCache(reportCache)
		reportService.SetCacheTTL(cfg.Report.CacheTTL)
	}

	if cfg.Reconcile.Enabled {
		go runReconcileSweep(ctx, lendingService, cfg.Reconcile.SweepInterval, log)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if tracerProvider.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NewRouter(engine).
		Register(handler.NewBookHandler(bookService)).
		Register(handler.NewLendingHandler(lendingService)).
		Register(handler.NewReportHandler(reportService)).
		Register(handler.NewSystemHandler(db, cfg.App.Name, version)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// runReconcileSweep periodically repairs availability flags that drifted from
// the loan store, e.g. after a crash between the claim write and the loan
// insert.
func runReconcileSweep(ctx context.Context, svc *lendingapp.LendingService, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("reconciliation sweep enabled", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.ReconcileAll(ctx)
			if err != nil {
				log.Error("reconciliation sweep failed", zap.Error(err))
				continue
			}
			if result.Repaired > 0 {
				log.Warn("reconciliation repaired stranded flags",
					zap.Int64("scanned", result.Scanned),
					zap.Int64("repaired", result.Repaired),
				)
			}
		}
	}
}
