package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/cache"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence"
	"github.com/ledgerdesk/backend/internal/infrastructure/scheduler"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
	"github.com/ledgerdesk/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const drainTimeout = 30 * time.Second

//	@title			Ledger Desk API
//	@version		1.0
//	@description	Billing ledger: clients, orders, invoices, audit trail and time-shift tooling

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configuration:", err)
		os.Exit(1)
	}

	logCfg := logger.ForEnvironment(cfg.App.Env)
	logCfg.Level = cfg.Log.Level
	logCfg.Output = cfg.Log.Output
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "initialize logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("Ledger Desk stopped", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
	_ = logger.Sync(log)
}

// run serves the API until ctx is cancelled, then drains in-flight requests
// and flushes every background component.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting Ledger Desk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to flush telemetry", zap.Error(err))
		}
	}()
	log = providers.BridgeLogger(log, cfg.Telemetry.ServiceName)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	svc := wire(db, cfg, shared.SystemClock{}, log)
	if providers.MetricsEnabled() {
		svc.instrument(providers.Meter("ledgerdesk"), log)
		if sqlDB, err := db.DB.DB(); err == nil {
			reg, err := telemetry.RegisterPoolMetrics(providers.Meter("ledgerdesk/db"), sqlDB)
			if err != nil {
				log.Warn("Failed to register connection pool metrics", zap.Error(err))
			} else {
				defer func() { _ = reg.Unregister() }()
			}
		}
	}
	if err := svc.bootstrap(ctx, cfg.Bootstrap, log); err != nil {
		return err
	}

	store, err := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("create idempotency store: %w", err)
	}
	defer func() { _ = store.Close() }()
	idempotency := shared.DefaultIdempotencyConfig()
	if cfg.Ledger.IdempotencyTTL > 0 {
		idempotency.TTL = cfg.Ledger.IdempotencyTTL
	}

	sweeper := scheduler.NewOverdueSweeper(cfg.Ledger.ReconcileSweepInterval, svc.invoices, svc.clock, log)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start overdue sweeper: %w", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var httpMeter metric.Meter
	if providers.MetricsEnabled() {
		httpMeter = providers.Meter("ledgerdesk/http")
	}
	srv := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: router.NewEngine(svc.handlers(db, version), router.Options{
			Logger:  log,
			HTTP:    cfg.HTTP,
			Tokens:  svc.tokens,
			Denials: svc.recorder,
			Idempotency: middleware.IdempotencyConfig{
				Store:  store,
				Config: idempotency,
				Logger: log,
			},
			ServiceName:    cfg.Telemetry.ServiceName,
			TracingEnabled: providers.TracingEnabled(),
			Meter:          httpMeter,

			ProfilingLabels: providers.ProfilingEnabled(),
		}),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	served := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		served <- srv.ListenAndServe()
	}()

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(drainCtx); err != nil {
		log.Warn("Overdue sweeper did not stop cleanly", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	return nil
}

// openDatabase connects, attaches statement tracing when configured and
// brings the schema up to date on sqlite.
func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	db, err := persistence.Open(ctx, &cfg.Database, logger.NewGormLogger(log, logger.GormConfig{
		Level:         cfg.Log.Level,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	if cfg.Telemetry.DBTraceEnabled {
		system := "sqlite"
		if db.Driver == config.DriverPostgres {
			system = "postgresql"
		}
		err := telemetry.InstrumentDB(db.DB, telemetry.DBTracing{
			FullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
			System:        system,
		}, log)
		if err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("Schema migrated")
	}
	return db, nil
}
