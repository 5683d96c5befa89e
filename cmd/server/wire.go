package main

import (
	"context"
	"fmt"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	appbilling "github.com/ledgerdesk/backend/internal/application/billing"
	appidentity "github.com/ledgerdesk/backend/internal/application/identity"
	appreport "github.com/ledgerdesk/backend/internal/application/report"
	"github.com/ledgerdesk/backend/internal/application/timeshift"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/report"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/auth"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"github.com/ledgerdesk/backend/internal/interfaces/http/handler"
	"github.com/ledgerdesk/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// services is the application graph the HTTP layer is mounted on
type services struct {
	clock     shared.Clock
	recorder  *appaudit.Recorder
	audits    *appaudit.QueryService
	invoices  *appbilling.InvoiceService
	orders    *appbilling.OrderService
	clients   *appbilling.ClientService
	seeder    *appbilling.Seeder
	dashboard *appreport.DashboardService
	engine    *timeshift.Engine
	tokens    *auth.JWTService
	login     *appidentity.AuthService
	users     *appidentity.UserService
}

func wire(db *persistence.Database, cfg *config.Config, clock shared.Clock, log *zap.Logger) *services {
	scope := persistence.NewGormTransactionScope(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	s := &services{clock: clock, tokens: auth.NewJWTService(cfg.JWT, auth.WithClock(clock))}
	s.recorder = appaudit.NewRecorder(scope, clock, log)
	s.audits = appaudit.NewQueryService(persistence.NewGormAuditEntryRepository(db.DB))
	s.invoices = appbilling.NewInvoiceService(scope, clientRepo, orderRepo, invoiceRepo, s.recorder, clock, invoiceConfig(cfg.Ledger, log), log)
	s.orders = appbilling.NewOrderService(scope, orderRepo, s.recorder, clock, log)
	s.clients = appbilling.NewClientService(scope, clientRepo, s.recorder, clock, log)
	s.seeder = appbilling.NewSeeder(scope, s.recorder, clock, log)
	s.dashboard = appreport.NewDashboardService(scope, s.invoices, clock, report.Options{
		TopClients: cfg.Ledger.TopClients,
		TrendDays:  cfg.Ledger.TrendDays,
	}, log)
	s.engine = timeshift.NewEngine(scope, s.invoices, s.recorder, clock, log)
	s.login = appidentity.NewAuthService(userRepo, s.tokens, s.recorder, clock, log)
	s.users = appidentity.NewUserService(userRepo, s.recorder, clock, log)
	return s
}

// instrument attaches the ledger counters; failures only cost the metrics
func (s *services) instrument(meter metric.Meter, log *zap.Logger) {
	metrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Warn("Failed to create ledger metrics", zap.Error(err))
		return
	}
	s.recorder.SetMetrics(metrics)
	s.invoices.SetMetrics(metrics)
	s.engine.SetMetrics(metrics)
}

func (s *services) handlers(db *persistence.Database, version string) router.Handlers {
	return router.Handlers{
		Auth:      handler.NewAuthHandler(s.login),
		Client:    handler.NewClientHandler(s.clients),
		Order:     handler.NewOrderHandler(s.orders),
		Invoice:   handler.NewInvoiceHandler(s.invoices),
		Dashboard: handler.NewDashboardHandler(s.dashboard),
		Audit:     handler.NewAuditHandler(s.audits, s.recorder),
		System:    handler.NewSystemHandler(s.engine, s.orders, s.clock),
		Health:    handler.NewHealthHandler(db, version),
	}
}

// bootstrap creates the first super admin and seeds demo data on an empty ledger
func (s *services) bootstrap(ctx context.Context, cfg config.BootstrapConfig, log *zap.Logger) error {
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := s.users.EnsureBootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("create bootstrap admin: %w", err)
		}
		if created {
			log.Info("Bootstrap admin created", zap.String("username", cfg.AdminUsername))
		}
	}

	if !cfg.SeedDemoData {
		return nil
	}
	seeded, err := s.seeder.SeedDemoData(ctx, identity.SystemActor(identity.SystemActorMaintenance))
	if err != nil {
		log.Error("Failed to seed demo data", zap.Error(err))
		return nil
	}
	if seeded {
		log.Info("Demo data seeded")
	}
	return nil
}

func invoiceConfig(cfg config.LedgerConfig, log *zap.Logger) appbilling.InvoiceConfig {
	ic := appbilling.InvoiceConfig{
		DueDays:      cfg.InvoiceDueDays,
		CodeAttempts: cfg.InvoiceCodeAttempts,
	}
	if cfg.InitialInvoiceStatus == "" {
		return ic
	}
	status, ok := billing.ParseInvoiceStatus(cfg.InitialInvoiceStatus)
	if !ok || !status.IsOpen() {
		log.Warn("Ignoring initial invoice status; falling back to PENDING", zap.String("status", cfg.InitialInvoiceStatus))
		return ic
	}
	ic.InitialStatus = status
	return ic
}
