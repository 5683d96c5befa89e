package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	appbilling "github.com/ledgerdesk/backend/internal/application/billing"
	appreport "github.com/ledgerdesk/backend/internal/application/report"
	"github.com/ledgerdesk/backend/internal/application/timeshift"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/report"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "dev"

// ledger is the service graph one command runs against
type ledger struct {
	engine    *timeshift.Engine
	invoices  *appbilling.InvoiceService
	orders    *appbilling.OrderService
	clients   *appbilling.ClientService
	seeder    *appbilling.Seeder
	dashboard *appreport.DashboardService
	clock     shared.Clock
	actor     identity.Actor
	log       *zap.Logger
	close     func() error
}

// ledgerOptions carries the tunables the services read from configuration
type ledgerOptions struct {
	Invoice appbilling.InvoiceConfig
	Report  report.Options
}

// opener builds the ledger for a command; tests swap in an in-memory database
type opener func(cmd *cobra.Command) (*ledger, error)

func newLedger(db *gorm.DB, clock shared.Clock, opts ledgerOptions, log *zap.Logger) *ledger {
	scope := persistence.NewGormTransactionScope(db)
	recorder := appaudit.NewRecorder(scope, clock, log)
	clients := persistence.NewGormClientRepository(db)
	orders := persistence.NewGormOrderRepository(db)
	invoices := persistence.NewGormInvoiceRepository(db)

	invoiceService := appbilling.NewInvoiceService(scope, clients, orders, invoices, recorder, clock, opts.Invoice, log)
	return &ledger{
		engine:    timeshift.NewEngine(scope, invoiceService, recorder, clock, log),
		invoices:  invoiceService,
		orders:    appbilling.NewOrderService(scope, orders, recorder, clock, log),
		clients:   appbilling.NewClientService(scope, clients, recorder, clock, log),
		seeder:    appbilling.NewSeeder(scope, recorder, clock, log),
		dashboard: appreport.NewDashboardService(scope, invoiceService, clock, opts.Report, log),
		clock:     clock,
		actor:     identity.SystemActor(identity.SystemActorCLI),
		log:       log,
		close:     func() error { return nil },
	}
}

// openFromConfig connects with the same configuration the server uses
func openFromConfig(cmd *cobra.Command) (*ledger, error) {
	level, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if level == "" {
		level = cfg.Log.Level
	}

	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	db, err := persistence.Open(cmd.Context(), &cfg.Database, logger.NewGormLogger(log, logger.GormConfig{Level: level, SlowThreshold: cfg.Telemetry.DBSlowQueryThresh}))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(cmd.Context()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	opts := ledgerOptions{
		Invoice: appbilling.InvoiceConfig{
			DueDays:      cfg.Ledger.InvoiceDueDays,
			CodeAttempts: cfg.Ledger.InvoiceCodeAttempts,
		},
		Report: report.Options{TopClients: cfg.Ledger.TopClients, TrendDays: cfg.Ledger.TrendDays},
	}
	if status, ok := billing.ParseInvoiceStatus(cfg.Ledger.InitialInvoiceStatus); ok {
		opts.Invoice.InitialStatus = status
	}

	l := newLedger(db.DB, shared.SystemClock{}, opts, log)
	l.close = func() error {
		_ = logger.Sync(log)
		return db.Close()
	}
	return l, nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Maintenance commands for the billing ledger",
		Long: `ledgerctl operates on the ledger database directly, using the same
configuration as the API server (config.toml, LEDGER_* variables or a .env file).

Every change is written to the audit trail as the "ledgerctl" system actor.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); defaults to the configured level")

	root.AddCommand(
		newOffsetCmd(open),
		newShiftCmd(open),
		newRestoreCmd(open),
		newWipeCmd(open),
		newReconcileCmd(open),
		newDashboardCmd(open),
		newSeedCmd(open),
		newGenerateCmd(open),
		newImportClientsCmd(open),
	)
	return root
}

// withLedger opens the ledger for the duration of one command
func withLedger(open opener, fn func(ctx context.Context, cmd *cobra.Command, l *ledger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		l, err := open(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := l.close(); err != nil {
				l.log.Warn("Failed to close database", zap.Error(err))
			}
		}()
		return fn(cmd.Context(), cmd, l)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
