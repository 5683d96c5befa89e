package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowStatement = 200 * time.Millisecond
	startedAtKey         = "ledger:statement_started"
)

// DBTracing configures spans for gorm statements
type DBTracing struct {
	// FullSQL keeps bound arguments in db.statement; never in production
	FullSQL       bool
	SlowThreshold time.Duration
	// System is the db.system value, "sqlite" or "postgresql"
	System string
	// Provider overrides the global tracer provider
	Provider trace.TracerProvider
}

type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// InstrumentDB installs otelgorm on db and annotates each statement span
// with its table, affected rows, failures and slowness.
func InstrumentDB(db *gorm.DB, cfg DBTracing, log *zap.Logger) error {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = defaultSlowStatement
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.System)}
	if !cfg.FullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.Provider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.Provider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// the annotation must run before otelgorm ends the span
	cb := db.Callback()
	stages := []struct {
		op            string
		before, after callbackRegistrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("otel:after:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw")},
	}
	annotate := annotator(cfg.SlowThreshold)
	for _, s := range stages {
		if err := s.before.Register("ledger:start_"+s.op, stampStart); err != nil {
			return err
		}
		if err := s.after.Register("ledger:annotate_"+s.op, annotate); err != nil {
			return err
		}
	}

	log.Info("Database tracing enabled",
		zap.String("db_system", cfg.System),
		zap.Bool("full_sql", cfg.FullSQL),
		zap.Duration("slow_threshold", cfg.SlowThreshold),
	)
	return nil
}

func stampStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func annotator(slow time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span := trace.SpanFromContext(db.Statement.Context)
		if !span.IsRecording() {
			return
		}

		if table := db.Statement.Table; table != "" {
			span.SetAttributes(attribute.String("db.sql.table", table))
		}
		if db.Statement.RowsAffected >= 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		}
		// a lookup miss is an answer, not a failure
		if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		if took := time.Since(started); took > slow {
			span.SetAttributes(attribute.Bool("db.slow_query", true), attribute.Int64("db.query_duration_ms", took.Milliseconds()))
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", took.Milliseconds()),
				attribute.Int64("threshold_ms", slow.Milliseconds()),
			))
		}
	}
}
