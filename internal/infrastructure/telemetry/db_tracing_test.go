package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:32"`
}

func setupTracedDB(t *testing.T, cfg DBTracing) (*gorm.DB, *tracetest.SpanRecorder) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	recorder := tracetest.NewSpanRecorder()
	cfg.Provider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, InstrumentDB(db, cfg, zap.NewNop()))
	return db, recorder
}

func TestInstrumentDB_AnnotatesTable(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracing{System: "sqlite"})

	require.NoError(t, db.Create(&tracedRow{Code: "a"}).Error)

	var table string
	for _, s := range recorder.Ended() {
		for _, attr := range s.Attributes() {
			if attr.Key == "db.sql.table" {
				table = attr.Value.AsString()
			}
		}
	}
	assert.Equal(t, "traced_rows", table)
}

func TestInstrumentDB_RecordsSpans(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracing{System: "sqlite", SlowThreshold: time.Hour})

	require.NoError(t, db.Create(&tracedRow{Code: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.Find(&rows).Error)

	spans := recorder.Ended()
	require.GreaterOrEqual(t, len(spans), 2)
	for _, s := range spans {
		for _, attr := range s.Attributes() {
			assert.NotEqual(t, "db.slow_query", string(attr.Key))
		}
	}
}

func TestInstrumentDB_MarksSlowQueries(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracing{SlowThreshold: time.Nanosecond})

	require.NoError(t, db.Create(&tracedRow{Code: "slow"}).Error)

	found := false
	for _, s := range recorder.Ended() {
		for _, e := range s.Events() {
			if e.Name == "slow_query_warning" {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a slow_query_warning event")
}

func TestInstrumentDB_MarksErrors(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracing{SlowThreshold: time.Hour})

	err := db.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)

	var errored bool
	for _, s := range recorder.Ended() {
		if s.Status().Code == codes.Error {
			errored = true
		}
	}
	assert.True(t, errored)
}

func TestInstrumentDB_IgnoresRecordNotFound(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracing{SlowThreshold: time.Hour})

	var row tracedRow
	err := db.WithContext(context.Background()).First(&row, 42).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	for _, s := range recorder.Ended() {
		assert.NotEqual(t, codes.Error, s.Status().Code)
	}
}
