package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observedGorm(cfg GormConfig) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), cfg), logs
}

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-7")
	longAgo := time.Now().Add(-time.Second)

	tests := []struct {
		name      string
		cfg       GormConfig
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{"failure", GormConfig{Level: "warn"}, time.Now(), errors.New("unique violation"), "SQL failed", zapcore.ErrorLevel},
		{"record not found is quiet", GormConfig{Level: "debug"}, time.Now(), gormlogger.ErrRecordNotFound, "", 0},
		{"slow statement", GormConfig{Level: "warn", SlowThreshold: time.Millisecond}, longAgo, nil, "Slow SQL", zapcore.WarnLevel},
		{"slow threshold off", GormConfig{Level: "warn"}, longAgo, nil, "", 0},
		{"statements hidden at warn", GormConfig{Level: "warn"}, time.Now(), nil, "", 0},
		{"statements at debug in info mode", GormConfig{Level: "info"}, time.Now(), nil, "SQL", zapcore.DebugLevel},
		{"silent", GormConfig{Level: "silent"}, time.Now(), errors.New("x"), "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, logs := observedGorm(tt.cfg)
			gl.Trace(ctx, tt.begin, statement("UPDATE invoices SET status = 'OVERDUE'", 3), tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "gorm", entry.LoggerName)
			assert.Equal(t, "req-7", entry.ContextMap()["request_id"])
			assert.Equal(t, int64(3), entry.ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TruncatesStatements(t *testing.T) {
	gl, logs := observedGorm(GormConfig{Level: "info"})
	gl.Trace(context.Background(), time.Now(), statement("INSERT "+strings.Repeat("(?),", 2000), 500), nil)

	require.Equal(t, 1, logs.Len())
	sql := logs.All()[0].ContextMap()["sql"].(string)
	assert.Len(t, sql, maxLoggedSQL+3)
	assert.True(t, strings.HasSuffix(sql, "..."))
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl, _ := observedGorm(GormConfig{Level: "warn"})

	info := gl.LogMode(gormlogger.Info).(*GormLogger)
	assert.Equal(t, gormlogger.Info, info.level)
	assert.Equal(t, gormlogger.Warn, gl.level)
}

func TestGormLogger_Messages(t *testing.T) {
	gl, logs := observedGorm(GormConfig{Level: "warn"})

	gl.Info(context.Background(), "connected to %s", "sqlite")
	gl.Warn(context.Background(), "pool at %d%%", 90)
	gl.Error(context.Background(), "lost %s", "connection")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "pool at 90%", logs.All()[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "lost connection", logs.All()[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel(" debug "))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("whatever"))
}
