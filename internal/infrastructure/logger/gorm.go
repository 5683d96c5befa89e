package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// maxLoggedSQL bounds the statement text; seed and wipe batches get long
const maxLoggedSQL = 2048

// GormConfig tunes the SQL logger. Level takes the application log level
// names; SlowThreshold of zero turns slow query warnings off.
type GormConfig struct {
	Level         string
	SlowThreshold time.Duration
}

// GormLogger routes GORM output through zap with the request and actor
// correlation fields of the calling context.
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func NewGormLogger(log *zap.Logger, cfg GormConfig) *GormLogger {
	return &GormLogger{
		log:   log.Named("gorm"),
		level: MapGormLogLevel(cfg.Level),
		slow:  cfg.SlowThreshold,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Info, msg, args)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Warn, msg, args)
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Error, msg, args)
}

func (l *GormLogger) printf(ctx context.Context, at gormlogger.LogLevel, msg string, args []any) {
	if l.level < at {
		return
	}
	log := WithLogger(ctx, l.log)
	text := fmt.Sprintf(msg, args...)
	switch at {
	case gormlogger.Error:
		log.Error(text)
	case gormlogger.Warn:
		log.Warn(text)
	default:
		log.Info(text)
	}
}

// Trace logs failed statements at error, slow ones at warn and, in info
// mode, every statement at debug. Record-not-found is not logged: the
// repositories turn it into a 404.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var msg string
	var emit func(*ContextLogger, string, ...zap.Field)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		msg, emit = "SQL failed", (*ContextLogger).Error
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		msg, emit = "Slow SQL", (*ContextLogger).Warn
	case err == nil && l.level >= gormlogger.Info:
		msg, emit = "SQL", (*ContextLogger).Debug
	default:
		return
	}

	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) {
		fields = append(fields, zap.Error(err))
	}
	if msg == "Slow SQL" {
		fields = append(fields, zap.Duration("threshold", l.slow))
	}
	emit(WithLogger(ctx, l.log), msg, fields...)
}

// MapGormLogLevel maps an application log level name to a GORM level.
// Anything unrecognized means warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

var _ gormlogger.Interface = (*GormLogger)(nil)
