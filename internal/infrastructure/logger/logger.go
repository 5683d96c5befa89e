// Package logger builds the zap loggers used across the ledger: the process
// logger, request-scoped gin loggers, the gorm adapter and context loggers
// that carry trace and actor correlation.
package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string // Go layout used for the time field
}

// DefaultConfig is a readable console logger at info
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// ForEnvironment returns the configuration for an app.env value: JSON with
// nanosecond timestamps in production, DefaultConfig elsewhere.
func ForEnvironment(env string) *Config {
	cfg := DefaultConfig()
	if strings.EqualFold(env, "production") {
		cfg.Format = "json"
		cfg.TimeFormat = time.RFC3339Nano
	}
	return cfg
}

// New builds a logger; empty fields of cfg take their DefaultConfig value
func New(cfg *Config) (*zap.Logger, error) {
	c := *DefaultConfig()
	if cfg != nil {
		c.Level = firstNonEmpty(cfg.Level, c.Level)
		c.Format = firstNonEmpty(cfg.Format, c.Format)
		c.Output = firstNonEmpty(cfg.Output, c.Output)
		c.TimeFormat = firstNonEmpty(cfg.TimeFormat, c.TimeFormat)
	}

	sink, err := openSink(c.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(newEncoder(c), sink, ParseLevel(c.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ParseLevel maps a level name to zap's, falling back to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Sync flushes l. Terminals and pipes reject fsync with EINVAL or ENOTTY;
// those errors are dropped.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

func newEncoder(c Config) zapcore.Encoder {
	layout := c.TimeFormat
	ec := zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		// ledger timestamps are UTC, log lines included
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(layout))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if c.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
