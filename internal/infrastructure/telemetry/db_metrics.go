package telemetry

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	poolStateIdle  = metric.WithAttributes(attribute.String("state", "idle"))
	poolStateInUse = metric.WithAttributes(attribute.String("state", "in_use"))
	poolStateOpen  = metric.WithAttributes(attribute.String("state", "open"))
)

// RegisterPoolMetrics reports db's connection pool on every collection:
// connections by state, the configured ceiling, and cumulative waits.
// Unregister the returned registration before closing db.
func RegisterPoolMetrics(meter metric.Meter, db *sql.DB) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if db == nil {
		return nil, errors.New("telemetry: nil *sql.DB")
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections allowed"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for because the pool was exhausted"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, err
	}
	waitSeconds, err := meter.Float64ObservableCounter("db_pool_wait_seconds_total",
		metric.WithDescription("Time spent waiting for a pooled connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := db.Stats()
		o.ObserveInt64(connections, int64(stats.Idle), poolStateIdle)
		o.ObserveInt64(connections, int64(stats.InUse), poolStateInUse)
		o.ObserveInt64(connections, int64(stats.OpenConnections), poolStateOpen)
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		o.ObserveFloat64(waitSeconds, stats.WaitDuration.Seconds())
		return nil
	}, connections, maxOpen, waits, waitSeconds)
}
