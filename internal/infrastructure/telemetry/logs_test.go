package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestBridgeLogger_ExportsAtBaseLevel(t *testing.T) {
	exporter := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	p := &Providers{logs: provider, log: zap.NewNop()}

	core, local := observer.New(zapcore.InfoLevel)
	log := p.BridgeLogger(zap.New(core), "ledgerdesk-test")

	log.Debug("Cache miss")
	log.Info("Invoice generated", zap.String("code", "INV-1"))
	log.With(zap.String("actor", "sam")).Warn("Permission denied")

	assert.Equal(t, 2, local.Len())
	assert.Equal(t, []string{"Invoice generated", "Permission denied"}, exporter.bodies())

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	require.Len(t, exporter.records, 2)
	assert.Equal(t, otellog.SeverityInfo, exporter.records[0].Severity())
	assert.Equal(t, otellog.SeverityWarn, exporter.records[1].Severity())
}

func TestBridgeLogger_DisabledReturnsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, (&Providers{}).BridgeLogger(base, "ledgerdesk-test"))

	var none *Providers
	assert.Same(t, base, none.BridgeLogger(base, "ledgerdesk-test"))
}
