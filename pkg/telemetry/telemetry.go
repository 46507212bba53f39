// ABOUTME: Core telemetry abstraction interface over OpenTelemetry for store/paths/gather instrumentation
// ABOUTME: Provides metric creation, tracing, and lifecycle management with optional no-op implementations

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the abstraction store, paths and gather code instrument
// through, so none of them depend directly on OpenTelemetry.
type Telemetry interface {
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)
	RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	Shutdown(ctx context.Context) error
}

// NoopTelemetry discards everything; used when telemetry is disabled or in
// tests that exercise real components without a collector.
type NoopTelemetry struct{}

func NewNoop() Telemetry { return &NoopTelemetry{} }

func (n *NoopTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
}

func (n *NoopTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
}

func (n *NoopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (n *NoopTelemetry) Shutdown(ctx context.Context) error { return nil }

// RecordDuration records an operation's wall time in a histogram named
// name, in seconds, as measured from start.
func RecordDuration(ctx context.Context, tel Telemetry, name string, start time.Time, attrs ...attribute.KeyValue) {
	tel.RecordHistogram(ctx, name, time.Since(start).Seconds(), attrs...)
}

// RecordBytes records a byte count in a counter named name.
func RecordBytes(ctx context.Context, tel Telemetry, name string, bytes int64, attrs ...attribute.KeyValue) {
	tel.RecordCounter(ctx, name, bytes, attrs...)
}

// Common attribute keys.
const (
	AttrOperation = "operation"
	AttrComponent = "component"
	AttrStatus    = "status"
	AttrErrorKind = "error.kind"
	AttrCollCount = "collection.count"
)

// Common attribute values.
const (
	StatusOk    = "ok"
	StatusError = "error"

	ComponentStore = "store"
	ComponentPaths = "paths"
	ComponentGather = "gather"

	OpRead       = "read"
	OpWrite      = "write"
	OpScan       = "scan"
	OpTxnCommit  = "txn_commit"
	OpTxnAbort   = "txn_abort"
	OpPathsWrite = "paths_write"
	OpPathsRead  = "paths_read"
	OpPathsMatch = "paths_match"
	OpGather     = "gather"
)
