// ABOUTME: Tests for core telemetry interface and no-op implementation functionality
// ABOUTME: Validates telemetry recording, span creation, and lifecycle management using real telemetry operations

package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestNoopTelemetryDiscardsEverything(t *testing.T) {
	tel := NewNoop()
	ctx := context.Background()

	// None of these should panic or block; NoopTelemetry has nothing to
	// assert against beyond "does not misbehave".
	tel.RecordHistogram(ctx, "some.histogram", 1.23, attribute.String("k", "v"))
	tel.RecordCounter(ctx, "some.counter", 5, attribute.String("k", "v"))

	newCtx, span := tel.StartSpan(ctx, "op")
	if newCtx != ctx {
		t.Fatal("NoopTelemetry.StartSpan should return the same context it was given")
	}
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewForTestingReturnsUsableTelemetry(t *testing.T) {
	tel := NewForTesting()
	if tel == nil {
		t.Fatal("NewForTesting should never return nil")
	}
	ctx, span := tel.StartSpan(context.Background(), "probe")
	span.End()
	if ctx == nil {
		t.Fatal("StartSpan should return a non-nil context")
	}
}

func TestRecordDurationUsesElapsedSeconds(t *testing.T) {
	rec := &recordingTelemetry{}
	start := time.Now().Add(-50 * time.Millisecond)
	RecordDuration(context.Background(), rec, "op.duration", start)
	if len(rec.histograms) != 1 {
		t.Fatalf("got %d histogram records, want 1", len(rec.histograms))
	}
	if rec.histograms[0].value <= 0 {
		t.Fatalf("recorded duration = %v, want a positive value", rec.histograms[0].value)
	}
}

func TestRecordBytesRecordsCounter(t *testing.T) {
	rec := &recordingTelemetry{}
	RecordBytes(context.Background(), rec, "bytes.read", 128)
	if len(rec.counters) != 1 || rec.counters[0].value != 128 {
		t.Fatalf("counters = %+v, want one entry with value 128", rec.counters)
	}
}

// recordingTelemetry captures calls for assertions without depending on the
// OpenTelemetry SDK's internal state.
type recordingTelemetry struct {
	histograms []struct {
		name  string
		value float64
	}
	counters []struct {
		name  string
		value int64
	}
}

func (r *recordingTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	r.histograms = append(r.histograms, struct {
		name  string
		value float64
	}{name, value})
}

func (r *recordingTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	r.counters = append(r.counters, struct {
		name  string
		value int64
	}{name, value})
}

func (r *recordingTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (r *recordingTelemetry) Shutdown(ctx context.Context) error { return nil }
