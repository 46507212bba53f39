// ABOUTME: OpenTelemetry exporter factory for creating metric and trace exporters (stdout)
// ABOUTME: Prometheus export is handled separately by pkg/stats/promexport, over the plain atomic collector

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// createMetricExporters builds one metric.Exporter per configured exporter
// name that has an OTel bridge. "prometheus" is accepted in Config but
// produces no OTel exporter here: prometheus scraping is served directly
// off store.Collector by pkg/stats/promexport instead.
func createMetricExporters(cfg Config) ([]metric.Exporter, error) {
	var exporters []metric.Exporter
	for _, name := range cfg.Exporters {
		if name != "stdout" {
			continue
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}
	if len(exporters) == 0 {
		exp, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create default stdout metric exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}
	return exporters, nil
}

// createTraceExporters builds one trace.SpanExporter per configured stdout
// exporter entry.
func createTraceExporters(cfg Config) ([]trace.SpanExporter, error) {
	var exporters []trace.SpanExporter
	for _, name := range cfg.Exporters {
		if name != "stdout" {
			continue
		}
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}
	if len(exporters) == 0 {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create default stdout trace exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}
	return exporters, nil
}
