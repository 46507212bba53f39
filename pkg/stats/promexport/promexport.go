// Package promexport exposes a store.Collector snapshot as Prometheus
// metrics, grounded on the retrieved vecgo observability example's
// MetricsObserver-over-prometheus pattern.
package promexport

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VioletaStepanyan/ukv/pkg/store"
)

// Exporter serves a store.Collector's Snapshot as a Prometheus collector.
// Unlike the teacher's push-based instrumentation, the underlying
// Collector already aggregates atomically; Exporter only translates its
// flat snapshot map into typed Prometheus samples on each scrape.
type Exporter struct {
	collector *store.Collector

	opCount      *prometheus.Desc
	opLatencySum *prometheus.Desc
	opLatencyMax *prometheus.Desc
	opLatencyMin *prometheus.Desc
	errorCount   *prometheus.Desc
	bytes        *prometheus.Desc
}

// New builds an Exporter over collector. Call prometheus.MustRegister(e)
// (or use ListenAndServe below) to start serving it.
func New(collector *store.Collector) *Exporter {
	return &Exporter{
		collector:    collector,
		opCount:      prometheus.NewDesc("ukv_store_op_total", "Total store operations by type.", []string{"op"}, nil),
		opLatencySum: prometheus.NewDesc("ukv_store_op_latency_seconds_sum", "Cumulative op latency in seconds.", []string{"op"}, nil),
		opLatencyMax: prometheus.NewDesc("ukv_store_op_latency_seconds_max", "Maximum observed op latency in seconds.", []string{"op"}, nil),
		opLatencyMin: prometheus.NewDesc("ukv_store_op_latency_seconds_min", "Minimum observed op latency in seconds.", []string{"op"}, nil),
		errorCount:   prometheus.NewDesc("ukv_store_errors_total", "Total errors by kind.", []string{"kind"}, nil),
		bytes:        prometheus.NewDesc("ukv_store_bytes_total", "Total bytes moved, by direction.", []string{"direction"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.opCount
	ch <- e.opLatencySum
	ch <- e.opLatencyMax
	ch <- e.opLatencyMin
	ch <- e.errorCount
	ch <- e.bytes
}

// Collect implements prometheus.Collector, scraping a fresh snapshot each
// call (Collector.Snapshot loads each counter atomically, but does not read
// all of them at one single instant).
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.collector.Snapshot()
	for key, raw := range snap {
		switch {
		case strings.HasPrefix(key, "op.") && strings.HasSuffix(key, ".count"):
			op := strings.TrimSuffix(strings.TrimPrefix(key, "op."), ".count")
			ch <- prometheus.MustNewConstMetric(e.opCount, prometheus.CounterValue, toFloat(raw), op)
		case strings.HasPrefix(key, "op.") && strings.HasSuffix(key, ".latency_sum_ns"):
			op := strings.TrimSuffix(strings.TrimPrefix(key, "op."), ".latency_sum_ns")
			ch <- prometheus.MustNewConstMetric(e.opLatencySum, prometheus.CounterValue, toFloat(raw)/1e9, op)
		case strings.HasPrefix(key, "op.") && strings.HasSuffix(key, ".latency_max_ns"):
			op := strings.TrimSuffix(strings.TrimPrefix(key, "op."), ".latency_max_ns")
			ch <- prometheus.MustNewConstMetric(e.opLatencyMax, prometheus.GaugeValue, toFloat(raw)/1e9, op)
		case strings.HasPrefix(key, "op.") && strings.HasSuffix(key, ".latency_min_ns"):
			op := strings.TrimSuffix(strings.TrimPrefix(key, "op."), ".latency_min_ns")
			ch <- prometheus.MustNewConstMetric(e.opLatencyMin, prometheus.GaugeValue, toFloat(raw)/1e9, op)
		case strings.HasPrefix(key, "error.") && strings.HasSuffix(key, ".count"):
			kind := strings.TrimSuffix(strings.TrimPrefix(key, "error."), ".count")
			ch <- prometheus.MustNewConstMetric(e.errorCount, prometheus.CounterValue, toFloat(raw), kind)
		case key == "bytes_read":
			ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, toFloat(raw), "read")
		case key == "bytes_written":
			ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, toFloat(raw), "write")
		}
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case uint64:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// ListenAndServe registers a fresh registry carrying collector's metrics
// and serves it at addr under /metrics, blocking until the server exits
// (mirrors the teacher pack's promhttp.Handler() pattern).
func ListenAndServe(addr string, collector *store.Collector) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(New(collector))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
