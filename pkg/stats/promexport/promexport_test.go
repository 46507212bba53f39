package promexport

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/VioletaStepanyan/ukv/pkg/store"
)

func collect(t *testing.T, e *Exporter) []*dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 64)
	go func() {
		e.Collect(ch)
		close(ch)
	}()

	var out []*dto.Metric
	for m := range ch {
		pb := &dto.Metric{}
		if err := m.Write(pb); err != nil {
			t.Fatalf("Write: %v", err)
		}
		out = append(out, pb)
	}
	return out
}

// collectFrom is collect limited to the metrics built from desc.
func collectFrom(t *testing.T, e *Exporter, desc *prometheus.Desc) []*dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 64)
	go func() {
		e.Collect(ch)
		close(ch)
	}()

	var out []*dto.Metric
	for m := range ch {
		if m.Desc() != desc {
			continue
		}
		pb := &dto.Metric{}
		if err := m.Write(pb); err != nil {
			t.Fatalf("Write: %v", err)
		}
		out = append(out, pb)
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestDescribeEmitsSixDescriptors(t *testing.T) {
	e := New(store.NewCollector())
	ch := make(chan *prometheus.Desc, 16)
	e.Describe(ch)
	close(ch)
	n := 0
	for range ch {
		n++
	}
	if n != 6 {
		t.Fatalf("Describe emitted %d descriptors, want 6", n)
	}
}

func TestCollectReflectsOperationCounts(t *testing.T) {
	c := store.NewCollector()
	c.Track(store.OpRead, 10*time.Millisecond)
	c.Track(store.OpRead, 20*time.Millisecond)
	c.Track(store.OpWrite, 5*time.Millisecond)

	e := New(c)
	metrics := collectFrom(t, e, e.opCount)

	var readCount, writeCount float64
	found := false
	for _, m := range metrics {
		if m.Counter == nil {
			continue
		}
		switch labelValue(m, "op") {
		case "read":
			if m.Counter.GetValue() > 0 {
				readCount = m.Counter.GetValue()
				found = true
			}
		case "write":
			if m.Counter.GetValue() > 0 {
				writeCount = m.Counter.GetValue()
			}
		}
	}
	if !found || readCount != 2 {
		t.Fatalf("read op count = %v, want 2", readCount)
	}
	if writeCount != 1 {
		t.Fatalf("write op count = %v, want 1", writeCount)
	}
}

func TestCollectReflectsErrorCounts(t *testing.T) {
	c := store.NewCollector()
	c.TrackError("NotFound")
	c.TrackError("NotFound")
	c.TrackError("InvalidArgument")

	metrics := collect(t, New(c))

	counts := map[string]float64{}
	for _, m := range metrics {
		if m.Counter == nil {
			continue
		}
		if kind := labelValue(m, "kind"); kind != "" {
			counts[kind] = m.Counter.GetValue()
		}
	}
	if counts["NotFound"] != 2 {
		t.Fatalf("NotFound count = %v, want 2", counts["NotFound"])
	}
	if counts["InvalidArgument"] != 1 {
		t.Fatalf("InvalidArgument count = %v, want 1", counts["InvalidArgument"])
	}
}

func TestCollectReflectsBytesReadAndWritten(t *testing.T) {
	c := store.NewCollector()
	c.TrackBytes(false, 100)
	c.TrackBytes(true, 250)

	metrics := collect(t, New(c))

	var read, written float64
	for _, m := range metrics {
		if m.Counter == nil {
			continue
		}
		switch labelValue(m, "direction") {
		case "read":
			read = m.Counter.GetValue()
		case "write":
			written = m.Counter.GetValue()
		}
	}
	if read != 100 {
		t.Fatalf("bytes read = %v, want 100", read)
	}
	if written != 250 {
		t.Fatalf("bytes written = %v, want 250", written)
	}
}

func TestCollectOnEmptyCollectorEmitsOnlyZeroByteCounters(t *testing.T) {
	metrics := collect(t, New(store.NewCollector()))
	if len(metrics) != 2 {
		t.Fatalf("got %d metrics from an empty collector, want 2 (bytes read and written)", len(metrics))
	}
	for _, m := range metrics {
		if m.Counter == nil || labelValue(m, "direction") == "" || m.Counter.GetValue() != 0 {
			t.Fatalf("unexpected metric from an empty collector: %v", m)
		}
	}
}

func TestToFloatHandlesKnownNumericTypes(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{uint64(7), 7},
		{int64(-3), -3},
		{int(42), 42},
		{float64(1.5), 1.5},
		{"not-a-number", 0},
	}
	for _, c := range cases {
		if got := toFloat(c.in); got != c.want {
			t.Fatalf("toFloat(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
