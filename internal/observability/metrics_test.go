package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRecordsComputation(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPCECollector(reg)
	if err != nil {
		t.Fatalf("NewPCECollector: %v", err)
	}

	collector.ObserveComputation("success", "none", 3*time.Millisecond)
	collector.ObserveComputation("no-path", "SpectrumExhausted", time.Millisecond)
	collector.ObserveStage("search", time.Millisecond)
	collector.ObserveStage("search", 2*time.Millisecond)

	if got := testutil.ToFloat64(collector.Computations.WithLabelValues("success", "none")); got != 1 {
		t.Fatalf("pce_computations_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Computations.WithLabelValues("no-path", "SpectrumExhausted")); got != 1 {
		t.Fatalf("pce_computations_total{no-path} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "pce_computation_duration_seconds", nil); count != 2 {
		t.Fatalf("pce_computation_duration_seconds sample_count = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "pce_stage_duration_seconds", map[string]string{"stage": "search"}); count != 2 {
		t.Fatalf("pce_stage_duration_seconds{search} sample_count = %d, want 2", count)
	}
}

func TestCollectorGraphAndSearchCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPCECollector(reg)
	if err != nil {
		t.Fatalf("NewPCECollector: %v", err)
	}

	collector.SetGraphSize(12, 30)
	collector.AddExpansions(7)
	collector.AddExpansions(0)
	collector.AddPrunes("dominance", 3)
	collector.AddPrunes("joint", -1)

	if got := testutil.ToFloat64(collector.GraphNodes); got != 12 {
		t.Fatalf("pce_graph_nodes = %v, want 12", got)
	}
	if got := testutil.ToFloat64(collector.GraphLinks); got != 30 {
		t.Fatalf("pce_graph_links = %v, want 30", got)
	}
	if got := testutil.ToFloat64(collector.Expansions); got != 7 {
		t.Fatalf("pce_search_expansions_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.Prunes.WithLabelValues("dominance")); got != 3 {
		t.Fatalf("pce_search_pruned_total{dominance} = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(collector.Prunes); got != 1 {
		t.Fatalf("pce_search_pruned_total series = %d, want 1", got)
	}
}

func TestCollectorToleratesReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPCECollector(reg)
	if err != nil {
		t.Fatalf("NewPCECollector: %v", err)
	}
	second, err := NewPCECollector(reg)
	if err != nil {
		t.Fatalf("second NewPCECollector: %v", err)
	}

	second.AddExpansions(2)
	if got := testutil.ToFloat64(first.Expansions); got != 2 {
		t.Fatalf("shared expansion counter = %v, want 2", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *PCECollector
	c.ObserveComputation("success", "none", time.Millisecond)
	c.ObserveStage("search", time.Millisecond)
	c.SetGraphSize(1, 1)
	c.AddExpansions(1)
	c.AddPrunes("bound", 1)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector Gatherer() should be nil")
	}
}

func TestWriteSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPCECollector(reg)
	if err != nil {
		t.Fatalf("NewPCECollector: %v", err)
	}
	collector.SetGraphSize(4, 9)
	collector.ObserveComputation("success", "none", time.Millisecond)

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, collector.Gatherer()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"pce_graph_nodes 4\n",
		"pce_graph_links 9\n",
		`pce_computations_total{cause="none",status="success"} 1`,
		"pce_computation_duration_seconds count=1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("snapshot missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "pce_computation_duration_seconds") > strings.Index(out, "pce_graph_links") {
		t.Fatalf("snapshot not sorted by name:\n%s", out)
	}
}

func TestTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Fatalf("disabled tracing produced a valid span context")
	}
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PCE_TRACING_ENABLED", "true")
	t.Setenv("PCE_TRACING_EXPORTER", "OTLP")
	t.Setenv("PCE_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("PCE_TRACING_SERVICE_NAME", "")
	t.Setenv("PCE_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 {
		t.Fatalf("TracingConfigFromEnv = %+v", cfg)
	}
	if cfg.ServiceName != "pce" {
		t.Fatalf("ServiceName = %q, want pce", cfg.ServiceName)
	}
	if cfg.Endpoint != "collector:4317" {
		t.Fatalf("Endpoint = %q, want collector:4317", cfg.Endpoint)
	}
}

func TestUnsupportedExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("InitTracing with unsupported exporter: want error")
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
