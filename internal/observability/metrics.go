package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// PCECollector bundles the Prometheus metrics of the path computation
// engine.
type PCECollector struct {
	gatherer prometheus.Gatherer

	Computations        *prometheus.CounterVec
	ComputationDuration prometheus.Histogram
	StageDuration       *prometheus.HistogramVec
	GraphNodes          prometheus.Gauge
	GraphLinks          prometheus.Gauge
	Expansions          prometheus.Counter
	Prunes              *prometheus.CounterVec
}

// NewPCECollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPCECollector(reg prometheus.Registerer) (*PCECollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	computations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pce_computations_total",
		Help: "Total number of path computations, labeled by result status and failure cause.",
	}, []string{"status", "cause"}), "pce_computations_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pce_computation_duration_seconds",
		Help:    "Duration of complete path computations.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "pce_computation_duration_seconds")
	if err != nil {
		return nil, err
	}

	stages, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pce_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"stage"}), "pce_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pce_graph_nodes",
		Help: "Number of disaggregated nodes in the most recent graph.",
	}), "pce_graph_nodes")
	if err != nil {
		return nil, err
	}
	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pce_graph_links",
		Help: "Number of links, internal ones included, in the most recent graph.",
	}), "pce_graph_links")
	if err != nil {
		return nil, err
	}

	expansions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pce_search_expansions_total",
		Help: "Cumulative number of labels expanded by the path search.",
	}), "pce_search_expansions_total")
	if err != nil {
		return nil, err
	}

	prunes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pce_search_pruned_total",
		Help: "Cumulative number of pruned expansions, labeled by reason.",
	}, []string{"reason"}), "pce_search_pruned_total")
	if err != nil {
		return nil, err
	}

	return &PCECollector{
		gatherer:            gatherer,
		Computations:        computations,
		ComputationDuration: duration,
		StageDuration:       stages,
		GraphNodes:          nodes,
		GraphLinks:          links,
		Expansions:          expansions,
		Prunes:              prunes,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PCECollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveComputation records the outcome and duration of one computation.
// Successful computations use cause "none".
func (c *PCECollector) ObserveComputation(status, cause string, d time.Duration) {
	if c == nil {
		return
	}
	if c.Computations != nil {
		c.Computations.WithLabelValues(status, cause).Inc()
	}
	if c.ComputationDuration != nil {
		c.ComputationDuration.Observe(d.Seconds())
	}
}

// ObserveStage records the duration of one pipeline stage.
func (c *PCECollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDuration == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetGraphSize updates the graph size gauges.
func (c *PCECollector) SetGraphSize(nodes, links int) {
	if c == nil {
		return
	}
	if c.GraphNodes != nil {
		c.GraphNodes.Set(float64(nodes))
	}
	if c.GraphLinks != nil {
		c.GraphLinks.Set(float64(links))
	}
}

// AddExpansions adds to the expansion counter.
func (c *PCECollector) AddExpansions(n int) {
	if c == nil || c.Expansions == nil || n <= 0 {
		return
	}
	c.Expansions.Add(float64(n))
}

// AddPrunes adds n pruned expansions for reason.
func (c *PCECollector) AddPrunes(reason string, n int) {
	if c == nil || c.Prunes == nil || n <= 0 {
		return
	}
	c.Prunes.WithLabelValues(reason).Add(float64(n))
}

// WriteSnapshot writes the current value of every gathered metric as
// "name{labels} value" lines, sorted by name. Histograms are reported by
// sample count and sum.
func WriteSnapshot(w io.Writer, g prometheus.Gatherer) error {
	if g == nil {
		return nil
	}
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				_, err = fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				_, err = fmt.Fprintf(w, "%s %g\n", name, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				_, err = fmt.Fprintf(w, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
