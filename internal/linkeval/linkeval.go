// Package linkeval derives the per-link optical and timing metrics the
// search accumulates along candidate paths, and pairs every link with
// its opposite direction.
package linkeval

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/optical-pce/internal/fanout"
	"github.com/signalsfoundry/optical-pce/internal/graph"
)

// ErrInternalInconsistency marks a graph that contradicts itself, such as
// an opposite-link pairing that is not reciprocal.
var ErrInternalInconsistency = errors.New("internal inconsistency")

// speedOfLightKmPerUs is c in km/µs.
const speedOfLightKmPerUs = 0.299792458

// Config holds the fibre coefficients used when a link does not carry a
// measured or provisioned value.
type Config struct {
	CDPsPerNmKm       float64  `yaml:"cd_ps_nm_km" validate:"gte=0"`
	PMDPsPerSqrtKm    float64  `yaml:"pmd_ps_sqrt_km" validate:"gte=0"`
	GroupIndex        float64  `yaml:"group_index" validate:"gt=0"`
	SpanLossDBPerKm   float64  `yaml:"span_loss_db_per_km" validate:"gte=0"`
	SpanLossCeilingDB float64  `yaml:"span_loss_ceiling_db" validate:"gt=0"`
	ASE               ASEModel `yaml:"ase"`
	Workers           int      `yaml:"workers" validate:"gte=0"`

	// OSNR overrides the ASE model when set.
	OSNR OSNRModel `yaml:"-"`
}

// DefaultConfig returns standard single-mode fibre coefficients.
func DefaultConfig() Config {
	return Config{
		CDPsPerNmKm:       16.5,
		PMDPsPerSqrtKm:    0.1,
		GroupIndex:        1.5,
		SpanLossDBPerKm:   0.25,
		SpanLossCeilingDB: 28,
		ASE:               DefaultASEModel(),
	}
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.CDPsPerNmKm == 0 {
		c.CDPsPerNmKm = def.CDPsPerNmKm
	}
	if c.PMDPsPerSqrtKm == 0 {
		c.PMDPsPerSqrtKm = def.PMDPsPerSqrtKm
	}
	if c.GroupIndex == 0 {
		c.GroupIndex = def.GroupIndex
	}
	if c.SpanLossDBPerKm == 0 {
		c.SpanLossDBPerKm = def.SpanLossDBPerKm
	}
	if c.SpanLossCeilingDB == 0 {
		c.SpanLossCeilingDB = def.SpanLossCeilingDB
	}
	if c.ASE == (ASEModel{}) {
		c.ASE = def.ASE
	}
}

func (c *Config) osnr() OSNRModel {
	if c.OSNR != nil {
		return c.OSNR
	}
	return c.ASE
}

// SpanLossSource records where a link's span loss came from.
type SpanLossSource string

const (
	SpanLossNone        SpanLossSource = ""
	SpanLossMeasured    SpanLossSource = "measured"
	SpanLossProvisioned SpanLossSource = "provisioned"
	SpanLossDerived     SpanLossSource = "derived"
)

// Metrics are the evaluated properties of one link.
type Metrics struct {
	SpanLossDB     float64
	SpanLossSource SpanLossSource
	CDPsPerNm      float64
	PMD2Ps2        float64
	LatencyUs      float64
	// NoiseLinear is the link's contribution to 1/OSNR.
	NoiseLinear float64
	SRLGs       []uint32

	// Opposite is the resolved return direction, or NoLink.
	Opposite       graph.LinkIndex
	Unidirectional bool

	Warnings []string
}

// Evaluation holds the metrics of every link of a graph, indexed like
// Graph.Links.
type Evaluation struct {
	Links    []Metrics
	Warnings []string
}

// Link returns the metrics of link i.
func (e *Evaluation) Link(i graph.LinkIndex) *Metrics { return &e.Links[i] }

// Evaluate computes the metrics of every link of g. measuredLoss holds
// span-loss readings by link ID and takes precedence over provisioned
// values.
func Evaluate(ctx context.Context, g *graph.Graph, cfg Config, measuredLoss map[string]float64) (*Evaluation, error) {
	cfg.ApplyDefaults()
	idx := make([]graph.LinkIndex, len(g.Links))
	for i := range idx {
		idx[i] = graph.LinkIndex(i)
	}

	metrics, err := fanout.Map(ctx, cfg.Workers, idx, func(_ context.Context, _ int, li graph.LinkIndex) (Metrics, error) {
		return evaluateLink(g, &cfg, li, measuredLoss)
	})
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{Links: metrics}
	for i := range metrics {
		ev.Warnings = append(ev.Warnings, metrics[i].Warnings...)
	}
	return ev, nil
}

func evaluateLink(g *graph.Graph, cfg *Config, li graph.LinkIndex, measuredLoss map[string]float64) (Metrics, error) {
	l := g.Link(li)
	m := Metrics{Opposite: graph.NoLink}
	if len(l.SRLGs) > 0 {
		m.SRLGs = append([]uint32(nil), l.SRLGs...)
	}

	opp, err := resolveOpposite(g, li)
	if err != nil {
		return m, err
	}
	m.Opposite = opp
	if opp == graph.NoLink {
		m.Unidirectional = true
		if l.OppositeID == "" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("link %s: no opposite declared, unidirectional", l.ID))
		} else {
			m.Warnings = append(m.Warnings, fmt.Sprintf("link %s: opposite %q not in graph, unidirectional", l.ID, l.OppositeID))
		}
	}

	m.LatencyUs = latencyUs(l, cfg)

	if l.Kind != graph.RoadmToRoadm {
		// Digital and intra-site links add no dispersion or noise.
		return m, nil
	}

	switch v, ok := measuredLoss[l.ID]; {
	case ok:
		m.SpanLossDB, m.SpanLossSource = v, SpanLossMeasured
	case l.SpanLossDB != nil:
		m.SpanLossDB, m.SpanLossSource = *l.SpanLossDB, SpanLossProvisioned
	default:
		m.SpanLossDB, m.SpanLossSource = l.LengthKm*cfg.SpanLossDBPerKm, SpanLossDerived
	}
	if m.SpanLossDB > cfg.SpanLossCeilingDB {
		m.Warnings = append(m.Warnings, fmt.Sprintf("link %s: span loss %.1f dB above ceiling %.1f dB", l.ID, m.SpanLossDB, cfg.SpanLossCeilingDB))
	}

	if l.CDPsPerNm != nil {
		m.CDPsPerNm = *l.CDPsPerNm
	} else {
		m.CDPsPerNm = l.LengthKm * cfg.CDPsPerNmKm
	}
	if l.PMD2Ps2 != nil {
		m.PMD2Ps2 = *l.PMD2Ps2
	} else {
		m.PMD2Ps2 = cfg.PMDPsPerSqrtKm * cfg.PMDPsPerSqrtKm * l.LengthKm
	}
	m.NoiseLinear = cfg.osnr().NoiseLinear(m.SpanLossDB)
	return m, nil
}

// latencyUs is the measured latency, or the propagation delay of the
// fibre length rounded up to a whole microsecond.
func latencyUs(l *graph.Link, cfg *Config) float64 {
	if l.LatencyUs != nil {
		return *l.LatencyUs
	}
	if l.LengthKm <= 0 {
		return 0
	}
	return math.Ceil(l.LengthKm*cfg.GroupIndex/speedOfLightKmPerUs - 1e-9)
}

// resolveOpposite returns the return direction of li. A declared opposite
// that is missing from the graph yields NoLink; one that is present but
// does not point back or does not mirror the endpoints is an
// inconsistency.
func resolveOpposite(g *graph.Graph, li graph.LinkIndex) (graph.LinkIndex, error) {
	l := g.Link(li)
	if l.OppositeID == "" {
		return graph.NoLink, nil
	}
	oi, ok := g.LinkByID(l.OppositeID)
	if !ok {
		return graph.NoLink, nil
	}
	o := g.Link(oi)
	if oi == li || o.OppositeID != l.ID {
		return graph.NoLink, fmt.Errorf("%w: link %q names opposite %q which names %q", ErrInternalInconsistency, l.ID, o.ID, o.OppositeID)
	}
	if o.Src != l.Dst || o.Dst != l.Src || o.SrcPort != l.DstPort || o.DstPort != l.SrcPort {
		return graph.NoLink, fmt.Errorf("%w: links %q and %q do not mirror each other", ErrInternalInconsistency, l.ID, o.ID)
	}
	return oi, nil
}
