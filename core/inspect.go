package core

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/optical-pce/internal/disagg"
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"github.com/signalsfoundry/optical-pce/internal/logging"
	"github.com/signalsfoundry/optical-pce/internal/measure"
	"github.com/signalsfoundry/optical-pce/model"
)

// Inspection is a read-only view of the disaggregated graph and its
// evaluated links, for operators checking what the engine sees.
type Inspection struct {
	Nodes    []InspectedNode  `json:"nodes"`
	Links    []InspectedLink  `json:"links"`
	Groups   []InspectedGroup `json:"forwarding_groups,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// InspectedNode is one disaggregated node.
type InspectedNode struct {
	ID         string   `json:"id"`
	Supporting string   `json:"supporting"`
	Kind       string   `json:"kind"`
	InService  bool     `json:"in_service"`
	Ports      []string `json:"ports"`
	FreeSlots  *int     `json:"free_slots,omitempty"`
}

// InspectedLink is one directed link with its evaluated metrics.
type InspectedLink struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Opposite       string  `json:"opposite,omitempty"`
	InService      bool    `json:"in_service"`
	SpanLossDB     float64 `json:"span_loss_db,omitempty"`
	SpanLossSource string  `json:"span_loss_source,omitempty"`
	LatencyUs      float64 `json:"latency_us"`
	OSNRdB         float64 `json:"osnr_db,omitempty"`
	FreeSlots      *int    `json:"free_slots,omitempty"`
	LongestFreeRun *int    `json:"longest_free_run,omitempty"`
	AvailableMbps  *int64  `json:"available_mbps,omitempty"`
}

// InspectedGroup is one forwarding group.
type InspectedGroup struct {
	Supporting string   `json:"supporting"`
	Name       string   `json:"name"`
	Nodes      []string `json:"nodes"`
}

// Inspect disaggregates and evaluates snap without running a search.
func (e *Engine) Inspect(ctx context.Context, snap *model.TopologySnapshot) (*Inspection, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil topology snapshot", ErrMalformedRequest)
	}
	g, err := disagg.Build(ctx, snap, disagg.Options{Workers: e.cfg.Search.Workers})
	if err != nil {
		return nil, e.inspectError(err)
	}

	var loss map[string]float64
	var warnings []string
	if e.source != nil {
		m, err := measure.Gather(logging.ContextWithLogger(ctx, e.log), e.source, roadmIDs(snap), e.cfg.Search.Workers)
		if err != nil {
			return nil, err
		}
		loss = m.Loss
		warnings = m.Warnings
	}
	cfg := e.cfg.LinkEval
	if cfg.Workers == 0 {
		cfg.Workers = e.cfg.Search.Workers
	}
	ev, err := linkeval.Evaluate(ctx, g, cfg, loss)
	if err != nil {
		return nil, e.inspectError(err)
	}
	led := ledger.New(g, e.cfg.Grid)

	out := &Inspection{Warnings: mergeWarnings(g.Warnings, warnings, ev.Warnings)}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		in := InspectedNode{
			ID:         n.ID,
			Supporting: n.Supporting,
			Kind:       n.Kind.String(),
			InService:  n.InService(),
		}
		for _, p := range n.Ports {
			in.Ports = append(in.Ports, g.Port(p).ID)
		}
		if s := led.NodeSpectrum(graph.NodeIndex(i)); s != nil {
			free := s.FreeCount()
			in.FreeSlots = &free
		}
		out.Nodes = append(out.Nodes, in)
	}
	for i := range g.Links {
		l := &g.Links[i]
		m := ev.Link(graph.LinkIndex(i))
		il := InspectedLink{
			ID:             l.ID,
			Kind:           l.Kind.String(),
			From:           g.PortRef(l.SrcPort),
			To:             g.PortRef(l.DstPort),
			InService:      l.InService(),
			SpanLossDB:     m.SpanLossDB,
			SpanLossSource: string(m.SpanLossSource),
			LatencyUs:      m.LatencyUs,
		}
		if m.Opposite != graph.NoLink {
			il.Opposite = g.Link(m.Opposite).ID
		}
		if m.NoiseLinear > 0 {
			il.OSNRdB = math.Round(linkeval.OSNRFromNoise(m.NoiseLinear)*100) / 100
		}
		if s := led.LinkSpectrum(graph.LinkIndex(i)); s != nil {
			free, run := s.FreeCount(), s.LongestRun()
			il.FreeSlots, il.LongestFreeRun = &free, &run
		}
		if bw, ok := led.LinkBandwidth(graph.LinkIndex(i)); ok {
			avail := bw.AvailableMbps
			il.AvailableMbps = &avail
		}
		out.Links = append(out.Links, il)
	}
	for _, fg := range g.Groups {
		ig := InspectedGroup{Supporting: fg.Supporting, Name: fg.Name}
		for _, n := range fg.Nodes {
			ig.Nodes = append(ig.Nodes, g.Node(n).ID)
		}
		out.Groups = append(out.Groups, ig)
	}
	return out, nil
}

func (e *Engine) inspectError(err error) error {
	if isCancellation(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
}
