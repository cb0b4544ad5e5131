// Package disagg turns a topology snapshot into the disaggregated graph:
// ROADMs split into degree and SRG group nodes wired by synthesized
// add/drop/express links, xponders split along their switching fabric.
package disagg

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/optical-pce/internal/fanout"
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/model"
)

var (
	ErrNilSnapshot = errors.New("nil topology snapshot")
	ErrEmptyNodeID = errors.New("snapshot node with empty id")
)

// Options tunes Build.
type Options struct {
	// Workers bounds the per-node fan-out; <= 0 uses GOMAXPROCS.
	Workers int
}

// Build disaggregates every snapshot node, resolves the snapshot links
// against the resulting ports and returns the finished graph. The
// snapshot is only read.
func Build(ctx context.Context, snap *model.TopologySnapshot, opts Options) (*graph.Graph, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	fragments, err := fanout.Map(ctx, opts.Workers, snap.Nodes, func(_ context.Context, _ int, n model.SnapshotNode) (*graph.Fragment, error) {
		return Node(&n)
	})
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	for _, f := range fragments {
		if err := b.Append(f); err != nil {
			return nil, err
		}
	}

	for i := range snap.Links {
		addSnapshotLink(b, &snap.Links[i])
	}

	return b.Finish()
}

// Node disaggregates a single snapshot node. A node that yields no usable
// group returns an empty fragment rather than an error.
func Node(n *model.SnapshotNode) (*graph.Fragment, error) {
	if n.ID == "" {
		return nil, ErrEmptyNodeID
	}
	switch n.Role {
	case model.RoleROADM:
		return roadm(n), nil
	case model.RoleXponder:
		return xponder(n), nil
	default:
		f := &graph.Fragment{}
		f.Warnf("%s: unsupported device role %q, node skipped", n.ID, n.Role)
		return f, nil
	}
}

func linkKind(k model.LinkKind) graph.LinkKind {
	switch k {
	case model.LinkRoadmToRoadm:
		return graph.RoadmToRoadm
	case model.LinkXponderInput:
		return graph.XponderInput
	case model.LinkXponderOutput:
		return graph.XponderOutput
	case model.LinkOTN:
		return graph.OtnLink
	default:
		return graph.LinkUnknown
	}
}

func addSnapshotLink(b *graph.Builder, sl *model.SnapshotLink) {
	kind := linkKind(sl.Kind)
	if kind == graph.LinkUnknown {
		b.Warnf("link %s: unknown kind %q, skipped", sl.ID, sl.Kind)
		return
	}
	src, ok := b.PortByRef(sl.Source.NodeID, sl.Source.PortID)
	if !ok {
		b.Warnf("link %s: source %s/%s not in graph, skipped", sl.ID, sl.Source.NodeID, sl.Source.PortID)
		return
	}
	dst, ok := b.PortByRef(sl.Dest.NodeID, sl.Dest.PortID)
	if !ok {
		b.Warnf("link %s: destination %s/%s not in graph, skipped", sl.ID, sl.Dest.NodeID, sl.Dest.PortID)
		return
	}

	l := graph.Link{
		ID:            sl.ID,
		Kind:          kind,
		Src:           b.Port(src).Node,
		SrcPort:       src,
		Dst:           b.Port(dst).Node,
		DstPort:       dst,
		OppositeID:    sl.OppositeLinkID,
		Admin:         sl.AdminState,
		Oper:          sl.OperState,
		LengthKm:      sl.LengthKm,
		SpanLossDB:    sl.SpanLossDB,
		CDPsPerNm:     sl.CDPsPerNm,
		PMD2Ps2:       sl.PMD2Ps2,
		LatencyUs:     sl.LatencyUs,
		UsedSlots:     sl.UsedSlots,
		OTNLayer:      sl.OTNLayer,
		AvailableMbps: sl.AvailableBandwidthMbps,
		UsedMbps:      sl.UsedBandwidthMbps,
		SRLGs:         sl.SRLGs,
	}
	if _, err := b.AddLink(l); err != nil {
		b.Warnf("link %s: %v", sl.ID, err)
	}
}

func convertPort(p *model.SnapshotPort, kind graph.PortKind) graph.Port {
	occ := p.Occupancy
	if occ == "" {
		occ = model.OccupancyNone
	}
	return graph.Port{
		ID:            p.ID,
		Kind:          kind,
		Admin:         p.AdminState,
		Oper:          p.OperState,
		Occupancy:     occ,
		OccupiedLayer: p.OccupiedLayer,
		Capabilities:  p.Capabilities,
		ParentID:      p.ParentPortID,
		UsedSlots:     p.UsedSlots,
	}
}

func groupName(prefix string, n int) string {
	return fmt.Sprintf("%s%d", prefix, n)
}
