// Package topotest builds small topology snapshots for tests.
package topotest

import (
	"fmt"

	"github.com/signalsfoundry/optical-pce/model"
)

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// TP builds a termination point.
func TP(node, port string) model.TerminationPoint {
	return model.TerminationPoint{NodeID: node, PortID: port}
}

// DegreeTTP names the line port of a degree.
func DegreeTTP(deg int) string { return fmt.Sprintf("DEG%d-TTP-TXRX", deg) }

// SrgPP names an add/drop port of an SRG.
func SrgPP(srg, pp int) string { return fmt.Sprintf("SRG%d-PP%d-TXRX", srg, pp) }

// Client names the i-th client port of an xponder.
func Client(i int) string { return fmt.Sprintf("XPDR1-CLIENT%d", i) }

// Network is the single network port of the fixtures' xponders.
const Network = "XPDR1-NETWORK1"

// Roadm returns a ROADM with the given number of degrees and SRGs.
func Roadm(id string, degrees, srgs, ppPerSrg int) model.SnapshotNode {
	n := model.SnapshotNode{ID: id, Role: model.RoleROADM}
	for d := 1; d <= degrees; d++ {
		n.Ports = append(n.Ports, model.SnapshotPort{ID: DegreeTTP(d), Kind: model.PortDegree, Group: d})
	}
	for s := 1; s <= srgs; s++ {
		for pp := 1; pp <= ppPerSrg; pp++ {
			n.Ports = append(n.Ports, model.SnapshotPort{ID: SrgPP(s, pp), Kind: model.PortSRG, Group: s})
		}
	}
	return n
}

// Transponder returns a TPDR with one 100GE client riding over one OTU4
// network port.
func Transponder(id string) model.SnapshotNode {
	return model.SnapshotNode{
		ID:          id,
		Role:        model.RoleXponder,
		XponderType: model.XponderTPDR,
		Ports: []model.SnapshotPort{
			{ID: Network, Kind: model.PortNetwork, Capabilities: []string{"OTU4", "ODU4"}},
			{ID: Client(1), Kind: model.PortClient, Capabilities: []string{"100GE"}, ParentPortID: Network},
		},
	}
}

// Muxponder returns a MUXPDR with n 10GE clients multiplexed onto one
// network port.
func Muxponder(id string, clients int) model.SnapshotNode {
	node := model.SnapshotNode{
		ID:          id,
		Role:        model.RoleXponder,
		XponderType: model.XponderMUXPDR,
		Ports: []model.SnapshotPort{
			{ID: Network, Kind: model.PortNetwork, Capabilities: []string{"OTU4", "ODU4"}},
		},
	}
	for i := 1; i <= clients; i++ {
		node.Ports = append(node.Ports, model.SnapshotPort{
			ID:           Client(i),
			Kind:         model.PortClient,
			Capabilities: []string{"10GE", "1GE"},
			ParentPortID: Network,
		})
	}
	return node
}

// LinkID names a link after its termination points.
func LinkID(a, z model.TerminationPoint) string {
	return fmt.Sprintf("%s-%sto%s-%s", a.NodeID, a.PortID, z.NodeID, z.PortID)
}

// Bidi returns the two directions of a link, each naming the other as
// opposite. tune, when set, is applied to both directions.
func Bidi(kind model.LinkKind, a, z model.TerminationPoint, tune func(*model.SnapshotLink)) []model.SnapshotLink {
	fwd := model.SnapshotLink{ID: LinkID(a, z), Kind: kind, Source: a, Dest: z}
	rev := model.SnapshotLink{ID: LinkID(z, a), Kind: kind, Source: z, Dest: a}
	if kind == model.LinkXponderOutput {
		rev.Kind = model.LinkXponderInput
	}
	fwd.OppositeLinkID = rev.ID
	rev.OppositeLinkID = fwd.ID
	if tune != nil {
		tune(&fwd)
		tune(&rev)
	}
	return []model.SnapshotLink{fwd, rev}
}

// Span sets the fibre attributes of a ROADM-to-ROADM link.
func Span(lengthKm, spanLossDB, latencyUs float64) func(*model.SnapshotLink) {
	return func(l *model.SnapshotLink) {
		l.LengthKm = lengthKm
		l.SpanLossDB = Float(spanLossDB)
		if latencyUs > 0 {
			l.LatencyUs = Float(latencyUs)
		}
	}
}

// Attach connects an xponder's network port to an SRG add/drop port.
func Attach(xpdr, roadm string, srg, pp int) []model.SnapshotLink {
	return Bidi(model.LinkXponderOutput, TP(xpdr, Network), TP(roadm, SrgPP(srg, pp)), nil)
}

// TwoRoadms is two single-degree ROADMs joined by one 100 km span with
// 12 dB loss and 501 µs latency.
func TwoRoadms() *model.TopologySnapshot {
	snap := &model.TopologySnapshot{
		Nodes: []model.SnapshotNode{
			Roadm("ROADM-A", 1, 1, 2),
			Roadm("ROADM-B", 1, 1, 2),
		},
	}
	snap.Links = append(snap.Links, Bidi(model.LinkRoadmToRoadm,
		TP("ROADM-A", DegreeTTP(1)), TP("ROADM-B", DegreeTTP(1)), Span(100, 12.0, 501))...)
	return snap
}

// Linear is XPDR-A - ROADM-A - ROADM-C - XPDR-C with muxponders at both
// ends and an ODU4 OTN link between them.
func Linear() *model.TopologySnapshot {
	snap := &model.TopologySnapshot{
		Nodes: []model.SnapshotNode{
			Muxponder("XPDR-A", 4),
			Roadm("ROADM-A", 1, 1, 4),
			Roadm("ROADM-C", 1, 1, 4),
			Muxponder("XPDR-C", 4),
		},
	}
	snap.Links = append(snap.Links, Attach("XPDR-A", "ROADM-A", 1, 1)...)
	snap.Links = append(snap.Links, Attach("XPDR-C", "ROADM-C", 1, 1)...)
	snap.Links = append(snap.Links, Bidi(model.LinkRoadmToRoadm,
		TP("ROADM-A", DegreeTTP(1)), TP("ROADM-C", DegreeTTP(1)), Span(80, 20, 0))...)
	snap.Links = append(snap.Links, Bidi(model.LinkOTN,
		TP("XPDR-A", Network), TP("XPDR-C", Network), func(l *model.SnapshotLink) {
			l.OTNLayer = model.LayerODU4
			l.AvailableBandwidthMbps = 100000
		})...)
	return snap
}

// Ring is three two-degree ROADMs in a ring with a transponder on ROADM-A
// and one on ROADM-C. The direct A-C span is shorter than going through
// ROADM-B.
func Ring() *model.TopologySnapshot {
	snap := &model.TopologySnapshot{
		Nodes: []model.SnapshotNode{
			Transponder("XPDR-A"),
			Roadm("ROADM-A", 2, 1, 2),
			Roadm("ROADM-B", 2, 1, 2),
			Roadm("ROADM-C", 2, 1, 2),
			Transponder("XPDR-C"),
		},
	}
	snap.Links = append(snap.Links, Attach("XPDR-A", "ROADM-A", 1, 1)...)
	snap.Links = append(snap.Links, Attach("XPDR-C", "ROADM-C", 1, 1)...)
	snap.Links = append(snap.Links, Bidi(model.LinkRoadmToRoadm,
		TP("ROADM-A", DegreeTTP(1)), TP("ROADM-B", DegreeTTP(2)), Span(50, 11, 0))...)
	snap.Links = append(snap.Links, Bidi(model.LinkRoadmToRoadm,
		TP("ROADM-B", DegreeTTP(1)), TP("ROADM-C", DegreeTTP(2)), Span(50, 11, 0))...)
	snap.Links = append(snap.Links, Bidi(model.LinkRoadmToRoadm,
		TP("ROADM-A", DegreeTTP(2)), TP("ROADM-C", DegreeTTP(1)), Span(80, 18, 0))...)
	return snap
}

// MarkSlotsUsed marks used slots on every direction of the named links.
func MarkSlotsUsed(snap *model.TopologySnapshot, ranges []model.SlotRange, linkIDs ...string) {
	want := map[string]bool{}
	for _, id := range linkIDs {
		want[id] = true
	}
	for i := range snap.Links {
		if want[snap.Links[i].ID] {
			snap.Links[i].UsedSlots = append(snap.Links[i].UsedSlots, ranges...)
		}
	}
}

// Network2 names the second network port added by AddNetwork.
const Network2 = "XPDR1-NETWORK2"

// AddNetwork gives xpdr a free second OTU4 network port attached to an
// add/drop port of roadm.
func AddNetwork(snap *model.TopologySnapshot, xpdr, roadm string, srg, pp int) {
	n := snap.Node(xpdr)
	n.Ports = append(n.Ports, model.SnapshotPort{ID: Network2, Kind: model.PortNetwork, Capabilities: []string{"OTU4", "ODU4"}})
	snap.Links = append(snap.Links, Bidi(model.LinkXponderOutput, TP(xpdr, Network2), TP(roadm, SrgPP(srg, pp)), nil)...)
}

// Occupy marks port of node as carrying a signal of layer.
func Occupy(snap *model.TopologySnapshot, node, port string, layer model.Layer) {
	p := snap.Node(node).Port(port)
	p.Occupancy = model.OccupancyProvisioned
	p.OccupiedLayer = layer
}

// DualHomedSwitch is a muxponder MUX joined to a switch SW by two ODU4
// OTN links, one per network port. The MUX client rides on no port in
// particular; the SW client rides on XPDR1-NETWORK2 only. latency1 and
// latency2 set the one-way latency of the two OTN links.
func DualHomedSwitch(latency1, latency2 float64) *model.TopologySnapshot {
	xpdr := func(id string, typ model.XponderType, parent string) model.SnapshotNode {
		return model.SnapshotNode{
			ID:          id,
			Role:        model.RoleXponder,
			XponderType: typ,
			Ports: []model.SnapshotPort{
				{ID: Network, Kind: model.PortNetwork, Capabilities: []string{"OTU4", "ODU4"}},
				{ID: Network2, Kind: model.PortNetwork, Capabilities: []string{"OTU4", "ODU4"}},
				{ID: Client(1), Kind: model.PortClient, Capabilities: []string{"10GE", "1GE"}, ParentPortID: parent},
			},
		}
	}
	snap := &model.TopologySnapshot{
		Nodes: []model.SnapshotNode{
			xpdr("MUX", model.XponderMUXPDR, ""),
			xpdr("SW", model.XponderSwitch, Network2),
		},
	}
	otn := func(latency float64) func(*model.SnapshotLink) {
		return func(l *model.SnapshotLink) {
			l.OTNLayer = model.LayerODU4
			l.AvailableBandwidthMbps = 100000
			l.LatencyUs = Float(latency)
		}
	}
	snap.Links = append(snap.Links, Bidi(model.LinkOTN, TP("MUX", Network), TP("SW", Network), otn(latency1))...)
	snap.Links = append(snap.Links, Bidi(model.LinkOTN, TP("MUX", Network2), TP("SW", Network2), otn(latency2))...)
	return snap
}
