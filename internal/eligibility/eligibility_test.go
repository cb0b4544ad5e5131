package eligibility

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/optical-pce/internal/disagg"
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/topotest"
	"github.com/signalsfoundry/optical-pce/model"
)

func build(t *testing.T, snap *model.TopologySnapshot) *graph.Graph {
	t.Helper()
	g, err := disagg.Build(context.Background(), snap, disagg.Options{})
	if err != nil {
		t.Fatalf("disagg.Build: %v", err)
	}
	return g
}

func assess(t *testing.T, g *graph.Graph, req *model.ServiceRequest) *Assessment {
	t.Helper()
	p, ok := ProfileFor(req.ServiceType)
	if !ok {
		t.Fatalf("no profile for %s", req.ServiceType)
	}
	a, err := Assess(g, req, p)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	return a
}

func port(t *testing.T, g *graph.Graph, node, id string) graph.PortIndex {
	t.Helper()
	p, ok := g.PortByRef(node, id)
	if !ok {
		t.Fatalf("port %s/%s not in graph", node, id)
	}
	return p
}

// occupyNetwork marks an xponder's network port as carrying a signal.
func occupyNetwork(snap *model.TopologySnapshot, node string, layer model.Layer) {
	n := snap.Node(node)
	for i := range n.Ports {
		if n.Ports[i].ID == topotest.Network {
			n.Ports[i].Occupancy = model.OccupancyProvisioned
			n.Ports[i].OccupiedLayer = layer
		}
	}
}

func TestOccupiedNetworkStaysPassThroughForClient(t *testing.T) {
	snap := topotest.Linear()
	occupyNetwork(snap, "XPDR-A", model.LayerOTU4)
	g := build(t, snap)

	req := &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Client(2)),
		ZEnd:        topotest.TP("XPDR-C", topotest.Client(2)),
		ServiceType: model.Service10GE,
	}
	a := assess(t, g, req)

	client := port(t, g, "XPDR-A", topotest.Client(2))
	network := port(t, g, "XPDR-A", topotest.Network)
	if diff := cmp.Diff([]graph.PortIndex{client}, a.A.Ports); diff != "" {
		t.Fatalf("A candidates (-want +got):\n%s", diff)
	}
	if a.A.HasPort(network) {
		t.Fatalf("occupied network port must not be an endpoint")
	}
	if !a.PassThrough(network) {
		t.Fatalf("occupied network port must remain a pass-through point")
	}
	if !a.NodeValid(g.Port(network).Node) {
		t.Fatalf("xponder node should be valid")
	}
}

func TestOccupiedPortLayerCompatibility(t *testing.T) {
	snap := topotest.Linear()
	occupyNetwork(snap, "XPDR-A", model.LayerODU4)
	g := build(t, snap)
	network := port(t, g, "XPDR-A", topotest.Network)

	req := &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Network),
		ZEnd:        topotest.TP("XPDR-C", topotest.Network),
		ServiceType: model.ServiceOTU4,
	}
	a := assess(t, g, req)
	if a.A.HasPort(network) || !a.A.Empty() {
		t.Fatalf("ODU4-occupied port selected for an OTU4 service")
	}
	if !a.PassThrough(network) {
		t.Fatalf("port should stay a pass-through point")
	}

	// Same layer and named: re-establishing an existing signal.
	req.ServiceType = model.ServiceODU4
	a = assess(t, g, req)
	if !a.A.HasPort(network) {
		t.Fatalf("named ODU4-occupied port should be an ODU4 endpoint")
	}

	// Same layer but not named.
	req.AEnd = topotest.TP("XPDR-A", "")
	a = assess(t, g, req)
	if a.A.HasPort(network) {
		t.Fatalf("unnamed occupied port must not be an endpoint")
	}
}

func TestParentUnavailableExcludesClientTransitively(t *testing.T) {
	snap := topotest.Linear()
	n := snap.Node("XPDR-A")
	n.Ports[0].AdminState = model.AdminLocked
	g := build(t, snap)

	req := &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", ""),
		ZEnd:        topotest.TP("XPDR-C", ""),
		ServiceType: model.Service10GE,
	}
	a := assess(t, g, req)
	if !a.A.Empty() {
		t.Fatalf("A candidates = %v, want none", a.A.Ports)
	}
	if len(a.Z.Ports) != 4 {
		t.Fatalf("Z candidates = %d, want 4", len(a.Z.Ports))
	}
	if a.PassThrough(port(t, g, "XPDR-A", topotest.Client(1))) {
		t.Fatalf("client over a locked network port cannot pass traffic")
	}
}

func TestPhotonicClientNeedsFreeNetworkPort(t *testing.T) {
	snap := topotest.Ring()
	occupyNetwork(snap, "XPDR-A", model.LayerOTU4)
	g := build(t, snap)
	req := &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Client(1)),
		ZEnd:        topotest.TP("XPDR-C", topotest.Client(1)),
		ServiceType: model.Service100GET,
	}
	a := assess(t, g, req)
	if !a.A.Empty() {
		t.Fatalf("A candidates = %v, want none", a.A.Ports)
	}
	if a.Z.Empty() {
		t.Fatalf("Z side should have a candidate")
	}
}

func TestPhotonicClientNeedsFreeAttachableNetworkPort(t *testing.T) {
	req := &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Client(1)),
		ZEnd:        topotest.TP("XPDR-C", topotest.Client(1)),
		ServiceType: model.Service100GET,
	}

	// The free second port is not one the client rides on.
	snap := topotest.Ring()
	topotest.Occupy(snap, "XPDR-A", topotest.Network, model.LayerOTU4)
	topotest.AddNetwork(snap, "XPDR-A", "ROADM-A", 1, 2)
	a := assess(t, build(t, snap), req)
	if !a.A.Empty() {
		t.Fatalf("client over an occupied parent: A candidates = %v, want none", a.A.Ports)
	}

	// Without a declared parent any free network port will do.
	snap.Node("XPDR-A").Port(topotest.Client(1)).ParentPortID = ""
	g := build(t, snap)
	a = assess(t, g, req)
	client := port(t, g, "XPDR-A", topotest.Client(1))
	if diff := cmp.Diff([]graph.PortIndex{client}, a.A.Ports); diff != "" {
		t.Fatalf("A candidates (-want +got):\n%s", diff)
	}

	// A free parent qualifies even when another network port is busy.
	snap = topotest.Ring()
	topotest.AddNetwork(snap, "XPDR-A", "ROADM-A", 1, 2)
	topotest.Occupy(snap, "XPDR-A", topotest.Network2, model.LayerOTU4)
	a = assess(t, build(t, snap), req)
	if a.A.Empty() {
		t.Fatalf("client over a free parent should be a candidate")
	}
}

func TestNodeValidityFollowsServiceLayer(t *testing.T) {
	g := build(t, topotest.Linear())
	deg, _ := g.NodeByID("ROADM-A-DEG1")

	photonic := assess(t, g, &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Network),
		ZEnd:        topotest.TP("XPDR-C", topotest.Network),
		ServiceType: model.ServiceOTU4,
	})
	if !photonic.NodeValid(deg) {
		t.Fatalf("degree should be valid for a photonic service")
	}

	otn := assess(t, g, &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Client(1)),
		ZEnd:        topotest.TP("XPDR-C", topotest.Client(1)),
		ServiceType: model.Service10GE,
	})
	if otn.NodeValid(deg) {
		t.Fatalf("degree must not carry an OTN service")
	}
}

func TestNodeConstraints(t *testing.T) {
	g := build(t, topotest.Ring())
	req := &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Client(1)),
		ZEnd:        topotest.TP("XPDR-C", topotest.Client(1)),
		ServiceType: model.Service100GET,
		Constraints: model.Constraints{
			ExcludeNodes: []string{"ROADM-B", "NOPE"},
			IncludeNodes: []string{"ROADM-C-DEG2"},
		},
	}
	a := assess(t, g, req)
	for _, n := range g.NodesOf("ROADM-B") {
		if a.NodeValid(n) || a.Transit(n) {
			t.Fatalf("%s should be excluded", g.Node(n).ID)
		}
	}
	if len(a.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one for the unknown exclude", a.Warnings)
	}
	if len(a.Includes) != 1 || len(a.Includes[0]) != 1 {
		t.Fatalf("includes = %v", a.Includes)
	}

	req.Constraints.IncludeNodes = []string{"ROADM-Q"}
	p, _ := ProfileFor(req.ServiceType)
	if _, err := Assess(g, req, p); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("err = %v, want ErrUnknownNode", err)
	}
}

func TestOCHTerminatesOnAddDropPorts(t *testing.T) {
	g := build(t, topotest.TwoRoadms())
	a := assess(t, g, &model.ServiceRequest{
		AEnd:        topotest.TP("ROADM-A", topotest.SrgPP(1, 1)),
		ZEnd:        topotest.TP("ROADM-B", topotest.SrgPP(1, 2)),
		ServiceType: model.ServiceOCH,
	})
	if a.A.Empty() || a.Z.Empty() {
		t.Fatalf("OCH endpoints missing: A=%v Z=%v", a.A.Ports, a.Z.Ports)
	}
	srg, _ := g.NodeByID("ROADM-A-SRG1")
	if !a.A.HasNode(srg) {
		t.Fatalf("A side should hold ROADM-A-SRG1")
	}
}

func TestAttachPort(t *testing.T) {
	g := build(t, topotest.Linear())
	client := port(t, g, "XPDR-A", topotest.Client(1))
	network := port(t, g, "XPDR-A", topotest.Network)
	other := port(t, g, "XPDR-A", topotest.Client(2))
	if !AttachPort(g, client, network) {
		t.Fatalf("client should attach through its network port")
	}
	if AttachPort(g, client, other) {
		t.Fatalf("client must not attach through a sibling client")
	}
	pp := port(t, g, "ROADM-A", topotest.SrgPP(1, 2))
	vp := g.Node(g.Port(pp).Node).Roadm.VirtualPort
	if !AttachPort(g, pp, vp) {
		t.Fatalf("ROADM endpoints switch internally")
	}
}

func TestTransitNodes(t *testing.T) {
	g := build(t, topotest.Ring())
	a := assess(t, g, &model.ServiceRequest{
		AEnd:        topotest.TP("XPDR-A", topotest.Client(1)),
		ZEnd:        topotest.TP("XPDR-C", topotest.Client(1)),
		ServiceType: model.Service100GET,
	})
	xa := g.NodesOf("XPDR-A")[0]
	if !a.NodeValid(xa) || a.Transit(xa) {
		t.Fatalf("endpoint xponder: valid=%v transit=%v, want valid only", a.NodeValid(xa), a.Transit(xa))
	}
	deg, _ := g.NodeByID("ROADM-B-DEG1")
	if !a.Transit(deg) {
		t.Fatalf("ROADM degree should be a transit node")
	}
}
