package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func twoNodeFragment(supporting string) *Fragment {
	f := &Fragment{}
	a := f.AddNode(Node{ID: supporting + "-XPDR1", Supporting: supporting, Kind: XponderMux})
	f.AddPort(a, Port{ID: "NETWORK1", Kind: PortNetwork})
	f.AddPort(a, Port{ID: "CLIENT1", Kind: PortClient, ParentID: "NETWORK1"})
	return f
}

func TestBuilderRebasesFragments(t *testing.T) {
	b := NewBuilder()
	if err := b.Append(twoNodeFragment("XPDR-A")); err != nil {
		t.Fatalf("Append A: %v", err)
	}
	if err := b.Append(twoNodeFragment("XPDR-C")); err != nil {
		t.Fatalf("Append C: %v", err)
	}
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	n, ok := g.NodeByID("XPDR-C-XPDR1")
	if !ok {
		t.Fatalf("node XPDR-C-XPDR1 not found")
	}
	if n != 1 {
		t.Fatalf("node index = %d, want 1", n)
	}
	if diff := cmp.Diff([]PortIndex{2, 3}, g.Node(n).Ports); diff != "" {
		t.Fatalf("ports mismatch (-want +got):\n%s", diff)
	}
	client, ok := g.PortByRef("XPDR-C", "CLIENT1")
	if !ok {
		t.Fatalf("client port not found")
	}
	if g.Port(client).Node != n {
		t.Fatalf("client port node = %d, want %d", g.Port(client).Node, n)
	}
	if diff := cmp.Diff([]PortIndex{2}, g.ParentChain(client)); diff != "" {
		t.Fatalf("parent chain mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderRejectsDuplicateNode(t *testing.T) {
	b := NewBuilder()
	if err := b.Append(twoNodeFragment("XPDR-A")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	err := b.Append(twoNodeFragment("XPDR-A"))
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("err = %v, want ErrDuplicateNode", err)
	}
}

func TestFinishDetectsLayerCycle(t *testing.T) {
	f := &Fragment{}
	n := f.AddNode(Node{ID: "X-XPDR1", Supporting: "X", Kind: XponderSwitch})
	f.AddPort(n, Port{ID: "P1", Kind: PortClient, ParentID: "P2"})
	f.AddPort(n, Port{ID: "P2", Kind: PortNetwork, ParentID: "P3"})
	f.AddPort(n, Port{ID: "P3", Kind: PortNetwork, ParentID: "P1"})

	b := NewBuilder()
	if err := b.Append(f); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := b.Finish(); !errors.Is(err, ErrLayerCycle) {
		t.Fatalf("Finish err = %v, want ErrLayerCycle", err)
	}
}

func TestFinishWarnsOnMissingParent(t *testing.T) {
	f := &Fragment{}
	n := f.AddNode(Node{ID: "X-XPDR1", Supporting: "X", Kind: XponderMux})
	p := f.AddPort(n, Port{ID: "CLIENT1", Kind: PortClient, ParentID: "NETWORK9"})

	b := NewBuilder()
	if err := b.Append(f); err != nil {
		t.Fatalf("Append: %v", err)
	}
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if g.Port(p).Parent != NoPort {
		t.Fatalf("parent = %d, want NoPort", g.Port(p).Parent)
	}
	if len(g.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", g.Warnings)
	}
}

func TestAdjacencyIsSortedByLinkID(t *testing.T) {
	f := &Fragment{}
	a := f.AddNode(Node{ID: "R-DEG1", Supporting: "R", Kind: RoadmDegree})
	c := f.AddNode(Node{ID: "R-SRG1", Supporting: "R", Kind: RoadmSrg})
	f.AddLink(Link{ID: "z-link", Kind: DropLink, Src: a, Dst: c, SrcPort: NoPort, DstPort: NoPort})
	f.AddLink(Link{ID: "a-link", Kind: DropLink, Src: a, Dst: c, SrcPort: NoPort, DstPort: NoPort})

	b := NewBuilder()
	if err := b.Append(f); err != nil {
		t.Fatalf("Append: %v", err)
	}
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if got := g.Link(g.Out[0][0]).ID; got != "a-link" {
		t.Fatalf("first out link = %q, want a-link", got)
	}
	if len(g.In[1]) != 2 {
		t.Fatalf("in-degree = %d, want 2", len(g.In[1]))
	}
}

func TestKindCapabilities(t *testing.T) {
	if !RoadmSrg.Capabilities().SpectrumLedger {
		t.Fatalf("RoadmSrg should carry a spectrum ledger")
	}
	if XponderMux.Capabilities().ForwardingGroups {
		t.Fatalf("XponderMux is non-blocking and has no forwarding groups")
	}
	if !AddLink.IsInternal() || OtnLink.IsPhotonic() {
		t.Fatalf("unexpected link kind classification")
	}
}
