package disagg

import (
	"fmt"

	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/model"
)

// xponder builds the nodes of a transponder, muxponder or switch. A
// non-blocking fabric yields a single node; a switch with declared pools
// yields one node per pool that owns at least one network port.
func xponder(n *model.SnapshotNode) *graph.Fragment {
	f := &graph.Fragment{}

	xtype := n.XponderType
	if xtype == "" {
		f.Warnf("%s: xponder type not declared, assuming %s", n.ID, model.XponderTPDR)
		xtype = model.XponderTPDR
	}

	usable := make([]*model.SnapshotPort, 0, len(n.Ports))
	for i := range n.Ports {
		p := &n.Ports[i]
		if p.Kind != model.PortClient && p.Kind != model.PortNetwork {
			f.Warnf("%s/%s: port kind %q not valid on an xponder, ignored", n.ID, p.ID, p.Kind)
			continue
		}
		usable = append(usable, p)
	}

	switch xtype {
	case model.XponderTPDR:
		addXponderNode(f, n, xtype, graph.XponderTransponder, "XPDR1", "", usable)
	case model.XponderMUXPDR:
		addXponderNode(f, n, xtype, graph.XponderMux, "XPDR1", "", usable)
	case model.XponderSwitch:
		if len(n.SwitchingGroups) == 0 {
			if node, ok := addXponderNode(f, n, xtype, graph.XponderSwitch, "XPDR1", "", usable); ok {
				f.Groups = append(f.Groups, graph.ForwardingGroup{Supporting: n.ID, Name: "non-blocking", Nodes: []graph.NodeIndex{node}})
			}
			return f
		}
		switchPools(f, n, usable)
	default:
		f.Warnf("%s: unsupported xponder type %q, node skipped", n.ID, xtype)
	}
	return f
}

func switchPools(f *graph.Fragment, n *model.SnapshotNode, usable []*model.SnapshotPort) {
	byID := make(map[string]*model.SnapshotPort, len(usable))
	for _, p := range usable {
		byID[p.ID] = p
	}
	owner := map[string]string{}
	for i, sg := range n.SwitchingGroups {
		pool := sg.Name
		if pool == "" {
			pool = fmt.Sprintf("POOL%d", i+1)
		}
		var ports []*model.SnapshotPort
		for _, m := range sg.Members {
			p, ok := byID[m]
			if !ok {
				f.Warnf("%s: switching pool %s names unknown port %q", n.ID, pool, m)
				continue
			}
			if prev, taken := owner[m]; taken {
				f.Warnf("%s/%s: port listed in pools %s and %s, kept in %s", n.ID, m, prev, pool, prev)
				continue
			}
			owner[m] = pool
			ports = append(ports, p)
		}
		if node, ok := addXponderNode(f, n, model.XponderSwitch, graph.XponderSwitch, pool, pool, ports); ok {
			f.Groups = append(f.Groups, graph.ForwardingGroup{Supporting: n.ID, Name: pool, Nodes: []graph.NodeIndex{node}})
		}
	}
	for _, p := range usable {
		if _, ok := owner[p.ID]; !ok {
			f.Warnf("%s/%s: port belongs to no switching pool, ignored", n.ID, p.ID)
		}
	}
}

func addXponderNode(f *graph.Fragment, n *model.SnapshotNode, xtype model.XponderType, kind graph.NodeKind, suffix, pool string, ports []*model.SnapshotPort) (graph.NodeIndex, bool) {
	networks := 0
	for _, p := range ports {
		if p.Kind == model.PortNetwork {
			networks++
		}
	}
	if networks == 0 {
		f.Warnf("%s %s: no network port, no node built", n.ID, suffix)
		return graph.NoNode, false
	}

	node := f.AddNode(graph.Node{
		ID:         fmt.Sprintf("%s-%s", n.ID, suffix),
		Supporting: n.ID,
		Kind:       kind,
		Admin:      n.AdminState,
		Oper:       n.OperState,
		Xponder:    &graph.XponderFabric{Type: xtype, Pool: pool},
	})
	for _, p := range ports {
		pk := graph.PortClient
		if p.Kind == model.PortNetwork {
			pk = graph.PortNetwork
		}
		f.AddPort(node, convertPort(p, pk))
	}
	return node, true
}
