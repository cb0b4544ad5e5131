package disagg

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/model"
)

type roadmGroup struct {
	number int
	name   string
	ports  []*model.SnapshotPort
	node   graph.NodeIndex
	vport  graph.PortIndex
}

// roadm splits a ROADM into one node per degree and one per SRG, each
// with a virtual connection point, and synthesizes the internal links
// the forwarding rules allow.
func roadm(n *model.SnapshotNode) *graph.Fragment {
	f := &graph.Fragment{}

	degrees := map[int]*roadmGroup{}
	srgs := map[int]*roadmGroup{}
	for i := range n.Ports {
		p := &n.Ports[i]
		var into map[int]*roadmGroup
		var prefix string
		switch p.Kind {
		case model.PortDegree:
			into, prefix = degrees, "DEG"
		case model.PortSRG:
			into, prefix = srgs, "SRG"
		default:
			f.Warnf("%s/%s: port kind %q not valid on a ROADM, ignored", n.ID, p.ID, p.Kind)
			continue
		}
		if p.Group <= 0 {
			f.Warnf("%s/%s: missing group number, ignored", n.ID, p.ID)
			continue
		}
		grp, ok := into[p.Group]
		if !ok {
			grp = &roadmGroup{number: p.Group, name: groupName(prefix, p.Group)}
			into[p.Group] = grp
		}
		grp.ports = append(grp.ports, p)
	}

	degList := sortedGroups(degrees)
	srgList := sortedGroups(srgs)

	for _, d := range degList {
		addRoadmGroup(f, n, d, graph.RoadmDegree, graph.PortDegreeTTP, graph.PortVirtualCTP, "CTP-TXRX")
	}
	for _, s := range srgList {
		addRoadmGroup(f, n, s, graph.RoadmSrg, graph.PortSrgPP, graph.PortVirtualCP, "CP-TXRX")
	}

	allowed := forwardingRule(f, n, degList, srgList)

	for _, d := range degList {
		for _, s := range srgList {
			if !allowed(d.name, s.name) {
				continue
			}
			addID := internalLinkID(f, s, d)
			dropID := internalLinkID(f, d, s)
			f.AddLink(internalLink(addID, dropID, graph.AddLink, s, d))
			f.AddLink(internalLink(dropID, addID, graph.DropLink, d, s))
		}
	}
	for i, a := range degList {
		for _, c := range degList[i+1:] {
			if !allowed(a.name, c.name) {
				continue
			}
			ac := internalLinkID(f, a, c)
			ca := internalLinkID(f, c, a)
			f.AddLink(internalLink(ac, ca, graph.ExpressLink, a, c))
			f.AddLink(internalLink(ca, ac, graph.ExpressLink, c, a))
		}
	}
	return f
}

func sortedGroups(m map[int]*roadmGroup) []*roadmGroup {
	out := make([]*roadmGroup, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

func addRoadmGroup(f *graph.Fragment, n *model.SnapshotNode, grp *roadmGroup, kind graph.NodeKind, portKind, virtualKind graph.PortKind, virtualSuffix string) {
	var used []model.SlotRange
	for _, p := range grp.ports {
		used = append(used, p.UsedSlots...)
	}
	grp.node = f.AddNode(graph.Node{
		ID:         fmt.Sprintf("%s-%s", n.ID, grp.name),
		Supporting: n.ID,
		Kind:       kind,
		Admin:      n.AdminState,
		Oper:       n.OperState,
		Roadm: &graph.RoadmGroup{
			Number:      grp.number,
			Name:        grp.name,
			VirtualPort: graph.NoPort,
			UsedSlots:   used,
		},
	})
	for _, p := range grp.ports {
		f.AddPort(grp.node, convertPort(p, portKind))
	}
	grp.vport = f.AddPort(grp.node, graph.Port{
		ID:        fmt.Sprintf("%s-%s", grp.name, virtualSuffix),
		Kind:      virtualKind,
		Occupancy: model.OccupancyNone,
	})
	f.Nodes[grp.node].Roadm.VirtualPort = grp.vport
}

// forwardingRule records the forwarding groups of the ROADM and returns
// the predicate deciding whether two groups may switch to each other.
func forwardingRule(f *graph.Fragment, n *model.SnapshotNode, degs, srgs []*roadmGroup) func(a, b string) bool {
	byName := map[string]*roadmGroup{}
	for _, g := range degs {
		byName[g.name] = g
	}
	for _, g := range srgs {
		byName[g.name] = g
	}

	if len(n.SwitchingGroups) == 0 {
		all := graph.ForwardingGroup{Supporting: n.ID, Name: "full-mesh"}
		for _, g := range degs {
			all.Nodes = append(all.Nodes, g.node)
		}
		for _, g := range srgs {
			all.Nodes = append(all.Nodes, g.node)
		}
		if len(all.Nodes) > 0 {
			f.Groups = append(f.Groups, all)
		}
		return func(string, string) bool { return true }
	}

	var sets []map[string]bool
	for i, sg := range n.SwitchingGroups {
		name := sg.Name
		if name == "" {
			name = fmt.Sprintf("group-%d", i+1)
		}
		fg := graph.ForwardingGroup{Supporting: n.ID, Name: name}
		set := map[string]bool{}
		for _, m := range sg.Members {
			g, ok := byName[m]
			if !ok {
				f.Warnf("%s: forwarding group %s names unknown group %q", n.ID, name, m)
				continue
			}
			set[m] = true
			fg.Nodes = append(fg.Nodes, g.node)
		}
		sets = append(sets, set)
		f.Groups = append(f.Groups, fg)
	}
	return func(a, b string) bool {
		for _, s := range sets {
			if s[a] && s[b] {
				return true
			}
		}
		return false
	}
}

func internalLinkID(f *graph.Fragment, from, to *roadmGroup) string {
	return fmt.Sprintf("%s-%sto%s-%s",
		f.Nodes[from.node].ID, f.Ports[from.vport].ID,
		f.Nodes[to.node].ID, f.Ports[to.vport].ID)
}

func internalLink(id, opposite string, kind graph.LinkKind, from, to *roadmGroup) graph.Link {
	return graph.Link{
		ID:         id,
		Kind:       kind,
		Src:        from.node,
		SrcPort:    from.vport,
		Dst:        to.node,
		DstPort:    to.vport,
		OppositeID: opposite,
	}
}
