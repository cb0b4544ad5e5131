package graph

import (
	"fmt"
	"sort"
)

// Fragment is the output of disaggregating one physical node. Indexes
// inside a fragment are local to it; Builder.Append rebases them.
type Fragment struct {
	Nodes    []Node
	Ports    []Port
	Links    []Link
	Groups   []ForwardingGroup
	Warnings []string
}

// AddNode appends n and returns its local index.
func (f *Fragment) AddNode(n Node) NodeIndex {
	f.Nodes = append(f.Nodes, n)
	return NodeIndex(len(f.Nodes) - 1)
}

// AddPort appends p to node n and returns its local index.
func (f *Fragment) AddPort(n NodeIndex, p Port) PortIndex {
	p.Node = n
	// Parents are resolved by ID in Finish.
	p.Parent = NoPort
	f.Ports = append(f.Ports, p)
	idx := PortIndex(len(f.Ports) - 1)
	f.Nodes[n].Ports = append(f.Nodes[n].Ports, idx)
	return idx
}

// AddLink appends an internal link and returns its local index.
func (f *Fragment) AddLink(l Link) LinkIndex {
	f.Links = append(f.Links, l)
	return LinkIndex(len(f.Links) - 1)
}

// Warnf records a non-fatal problem.
func (f *Fragment) Warnf(format string, args ...any) {
	f.Warnings = append(f.Warnings, fmt.Sprintf(format, args...))
}

// Builder assembles a Graph from fragments and external links.
type Builder struct {
	g *Graph
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{g: &Graph{
		nodeByID:     make(map[string]NodeIndex),
		portByRef:    make(map[portKey]PortIndex),
		linkByID:     make(map[string]LinkIndex),
		bySupporting: make(map[string][]NodeIndex),
	}}
}

// Append merges a fragment into the graph, rebasing its indexes.
func (b *Builder) Append(f *Fragment) error {
	if f == nil {
		return nil
	}
	g := b.g
	nodeBase := NodeIndex(len(g.Nodes))
	portBase := PortIndex(len(g.Ports))

	for _, n := range f.Nodes {
		if _, exists := g.nodeByID[n.ID]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		ports := make([]PortIndex, len(n.Ports))
		for i, p := range n.Ports {
			ports[i] = p + portBase
		}
		n.Ports = ports
		if n.Roadm != nil {
			rg := *n.Roadm
			if rg.VirtualPort != NoPort {
				rg.VirtualPort += portBase
			}
			n.Roadm = &rg
		}
		idx := NodeIndex(len(g.Nodes))
		g.Nodes = append(g.Nodes, n)
		g.nodeByID[n.ID] = idx
		g.bySupporting[n.Supporting] = append(g.bySupporting[n.Supporting], idx)
	}

	for _, p := range f.Ports {
		p.Node += nodeBase
		if p.Parent != NoPort {
			p.Parent += portBase
		}
		key := portKey{supporting: g.Nodes[p.Node].Supporting, port: p.ID}
		if _, exists := g.portByRef[key]; exists {
			return fmt.Errorf("%w: %s/%s", ErrDuplicatePort, key.supporting, key.port)
		}
		idx := PortIndex(len(g.Ports))
		g.Ports = append(g.Ports, p)
		g.portByRef[key] = idx
	}

	for _, l := range f.Links {
		l.Src += nodeBase
		l.Dst += nodeBase
		if l.SrcPort != NoPort {
			l.SrcPort += portBase
		}
		if l.DstPort != NoPort {
			l.DstPort += portBase
		}
		if _, err := b.AddLink(l); err != nil {
			return err
		}
	}

	for _, grp := range f.Groups {
		nodes := make([]NodeIndex, len(grp.Nodes))
		for i, n := range grp.Nodes {
			nodes[i] = n + nodeBase
		}
		grp.Nodes = nodes
		g.Groups = append(g.Groups, grp)
	}

	g.Warnings = append(g.Warnings, f.Warnings...)
	return nil
}

// AddLink adds a link whose indexes are already global.
func (b *Builder) AddLink(l Link) (LinkIndex, error) {
	g := b.g
	if l.ID == "" {
		return NoLink, fmt.Errorf("%w: empty link id", ErrDuplicateLink)
	}
	if _, exists := g.linkByID[l.ID]; exists {
		return NoLink, fmt.Errorf("%w: %q", ErrDuplicateLink, l.ID)
	}
	if !b.validNode(l.Src) || !b.validNode(l.Dst) {
		return NoLink, fmt.Errorf("%w: link %q endpoints", ErrBadIndex, l.ID)
	}
	idx := LinkIndex(len(g.Links))
	g.Links = append(g.Links, l)
	g.linkByID[l.ID] = idx
	return idx, nil
}

// PortByRef resolves a snapshot port reference against what has been
// appended so far.
func (b *Builder) PortByRef(supporting, portID string) (PortIndex, bool) {
	return b.g.PortByRef(supporting, portID)
}

// Port returns an already appended port.
func (b *Builder) Port(i PortIndex) *Port { return &b.g.Ports[i] }

// NodesOf returns the nodes appended for a physical node.
func (b *Builder) NodesOf(supporting string) []NodeIndex { return b.g.bySupporting[supporting] }

// Warnf records a non-fatal problem.
func (b *Builder) Warnf(format string, args ...any) {
	b.g.Warnings = append(b.g.Warnings, fmt.Sprintf(format, args...))
}

func (b *Builder) validNode(i NodeIndex) bool {
	return i >= 0 && int(i) < len(b.g.Nodes)
}

// Finish resolves layer-stack parents, checks the stacks are acyclic,
// builds adjacency and returns the graph. The builder must not be used
// afterwards.
func (b *Builder) Finish() (*Graph, error) {
	g := b.g
	b.g = nil

	for i := range g.Ports {
		p := &g.Ports[i]
		if p.ParentID == "" {
			p.Parent = NoPort
			continue
		}
		parent, ok := g.portByRef[portKey{supporting: g.Nodes[p.Node].Supporting, port: p.ParentID}]
		if !ok {
			p.Parent = NoPort
			g.Warnings = append(g.Warnings, fmt.Sprintf("%s: parent port %q not found", g.PortRef(PortIndex(i)), p.ParentID))
			continue
		}
		p.Parent = parent
	}
	if err := checkLayerStacks(g); err != nil {
		return nil, err
	}

	g.Out = make([][]LinkIndex, len(g.Nodes))
	g.In = make([][]LinkIndex, len(g.Nodes))
	for i := range g.Links {
		l := &g.Links[i]
		g.Out[l.Src] = append(g.Out[l.Src], LinkIndex(i))
		g.In[l.Dst] = append(g.In[l.Dst], LinkIndex(i))
	}
	// Deterministic expansion order regardless of merge order.
	for n := range g.Out {
		out := g.Out[n]
		sort.Slice(out, func(a, c int) bool { return g.Links[out[a]].ID < g.Links[out[c]].ID })
	}
	return g, nil
}

// checkLayerStacks walks every parent chain with three-colour marking.
func checkLayerStacks(g *Graph) error {
	const (
		white = iota
		grey
		black
	)
	colour := make([]uint8, len(g.Ports))
	for start := range g.Ports {
		if colour[start] != white {
			continue
		}
		var path []int
		cur := start
		for cur != int(NoPort) && colour[cur] == white {
			colour[cur] = grey
			path = append(path, cur)
			cur = int(g.Ports[cur].Parent)
		}
		if cur != int(NoPort) && colour[cur] == grey {
			return fmt.Errorf("%w: at %s", ErrLayerCycle, g.PortRef(PortIndex(cur)))
		}
		for _, p := range path {
			colour[p] = black
		}
	}
	return nil
}
