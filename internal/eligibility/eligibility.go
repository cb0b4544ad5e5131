// Package eligibility decides, for one request, which ports may
// terminate the service, which ports and nodes may carry it through, and
// which nodes the constraints rule out. Nothing here is cached on the
// graph: every request is assessed from scratch.
package eligibility

import (
	"errors"
	"fmt"
	"sort"

	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/model"
)

// ErrUnknownNode is returned when a constraint names a node that is not
// part of the graph.
var ErrUnknownNode = errors.New("unknown node")

// End is the set of candidate endpoints on one side of the request.
type End struct {
	Side  model.Side
	Ports []graph.PortIndex
	Nodes []graph.NodeIndex
}

// Empty reports whether the side has no candidate.
func (e *End) Empty() bool { return len(e.Ports) == 0 }

// HasPort reports whether p is a candidate on this side.
func (e *End) HasPort(p graph.PortIndex) bool {
	for _, have := range e.Ports {
		if have == p {
			return true
		}
	}
	return false
}

// HasNode reports whether n holds a candidate on this side.
func (e *End) HasNode(n graph.NodeIndex) bool {
	for _, have := range e.Nodes {
		if have == n {
			return true
		}
	}
	return false
}

// Assessment is the per-request eligibility of a graph.
type Assessment struct {
	Profile Profile
	A, Z    End

	// Includes lists, per include constraint, the nodes that satisfy it.
	Includes [][]graph.NodeIndex
	Warnings []string

	passThrough []bool
	nodeValid   []bool
	transit     []bool
	excluded    []bool
}

// PassThrough reports whether traffic may traverse p.
func (a *Assessment) PassThrough(p graph.PortIndex) bool { return a.passThrough[p] }

// NodeValid reports whether n may appear on a path for this request.
func (a *Assessment) NodeValid(n graph.NodeIndex) bool { return a.nodeValid[n] }

// Transit reports whether a path may pass through n without
// terminating there.
func (a *Assessment) Transit(n graph.NodeIndex) bool { return a.transit[n] }

// Assess evaluates g against req using profile p.
func Assess(g *graph.Graph, req *model.ServiceRequest, p Profile) (*Assessment, error) {
	a := &Assessment{
		Profile:     p,
		A:           End{Side: model.SideA},
		Z:           End{Side: model.SideZ},
		passThrough: make([]bool, len(g.Ports)),
		nodeValid:   make([]bool, len(g.Nodes)),
		transit:     make([]bool, len(g.Nodes)),
		excluded:    make([]bool, len(g.Nodes)),
	}

	for _, id := range req.Constraints.ExcludeNodes {
		nodes := lookupNodes(g, id)
		if len(nodes) == 0 {
			a.Warnings = append(a.Warnings, fmt.Sprintf("exclude constraint names unknown node %q, ignored", id))
			continue
		}
		for _, n := range nodes {
			a.excluded[n] = true
		}
	}
	for _, id := range req.Constraints.IncludeNodes {
		nodes := lookupNodes(g, id)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("%w: include constraint %q", ErrUnknownNode, id)
		}
		a.Includes = append(a.Includes, nodes)
	}

	for i := range g.Ports {
		a.passThrough[i] = g.Ports[i].InService() && parentAvailable(g, graph.PortIndex(i))
	}

	a.resolveEnd(g, &a.A, req.AEnd)
	a.resolveEnd(g, &a.Z, req.ZEnd)

	for i := range g.Nodes {
		n := graph.NodeIndex(i)
		a.nodeValid[i] = a.nodeIsValid(g, n)
		a.transit[i] = a.nodeValid[i] && a.transitLayer(g.Node(n))
	}
	return a, nil
}

func (a *Assessment) nodeIsValid(g *graph.Graph, n graph.NodeIndex) bool {
	node := g.Node(n)
	if a.excluded[n] || !node.InService() {
		return false
	}
	if a.A.HasNode(n) || a.Z.HasNode(n) {
		return true
	}
	if !a.transitLayer(node) {
		return false
	}
	for _, p := range node.Ports {
		if a.passThrough[p] {
			return true
		}
	}
	return false
}

// transitLayer reports whether node can carry the request without
// terminating it.
func (a *Assessment) transitLayer(node *graph.Node) bool {
	switch a.Profile.Layer {
	case LayerOTN:
		return node.Kind == graph.XponderSwitch
	default:
		return node.Kind.Capabilities().Photonic
	}
}

func (a *Assessment) resolveEnd(g *graph.Graph, end *End, tp model.TerminationPoint) {
	var ports []graph.PortIndex
	named := tp.PortID != ""
	if named {
		if p, ok := g.PortByRef(tp.NodeID, tp.PortID); ok {
			ports = append(ports, p)
		}
	} else {
		for _, n := range g.NodesOf(tp.NodeID) {
			ports = append(ports, g.Node(n).Ports...)
		}
	}

	seen := map[graph.NodeIndex]bool{}
	for _, p := range ports {
		if !a.candidate(g, p, named) {
			continue
		}
		end.Ports = append(end.Ports, p)
		if n := g.Port(p).Node; !seen[n] {
			seen[n] = true
			end.Nodes = append(end.Nodes, n)
		}
	}
	sort.Slice(end.Ports, func(i, j int) bool { return end.Ports[i] < end.Ports[j] })
	sort.Slice(end.Nodes, func(i, j int) bool { return end.Nodes[i] < end.Nodes[j] })
}

// candidate applies the endpoint rules to p. An occupied port is only a
// candidate when the request names it and it carries a signal of the
// requested layer.
func (a *Assessment) candidate(g *graph.Graph, pi graph.PortIndex, named bool) bool {
	p := g.Port(pi)
	node := g.Node(p.Node)
	prof := &a.Profile
	switch {
	case a.excluded[p.Node], !node.InService():
		return false
	case !prof.endpointKind(p.Kind):
		return false
	case prof.Capability != "" && !p.HasCapability(prof.Capability):
		return false
	case !a.passThrough[pi]:
		return false
	}
	if p.Occupied() && !(named && p.OccupiedLayer == prof.Signal) {
		return false
	}
	if prof.Layer == LayerPhotonic && p.Kind == graph.PortClient && !hasFreeNetworkPort(g, node, pi) {
		return false
	}
	return true
}

// hasFreeNetworkPort reports whether client can launch a new wavelength
// through an unoccupied network port it attaches through.
func hasFreeNetworkPort(g *graph.Graph, node *graph.Node, client graph.PortIndex) bool {
	for _, pi := range node.Ports {
		p := g.Port(pi)
		if p.Kind != graph.PortNetwork || !p.InService() || p.Occupied() {
			continue
		}
		if AttachPort(g, client, pi) {
			return true
		}
	}
	return false
}

// parentAvailable reports whether every port p rides on is resolvable and
// in service.
func parentAvailable(g *graph.Graph, p graph.PortIndex) bool {
	cur := g.Port(p)
	for cur.ParentID != "" {
		if cur.Parent == graph.NoPort {
			return false
		}
		cur = g.Port(cur.Parent)
		if !cur.InService() {
			return false
		}
	}
	return true
}

// lookupNodes resolves a disaggregated node ID or a physical node ID.
func lookupNodes(g *graph.Graph, id string) []graph.NodeIndex {
	if n, ok := g.NodeByID(id); ok {
		return []graph.NodeIndex{n}
	}
	return g.NodesOf(id)
}

// AttachPort reports whether a path may leave or enter an endpoint node
// through port via when it terminates on candidate endpoint ep. Xponder
// endpoints must be reached through the port itself or a port it rides
// on; ROADM endpoints switch internally.
func AttachPort(g *graph.Graph, ep, via graph.PortIndex) bool {
	node := g.Node(g.Port(ep).Node)
	if !node.Kind.Capabilities().Xponder {
		return true
	}
	if ep == via {
		return true
	}
	for _, p := range g.ParentChain(ep) {
		if p == via {
			return true
		}
	}
	// A client with no declared parent may use any network port.
	return g.Port(ep).ParentID == "" && g.Port(via).Kind == graph.PortNetwork
}
