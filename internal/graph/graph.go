// Package graph holds the per-request disaggregated network graph. All
// entities live in flat arenas and reference each other by index, so a
// Graph owns everything it contains and no reference cycles can form.
package graph

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/optical-pce/model"
)

var (
	ErrLayerCycle     = errors.New("layer stack cycle")
	ErrDuplicateNode  = errors.New("duplicate node")
	ErrDuplicatePort  = errors.New("duplicate port")
	ErrDuplicateLink  = errors.New("duplicate link")
	ErrBadIndex       = errors.New("index out of range")
	ErrUnknownPortRef = errors.New("unknown port reference")
)

// NodeIndex, PortIndex and LinkIndex address the arenas of a Graph.
type (
	NodeIndex int32
	PortIndex int32
	LinkIndex int32
)

const (
	NoNode NodeIndex = -1
	NoPort PortIndex = -1
	NoLink LinkIndex = -1
)

// RoadmGroup is the variant data of RoadmDegree and RoadmSrg nodes.
type RoadmGroup struct {
	Number      int
	Name        string // DEG1, SRG2, ...
	VirtualPort PortIndex
	// UsedSlots is the union of spectrum in use on the group's ports.
	UsedSlots []model.SlotRange
}

// XponderFabric is the variant data of xponder nodes.
type XponderFabric struct {
	Type model.XponderType
	// Pool is the switching pool name for XponderSwitch nodes built from
	// a partitioned fabric.
	Pool string
}

// Node is one disaggregated switching element.
type Node struct {
	ID         string
	Supporting string
	Kind       NodeKind
	Admin      model.AdminState
	Oper       model.OperState
	Ports      []PortIndex

	Roadm   *RoadmGroup
	Xponder *XponderFabric
}

// InService reports whether the node itself is unlocked and enabled.
func (n *Node) InService() bool { return model.InService(n.Admin, n.Oper) }

// Port is one edge-point of a Node. All observed ports are bidirectional.
type Port struct {
	ID            string
	Node          NodeIndex
	Kind          PortKind
	Admin         model.AdminState
	Oper          model.OperState
	Occupancy     model.Occupancy
	OccupiedLayer model.Layer
	Capabilities  []string

	// ParentID is the declared lower-layer port; Parent is its resolved
	// index, or NoPort when none was declared or it could not be resolved.
	ParentID string
	Parent   PortIndex

	UsedSlots []model.SlotRange
}

// InService reports whether the port is unlocked and enabled.
func (p *Port) InService() bool { return model.InService(p.Admin, p.Oper) }

// Occupied reports whether the port already carries a signal.
func (p *Port) Occupied() bool { return p.Occupancy.Occupied() }

// HasCapability reports whether the port declares capability c.
func (p *Port) HasCapability(c string) bool {
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Link is one directed connection between two (Node, Port) pairs.
type Link struct {
	ID      string
	Kind    LinkKind
	Src     NodeIndex
	SrcPort PortIndex
	Dst     NodeIndex
	DstPort PortIndex

	// OppositeID is the declared return-direction link. Resolution and
	// validation belong to the link evaluator.
	OppositeID string

	Admin model.AdminState
	Oper  model.OperState

	LengthKm   float64
	SpanLossDB *float64
	CDPsPerNm  *float64
	PMD2Ps2    *float64
	LatencyUs  *float64
	UsedSlots  []model.SlotRange

	OTNLayer      model.Layer
	AvailableMbps int64
	UsedMbps      int64

	SRLGs []uint32
}

// InService reports whether the link is unlocked and enabled.
func (l *Link) InService() bool { return model.InService(l.Admin, l.Oper) }

// ForwardingGroup is a set of nodes of one physical device between which
// traffic may be switched.
type ForwardingGroup struct {
	Supporting string
	Name       string
	Nodes      []NodeIndex
}

type portKey struct {
	supporting string
	port       string
}

// Graph is the disaggregated, immutable-after-build network graph for one
// computation.
type Graph struct {
	Nodes  []Node
	Ports  []Port
	Links  []Link
	Groups []ForwardingGroup

	// Out and In list link indexes leaving and entering each node.
	Out [][]LinkIndex
	In  [][]LinkIndex

	// Warnings collects non-fatal snapshot problems found while building.
	Warnings []string

	nodeByID     map[string]NodeIndex
	portByRef    map[portKey]PortIndex
	linkByID     map[string]LinkIndex
	bySupporting map[string][]NodeIndex
}

// Node returns the node at i.
func (g *Graph) Node(i NodeIndex) *Node { return &g.Nodes[i] }

// Port returns the port at i.
func (g *Graph) Port(i PortIndex) *Port { return &g.Ports[i] }

// Link returns the link at i.
func (g *Graph) Link(i LinkIndex) *Link { return &g.Links[i] }

// NodeByID looks up a disaggregated node by its ID.
func (g *Graph) NodeByID(id string) (NodeIndex, bool) {
	i, ok := g.nodeByID[id]
	return i, ok
}

// LinkByID looks up a link by ID.
func (g *Graph) LinkByID(id string) (LinkIndex, bool) {
	i, ok := g.linkByID[id]
	return i, ok
}

// PortByRef resolves a port by the physical node ID and port ID used in
// the snapshot.
func (g *Graph) PortByRef(supporting, portID string) (PortIndex, bool) {
	i, ok := g.portByRef[portKey{supporting: supporting, port: portID}]
	return i, ok
}

// NodesOf returns the disaggregated nodes built from one physical node.
func (g *Graph) NodesOf(supporting string) []NodeIndex {
	return g.bySupporting[supporting]
}

// HasSupporting reports whether the physical node produced any nodes.
func (g *Graph) HasSupporting(supporting string) bool {
	_, ok := g.bySupporting[supporting]
	return ok
}

// ParentChain returns the resolved lower-layer ports of p, nearest first.
// Chains are acyclic by construction.
func (g *Graph) ParentChain(p PortIndex) []PortIndex {
	var chain []PortIndex
	for cur := g.Ports[p].Parent; cur != NoPort; cur = g.Ports[cur].Parent {
		chain = append(chain, cur)
	}
	return chain
}

// PortRef formats a port as node/port for messages.
func (g *Graph) PortRef(p PortIndex) string {
	if p == NoPort {
		return ""
	}
	port := &g.Ports[p]
	return fmt.Sprintf("%s/%s", g.Nodes[port.Node].ID, port.ID)
}
