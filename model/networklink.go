package model

// LinkKind is the declared kind of a snapshot link.
type LinkKind string

const (
	LinkRoadmToRoadm  LinkKind = "ROADM-TO-ROADM"
	LinkXponderInput  LinkKind = "XPONDER-INPUT"
	LinkXponderOutput LinkKind = "XPONDER-OUTPUT"
	LinkOTN           LinkKind = "OTN-LINK"
)

// TerminationPoint identifies a port on a node.
type TerminationPoint struct {
	NodeID string `json:"node_id" yaml:"node_id" validate:"required"`
	PortID string `json:"port_id,omitempty" yaml:"port_id,omitempty"`
}

// SnapshotLink is one unidirectional link as seen by the topology store.
// Bidirectional connectivity is described by two links naming each other
// in OppositeLinkID.
type SnapshotLink struct {
	ID             string           `json:"id" yaml:"id"`
	Kind           LinkKind         `json:"kind" yaml:"kind"`
	Source         TerminationPoint `json:"source" yaml:"source"`
	Dest           TerminationPoint `json:"dest" yaml:"dest"`
	OppositeLinkID string           `json:"opposite_link_id,omitempty" yaml:"opposite_link_id,omitempty"`
	AdminState     AdminState       `json:"admin_state,omitempty" yaml:"admin_state,omitempty"`
	OperState      OperState        `json:"oper_state,omitempty" yaml:"oper_state,omitempty"`

	// Optical attributes. Pointers distinguish "not provisioned" from an
	// explicit zero.
	LengthKm   float64  `json:"length_km,omitempty" yaml:"length_km,omitempty"`
	SpanLossDB *float64 `json:"span_loss_db,omitempty" yaml:"span_loss_db,omitempty"`
	CDPsPerNm  *float64 `json:"cd_ps_nm,omitempty" yaml:"cd_ps_nm,omitempty"`
	PMD2Ps2    *float64 `json:"pmd2_ps2,omitempty" yaml:"pmd2_ps2,omitempty"`
	LatencyUs  *float64 `json:"latency_us,omitempty" yaml:"latency_us,omitempty"`

	UsedSlots []SlotRange `json:"used_slots,omitempty" yaml:"used_slots,omitempty"`

	// Digital attributes (OTN links).
	OTNLayer               Layer `json:"otn_layer,omitempty" yaml:"otn_layer,omitempty"`
	AvailableBandwidthMbps int64 `json:"available_bandwidth_mbps,omitempty" yaml:"available_bandwidth_mbps,omitempty"`
	UsedBandwidthMbps      int64 `json:"used_bandwidth_mbps,omitempty" yaml:"used_bandwidth_mbps,omitempty"`

	SRLGs []uint32 `json:"srlgs,omitempty" yaml:"srlgs,omitempty"`
}

// TopologySnapshot is the read-only network view a computation runs
// against. It is owned by the caller.
type TopologySnapshot struct {
	Nodes []SnapshotNode `json:"nodes" yaml:"nodes"`
	Links []SnapshotLink `json:"links" yaml:"links"`
}

// Node returns the snapshot node with the given ID, or nil.
func (s *TopologySnapshot) Node(id string) *SnapshotNode {
	if s == nil {
		return nil
	}
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// WithoutLink returns a shallow copy of the snapshot with the named link
// removed. The receiver is left untouched.
func (s *TopologySnapshot) WithoutLink(id string) *TopologySnapshot {
	out := &TopologySnapshot{Nodes: s.Nodes}
	out.Links = make([]SnapshotLink, 0, len(s.Links))
	for _, l := range s.Links {
		if l.ID != id {
			out.Links = append(out.Links, l)
		}
	}
	return out
}

// Clone returns a deep copy of the snapshot.
func (s *TopologySnapshot) Clone() *TopologySnapshot {
	if s == nil {
		return nil
	}
	out := &TopologySnapshot{
		Nodes: make([]SnapshotNode, len(s.Nodes)),
		Links: make([]SnapshotLink, len(s.Links)),
	}
	for i, n := range s.Nodes {
		n.Ports = clonePorts(n.Ports)
		if n.SwitchingGroups != nil {
			groups := make([]SwitchingGroup, len(n.SwitchingGroups))
			for j, g := range n.SwitchingGroups {
				groups[j] = SwitchingGroup{Name: g.Name, Members: append([]string(nil), g.Members...)}
			}
			n.SwitchingGroups = groups
		}
		out.Nodes[i] = n
	}
	for i, l := range s.Links {
		l.SpanLossDB = cloneFloat(l.SpanLossDB)
		l.CDPsPerNm = cloneFloat(l.CDPsPerNm)
		l.PMD2Ps2 = cloneFloat(l.PMD2Ps2)
		l.LatencyUs = cloneFloat(l.LatencyUs)
		l.UsedSlots = append([]SlotRange(nil), l.UsedSlots...)
		l.SRLGs = append([]uint32(nil), l.SRLGs...)
		out.Links[i] = l
	}
	return out
}

func clonePorts(ports []SnapshotPort) []SnapshotPort {
	if ports == nil {
		return nil
	}
	out := make([]SnapshotPort, len(ports))
	for i, p := range ports {
		p.Capabilities = append([]string(nil), p.Capabilities...)
		p.UsedSlots = append([]SlotRange(nil), p.UsedSlots...)
		out[i] = p
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
