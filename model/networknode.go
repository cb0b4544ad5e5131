package model

// DeviceRole is the declared role of a physical network element.
type DeviceRole string

const (
	RoleROADM   DeviceRole = "ROADM"
	RoleXponder DeviceRole = "XPONDER"
)

// XponderType narrows RoleXponder devices by switching fabric.
type XponderType string

const (
	XponderTPDR   XponderType = "TPDR"
	XponderMUXPDR XponderType = "MUXPDR"
	XponderSwitch XponderType = "SWITCH"
)

// PortKind is the declared kind of a physical port.
type PortKind string

const (
	PortClient  PortKind = "client"
	PortNetwork PortKind = "network"
	PortDegree  PortKind = "degree"
	PortSRG     PortKind = "srg"
)

// SnapshotNode is one physical network element as seen by the topology
// store.
type SnapshotNode struct {
	ID          string         `json:"id" yaml:"id"`
	Role        DeviceRole     `json:"role" yaml:"role"`
	XponderType XponderType    `json:"xponder_type,omitempty" yaml:"xponder_type,omitempty"`
	AdminState  AdminState     `json:"admin_state,omitempty" yaml:"admin_state,omitempty"`
	OperState   OperState      `json:"oper_state,omitempty" yaml:"oper_state,omitempty"`
	Ports       []SnapshotPort `json:"ports" yaml:"ports"`

	// SwitchingGroups declares forwarding-rule groups. For a ROADM each
	// group lists degree/SRG group names ("DEG1", "SRG2") that may switch
	// to one another; for a SWITCH xponder each group is a switching pool
	// listing port IDs. Empty means full mesh / single pool.
	SwitchingGroups []SwitchingGroup `json:"switching_groups,omitempty" yaml:"switching_groups,omitempty"`
}

// SwitchingGroup is one declared forwarding-rule group.
type SwitchingGroup struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Members []string `json:"members" yaml:"members"`
}

// SnapshotPort is one physical port on a SnapshotNode.
type SnapshotPort struct {
	ID         string     `json:"id" yaml:"id"`
	Kind       PortKind   `json:"kind" yaml:"kind"`
	Group      int        `json:"group,omitempty" yaml:"group,omitempty"`
	AdminState AdminState `json:"admin_state,omitempty" yaml:"admin_state,omitempty"`
	OperState  OperState  `json:"oper_state,omitempty" yaml:"oper_state,omitempty"`

	// Capabilities lists supported interface capabilities, e.g. "100GE",
	// "OTU4", "ODU4".
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	Occupancy     Occupancy `json:"occupancy,omitempty" yaml:"occupancy,omitempty"`
	OccupiedLayer Layer     `json:"occupied_layer,omitempty" yaml:"occupied_layer,omitempty"`

	// ParentPortID names the lower-layer port on the same node this
	// port's signal rides over.
	ParentPortID string `json:"parent_port_id,omitempty" yaml:"parent_port_id,omitempty"`

	// UsedSlots lists spectrum already in use on degree/SRG ports.
	UsedSlots []SlotRange `json:"used_slots,omitempty" yaml:"used_slots,omitempty"`
}

// Port returns the port with the given ID, or nil.
func (n *SnapshotNode) Port(id string) *SnapshotPort {
	if n == nil {
		return nil
	}
	for i := range n.Ports {
		if n.Ports[i].ID == id {
			return &n.Ports[i]
		}
	}
	return nil
}
