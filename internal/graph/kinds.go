package graph

// NodeKind tags a disaggregated node. Kind-specific data lives in the
// Node's Roadm or Xponder variant field.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	RoadmDegree
	RoadmSrg
	XponderMux
	XponderSwitch
	XponderTransponder
)

func (k NodeKind) String() string {
	switch k {
	case RoadmDegree:
		return "RoadmDegree"
	case RoadmSrg:
		return "RoadmSrg"
	case XponderMux:
		return "XponderMux"
	case XponderSwitch:
		return "XponderSwitch"
	case XponderTransponder:
		return "XponderTransponder"
	default:
		return "Unknown"
	}
}

// Capabilities is the capability set dispatched on by the other
// components instead of type switches on the kind.
type Capabilities struct {
	// SpectrumLedger means the node owns a group-level spectrum bitset.
	SpectrumLedger bool
	// ForwardingGroups means switching inside the device is restricted by
	// declared forwarding-rule groups.
	ForwardingGroups bool
	// Photonic means the node switches wavelengths.
	Photonic bool
	// Xponder means the node terminates signals (has client/network ports).
	Xponder bool
}

// Capabilities returns the capability set for k.
func (k NodeKind) Capabilities() Capabilities {
	switch k {
	case RoadmDegree, RoadmSrg:
		return Capabilities{SpectrumLedger: true, ForwardingGroups: true, Photonic: true}
	case XponderSwitch:
		return Capabilities{ForwardingGroups: true, Xponder: true}
	case XponderMux, XponderTransponder:
		return Capabilities{Xponder: true}
	default:
		return Capabilities{}
	}
}

// PortKind tags a disaggregated port.
type PortKind int

const (
	PortUnknown PortKind = iota
	PortClient
	PortNetwork
	PortDegreeTTP
	PortSrgPP
	PortVirtualCP
	PortVirtualCTP
)

func (k PortKind) String() string {
	switch k {
	case PortClient:
		return "client"
	case PortNetwork:
		return "network"
	case PortDegreeTTP:
		return "degree-ttp"
	case PortSrgPP:
		return "srg-pp"
	case PortVirtualCP:
		return "virtual-cp"
	case PortVirtualCTP:
		return "virtual-ctp"
	default:
		return "unknown"
	}
}

// IsVirtual reports whether the port was synthesized during
// disaggregation rather than declared by the device.
func (k PortKind) IsVirtual() bool {
	return k == PortVirtualCP || k == PortVirtualCTP
}

// LinkKind tags a link. The first four kinds come from the snapshot, the
// rest are synthesized inside a ROADM.
type LinkKind int

const (
	LinkUnknown LinkKind = iota
	RoadmToRoadm
	XponderInput
	XponderOutput
	OtnLink
	AddLink
	DropLink
	ExpressLink
)

func (k LinkKind) String() string {
	switch k {
	case RoadmToRoadm:
		return "ROADM-TO-ROADM"
	case XponderInput:
		return "XPONDER-INPUT"
	case XponderOutput:
		return "XPONDER-OUTPUT"
	case OtnLink:
		return "OTN-LINK"
	case AddLink:
		return "ADD-LINK"
	case DropLink:
		return "DROP-LINK"
	case ExpressLink:
		return "EXPRESS-LINK"
	default:
		return "UNKNOWN"
	}
}

// IsInternal reports whether the link was synthesized inside a device.
func (k LinkKind) IsInternal() bool {
	return k == AddLink || k == DropLink || k == ExpressLink
}

// IsPhotonic reports whether the link carries wavelengths and therefore
// participates in spectrum assignment.
func (k LinkKind) IsPhotonic() bool {
	switch k {
	case RoadmToRoadm, XponderInput, XponderOutput, AddLink, DropLink, ExpressLink:
		return true
	default:
		return false
	}
}
