package model

// AdminState is the administrative state of a node, port or link as
// reported by the topology store.
type AdminState string

const (
	AdminUnlocked    AdminState = "unlocked"
	AdminLocked      AdminState = "locked"
	AdminMaintenance AdminState = "maintenance"
)

// OperState is the operational state of a node, port or link.
type OperState string

const (
	OperEnabled  OperState = "enabled"
	OperDisabled OperState = "disabled"
)

// InService reports whether the admin/oper pair allows traffic. Empty
// values are treated as unlocked/enabled because most snapshots omit them
// for healthy resources.
func InService(admin AdminState, oper OperState) bool {
	if admin != "" && admin != AdminUnlocked {
		return false
	}
	if oper != "" && oper != OperEnabled {
		return false
	}
	return true
}

// Occupancy describes whether an edge-point already carries a signal.
type Occupancy string

const (
	OccupancyNone        Occupancy = "none"
	OccupancyProvisioned Occupancy = "provisioned"
	OccupancyReserved    Occupancy = "reserved"
)

// Occupied reports whether the occupancy marks the port as in use.
func (o Occupancy) Occupied() bool {
	return o == OccupancyProvisioned || o == OccupancyReserved
}

// Layer identifies the transport layer a signal or link belongs to.
type Layer string

const (
	LayerUnknown  Layer = ""
	LayerPhotonic Layer = "photonic"
	LayerOTU4     Layer = "OTU4"
	LayerOTUC4    Layer = "OTUC4"
	LayerODU4     Layer = "ODU4"
	LayerODUC4    Layer = "ODUC4"
	LayerDSR      Layer = "DSR"
)
