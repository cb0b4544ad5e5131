package model

// ServiceType is the requested service format and rate.
type ServiceType string

const (
	Service100GET ServiceType = "100GE-T"
	Service100GEM ServiceType = "100GE-M"
	Service100GES ServiceType = "100GE-S"
	Service400GE  ServiceType = "400GE"
	Service10GE   ServiceType = "10GE"
	Service1GE    ServiceType = "1GE"
	ServiceOTU4   ServiceType = "OTU4"
	ServiceOTUC4  ServiceType = "OTUC4"
	ServiceODU4   ServiceType = "ODU4"
	ServiceODUC4  ServiceType = "ODUC4"
	ServiceOCH    ServiceType = "OCH"
)

// Constraints are optional routing constraints attached to a request.
type Constraints struct {
	IncludeNodes []string `json:"include_nodes,omitempty" yaml:"include_nodes,omitempty"`
	ExcludeNodes []string `json:"exclude_nodes,omitempty" yaml:"exclude_nodes,omitempty"`
	ExcludeLinks []string `json:"exclude_links,omitempty" yaml:"exclude_links,omitempty"`
	ExcludeSRLGs []uint32 `json:"exclude_srlgs,omitempty" yaml:"exclude_srlgs,omitempty"`

	// MaxHops bounds the number of traversed links; 0 = unbounded.
	MaxHops int `json:"max_hops,omitempty" yaml:"max_hops,omitempty" validate:"gte=0"`
	// MaxLatencyUs bounds the accumulated one-way latency; 0 = unbounded.
	MaxLatencyUs float64 `json:"max_latency_us,omitempty" yaml:"max_latency_us,omitempty" validate:"gte=0"`
	// MinOSNRdB is the lowest acceptable end-to-end OSNR; 0 = unchecked.
	MinOSNRdB float64 `json:"min_osnr_db,omitempty" yaml:"min_osnr_db,omitempty" validate:"gte=0"`
}

// ServiceRequest describes one path computation. It is created once per
// computation and never modified by the engine.
type ServiceRequest struct {
	// ID is the caller's identifier, echoed on the PathResult.
	ID string `json:"id" yaml:"id"`

	AEnd TerminationPoint `json:"a_end" yaml:"a_end" validate:"required"`
	ZEnd TerminationPoint `json:"z_end" yaml:"z_end" validate:"required"`

	ServiceType ServiceType `json:"service_type" yaml:"service_type" validate:"required,oneof=100GE-T 100GE-M 100GE-S 400GE 10GE 1GE OTU4 OTUC4 ODU4 ODUC4 OCH"`

	// BandwidthMbps overrides the service type's default rate.
	BandwidthMbps int64 `json:"bandwidth_mbps,omitempty" yaml:"bandwidth_mbps,omitempty" validate:"gte=0"`
	// SlotWidthGHz overrides the service type's default spectrum width.
	SlotWidthGHz float64 `json:"slot_width_ghz,omitempty" yaml:"slot_width_ghz,omitempty" validate:"gte=0"`

	Constraints Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}
