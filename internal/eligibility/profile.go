package eligibility

import (
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/model"
)

// SearchLayer is the layer whose links a request is routed over.
type SearchLayer int

const (
	LayerPhotonic SearchLayer = iota
	LayerOTN
)

func (l SearchLayer) String() string {
	if l == LayerOTN {
		return "otn"
	}
	return "photonic"
}

// Profile describes how one service type is terminated and routed.
type Profile struct {
	Service model.ServiceType
	// EndpointKinds are the port kinds that may terminate the service.
	EndpointKinds []graph.PortKind
	// Capability is required on endpoint ports; empty accepts any port.
	Capability string
	// Signal is the layer of the signal the service creates. An occupied
	// port can only be reused by a service of the same layer.
	Signal model.Layer
	Layer  SearchLayer
	// OTNLinkLayers lists the OTN link layers an OTN service rides on.
	OTNLinkLayers []model.Layer
	// Roles are the device roles that may terminate the service.
	Roles []model.DeviceRole

	BandwidthMbps int64
	SlotWidthGHz  float64
}

var (
	clientKinds  = []graph.PortKind{graph.PortClient}
	networkKinds = []graph.PortKind{graph.PortNetwork}
	xponderRole  = []model.DeviceRole{model.RoleXponder}
)

var profiles = map[model.ServiceType]Profile{
	model.Service100GET: {Service: model.Service100GET, EndpointKinds: clientKinds, Capability: "100GE", Signal: model.LayerDSR, Layer: LayerPhotonic, Roles: xponderRole, BandwidthMbps: 100000, SlotWidthGHz: 50},
	model.Service400GE:  {Service: model.Service400GE, EndpointKinds: clientKinds, Capability: "400GE", Signal: model.LayerDSR, Layer: LayerPhotonic, Roles: xponderRole, BandwidthMbps: 400000, SlotWidthGHz: 75},
	model.ServiceOTU4:   {Service: model.ServiceOTU4, EndpointKinds: networkKinds, Capability: "OTU4", Signal: model.LayerOTU4, Layer: LayerPhotonic, Roles: xponderRole, BandwidthMbps: 100000, SlotWidthGHz: 50},
	model.ServiceOTUC4:  {Service: model.ServiceOTUC4, EndpointKinds: networkKinds, Capability: "OTUC4", Signal: model.LayerOTUC4, Layer: LayerPhotonic, Roles: xponderRole, BandwidthMbps: 400000, SlotWidthGHz: 75},
	model.ServiceOCH: {
		Service:       model.ServiceOCH,
		EndpointKinds: []graph.PortKind{graph.PortSrgPP, graph.PortNetwork},
		Signal:        model.LayerPhotonic,
		Layer:         LayerPhotonic,
		Roles:         []model.DeviceRole{model.RoleROADM, model.RoleXponder},
		SlotWidthGHz:  50,
	},
	model.ServiceODU4:   {Service: model.ServiceODU4, EndpointKinds: networkKinds, Capability: "ODU4", Signal: model.LayerODU4, Layer: LayerOTN, OTNLinkLayers: []model.Layer{model.LayerOTU4}, Roles: xponderRole, BandwidthMbps: 100000},
	model.ServiceODUC4:  {Service: model.ServiceODUC4, EndpointKinds: networkKinds, Capability: "ODUC4", Signal: model.LayerODUC4, Layer: LayerOTN, OTNLinkLayers: []model.Layer{model.LayerOTUC4}, Roles: xponderRole, BandwidthMbps: 400000},
	model.Service100GEM: {Service: model.Service100GEM, EndpointKinds: clientKinds, Capability: "100GE", Signal: model.LayerDSR, Layer: LayerOTN, OTNLinkLayers: []model.Layer{model.LayerODU4, model.LayerODUC4}, Roles: xponderRole, BandwidthMbps: 100000},
	model.Service100GES: {Service: model.Service100GES, EndpointKinds: clientKinds, Capability: "100GE", Signal: model.LayerDSR, Layer: LayerOTN, OTNLinkLayers: []model.Layer{model.LayerODU4, model.LayerODUC4}, Roles: xponderRole, BandwidthMbps: 100000},
	model.Service10GE:   {Service: model.Service10GE, EndpointKinds: clientKinds, Capability: "10GE", Signal: model.LayerDSR, Layer: LayerOTN, OTNLinkLayers: []model.Layer{model.LayerODU4}, Roles: xponderRole, BandwidthMbps: 10000},
	model.Service1GE:    {Service: model.Service1GE, EndpointKinds: clientKinds, Capability: "1GE", Signal: model.LayerDSR, Layer: LayerOTN, OTNLinkLayers: []model.Layer{model.LayerODU4}, Roles: xponderRole, BandwidthMbps: 1000},
}

// ProfileFor returns the profile of a service type.
func ProfileFor(st model.ServiceType) (Profile, bool) {
	p, ok := profiles[st]
	return p, ok
}

// AllowsRole reports whether a device of the given role may terminate
// the service.
func (p Profile) AllowsRole(r model.DeviceRole) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// CarriesOn reports whether the service may be routed over an OTN link
// of layer l.
func (p Profile) CarriesOn(l model.Layer) bool {
	for _, have := range p.OTNLinkLayers {
		if have == l {
			return true
		}
	}
	return false
}

func (p Profile) endpointKind(k graph.PortKind) bool {
	for _, have := range p.EndpointKinds {
		if have == k {
			return true
		}
	}
	return false
}
