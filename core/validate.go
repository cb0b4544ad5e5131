package core

import (
	"fmt"

	"github.com/signalsfoundry/optical-pce/internal/config"
	"github.com/signalsfoundry/optical-pce/internal/eligibility"
	"github.com/signalsfoundry/optical-pce/model"
)

// validateRequest checks the request on its own and against the snapshot
// it will be computed on. Every failure wraps ErrMalformedRequest.
func validateRequest(snap *model.TopologySnapshot, req *model.ServiceRequest) (eligibility.Profile, error) {
	if req == nil {
		return eligibility.Profile{}, fmt.Errorf("%w: nil service request", ErrMalformedRequest)
	}
	if snap == nil {
		return eligibility.Profile{}, fmt.Errorf("%w: nil topology snapshot", ErrMalformedRequest)
	}
	if err := config.ValidateStruct(req); err != nil {
		return eligibility.Profile{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	profile, ok := eligibility.ProfileFor(req.ServiceType)
	if !ok {
		return eligibility.Profile{}, fmt.Errorf("%w: unsupported service type %q", ErrMalformedRequest, req.ServiceType)
	}

	for _, end := range []struct {
		side model.Side
		tp   model.TerminationPoint
	}{{model.SideA, req.AEnd}, {model.SideZ, req.ZEnd}} {
		node := snap.Node(end.tp.NodeID)
		if node == nil {
			return profile, fmt.Errorf("%w: %s-end node %q not in snapshot", ErrMalformedRequest, end.side, end.tp.NodeID)
		}
		if end.tp.PortID != "" && node.Port(end.tp.PortID) == nil {
			return profile, fmt.Errorf("%w: %s-end port %q not on node %q", ErrMalformedRequest, end.side, end.tp.PortID, end.tp.NodeID)
		}
		if !profile.AllowsRole(node.Role) {
			return profile, fmt.Errorf("%w: service %s cannot terminate on %s node %q",
				ErrMalformedRequest, req.ServiceType, node.Role, end.tp.NodeID)
		}
	}
	return profile, nil
}
