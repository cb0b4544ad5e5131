package core

import (
	"context"
	"errors"

	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"github.com/signalsfoundry/optical-pce/internal/search"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrMalformedRequest marks requests rejected before any search: an
	// unknown node or port, a service type the node cannot terminate, or
	// a field failing validation.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrInternalInconsistency marks defects in the snapshot or the
	// engine itself, as opposed to request-level failures.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// isInternal reports whether err comes from a package-level sentinel
// that denotes an inconsistent graph or ledger.
func isInternal(err error) bool {
	switch {
	case errors.Is(err, graph.ErrLayerCycle),
		errors.Is(err, graph.ErrDuplicateNode),
		errors.Is(err, graph.ErrDuplicatePort),
		errors.Is(err, graph.ErrDuplicateLink),
		errors.Is(err, graph.ErrBadIndex),
		errors.Is(err, linkeval.ErrInternalInconsistency),
		errors.Is(err, search.ErrTrialReservation),
		errors.Is(err, ledger.ErrStaleTrial),
		errors.Is(err, ledger.ErrSlotRange),
		errors.Is(err, ledger.ErrNoLedger):
		return true
	}
	return false
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ToStatusError maps engine errors onto gRPC status codes for hosts that
// expose the engine over gRPC.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrMalformedRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
