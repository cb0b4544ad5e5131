package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "malformed", err: fmt.Errorf("%w: unknown node", ErrMalformedRequest), code: codes.InvalidArgument},
		{name: "internal", err: fmt.Errorf("%w: %w", ErrInternalInconsistency, graph.ErrLayerCycle), code: codes.Internal},
		{name: "deadline", err: context.DeadlineExceeded, code: codes.DeadlineExceeded},
		{name: "cancelled", err: fmt.Errorf("search: %w", context.Canceled), code: codes.Canceled},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ToStatusError(%v) = nil, want error", tc.err)
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}

func TestIsInternal(t *testing.T) {
	for _, err := range []error{
		graph.ErrLayerCycle,
		fmt.Errorf("wrap: %w", linkeval.ErrInternalInconsistency),
		ledger.ErrStaleTrial,
	} {
		if !isInternal(err) {
			t.Fatalf("isInternal(%v) = false", err)
		}
	}
	if isInternal(context.Canceled) {
		t.Fatalf("cancellation classified as internal")
	}
}
