package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/signalsfoundry/optical-pce/internal/topotest"
	"github.com/signalsfoundry/optical-pce/model"
)

var ignoreComputationID = cmpopts.IgnoreFields(model.PathResult{}, "ComputationID")

// opposites maps every link ID of snap's graph to its return direction.
func opposites(t *testing.T, e *Engine, snap *model.TopologySnapshot) map[string]string {
	t.Helper()
	ins, err := e.Inspect(context.Background(), snap)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	out := make(map[string]string, len(ins.Links))
	for _, l := range ins.Links {
		out[l.ID] = l.Opposite
	}
	return out
}

func TestReservationsAreMirrored(t *testing.T) {
	e := newEngine(t)
	linear := topotest.Linear()
	cases := map[string]struct {
		snap *model.TopologySnapshot
		req  *model.ServiceRequest
	}{
		"och":     {topotest.TwoRoadms(), ochRequest()},
		"100GE-T": {topotest.Ring(), ringRequest()},
		"10GE": {linear, &model.ServiceRequest{
			AEnd:        topotest.TP("XPDR-A", topotest.Client(3)),
			ZEnd:        topotest.TP("XPDR-C", topotest.Client(3)),
			ServiceType: model.Service10GE,
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := compute(t, e, tc.snap, tc.req)
			if res.Status != model.StatusSuccess {
				t.Fatalf("status = %s cause = %+v", res.Status, res.Cause)
			}
			if len(res.Reservations) == 0 || len(res.Reservations)%2 != 0 {
				t.Fatalf("reservations = %d, want a non-zero even count", len(res.Reservations))
			}
			opp := opposites(t, e, tc.snap)
			byLink := make(map[string]model.Reservation, len(res.Reservations))
			for _, r := range res.Reservations {
				byLink[r.LinkID] = r
			}
			for _, r := range res.Reservations {
				mirror, ok := byLink[opp[r.LinkID]]
				if !ok {
					t.Fatalf("%s reserved without its opposite %q", r.LinkID, opp[r.LinkID])
				}
				mirror.LinkID = r.LinkID
				if diff := cmp.Diff(r, mirror); diff != "" {
					t.Fatalf("%s mirror differs (-link +opposite):\n%s", r.LinkID, diff)
				}
			}
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	e := newEngine(t)
	snap := topotest.Ring()
	first := compute(t, e, snap, ringRequest())
	second := compute(t, e, snap, ringRequest())
	if first.Status != model.StatusSuccess {
		t.Fatalf("status = %s", first.Status)
	}
	if diff := cmp.Diff(first, second, ignoreComputationID); diff != "" {
		t.Fatalf("repeated computation differs (-first +second):\n%s", diff)
	}
	if first.ComputationID == second.ComputationID {
		t.Fatalf("computations share id %q", first.ComputationID)
	}
}

func TestIdempotentUnderRandomOccupancy(t *testing.T) {
	e := newEngine(t)
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 30
	properties := gopter.NewProperties(params)

	properties.Property("same snapshot, same path and cost", prop.ForAll(
		func(r model.SlotRange) bool {
			snap := topotest.Ring()
			topotest.MarkSlotsUsed(snap, []model.SlotRange{r}, directSpan())
			a, errA := e.Compute(context.Background(), snap, ringRequest())
			b, errB := e.Compute(context.Background(), snap, ringRequest())
			if errA != nil || errB != nil {
				return false
			}
			return cmp.Equal(a, b, ignoreComputationID)
		},
		gen.IntRange(0, 760).FlatMap(func(v any) gopter.Gen {
			first := v.(int)
			return gen.IntRange(first, 767).Map(func(last int) model.SlotRange {
				return model.SlotRange{First: first, Last: last}
			})
		}, reflect.TypeOf(model.SlotRange{})),
	))

	properties.TestingRun(t)
}

func TestRemovingALinkNeverLowersCost(t *testing.T) {
	e := newEngine(t)
	base := topotest.Ring()
	ref := compute(t, e, base, ringRequest())
	if ref.Status != model.StatusSuccess {
		t.Fatalf("reference status = %s", ref.Status)
	}
	for _, l := range base.Links {
		res := compute(t, e, base.WithoutLink(l.ID), ringRequest())
		if res.Status == model.StatusSuccess && res.Metrics.Cost < ref.Metrics.Cost {
			t.Fatalf("without %s cost = %v, below %v", l.ID, res.Metrics.Cost, ref.Metrics.Cost)
		}
	}
}

func TestResultsAreIndependentPerComputation(t *testing.T) {
	// Two computations on the same snapshot never see each other's
	// reservations: the second one gets the same first-fit block.
	e := newEngine(t)
	snap := topotest.TwoRoadms()
	first := compute(t, e, snap, ochRequest())
	second := compute(t, e, snap, ochRequest())
	if first.Spectrum == nil || second.Spectrum == nil || first.Spectrum.Slots != second.Spectrum.Slots {
		t.Fatalf("spectrum first=%+v second=%+v", first.Spectrum, second.Spectrum)
	}
}
