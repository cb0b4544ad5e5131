// Package result turns a search outcome into the caller-facing
// PathResult. It is the only place trial reservations are committed.
package result

import (
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/optical-pce/internal/eligibility"
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"github.com/signalsfoundry/optical-pce/internal/search"
	"github.com/signalsfoundry/optical-pce/model"
)

// Search-exhausted details.
const (
	DetailNoRoute          = "no route"
	DetailJointConstraints = "joint constraints"
	DetailExpansionLimit   = "expansion limit"
)

// Input is what the aggregator reads besides the outcome.
type Input struct {
	Graph         *graph.Graph
	Assessment    *eligibility.Assessment
	Evaluation    *linkeval.Evaluation
	Ledger        *ledger.Ledger
	Request       *model.ServiceRequest
	ComputationID string
}

// Aggregate builds the PathResult for a Found or Exhausted outcome.
// A Found outcome has its trial committed into the ledger; an error is
// returned only when that commit fails.
func Aggregate(in *Input, out *search.Outcome) (*model.PathResult, error) {
	res := &model.PathResult{
		RequestID:     in.Request.ID,
		ComputationID: in.ComputationID,
		ServiceType:   in.Request.ServiceType,
		Warnings:      append([]string(nil), in.Assessment.Warnings...),
	}

	switch out.State {
	case search.Found:
		if err := found(in, out, res); err != nil {
			return nil, err
		}
		return res, nil
	case search.Exhausted:
		res.Status = model.StatusNoPath
		res.Cause = Classify(in.Assessment, out)
		return res, nil
	default:
		return nil, fmt.Errorf("aggregate: unexpected search state %v", out.State)
	}
}

func found(in *Input, out *search.Outcome, res *model.PathResult) error {
	g := in.Graph
	committed, err := in.Ledger.Commit(out.Trial)
	if err != nil {
		return err
	}

	res.Status = model.StatusSuccess
	res.AEndPort = g.PortRef(out.APort)
	res.ZEndPort = g.PortRef(out.ZPort)
	res.BandwidthMbps = out.BandwidthMbps
	res.Metrics = Metrics(g, in.Evaluation, out.Links)
	res.Metrics.Cost = out.Cost

	for _, li := range out.Links {
		l := g.Link(li)
		res.Hops = append(res.Hops, model.PathHop{
			LinkID: l.ID,
			Kind:   l.Kind.String(),
			From:   g.PortRef(l.SrcPort),
			To:     g.PortRef(l.DstPort),
		})
		res.Warnings = append(res.Warnings, in.Evaluation.Link(li).Warnings...)
	}

	if out.Slots != nil {
		grid := in.Ledger.Grid()
		res.Spectrum = &model.SpectrumAssignment{
			Slots:     *out.Slots,
			CenterTHz: grid.CenterTHz(*out.Slots),
			WidthGHz:  float64(out.Slots.Width()) * grid.SlotWidthGHz,
		}
	}

	for _, r := range committed {
		if r.Link == graph.NoLink {
			continue
		}
		mr := model.Reservation{LinkID: g.Link(r.Link).ID, BandwidthMbps: r.BandwidthMbps}
		if r.Slots != nil {
			s := *r.Slots
			mr.Slots = &s
		}
		res.Reservations = append(res.Reservations, mr)
	}
	sort.SliceStable(res.Reservations, func(i, j int) bool {
		return res.Reservations[i].LinkID < res.Reservations[j].LinkID
	})
	return nil
}

// Metrics accumulates the evaluated link metrics along links.
func Metrics(g *graph.Graph, ev *linkeval.Evaluation, links []graph.LinkIndex) model.PathMetrics {
	var pm model.PathMetrics
	var noise, pmd2 float64
	for _, li := range links {
		m := ev.Link(li)
		pm.LatencyUs += m.LatencyUs
		pm.CDPsPerNm += m.CDPsPerNm
		pmd2 += m.PMD2Ps2
		noise += m.NoiseLinear
		if g.Link(li).Kind == graph.RoadmToRoadm {
			pm.TotalSpanLossDB += m.SpanLossDB
			pm.WorstSpanLossDB = math.Max(pm.WorstSpanLossDB, m.SpanLossDB)
		}
	}
	pm.PMDPs = math.Sqrt(pmd2)
	if noise > 0 {
		pm.OSNRdB = linkeval.OSNRFromNoise(noise)
	}
	pm.Hops = len(links)
	return pm
}

// Classify explains an exhausted search.
func Classify(a *eligibility.Assessment, out *search.Outcome) *model.FailureCause {
	switch {
	case a.A.Empty():
		return &model.FailureCause{Kind: model.FailureNoEligibleEndpoint, Side: model.SideA, Detail: "no candidate port on the A-end"}
	case a.Z.Empty():
		return &model.FailureCause{Kind: model.FailureNoEligibleEndpoint, Side: model.SideZ, Detail: "no candidate port on the Z-end"}
	}

	d := out.Diagnostics
	if d.Reachable {
		if len(d.SpectrumBottlenecks) > 0 {
			return &model.FailureCause{
				Kind:            model.FailureSpectrumExhausted,
				BottleneckLinks: d.SpectrumBottlenecks,
				Detail:          "no free spectrum block of the requested width",
			}
		}
		if len(d.BandwidthBottlenecks) > 0 {
			return &model.FailureCause{
				Kind:            model.FailureBandwidthExhausted,
				BottleneckLinks: d.BandwidthBottlenecks,
				Detail:          "not enough bandwidth",
			}
		}
	}

	detail := DetailJointConstraints
	switch {
	case d.ExpansionLimit:
		detail = DetailExpansionLimit
	case !d.Reachable:
		detail = DetailNoRoute
	}
	return &model.FailureCause{Kind: model.FailureSearchExhausted, Detail: detail}
}

// Failed builds the PathResult of a computation that could not run.
func Failed(req *model.ServiceRequest, computationID string, kind model.FailureKind, detail string) *model.PathResult {
	res := &model.PathResult{
		ComputationID: computationID,
		Status:        model.StatusError,
		Cause:         &model.FailureCause{Kind: kind, Detail: detail},
	}
	if req != nil {
		res.RequestID = req.ID
		res.ServiceType = req.ServiceType
	}
	return res
}
