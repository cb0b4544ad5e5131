// Package core computes routes through optical/OTN transport networks.
// An Engine takes a topology snapshot and a service request and returns
// either a feasible, resource-consistent path or a structured reason why
// none exists.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/optical-pce/internal/config"
	"github.com/signalsfoundry/optical-pce/internal/disagg"
	"github.com/signalsfoundry/optical-pce/internal/eligibility"
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"github.com/signalsfoundry/optical-pce/internal/logging"
	"github.com/signalsfoundry/optical-pce/internal/measure"
	"github.com/signalsfoundry/optical-pce/internal/observability"
	"github.com/signalsfoundry/optical-pce/internal/result"
	"github.com/signalsfoundry/optical-pce/internal/search"
	"github.com/signalsfoundry/optical-pce/model"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Pipeline stage names, used for spans and the stage duration metric.
const (
	StageValidate     = "validate"
	StageDisaggregate = "disaggregate"
	StageEvaluate     = "evaluate"
	StageEligibility  = "eligibility"
	StageLedger       = "ledger"
	StageSearch       = "search"
	StageAggregate    = "aggregate"
)

// Option customises Engine construction.
type Option func(*Engine)

// WithLogger sets the base logger; computations log through a child
// carrying their computation_id.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *observability.PCECollector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithMeasurementSource enables measured span loss. Nodes the source
// cannot answer for fall back to provisioned or derived values.
func WithMeasurementSource(src measure.Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithCostModel replaces the configured weighted cost.
func WithCostModel(m search.CostModel) Option {
	return func(e *Engine) {
		e.cost = m
	}
}

// WithOSNRModel replaces the ASE noise model used by link evaluation.
func WithOSNRModel(m linkeval.OSNRModel) Option {
	return func(e *Engine) {
		e.cfg.LinkEval.OSNR = m
	}
}

// Engine runs path computations. It holds configuration only; every
// computation builds its own graph and ledger, so one Engine may serve
// concurrent calls.
type Engine struct {
	cfg     config.Config
	log     logging.Logger
	metrics *observability.PCECollector
	source  measure.Source
	cost    search.CostModel
	tracer  trace.Tracer
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg config.Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		log:    logging.Noop(),
		tracer: observability.Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cost == nil {
		e.cost = e.cfg.Cost
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// computation carries the per-request artefacts between stages.
type computation struct {
	id   string
	req  *model.ServiceRequest
	snap *model.TopologySnapshot
	log  logging.Logger

	profile      eligibility.Profile
	graph        *graph.Graph
	eval         *linkeval.Evaluation
	assessment   *eligibility.Assessment
	ledger       *ledger.Ledger
	outcome      *search.Outcome
	measurements measure.Result
}

// Compute runs one path computation against snap. The snapshot and the
// request are only read.
//
// Every request-level outcome, including "no path", is returned as a
// PathResult with a nil error. A malformed request, an internal
// inconsistency or cancellation of ctx returns a PathResult with status
// error together with an error: ErrMalformedRequest,
// ErrInternalInconsistency, or ctx.Err() respectively.
func (e *Engine) Compute(ctx context.Context, snap *model.TopologySnapshot, req *model.ServiceRequest) (*model.PathResult, error) {
	start := time.Now()
	ctx, id := logging.EnsureComputationID(ctx)
	ctx, log := logging.WithComputationLogger(ctx, e.log)
	ctx, span := e.tracer.Start(ctx, "pce.Compute", trace.WithAttributes(attribute.String("computation_id", id)))
	defer span.End()

	if req != nil {
		log = log.With(logging.String("request_id", req.ID))
		span.SetAttributes(
			attribute.String("request_id", req.ID),
			attribute.String("service_type", string(req.ServiceType)),
		)
	}
	ctx = logging.ContextWithLogger(ctx, log)
	c := &computation{id: id, req: req, snap: snap, log: log}
	log.Info(ctx, "computation started")

	res, err := e.run(ctx, c)
	res, err = e.settle(ctx, c, res, err)

	cause := "none"
	if res.Cause != nil {
		cause = string(res.Cause.Kind)
	}
	elapsed := time.Since(start)
	e.metrics.ObserveComputation(string(res.Status), cause, elapsed)

	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.String("cause", cause),
		attribute.Int("hops", len(res.Hops)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}

	fields := []logging.Field{
		logging.String("status", string(res.Status)),
		logging.String("cause", cause),
		logging.Int("hops", len(res.Hops)),
		logging.Float("duration_ms", float64(elapsed.Microseconds())/1000),
	}
	if c.outcome != nil {
		fields = append(fields, logging.Int("expansions", c.outcome.Expansions))
	}
	if err != nil {
		fields = append(fields, logging.Err(err))
	}
	log.Info(ctx, "computation finished", fields...)
	return res, err
}

func (e *Engine) run(ctx context.Context, c *computation) (*model.PathResult, error) {
	err := e.stage(ctx, StageValidate, func(context.Context) error {
		p, err := validateRequest(c.snap, c.req)
		c.profile = p
		return err
	})
	if err != nil {
		return nil, err
	}

	err = e.stage(ctx, StageDisaggregate, func(ctx context.Context) error {
		g, err := disagg.Build(ctx, c.snap, disagg.Options{Workers: e.cfg.Search.Workers})
		c.graph = g
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.SetGraphSize(len(c.graph.Nodes), len(c.graph.Links))
	for _, w := range c.graph.Warnings {
		c.log.Warn(ctx, "topology warning", logging.String("warning", w))
	}

	// Link evaluation and eligibility only read the graph.
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return e.stage(gctx, StageEvaluate, func(ctx context.Context) error {
			return e.evaluate(ctx, c)
		})
	})
	grp.Go(func() error {
		return e.stage(gctx, StageEligibility, func(context.Context) error {
			a, err := eligibility.Assess(c.graph, c.req, c.profile)
			if errors.Is(err, eligibility.ErrUnknownNode) {
				return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
			}
			c.assessment = a
			return err
		})
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	_ = e.stage(ctx, StageLedger, func(context.Context) error {
		c.ledger = ledger.New(c.graph, e.cfg.Grid)
		return nil
	})

	err = e.stage(ctx, StageSearch, func(ctx context.Context) error {
		out, err := search.Run(ctx, e.searchInput(c), search.Options{
			Cost:                 e.cost,
			MaxExpansions:        e.cfg.Search.MaxExpansions,
			RequireBidirectional: e.cfg.Search.RequireBidirectional,
		})
		c.outcome = out
		return err
	})
	if c.outcome != nil {
		e.recordSearch(c.outcome)
	}
	if err != nil {
		return nil, err
	}

	var res *model.PathResult
	err = e.stage(ctx, StageAggregate, func(context.Context) error {
		r, err := result.Aggregate(&result.Input{
			Graph:         c.graph,
			Assessment:    c.assessment,
			Evaluation:    c.eval,
			Ledger:        c.ledger,
			Request:       c.req,
			ComputationID: c.id,
		}, c.outcome)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Warnings = mergeWarnings(c.graph.Warnings, c.measurements.Warnings, res.Warnings)
	return res, nil
}

// evaluate gathers measured span loss, when a source is configured, and
// evaluates every link.
func (e *Engine) evaluate(ctx context.Context, c *computation) error {
	var loss map[string]float64
	if e.source != nil {
		m, err := measure.Gather(ctx, e.source, roadmIDs(c.snap), e.cfg.Search.Workers)
		if err != nil {
			return err
		}
		c.measurements = m
		loss = m.Loss
		if len(m.Missing) > 0 {
			c.log.Info(ctx, "span loss measurements missing",
				logging.Int("nodes", len(m.Missing)),
				logging.Any("node_ids", m.Missing),
			)
		}
	}

	cfg := e.cfg.LinkEval
	if cfg.Workers == 0 {
		cfg.Workers = e.cfg.Search.Workers
	}
	ev, err := linkeval.Evaluate(ctx, c.graph, cfg, loss)
	c.eval = ev
	return err
}

func (e *Engine) searchInput(c *computation) *search.Input {
	in := &search.Input{
		Graph:         c.graph,
		Assessment:    c.assessment,
		Evaluation:    c.eval,
		Ledger:        c.ledger,
		Constraints:   c.req.Constraints,
		BandwidthMbps: c.req.BandwidthMbps,
	}
	if in.BandwidthMbps == 0 {
		in.BandwidthMbps = c.profile.BandwidthMbps
	}
	if c.profile.Layer == eligibility.LayerPhotonic {
		width := c.req.SlotWidthGHz
		if width == 0 {
			width = c.profile.SlotWidthGHz
		}
		in.SlotWidth = e.cfg.Grid.SlotsFor(width)
	}
	if in.Constraints.MaxLatencyUs == 0 {
		in.Constraints.MaxLatencyUs = e.cfg.Bounds.MaxLatencyUs
	}
	if in.Constraints.MinOSNRdB == 0 {
		in.Constraints.MinOSNRdB = e.cfg.Bounds.MinOSNRdB
	}
	return in
}

func (e *Engine) recordSearch(out *search.Outcome) {
	e.metrics.AddExpansions(out.Expansions)
	d := out.Diagnostics
	e.metrics.AddPrunes("joint", d.JointPrunes)
	e.metrics.AddPrunes("constraint", d.ConstraintPrunes)
	e.metrics.AddPrunes("bound", d.BoundPrunes)
	e.metrics.AddPrunes("dominance", d.DominancePrunes)
}

// settle turns a pipeline error into the error PathResult and the error
// Compute returns.
func (e *Engine) settle(ctx context.Context, c *computation, res *model.PathResult, err error) (*model.PathResult, error) {
	if err == nil {
		return res, nil
	}
	switch {
	case isCancellation(err):
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return result.Failed(c.req, c.id, model.FailureSearchExhausted, "aborted: "+err.Error()), err
	case errors.Is(err, ErrMalformedRequest):
		return result.Failed(c.req, c.id, model.FailureMalformedRequest, err.Error()), err
	}

	if !errors.Is(err, ErrInternalInconsistency) {
		err = fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
	}
	if !isInternal(err) {
		c.log.Warn(ctx, "unclassified pipeline error treated as internal inconsistency", logging.Err(err))
	}
	c.log.Error(ctx, "internal inconsistency", logging.Err(err))
	return result.Failed(c.req, c.id, model.FailureInternalInconsistency, err.Error()), err
}

func roadmIDs(snap *model.TopologySnapshot) []string {
	var out []string
	for i := range snap.Nodes {
		if snap.Nodes[i].Role == model.RoleROADM {
			out = append(out, snap.Nodes[i].ID)
		}
	}
	return out
}

// mergeWarnings concatenates warning lists, dropping repeats.
func mergeWarnings(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, w := range l {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	return out
}

// stage runs fn inside a child span and records its duration.
func (e *Engine) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "pce."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	e.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return err
}
