// Package measure gathers span-loss readings from the companion
// measurement service. Every node is queried independently; a node that
// cannot be read contributes no data and never fails the computation.
package measure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/optical-pce/internal/fanout"
	"github.com/signalsfoundry/optical-pce/internal/logging"
)

// ErrNoData is returned by a Source that holds nothing for a node.
var ErrNoData = errors.New("no measurement data")

// Reading is one measured span loss, keyed by the snapshot link ID it
// applies to.
type Reading struct {
	LinkID     string  `json:"link_id" yaml:"link_id"`
	SpanLossDB float64 `json:"span_loss_db" yaml:"span_loss_db"`
}

// Source returns the readings a node reports for its outgoing spans.
type Source interface {
	SpanLoss(ctx context.Context, nodeID string) ([]Reading, error)
}

// Static is an in-memory Source keyed by node ID.
type Static map[string][]Reading

// SpanLoss implements Source.
func (s Static) SpanLoss(_ context.Context, nodeID string) ([]Reading, error) {
	r, ok := s[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoData, nodeID)
	}
	return r, nil
}

// Result is the merged outcome of Gather.
type Result struct {
	// Loss maps link ID to measured span loss in dB.
	Loss map[string]float64
	// Missing lists nodes that returned no data, in input order.
	Missing []string
	// Warnings describe discarded readings.
	Warnings []string
}

// Gather queries src for every node with at most workers requests in
// flight. When two nodes report the same link the higher loss is kept.
// The only error is cancellation of ctx. Logs go to the logger carried by
// ctx, if any.
func Gather(ctx context.Context, src Source, nodes []string, workers int) (Result, error) {
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = logging.Noop()
	}
	res := Result{Loss: make(map[string]float64)}
	if src == nil || len(nodes) == 0 {
		return res, nil
	}

	outcomes := fanout.Gather(ctx, workers, nodes, src.SpanLoss)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	for i, o := range outcomes {
		node := nodes[i]
		if !o.OK() {
			res.Missing = append(res.Missing, node)
			if !errors.Is(o.Err, ErrNoData) {
				log.Warn(ctx, "span loss measurement unavailable",
					logging.String("node_id", node),
					logging.Err(o.Err),
				)
			}
			continue
		}
		for _, r := range o.Value {
			if r.LinkID == "" || math.IsNaN(r.SpanLossDB) || math.IsInf(r.SpanLossDB, 0) || r.SpanLossDB < 0 {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s: discarded span loss reading %q = %v", node, r.LinkID, r.SpanLossDB))
				continue
			}
			if prev, ok := res.Loss[r.LinkID]; !ok || r.SpanLossDB > prev {
				res.Loss[r.LinkID] = r.SpanLossDB
			}
		}
	}
	sort.Strings(res.Warnings)

	log.Debug(ctx, "span loss measurements gathered",
		logging.Int("nodes", len(nodes)),
		logging.Int("links", len(res.Loss)),
		logging.Int("missing", len(res.Missing)),
	)
	return res, nil
}
