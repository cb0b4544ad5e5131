package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/optical-pce/core"
	"github.com/signalsfoundry/optical-pce/internal/logging"
	"github.com/signalsfoundry/optical-pce/internal/observability"
	"github.com/signalsfoundry/optical-pce/internal/topostore"
	"github.com/signalsfoundry/optical-pce/model"
)

// errNoPath is returned when the computation ran to completion but found
// no feasible path. The result is still printed.
var errNoPath = errors.New("no path")

type computeFlags struct {
	topology     string
	request      string
	measurements string
	metrics      bool
	compact      bool
}

func newComputeCmd(a *app) *cobra.Command {
	var flags computeFlags
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a path for one service request",
		Long: "Reads a topology snapshot and a service request (JSON or YAML),\n" +
			"runs one computation and prints the path result as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCompute(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.topology, "topology", "t", "", "Topology snapshot file (required)")
	f.StringVarP(&flags.request, "request", "r", "", "Service request file (required)")
	f.StringVar(&flags.measurements, "measurements", "", "Measured span loss per ROADM (JSON or YAML)")
	f.BoolVar(&flags.metrics, "metrics", false, "Print computation metrics to stderr")
	f.BoolVar(&flags.compact, "compact", false, "Print the result on one line")

	_ = cmd.MarkFlagRequired("topology")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func (a *app) runCompute(cmd *cobra.Command, flags computeFlags) error {
	ctx := commandContext(cmd)

	snap, version, err := loadTopology(flags.topology)
	if err != nil {
		return err
	}
	req, err := topostore.LoadRequestFile(flags.request)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	a.log.Debug(ctx, "topology loaded",
		logging.Int("nodes", len(snap.Nodes)),
		logging.Int("links", len(snap.Links)),
		logging.Any("version", version),
	)

	collector, err := observability.NewPCECollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	opts := []core.Option{core.WithLogger(a.log), core.WithMetrics(collector)}
	if flags.measurements != "" {
		src, err := topostore.LoadMeasurementsFile(flags.measurements)
		if err != nil {
			return fmt.Errorf("load measurements: %w", err)
		}
		opts = append(opts, core.WithMeasurementSource(src))
	}

	engine, err := core.NewEngine(a.cfg, opts...)
	if err != nil {
		return err
	}

	res, computeErr := engine.Compute(ctx, snap, req)
	if res != nil {
		if err := writeJSON(cmd.OutOrStdout(), res, flags.compact); err != nil {
			return err
		}
	}
	if flags.metrics {
		if err := observability.WriteSnapshot(cmd.ErrOrStderr(), collector.Gatherer()); err != nil {
			a.log.Warn(ctx, "metrics snapshot failed", logging.Err(err))
		}
	}
	if computeErr != nil {
		return fmt.Errorf("compute: %w", computeErr)
	}
	if !res.Succeeded() {
		kind := model.FailureSearchExhausted
		if res.Cause != nil {
			kind = res.Cause.Kind
		}
		return fmt.Errorf("%w: %s", errNoPath, kind)
	}
	return nil
}

// loadTopology reads the snapshot through a Store so it is validated and
// detached from the decoded value.
func loadTopology(path string) (*model.TopologySnapshot, uint64, error) {
	decoded, err := topostore.LoadSnapshotFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("load topology: %w", err)
	}
	store := topostore.New()
	if _, err := store.Replace(decoded); err != nil {
		return nil, 0, fmt.Errorf("load topology: %w", err)
	}
	return store.Snapshot()
}

func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// exitCode is 2 for a computation that found no path and 1 for every
// other failure.
func exitCode(err error) int {
	if errors.Is(err, errNoPath) {
		return 2
	}
	return 1
}
