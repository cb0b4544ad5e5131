package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/optical-pce/core"
	"github.com/signalsfoundry/optical-pce/internal/topostore"
)

type inspectFlags struct {
	topology     string
	measurements string
	compact      bool
}

func newInspectCmd(a *app) *cobra.Command {
	var flags inspectFlags
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the disaggregated graph and evaluated links",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInspect(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.topology, "topology", "t", "", "Topology snapshot file (required)")
	f.StringVar(&flags.measurements, "measurements", "", "Measured span loss per ROADM (JSON or YAML)")
	f.BoolVar(&flags.compact, "compact", false, "Print the inspection on one line")

	_ = cmd.MarkFlagRequired("topology")
	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, flags inspectFlags) error {
	snap, _, err := loadTopology(flags.topology)
	if err != nil {
		return err
	}

	opts := []core.Option{core.WithLogger(a.log)}
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

	view, err := engine.Inspect(commandContext(cmd), snap)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), view, flags.compact)
}
