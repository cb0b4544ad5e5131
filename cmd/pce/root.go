package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/optical-pce/internal/config"
	"github.com/signalsfoundry/optical-pce/internal/logging"
	"github.com/signalsfoundry/optical-pce/internal/observability"
)

// app carries the state shared by every subcommand once the root's
// persistent hooks have run.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	tracing    bool

	// stdout and stderr replace the process streams when set.
	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	log      logging.Logger
	shutdown func(context.Context) error
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pce",
		Short: "Path computation for optical and OTN services",
		Long: "pce computes a route, a spectrum assignment and OTN bandwidth\n" +
			"for a service request over a topology snapshot.",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Engine config file (YAML)")
	f.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default $PCE_LOG_LEVEL or info)")
	f.StringVar(&a.logFormat, "log-format", "", "Log format: text or json (default $PCE_LOG_FORMAT or text)")
	f.BoolVar(&a.tracing, "tracing", false, "Export spans (overrides $PCE_TRACING_ENABLED)")

	root.AddCommand(newComputeCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := a.logLevel
	if level == "" {
		level = os.Getenv("PCE_LOG_LEVEL")
	}
	format := a.logFormat
	if format == "" {
		format = os.Getenv("PCE_LOG_FORMAT")
	}
	a.log = logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	})

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return fmt.Errorf("config from env: %w", err)
	}
	a.cfg = cfg

	tcfg := observability.TracingConfigFromEnv()
	if a.tracing {
		tcfg.Enabled = true
	}
	tcfg.Output = cmd.ErrOrStderr()
	shutdown, err := observability.InitTracing(commandContext(cmd), tcfg, a.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

// execute runs the command tree and flushes tracing whether or not the
// command succeeded.
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	if a.stdout != nil {
		root.SetOut(a.stdout)
	}
	if a.stderr != nil {
		root.SetErr(a.stderr)
	}
	defer a.close()
	return root.ExecuteContext(ctx)
}

func (a *app) close() {
	observability.ShutdownWithTimeout(context.Background(), a.shutdown, a.log)
	a.shutdown = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
