// Package config holds the engine configuration: the spectrum grid, search
// limits, cost weights, fibre coefficients and default path bounds.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"github.com/signalsfoundry/optical-pce/internal/search"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration fails validation or an
// override cannot be parsed.
var ErrInvalidConfig = errors.New("invalid configuration")

// SearchConfig bounds the work done per computation.
type SearchConfig struct {
	// Workers limits concurrent tasks in fan-out stages; 0 uses the
	// fan-out default.
	Workers int `yaml:"workers" validate:"gte=0"`
	// MaxExpansions caps labels popped by the search; 0 is unbounded.
	MaxExpansions int `yaml:"max_expansions" validate:"gte=0"`
	// RequireBidirectional skips links without an opposite.
	RequireBidirectional bool `yaml:"require_bidirectional"`
}

// Bounds are applied when the request leaves the matching constraint unset.
type Bounds struct {
	MaxLatencyUs float64 `yaml:"max_latency_us" validate:"gte=0"`
	MinOSNRdB    float64 `yaml:"min_osnr_db" validate:"gte=0"`
}

// Config is the complete engine configuration.
type Config struct {
	Grid     ledger.Grid         `yaml:"grid"`
	Search   SearchConfig        `yaml:"search"`
	Cost     search.WeightedCost `yaml:"cost"`
	LinkEval linkeval.Config     `yaml:"link_eval"`
	Bounds   Bounds              `yaml:"bounds"`
}

// Default returns the configuration used when no file or overrides are
// supplied.
func Default() Config {
	return Config{
		Grid: ledger.DefaultGrid(),
		Search: SearchConfig{
			MaxExpansions:        100000,
			RequireBidirectional: true,
		},
		Cost:     search.DefaultWeightedCost(),
		LinkEval: linkeval.DefaultConfig(),
	}
}

// ApplyDefaults fills zero-valued sections with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Grid == (ledger.Grid{}) {
		c.Grid = ledger.DefaultGrid()
	}
	if c.Cost == (search.WeightedCost{}) {
		c.Cost = search.DefaultWeightedCost()
	}
	c.LinkEval.ApplyDefaults()
}

// Validate checks field constraints and cross-field consistency.
func (c Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Grid.CenterStepGHz < c.Grid.SlotWidthGHz {
		return fmt.Errorf("%w: grid center step %.3f GHz is finer than slot width %.3f GHz",
			ErrInvalidConfig, c.Grid.CenterStepGHz, c.Grid.SlotWidthGHz)
	}
	return nil
}

// Load reads a YAML configuration file on top of Default. Keys absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %q: %v", ErrInvalidConfig, path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv applies PCE_* environment overrides to base. Unset variables
// leave the base value untouched; malformed values are an error.
func FromEnv(base Config) (Config, error) {
	cfg := base
	var errs []error

	intVar := func(name string, dst *int) {
		if raw, ok := lookup(name); ok {
			v, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %v", name, raw, err))
				return
			}
			*dst = v
		}
	}
	floatVar := func(name string, dst *float64) {
		if raw, ok := lookup(name); ok {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %v", name, raw, err))
				return
			}
			*dst = v
		}
	}
	boolVar := func(name string, dst *bool) {
		if raw, ok := lookup(name); ok {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %v", name, raw, err))
				return
			}
			*dst = v
		}
	}

	intVar("PCE_WORKERS", &cfg.Search.Workers)
	intVar("PCE_MAX_EXPANSIONS", &cfg.Search.MaxExpansions)
	boolVar("PCE_REQUIRE_BIDIRECTIONAL", &cfg.Search.RequireBidirectional)
	floatVar("PCE_LATENCY_WEIGHT", &cfg.Cost.LatencyWeight)
	floatVar("PCE_OSNR_WEIGHT", &cfg.Cost.OSNRWeight)
	floatVar("PCE_MAX_LATENCY_US", &cfg.Bounds.MaxLatencyUs)
	floatVar("PCE_MIN_OSNR_DB", &cfg.Bounds.MinOSNRdB)
	floatVar("PCE_LAUNCH_POWER_DBM", &cfg.LinkEval.ASE.LaunchPowerDBm)
	floatVar("PCE_NOISE_FIGURE_DB", &cfg.LinkEval.ASE.NoiseFigureDB)
	floatVar("PCE_SPAN_LOSS_CEILING_DB", &cfg.LinkEval.SpanLossCeilingDB)

	if len(errs) > 0 {
		return base, fmt.Errorf("%w: %v", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func lookup(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
