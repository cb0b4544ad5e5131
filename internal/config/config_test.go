package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Grid.Alignment() != 2 {
		t.Fatalf("default alignment = %d, want 2", cfg.Grid.Alignment())
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "pce.yaml", `
search:
  workers: 4
  max_expansions: 500
  require_bidirectional: true
cost:
  latency_weight: 2
  osnr_weight: 0
link_eval:
  span_loss_ceiling_db: 30
  ase:
    launch_power_dbm: 1
    noise_figure_db: 6
bounds:
  max_latency_us: 2000
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Search.Workers = 4
	want.Search.MaxExpansions = 500
	want.Cost.LatencyWeight = 2
	want.Cost.OSNRWeight = 0
	want.LinkEval.SpanLossCeilingDB = 30
	want.LinkEval.ASE = linkeval.ASEModel{LaunchPowerDBm: 1, NoiseFigureDB: 6}
	want.Bounds.MaxLatencyUs = 2000

	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(linkeval.Config{}, "OSNR")); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
search:
  workers: -1
grid:
  slot_width_ghz: 6.25
  center_step_ghz: 12.5
  start_thz: 191.325
  slots: 0
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load error = %v, want ErrInvalidConfig", err)
	}
	for _, field := range []string{"Config.Search.Workers", "Config.Grid.Slots"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not name %s", err, field)
		}
	}
}

func TestLoadRejectsCoarseSlots(t *testing.T) {
	path := writeFile(t, "grid.yaml", `
grid:
  slot_width_ghz: 25
  center_step_ghz: 12.5
  start_thz: 191.325
  slots: 96
`)
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeFile(t, "broken.yaml", "search: [unterminated")
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load error = %v, want os.ErrNotExist", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PCE_WORKERS", "3")
	t.Setenv("PCE_REQUIRE_BIDIRECTIONAL", "false")
	t.Setenv("PCE_MIN_OSNR_DB", "18.5")
	t.Setenv("PCE_OSNR_WEIGHT", " ")

	got, err := FromEnv(Default())
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if got.Search.Workers != 3 {
		t.Fatalf("Workers = %d, want 3", got.Search.Workers)
	}
	if got.Search.RequireBidirectional {
		t.Fatalf("RequireBidirectional = true, want false")
	}
	if got.Bounds.MinOSNRdB != 18.5 {
		t.Fatalf("MinOSNRdB = %v, want 18.5", got.Bounds.MinOSNRdB)
	}
	if got.Cost.OSNRWeight != Default().Cost.OSNRWeight {
		t.Fatalf("blank override changed OSNRWeight to %v", got.Cost.OSNRWeight)
	}
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv("PCE_MAX_EXPANSIONS", "lots")
	t.Setenv("PCE_LATENCY_WEIGHT", "heavy")

	base := Default()
	got, err := FromEnv(base)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("FromEnv error = %v, want ErrInvalidConfig", err)
	}
	for _, name := range []string{"PCE_MAX_EXPANSIONS", "PCE_LATENCY_WEIGHT"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %q does not name %s", err, name)
		}
	}
	if got.Search.MaxExpansions != base.Search.MaxExpansions {
		t.Fatalf("malformed override leaked into config")
	}
}

func TestApplyDefaultsFillsZeroSections(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero config after ApplyDefaults invalid: %v", err)
	}
	if cfg.Grid.Slots != 768 {
		t.Fatalf("Grid.Slots = %d, want 768", cfg.Grid.Slots)
	}
}

func TestValidateStructMessages(t *testing.T) {
	type sample struct {
		Name  string  `validate:"required"`
		Ratio float64 `validate:"gt=0"`
		Kind  string  `validate:"oneof=a b"`
	}
	err := ValidateStruct(sample{Kind: "c"})
	if err == nil {
		t.Fatalf("ValidateStruct: want error")
	}
	for _, want := range []string{
		"sample.Name: field is required",
		"sample.Ratio: must be > 0",
		"sample.Kind: c is not one of [a b]",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}
