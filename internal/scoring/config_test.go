package scoring

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig(filepath.Join("testdata", "scoring.yaml"))
	if err != nil {
		t.Fatalf("loading test config: %v", err)
	}
	return cfg
}

func testConfigYAML(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scoring.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// TestLoadConfigValid verifies the shipped fixture parses with every section populated.
func TestLoadConfigValid(t *testing.T) {
	cfg := testConfig(t)

	if cfg.Version != "2026.1" {
		t.Errorf("version = %q, want %q", cfg.Version, "2026.1")
	}
	if cfg.OneRepMax.Formula != FormulaEpley || cfg.OneRepMax.RepCeiling != 15 {
		t.Errorf("one_rep_max = %+v, want epley/15", cfg.OneRepMax)
	}
	if cfg.VolumeCurve.AboveMRV != OverreachDecline {
		t.Errorf("above_mrv = %q, want %q", cfg.VolumeCurve.AboveMRV, OverreachDecline)
	}
	if len(cfg.VolumeLandmarks) != 3 {
		t.Errorf("got %d landmark brackets, want 3", len(cfg.VolumeLandmarks))
	}
	tiers := cfg.TierTable()
	if len(tiers) != len(Tiers) {
		t.Fatalf("got %d tiers, want %d", len(tiers), len(Tiers))
	}
	for i, tb := range tiers {
		if tb.Tier != Tiers[i] {
			t.Errorf("tier[%d] = %q, want %q", i, tb.Tier, Tiers[i])
		}
	}
	if tiers[0].Min != 0 || tiers[len(tiers)-1].Max != 100 {
		t.Errorf("tiers span [%v, %v], want [0, 100]", tiers[0].Min, tiers[len(tiers)-1].Max)
	}
}

// TestParseConfigRejects verifies malformed documents fail with a ConfigError
// instead of being patched with defaults.
func TestParseConfigRejects(t *testing.T) {
	base := testConfigYAML(t)

	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"missing section", "decay:\n  half_life_days: 28\n", ""},
		{"unknown field", "version: \"2026.1\"", "version: \"2026.1\"\nbogus: 1"},
		{"unknown formula", "formula: epley", "formula: lombardi"},
		{"brzycki ceiling", "formula: epley\n  rep_ceiling: 15", "formula: brzycki\n  rep_ceiling: 37"},
		{"tier gap", "silver:  {min: 20", "silver:  {min: 21"},
		{"weights sum", "strength: 0.75", "strength: 0.8"},
		{"band metric decreases", "{percentile: 50,   metric_value: 5.2}", "{percentile: 50,   metric_value: 2.0}"},
		{"median outside silver", "{percentile: 50,   score: 30}", "{percentile: 50,   score: 45}"},
		{"gate ceiling decreases", "{min_sessions: 3,  max_score: 35}", "{min_sessions: 3,  max_score: 10}"},
		{"missing long window", "  - window_days: 56", "  - window_days: 84"},
		{"decline without rate", "  decline_per_set: 4\n", ""},
		{"landmarks out of order", "beginner:     {min_years: 0, mev: 6,  mav: 12", "beginner:     {min_years: 0, mev: 14, mav: 12"},
		{"no zero bracket", "beginner:     {min_years: 0", "beginner:     {min_years: 1"},
		{"zero lookback", "lookback_weeks: 4", "lookback_weeks: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(base, tt.old) {
				t.Fatalf("fixture does not contain %q", tt.old)
			}
			doc := strings.Replace(base, tt.old, tt.new, 1)
			_, err := ParseConfig([]byte(doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("error %v does not wrap ErrConfiguration", err)
			}
		})
	}
}

// TestParseConfigEmpty verifies an empty document is a configuration error.
func TestParseConfigEmpty(t *testing.T) {
	_, err := ParseConfig(nil)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

// TestParseConfigFieldName verifies the error names the offending field.
func TestParseConfigFieldName(t *testing.T) {
	doc := strings.Replace(testConfigYAML(t), "strength: 0.75", "strength: 0.5", 1)
	_, err := ParseConfig([]byte(doc))
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
	if cerr.Field != "composite_weights" {
		t.Errorf("field = %q, want %q", cerr.Field, "composite_weights")
	}
}

// TestLoadConfigMissingFile verifies a missing file is reported, not defaulted.
func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestTableAt covers interpolation, clamping and zero-width segments.
func TestTableAt(t *testing.T) {
	tb := table{xs: []float64{0, 10, 10, 20}, ys: []float64{0, 50, 60, 100}}

	tests := []struct {
		x, want float64
	}{
		{-5, 0},
		{0, 0},
		{5, 25},
		{10, 50},
		{15, 80},
		{20, 100},
		{99, 100},
	}
	for _, tt := range tests {
		if got := tb.at(tt.x); !approx(got, tt.want) {
			t.Errorf("at(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}
