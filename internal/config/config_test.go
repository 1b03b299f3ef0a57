package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vampirenirmal/narratology/internal/temporal"
)

const validYAML = `
run:
  premise: "a kingdom undone by its own prophecy"
  scene_count: 9
  scenes_per_chapter: 3
  technique: nested_flashback
  max_scene_attempts: 2
  valence_tolerance: 0.25
  arc_direction: falling
  resolution_bias: 0.4
targets:
  reversal_frequency: 2.5
  reversal_intensity_min: 0.9
  semantic_distance_min: 3.0
  emotional_variance_min: 0.35
weights:
  reversal_frequency: 0.4
  reversal_intensity: 0.3
  semantic_distance: 0.2
  emotional_variance: 0.1
pacing:
  cap_fraction: 0.5
lexicon:
  overrides:
    wyrmfire: -0.8
generation:
  provider: anthropic
  model: claude-3-5-sonnet-20241022
  api_key_env: TEST_NARRATOLOGY_KEY
  timeout_seconds: 60
  max_retries: 2
  temperature: 0.8
  max_tokens: 1500
  rate:
    requests_per_minute: 30
    burst: 3
output:
  dir: out
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.SceneCount != 9 || cfg.Run.Technique != "nested_flashback" {
		t.Errorf("run section = %+v", cfg.Run)
	}
	if cfg.Targets.ReversalFrequency != 2.5 {
		t.Errorf("targets = %+v", cfg.Targets)
	}
	if cfg.Lexicon.Overrides["wyrmfire"] != -0.8 {
		t.Errorf("lexicon overrides = %+v", cfg.Lexicon.Overrides)
	}

	rc := cfg.RunConfig()
	if rc.Technique != temporal.NestedFlashback || rc.Generation.MaxTokens != 1500 {
		t.Errorf("RunConfig = %+v", rc)
	}
	profile := cfg.TargetProfile()
	if profile.ReversalIntensityMin != 0.9 {
		t.Errorf("TargetProfile = %+v", profile)
	}
	if cfg.Timeout().Seconds() != 60 {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	bad := strings.Replace(validYAML, "pacing:", "paccing:", 1)
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}

	bad = strings.Replace(validYAML, "  scene_count:", "  scene_cout:", 1)
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected error for unknown nested key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateCrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights must sum to one", func(c *Config) { c.Weights.ReversalFrequency = 0.9 }},
		{"unknown technique", func(c *Config) { c.Run.Technique = "time_loop" }},
		{"lexicon override out of range", func(c *Config) {
			c.Lexicon.Overrides = map[string]float64{"doomfire": 1.5}
		}},
		{"premise too short", func(c *Config) { c.Run.Premise = "short" }},
		{"zero target", func(c *Config) { c.Targets.ReversalFrequency = 0 }},
		{"bad provider", func(c *Config) { c.Generation.Provider = "homebrew" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Run.Premise = "a premise long enough to pass validation"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.Run.Premise = "a premise long enough to pass validation"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Generation.APIKeyEnv = "TEST_NARRATOLOGY_KEY"

	t.Setenv("TEST_NARRATOLOGY_KEY", "")
	if _, err := cfg.APIKey(); err == nil {
		t.Error("expected error for empty credential")
	}

	t.Setenv("TEST_NARRATOLOGY_KEY", "sk-test-123")
	key, err := cfg.APIKey()
	if err != nil || key != "sk-test-123" {
		t.Errorf("APIKey = %q, %v", key, err)
	}
}

func TestTrackerFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Lexicon.Overrides = map[string]float64{"wyrmfire": -0.8}
	tr := cfg.Tracker()
	got := tr.Score("wyrmfire swept the field")
	if got.RawScore != -0.8 {
		t.Errorf("override cue score = %v, want -0.8", got.RawScore)
	}
}
