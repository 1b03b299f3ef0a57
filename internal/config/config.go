// Package config loads and validates run configuration. Validation is
// fatal at load time: nothing downstream ever sees a bad config.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vampirenirmal/narratology/internal/core"
	"github.com/vampirenirmal/narratology/internal/temporal"
	"github.com/vampirenirmal/narratology/internal/valence"
)

const weightSumTolerance = 1e-6

// Config is the full run configuration, decoded strictly: unknown keys
// are a load error, not a silent skip.
type Config struct {
	Run        RunSection        `yaml:"run"`
	Targets    TargetsSection    `yaml:"targets"`
	Weights    WeightsSection    `yaml:"weights"`
	Pacing     PacingSection     `yaml:"pacing"`
	Lexicon    LexiconSection    `yaml:"lexicon"`
	Generation GenerationSection `yaml:"generation"`
	Output     OutputSection     `yaml:"output"`
}

type RunSection struct {
	Premise          string  `yaml:"premise" validate:"required,min=10"`
	SceneCount       int     `yaml:"scene_count" validate:"required,min=1,max=200"`
	ScenesPerChapter int     `yaml:"scenes_per_chapter" validate:"required,min=1"`
	Technique        string  `yaml:"technique" validate:"required"`
	MaxSceneAttempts int     `yaml:"max_scene_attempts" validate:"min=1,max=10"`
	ValenceTolerance float64 `yaml:"valence_tolerance" validate:"gt=0,lte=2"`
	ArcDirection     string  `yaml:"arc_direction" validate:"omitempty,oneof=rising falling"`
	ResolutionBias   float64 `yaml:"resolution_bias" validate:"gte=0,lte=1"`
}

type TargetsSection struct {
	ReversalFrequency    float64 `yaml:"reversal_frequency" validate:"required,gt=0"`
	ReversalIntensityMin float64 `yaml:"reversal_intensity_min" validate:"required,gt=0,lte=2"`
	SemanticDistanceMin  float64 `yaml:"semantic_distance_min" validate:"required,gt=0"`
	EmotionalVarianceMin float64 `yaml:"emotional_variance_min" validate:"required,gt=0"`
}

type WeightsSection struct {
	ReversalFrequency float64 `yaml:"reversal_frequency" validate:"gte=0,lte=1"`
	ReversalIntensity float64 `yaml:"reversal_intensity" validate:"gte=0,lte=1"`
	SemanticDistance  float64 `yaml:"semantic_distance" validate:"gte=0,lte=1"`
	EmotionalVariance float64 `yaml:"emotional_variance" validate:"gte=0,lte=1"`
}

type PacingSection struct {
	CapFraction float64 `yaml:"cap_fraction" validate:"gt=0,lte=1"`
}

type LexiconSection struct {
	Overrides map[string]float64 `yaml:"overrides"`
}

type RateSection struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"min=1"`
	Burst             int `yaml:"burst" validate:"min=1"`
}

type GenerationSection struct {
	Provider       string      `yaml:"provider" validate:"required,oneof=openai anthropic"`
	Model          string      `yaml:"model" validate:"required"`
	BaseURL        string      `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv      string      `yaml:"api_key_env" validate:"required"`
	TimeoutSeconds int         `yaml:"timeout_seconds" validate:"min=1,max=3600"`
	MaxRetries     int         `yaml:"max_retries" validate:"min=0,max=10"`
	Temperature    float64     `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int         `yaml:"max_tokens" validate:"min=1"`
	Rate           RateSection `yaml:"rate"`
}

type OutputSection struct {
	Dir string `yaml:"dir" validate:"required"`
}

// Default returns a config with every tunable at its documented default.
// The premise and the generation credential still have to come from the
// file and the environment.
func Default() Config {
	cfg := Config{}
	cfg.Run.SceneCount = 9
	cfg.Run.ScenesPerChapter = 3
	cfg.Run.Technique = string(temporal.InMediasRes)
	cfg.Run.MaxSceneAttempts = 3
	cfg.Run.ValenceTolerance = 0.3
	cfg.Run.ArcDirection = string(valence.ArcRising)
	cfg.Run.ResolutionBias = 0.5
	cfg.Targets.ReversalFrequency = 2.0
	cfg.Targets.ReversalIntensityMin = 0.8
	cfg.Targets.SemanticDistanceMin = 2.0
	cfg.Targets.EmotionalVarianceMin = 0.3
	cfg.Weights.ReversalFrequency = 0.25
	cfg.Weights.ReversalIntensity = 0.25
	cfg.Weights.SemanticDistance = 0.25
	cfg.Weights.EmotionalVariance = 0.25
	cfg.Pacing.CapFraction = 0.4
	cfg.Generation.Provider = "openai"
	cfg.Generation.Model = "gpt-4o"
	cfg.Generation.APIKeyEnv = "NARRATOLOGY_API_KEY"
	cfg.Generation.TimeoutSeconds = 120
	cfg.Generation.MaxRetries = 3
	cfg.Generation.Temperature = 0.9
	cfg.Generation.MaxTokens = 2048
	cfg.Generation.Rate.RequestsPerMinute = 20
	cfg.Generation.Rate.Burst = 5
	cfg.Output.Dir = "runs"
	return cfg
}

// Load reads the YAML file at path over the defaults, pulls a .env file
// into the environment when one exists, and validates everything.
func Load(path string) (Config, error) {
	// Missing .env is fine; a run may rely on the real environment.
	_ = godotenv.Load()

	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags plus the cross-field rules the tags cannot
// express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	sum := c.Weights.ReversalFrequency + c.Weights.ReversalIntensity +
		c.Weights.SemanticDistance + c.Weights.EmotionalVariance
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("validating config: metric weights sum to %v, want 1.0", sum)
	}

	if !temporal.Technique(c.Run.Technique).Valid() {
		return fmt.Errorf("validating config: unknown temporal technique %q", c.Run.Technique)
	}

	for phrase, weight := range c.Lexicon.Overrides {
		if weight < -1 || weight > 1 {
			return fmt.Errorf("validating config: lexicon override %q weight %v outside [-1, 1]", phrase, weight)
		}
	}
	return nil
}

// APIKey resolves the generation credential from the environment.
func (c Config) APIKey() (string, error) {
	key := os.Getenv(c.Generation.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("resolving API key: environment variable %s is empty", c.Generation.APIKeyEnv)
	}
	return key, nil
}

// TargetProfile converts the targets section.
func (c Config) TargetProfile() core.TargetProfile {
	return core.TargetProfile{
		ReversalFrequency:    c.Targets.ReversalFrequency,
		ReversalIntensityMin: c.Targets.ReversalIntensityMin,
		SemanticDistanceMin:  c.Targets.SemanticDistanceMin,
		EmotionalVarianceMin: c.Targets.EmotionalVarianceMin,
	}
}

// MetricWeights converts the weights section.
func (c Config) MetricWeights() core.Weights {
	return core.Weights{
		ReversalFrequency: c.Weights.ReversalFrequency,
		ReversalIntensity: c.Weights.ReversalIntensity,
		SemanticDistance:  c.Weights.SemanticDistance,
		EmotionalVariance: c.Weights.EmotionalVariance,
	}
}

// RunConfig converts the run section for the engine.
func (c Config) RunConfig() core.RunConfig {
	return core.RunConfig{
		SceneCount:       c.Run.SceneCount,
		ScenesPerChapter: c.Run.ScenesPerChapter,
		Technique:        temporal.Technique(c.Run.Technique),
		MaxSceneAttempts: c.Run.MaxSceneAttempts,
		ValenceTolerance: c.Run.ValenceTolerance,
		Generation: core.GenerationParams{
			Model:       c.Generation.Model,
			Temperature: c.Generation.Temperature,
			MaxTokens:   c.Generation.MaxTokens,
		},
	}
}

// Tracker builds the valence tracker the config describes.
func (c Config) Tracker() *valence.Tracker {
	lex := valence.DefaultLexicon()
	if len(c.Lexicon.Overrides) > 0 {
		lex = lex.Merge(c.Lexicon.Overrides)
	}
	return valence.NewTracker(lex,
		valence.WithArc(valence.ArcDirection(c.Run.ArcDirection)),
		valence.WithResolutionBias(c.Run.ResolutionBias),
	)
}

// Timeout converts the generation timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}
