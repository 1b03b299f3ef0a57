// Package core owns the manuscript model, the success-score computation,
// and the engine that drives scene generation against narratology
// targets.
package core

import (
	"context"
	"fmt"

	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/reversal"
	"github.com/vampirenirmal/narratology/internal/temporal"
	"github.com/vampirenirmal/narratology/internal/valence"
)

// Scene is one accepted unit of the manuscript. Index is the
// presentation position. Scenes are immutable once accepted; revision
// means generating a replacement.
type Scene struct {
	Index         int
	Text          string
	NarrativeTime float64
	Valence       float64
	Vector        pacing.Vector
}

// Manuscript is an append-only scene sequence in presentation order.
type Manuscript struct {
	scenes []Scene
}

// AppendScene accepts a scene. Indices must be contiguous from zero.
func (m *Manuscript) AppendScene(s Scene) error {
	if s.Index != len(m.scenes) {
		return fmt.Errorf("appending scene: index %d breaks contiguity, want %d", s.Index, len(m.scenes))
	}
	m.scenes = append(m.scenes, s)
	return nil
}

// Len reports the number of accepted scenes.
func (m *Manuscript) Len() int {
	return len(m.scenes)
}

// Scenes returns a copy of the accepted scenes.
func (m *Manuscript) Scenes() []Scene {
	out := make([]Scene, len(m.scenes))
	copy(out, m.scenes)
	return out
}

// Valences extracts the valence trajectory in presentation order.
func (m *Manuscript) Valences() []float64 {
	out := make([]float64, len(m.scenes))
	for i, s := range m.scenes {
		out[i] = s.Valence
	}
	return out
}

// Vectors extracts the semantic positions in presentation order.
func (m *Manuscript) Vectors() []pacing.Vector {
	out := make([]pacing.Vector, len(m.scenes))
	for i, s := range m.scenes {
		out[i] = s.Vector
	}
	return out
}

// TargetProfile holds the heuristic targets a run steers toward.
// Read-only for the duration of a run.
type TargetProfile struct {
	ReversalFrequency    float64
	ReversalIntensityMin float64
	SemanticDistanceMin  float64
	EmotionalVarianceMin float64
}

// Weights blends the normalized metrics into the success score. The
// config layer validates that they sum to one.
type Weights struct {
	ReversalFrequency float64
	ReversalIntensity float64
	SemanticDistance  float64
	EmotionalVariance float64
}

// DefaultWeights weighs the four metrics equally.
func DefaultWeights() Weights {
	return Weights{
		ReversalFrequency: 0.25,
		ReversalIntensity: 0.25,
		SemanticDistance:  0.25,
		EmotionalVariance: 0.25,
	}
}

// GenerationParams tune a single generation call.
type GenerationParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator produces scene prose. Implementations classify failures as
// ErrGenerationUnavailable or ErrGenerationRejected; retry policy
// belongs to the caller, never to scoring code.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// RunResult is everything a completed (or cancelled) run produced. On
// cancellation the manuscript and metrics cover the scenes accepted so
// far and the result is still valid.
type RunResult struct {
	RunID        string
	Premise      string
	Scenes       []Scene
	Snapshot     MetricsSnapshot
	Events       []reversal.Event
	Instructions []reversal.Instruction
	Assignment   temporal.Assignment
	Plan         []reversal.Planned
	Pacing       pacing.Metrics
	Valence      valence.Statistics
	Partial      bool
}
