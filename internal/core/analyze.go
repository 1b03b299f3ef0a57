package core

import (
	"context"
	"fmt"

	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/reversal"
	"github.com/vampirenirmal/narratology/internal/valence"
)

// Analysis is the post-hoc evaluation of an existing manuscript.
type Analysis struct {
	Valences     []float64
	Events       []reversal.Event
	Pacing       pacing.Metrics
	Snapshot     MetricsSnapshot
	Instructions []reversal.Instruction
	Valence      valence.Statistics
}

// Analyze scores an already written scene sequence against the profile.
// Scene embedding fans out concurrently (each embedding is independent);
// valence scoring stays sequential because the tracker's positional
// adjustment depends on position in the whole.
func (e *Engine) Analyze(ctx context.Context, texts []string, scenesPerChapter int) (*Analysis, error) {
	vectors, err := e.controller.EmbedScenes(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding scenes: %w", err)
	}

	// Same lexicon and positional settings as generation, so analyzing
	// a manuscript this engine produced reproduces its scores; a fresh
	// history keeps the run's own record untouched.
	tracker := e.tracker.Fresh()
	valences := make([]float64, len(texts))
	for i, text := range texts {
		valences[i] = tracker.ScoreAt(text, i, len(texts)).RawScore
	}

	chapters := chapterCount(len(texts), scenesPerChapter)
	pm := e.controller.PacingMetrics(vectors)
	return &Analysis{
		Valences: valences,
		Events:   e.detector.Detect(valences),
		Pacing:   pm,
		Snapshot: ComputeSnapshot(valences, pm, chapters, e.profile, e.weights, e.detector),
		Instructions: e.optimizer.Optimize(valences, chapters, reversal.Targets{
			FrequencyPerChapter: e.profile.ReversalFrequency,
			MinIntensity:        e.profile.ReversalIntensityMin,
		}),
		Valence: tracker.Stats(),
	}, nil
}
