package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/reversal"
	"github.com/vampirenirmal/narratology/internal/temporal"
	"github.com/vampirenirmal/narratology/internal/valence"
)

// RunConfig tunes a single generation run. The config layer validates it
// before the engine ever sees it.
type RunConfig struct {
	SceneCount       int
	ScenesPerChapter int
	Technique        temporal.Technique
	MaxSceneAttempts int
	ValenceTolerance float64
	Generation       GenerationParams
}

// Engine drives scene-by-scene generation against a target profile.
// Generation is strictly sequential: each scene's scoring and prompt
// depend on the full trajectory before it. One engine serves one run.
type Engine struct {
	gen        Generator
	tracker    *valence.Tracker
	detector   *reversal.Detector
	optimizer  *reversal.Optimizer
	controller *pacing.Controller
	designer   *temporal.Designer
	profile    TargetProfile
	weights    Weights
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracker replaces the default valence tracker.
func WithTracker(t *valence.Tracker) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithController replaces the default pacing controller.
func WithController(c *pacing.Controller) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.controller = c
		}
	}
}

// WithWeights replaces the default equal metric weights.
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) {
		e.weights = w
	}
}

// NewEngine wires an engine around a generator and a target profile.
func NewEngine(gen Generator, profile TargetProfile, opts ...EngineOption) *Engine {
	detector := reversal.NewDetector(profile.ReversalIntensityMin)
	e := &Engine{
		gen:        gen,
		tracker:    valence.NewTracker(nil),
		detector:   detector,
		optimizer:  reversal.NewOptimizer(detector),
		controller: pacing.NewController(),
		designer:   temporal.NewDesigner(),
		profile:    profile,
		weights:    DefaultWeights(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Run generates cfg.SceneCount scenes for the premise. Cancellation
// between scenes returns the partial result alongside the context error;
// the partial manuscript and its metrics are valid. A scene that
// exhausts its attempts on hard failures ends the run the same way, with
// a SceneError.
func (e *Engine) Run(ctx context.Context, premise string, cfg RunConfig) (*RunResult, error) {
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID)
	log.Info("starting run",
		"scene_count", cfg.SceneCount,
		"scenes_per_chapter", cfg.ScenesPerChapter,
		"technique", cfg.Technique,
	)

	seed := reversal.DefaultSeed(cfg.SceneCount)
	plan := reversal.PlanTrajectory(seed, e.profile.ReversalIntensityMin)
	targets := planTargets(seed, plan)

	assignment, err := e.designer.Assign(cfg.SceneCount, cfg.Technique)
	if err != nil {
		return nil, fmt.Errorf("designing temporal structure: %w", err)
	}

	result := &RunResult{
		RunID:      runID,
		Premise:    premise,
		Assignment: assignment,
		Plan:       plan,
	}
	var manuscript Manuscript

	for i := 0; i < cfg.SceneCount; i++ {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled between scenes", "scenes_done", manuscript.Len())
			return e.finish(result, &manuscript, cfg, true), err
		}

		scene, err := e.generateScene(ctx, premise, i, cfg, plan, targets, &manuscript)
		if err != nil {
			log.Error("scene generation failed", "scene", i, "error", err)
			return e.finish(result, &manuscript, cfg, true), err
		}
		scene.NarrativeTime = assignment.Times[i]
		if err := manuscript.AppendScene(scene); err != nil {
			return e.finish(result, &manuscript, cfg, true), err
		}
		log.Info("scene accepted",
			"scene", i,
			"valence", scene.Valence,
			"length", len(scene.Text),
		)
	}

	final := e.finish(result, &manuscript, cfg, false)
	log.Info("run complete",
		"scenes", len(final.Scenes),
		"success_score", final.Snapshot.SuccessScore,
		"instructions", len(final.Instructions),
	)
	return final, nil
}

// generateScene drafts candidates until one lands within the valence
// tolerance of the planned target, keeping the closest draft as a
// fallback when attempts run out. Only hard failures propagate.
func (e *Engine) generateScene(ctx context.Context, premise string, index int, cfg RunConfig, plan []reversal.Planned, targets []float64, m *Manuscript) (Scene, error) {
	var planned *reversal.Planned
	if index > 0 && index-1 < len(plan) {
		planned = &plan[index-1]
	}
	target := 0.0
	if index < len(targets) {
		target = targets[index]
	}

	req := PromptRequest{
		Premise:       premise,
		SceneIndex:    index,
		SceneCount:    cfg.SceneCount,
		Planned:       planned,
		TargetValence: target,
		Speed:         e.speedHint(index, target, m),
		PreviousTail:  e.previousTail(m),
	}

	attempts := cfg.MaxSceneAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		best     Scene
		bestMods []valence.AppliedModifier
		bestDiff = math.Inf(1)
		lastErr  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := e.gen.Generate(ctx, BuildScenePrompt(req), cfg.Generation)
		if err != nil {
			if !IsRecoverable(err) {
				return Scene{}, &SceneError{SceneIndex: index, Attempts: attempt, Err: err}
			}
			// A rejection means this exact request will never
			// succeed, so the next attempt must change it.
			if IsRejected(err) {
				req.Revision++
			}
			lastErr = err
			e.logger.Warn("generation attempt failed",
				"scene", index,
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		v, mods := e.tracker.Evaluate(text, index, cfg.SceneCount)
		diff := math.Abs(v - target)
		if diff < bestDiff {
			best = Scene{Index: index, Text: text, Valence: v, Vector: e.controller.Embed(text)}
			bestMods = mods
			bestDiff = diff
		}
		if diff <= cfg.ValenceTolerance {
			break
		}
		e.logger.Debug("draft outside valence tolerance",
			"scene", index,
			"attempt", attempt,
			"valence", v,
			"target", target,
		)
	}

	if math.IsInf(bestDiff, 1) {
		return Scene{}, &SceneError{SceneIndex: index, Attempts: attempts, Err: lastErr}
	}

	e.tracker.Commit(best.Valence, bestMods)
	return best, nil
}

// finish assembles a result from whatever the manuscript holds. Called
// for complete and partial runs alike.
func (e *Engine) finish(result *RunResult, m *Manuscript, cfg RunConfig, partial bool) *RunResult {
	valences := m.Valences()
	chapters := chapterCount(m.Len(), cfg.ScenesPerChapter)

	result.Scenes = m.Scenes()
	result.Partial = partial
	result.Events = e.detector.Detect(valences)
	result.Pacing = e.controller.PacingMetrics(m.Vectors())
	result.Snapshot = ComputeSnapshot(valences, result.Pacing, chapters, e.profile, e.weights, e.detector)
	result.Instructions = e.optimizer.Optimize(valences, chapters, reversal.Targets{
		FrequencyPerChapter: e.profile.ReversalFrequency,
		MinIntensity:        e.profile.ReversalIntensityMin,
	})
	result.Valence = e.tracker.Stats()

	// Trim the temporal assignment to the accepted scenes. The scenes
	// keep the times they were generated under, so the trim keeps the
	// original times rather than recomputing the technique for the
	// shorter count.
	if partial && m.Len() < len(result.Assignment.Times) {
		result.Assignment = result.Assignment.Trim(m.Len())
	}
	return result
}

func (e *Engine) previousTail(m *Manuscript) string {
	if m.Len() == 0 {
		return ""
	}
	return m.Scenes()[m.Len()-1].Text
}

// speedHint recommends a tempo from the last transition's semantic
// movement and the magnitude of the upcoming emotional target.
func (e *Engine) speedHint(index int, target float64, m *Manuscript) pacing.Speed {
	var lastDistance float64
	if m.Len() >= 2 {
		vectors := m.Vectors()
		lastDistance = pacing.Distance(vectors[len(vectors)-2], vectors[len(vectors)-1])
	}
	return e.controller.SpeedFor(lastDistance, math.Abs(target))
}

// planTargets expands a transition plan into one target valence per
// scene: the seed's opening value, then each planned landing point.
func planTargets(seed []float64, plan []reversal.Planned) []float64 {
	targets := make([]float64, 0, len(plan)+1)
	if len(seed) > 0 {
		targets = append(targets, seed[0])
	} else {
		targets = append(targets, 0)
	}
	for _, p := range plan {
		targets = append(targets, p.TargetValence)
	}
	return targets
}

func chapterCount(scenes, perChapter int) int {
	if perChapter <= 0 {
		perChapter = 3
	}
	chapters := scenes / perChapter
	if scenes%perChapter != 0 {
		chapters++
	}
	return chapters
}
