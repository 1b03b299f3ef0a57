// Package report serializes a finished (or partial) run: manuscript,
// metrics, and the valence curve. Verdict wording lives here, not in the
// scoring core.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/narratology/internal/core"
	"github.com/vampirenirmal/narratology/internal/storage"
)

// Verdict bands for the success score.
const (
	VerdictExcellent     = "excellent"
	VerdictGood          = "good"
	VerdictNeedsRevision = "needs revision"
)

// Verdict maps a success score onto a band.
func Verdict(successScore float64) string {
	switch {
	case successScore >= 0.85:
		return VerdictExcellent
	case successScore >= 0.7:
		return VerdictGood
	}
	return VerdictNeedsRevision
}

// Writer persists run artifacts through a Store.
type Writer struct {
	store  storage.Store
	logger *slog.Logger
}

// NewWriter builds a report writer. A nil logger uses the default.
func NewWriter(store storage.Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, logger: logger.With("component", "report")}
}

// summary is the metrics.json payload.
type summary struct {
	RunID        string                 `json:"run_id"`
	Premise      string                 `json:"premise"`
	Partial      bool                   `json:"partial"`
	SceneCount   int                    `json:"scene_count"`
	Verdict      string                 `json:"verdict"`
	Snapshot     core.MetricsSnapshot   `json:"metrics"`
	Events       []eventRecord          `json:"reversal_events"`
	Instructions []instructionRecord    `json:"instructions"`
	Pacing       pacingRecord           `json:"pacing"`
	Valence      valenceRecord          `json:"valence"`
	Temporal     map[string]interface{} `json:"temporal"`
}

type eventRecord struct {
	Start     int     `json:"start_index"`
	End       int     `json:"end_index"`
	Intensity float64 `json:"intensity"`
	Sign      string  `json:"sign"`
}

type instructionRecord struct {
	Type        string  `json:"type"`
	SceneIndex  int     `json:"scene_index"`
	TargetDelta float64 `json:"target_delta,omitempty"`
	Reason      string  `json:"reason"`
}

type pacingRecord struct {
	TotalDistance      float64   `json:"total_distance"`
	NormalizedDistance float64   `json:"normalized_distance"`
	Curve              []float64 `json:"curve"`
	Violations         []int     `json:"cap_violations"`
}

type valenceRecord struct {
	Curve         []float64 `json:"curve"`
	Mean          float64   `json:"mean"`
	Variance      float64   `json:"variance"`
	Min           float64   `json:"min"`
	Max           float64   `json:"max"`
	PositiveRatio float64   `json:"positive_ratio"`
	NegativeRatio float64   `json:"negative_ratio"`
}

// Write persists the manuscript and the metrics summary. It is called
// for aborted runs too, so a partial result still leaves artifacts on
// disk.
func (w *Writer) Write(ctx context.Context, res *core.RunResult) error {
	if err := w.store.Save(ctx, "manuscript.md", []byte(renderManuscript(res))); err != nil {
		return fmt.Errorf("saving manuscript: %w", err)
	}

	payload, err := json.MarshalIndent(buildSummary(res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if err := w.store.Save(ctx, "metrics.json", payload); err != nil {
		return fmt.Errorf("saving metrics: %w", err)
	}

	w.logger.Info("report written",
		"run_id", res.RunID,
		"scenes", len(res.Scenes),
		"verdict", Verdict(res.Snapshot.SuccessScore),
		"partial", res.Partial,
	)
	return nil
}

func buildSummary(res *core.RunResult) summary {
	s := summary{
		RunID:      res.RunID,
		Premise:    res.Premise,
		Partial:    res.Partial,
		SceneCount: len(res.Scenes),
		Verdict:    Verdict(res.Snapshot.SuccessScore),
		Snapshot:   res.Snapshot,
		Pacing: pacingRecord{
			TotalDistance:      res.Pacing.TotalDistance,
			NormalizedDistance: res.Pacing.NormalizedDistance,
			Curve:              res.Pacing.Curve,
			Violations:         res.Pacing.Violations,
		},
		Valence: valenceRecord{
			Mean:          res.Valence.Mean,
			Variance:      res.Valence.Variance,
			Min:           res.Valence.Min,
			Max:           res.Valence.Max,
			PositiveRatio: res.Valence.PositiveRatio,
			NegativeRatio: res.Valence.NegativeRatio,
		},
		Temporal: map[string]interface{}{
			"technique":  string(res.Assignment.Technique),
			"times":      res.Assignment.Times,
			"chronology": res.Assignment.Chronology,
		},
	}
	for _, sc := range res.Scenes {
		s.Valence.Curve = append(s.Valence.Curve, sc.Valence)
	}
	for _, e := range res.Events {
		s.Events = append(s.Events, eventRecord{
			Start:     e.StartIndex,
			End:       e.EndIndex,
			Intensity: e.Intensity,
			Sign:      string(e.Sign),
		})
	}
	for _, ins := range res.Instructions {
		s.Instructions = append(s.Instructions, instructionRecord{
			Type:        string(ins.Type),
			SceneIndex:  ins.SceneIndex,
			TargetDelta: ins.TargetDelta,
			Reason:      ins.Reason,
		})
	}
	return s
}

func renderManuscript(res *core.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", res.Premise)
	if res.Partial {
		b.WriteString("*Partial manuscript: the run stopped before completion.*\n\n")
	}
	for _, sc := range res.Scenes {
		fmt.Fprintf(&b, "## Scene %d\n\n", sc.Index+1)
		fmt.Fprintf(&b, "*narrative time %.1f, valence %+.2f*\n\n", sc.NarrativeTime, sc.Valence)
		b.WriteString(strings.TrimSpace(sc.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}
