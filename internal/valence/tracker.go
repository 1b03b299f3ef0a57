package valence

import (
	"math"
	"strings"
	"unicode"
)

// ModifierKind labels a contextual modifier applied during scoring.
type ModifierKind string

const (
	ModifierIntensifier ModifierKind = "intensifier"
	ModifierDiminisher  ModifierKind = "diminisher"
	ModifierNegator     ModifierKind = "negator"
)

// AppliedModifier records one modifier that affected a cue, in the order
// it was encountered in the text.
type AppliedModifier struct {
	Kind   ModifierKind
	Token  string
	Cue    string
	Factor float64
}

// Sample is the scoring result for a single scene.
type Sample struct {
	SceneIndex int
	RawScore   float64
	Modifiers  []AppliedModifier
}

// Event records a scene whose valence magnitude crossed the emotional
// event threshold.
type Event struct {
	SceneIndex int
	Valence    float64
	Positive   bool
}

// Statistics summarizes the valence history of a run.
type Statistics struct {
	Count         int
	Mean          float64
	Variance      float64
	Min           float64
	Max           float64
	PositiveRatio float64
	NegativeRatio float64
}

// ArcDirection selects which pole the resolution bias pulls toward.
type ArcDirection string

const (
	ArcRising  ArcDirection = "rising"  // resolve toward +resolutionTarget
	ArcFalling ArcDirection = "falling" // resolve toward -resolutionTarget
)

const (
	defaultModifierWindow = 3
	eventThreshold        = 0.7
	resolutionTarget      = 0.2
	resolutionPhase       = 0.9 // final 10% of the manuscript
)

// Tracker scores scene text against a cue lexicon and keeps the valence
// history of a run. Scoring is total: any input yields a sample, never an
// error. Not safe for concurrent use; generation is sequential and each
// run owns its tracker.
type Tracker struct {
	lexicon        *Lexicon
	modifierWindow int
	arc            ArcDirection
	resolutionBias float64

	history []float64
	samples []Sample
	events  []Event
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithModifierWindow sets how many tokens a modifier may look ahead for a
// cue before it expires. Values below 1 are ignored.
func WithModifierWindow(n int) TrackerOption {
	return func(t *Tracker) {
		if n >= 1 {
			t.modifierWindow = n
		}
	}
}

// WithArc sets the resolution arc direction for positional adjustment.
func WithArc(dir ArcDirection) TrackerOption {
	return func(t *Tracker) {
		if dir == ArcRising || dir == ArcFalling {
			t.arc = dir
		}
	}
}

// WithResolutionBias sets how strongly late scenes are pulled toward the
// arc's resolution target, in [0, 1].
func WithResolutionBias(bias float64) TrackerOption {
	return func(t *Tracker) {
		if bias >= 0 && bias <= 1 {
			t.resolutionBias = bias
		}
	}
}

// NewTracker builds a tracker over the given lexicon. A nil lexicon falls
// back to the default.
func NewTracker(lex *Lexicon, opts ...TrackerOption) *Tracker {
	if lex == nil {
		lex = DefaultLexicon()
	}
	t := &Tracker{
		lexicon:        lex,
		modifierWindow: defaultModifierWindow,
		arc:            ArcRising,
		resolutionBias: 0.5,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fresh returns a tracker with the same lexicon, modifier window, arc,
// and resolution bias but an empty history, for scoring a scene sequence
// unrelated to the one this tracker has recorded.
func (t *Tracker) Fresh() *Tracker {
	return &Tracker{
		lexicon:        t.lexicon,
		modifierWindow: t.modifierWindow,
		arc:            t.arc,
		resolutionBias: t.resolutionBias,
	}
}

// Score computes the valence of a scene without positional adjustment and
// appends it to the history.
func (t *Tracker) Score(text string) Sample {
	raw, mods := t.score(text)
	return t.Commit(raw, mods)
}

// ScoreAt computes the valence of the scene at position index of total,
// applying the resolution adjustment when the scene falls in the closing
// stretch of the manuscript. total <= 0 disables the adjustment.
func (t *Tracker) ScoreAt(text string, index, total int) Sample {
	raw, mods := t.Evaluate(text, index, total)
	return t.Commit(raw, mods)
}

// Evaluate scores text as ScoreAt would but records nothing, so callers
// can compare candidate drafts before committing one to the history.
func (t *Tracker) Evaluate(text string, index, total int) (float64, []AppliedModifier) {
	raw, mods := t.score(text)
	if total > 0 {
		progress := float64(index) / float64(total)
		if progress >= resolutionPhase {
			target := resolutionTarget
			if t.arc == ArcFalling {
				target = -resolutionTarget
			}
			raw = clamp(raw + t.resolutionBias*(target-raw))
		}
	}
	return raw, mods
}

// Commit appends an already evaluated score to the history and returns
// the resulting sample.
func (t *Tracker) Commit(v float64, mods []AppliedModifier) Sample {
	return t.record(v, mods)
}

func (t *Tracker) record(v float64, mods []AppliedModifier) Sample {
	idx := len(t.history)
	t.history = append(t.history, v)
	if math.Abs(v) > eventThreshold {
		t.events = append(t.events, Event{SceneIndex: idx, Valence: v, Positive: v > 0})
	}
	s := Sample{SceneIndex: idx, RawScore: v, Modifiers: mods}
	t.samples = append(t.samples, s)
	return s
}

// score runs tokenization, longest-phrase-first cue matching, and the
// modifier window over the text. Returns the clamped base score and the
// modifiers that actually fired.
func (t *Tracker) score(text string) (float64, []AppliedModifier) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0, nil
	}

	type pendingMod struct {
		kind     ModifierKind
		token    string
		factor   float64
		tokenPos int
	}

	var (
		sum     float64
		matched int
		applied []AppliedModifier
		pending []pendingMod
	)

	maxLen := t.lexicon.MaxPhraseLen()
	for i := 0; i < len(tokens); {
		// Longest phrase wins; consumed tokens are skipped entirely.
		var (
			cue    string
			weight float64
			span   int
		)
		limit := maxLen
		if rest := len(tokens) - i; rest < limit {
			limit = rest
		}
		for n := limit; n >= 1; n-- {
			candidate := strings.Join(tokens[i:i+n], " ")
			if w, ok := t.lexicon.Weight(candidate); ok {
				cue, weight, span = candidate, w, n
				break
			}
		}

		if span == 0 {
			if kind, factor, ok := t.lexicon.modifierKind(tokens[i]); ok {
				pending = append(pending, pendingMod{kind: kind, token: tokens[i], factor: factor, tokenPos: i})
			}
			i++
			continue
		}

		// Apply every live modifier to this cue, oldest first.
		// Consumed and expired modifiers alike are dropped: a
		// modifier too far from this cue is farther still from the
		// next one.
		for _, m := range pending {
			if i-m.tokenPos > t.modifierWindow {
				continue
			}
			weight *= m.factor
			applied = append(applied, AppliedModifier{Kind: m.kind, Token: m.token, Cue: cue, Factor: m.factor})
		}
		pending = pending[:0]

		sum += weight
		matched++
		i += span
	}

	if matched == 0 {
		return 0, nil
	}
	return clamp(sum / float64(matched)), applied
}

// History returns a copy of the recorded valence sequence.
func (t *Tracker) History() []float64 {
	out := make([]float64, len(t.history))
	copy(out, t.history)
	return out
}

// Samples returns a copy of the recorded samples, one per committed
// scene, each carrying the modifiers that shaped its score.
func (t *Tracker) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// EmotionalEvents returns the scenes whose |valence| exceeded 0.7.
func (t *Tracker) EmotionalEvents() []Event {
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// MovingAverage returns the trailing mean over the last window samples,
// or over the whole history when fewer are recorded.
func (t *Tracker) MovingAverage(window int) float64 {
	if len(t.history) == 0 || window <= 0 {
		return 0
	}
	start := len(t.history) - window
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range t.history[start:] {
		sum += v
	}
	return sum / float64(len(t.history)-start)
}

// Stats summarizes the history. Variance is the population variance.
func (t *Tracker) Stats() Statistics {
	n := len(t.history)
	if n == 0 {
		return Statistics{}
	}
	s := Statistics{Count: n, Min: t.history[0], Max: t.history[0]}
	var sum float64
	var positive, negative int
	for _, v := range t.history {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		switch {
		case v > 0:
			positive++
		case v < 0:
			negative++
		}
	}
	s.Mean = sum / float64(n)
	var sq float64
	for _, v := range t.history {
		d := v - s.Mean
		sq += d * d
	}
	s.Variance = sq / float64(n)
	s.PositiveRatio = float64(positive) / float64(n)
	s.NegativeRatio = float64(negative) / float64(n)
	return s
}

// tokenize lowercases and splits on any non-letter, non-digit rune.
// Apostrophes are kept so contractions stay single tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
