package valence

import "strings"

// Cue weights by tier, matching the calibration of the lexicon below.
const (
	WeightWeak     = 0.3
	WeightModerate = 0.6
	WeightStrong   = 1.0
)

// Modifier multipliers. A negator softens rather than mirrors: repeated
// denial reads as ambivalence, not full inversion.
const (
	IntensifierFactor = 1.5
	DiminisherFactor  = 0.5
	NegatorFactor     = -0.8
)

// Lexicon maps lexical and phrasal cues to signed intensity scores, plus
// the contextual modifiers that adjust them. A Lexicon is immutable after
// construction; per-run customization goes through Merge, which returns a
// new value and never touches the receiver.
type Lexicon struct {
	cues         map[string]float64
	maxPhraseLen int
	intensifiers map[string]bool
	diminishers  map[string]bool
	negators     map[string]bool
}

var defaultCues = map[string]float64{
	// positive, weak
	"hope":       WeightWeak,
	"relief":     WeightWeak,
	"friendship": WeightWeak,
	"smile":      WeightWeak,
	"warmth":     WeightWeak,
	"peace":      WeightWeak,
	"calm":       WeightWeak,
	"comfort":    WeightWeak,
	"love":       WeightWeak,

	// positive, moderate
	"victory":            WeightModerate,
	"reunion":            WeightModerate,
	"discovery":          WeightModerate,
	"triumph":            WeightModerate,
	"joy":                WeightModerate,
	"fortune":            WeightModerate,
	"delight":            WeightModerate,
	"despite everything": WeightModerate,

	// positive, strong
	"miracle":          WeightStrong,
	"salvation":        WeightStrong,
	"bliss":            WeightStrong,
	"glory":            WeightStrong,
	"liberation":       WeightStrong,
	"rapture":          WeightStrong,
	"redemption":       WeightStrong,
	"love fulfilled":   WeightStrong,
	"against all odds": WeightStrong,

	// negative, weak
	"unease":     -WeightWeak,
	"doubt":      -WeightWeak,
	"loneliness": -WeightWeak,
	"gloom":      -WeightWeak,
	"worry":      -WeightWeak,
	"confusion":  -WeightWeak,
	"shadow":     -WeightWeak,

	// negative, moderate
	"defeat":         -WeightModerate,
	"betrayal":       -WeightModerate,
	"loss":           -WeightModerate,
	"sorrow":         -WeightModerate,
	"rage":           -WeightModerate,
	"fear":           -WeightModerate,
	"grief":          -WeightModerate,
	"disappointment": -WeightModerate,

	// negative, strong
	"despair":      -WeightStrong,
	"death":        -WeightStrong,
	"ruin":         -WeightStrong,
	"doom":         -WeightStrong,
	"damnation":    -WeightStrong,
	"annihilation": -WeightStrong,
	"all is lost":  -WeightStrong,
}

var defaultIntensifiers = []string{"very", "utterly", "truly", "completely", "absolutely", "deeply"}
var defaultDiminishers = []string{"slightly", "somewhat", "faintly", "barely", "mildly", "vaguely"}
var defaultNegators = []string{"not", "never", "no", "without", "hardly"}

// DefaultLexicon returns the built-in high-fantasy cue lexicon.
func DefaultLexicon() *Lexicon {
	return newLexicon(defaultCues)
}

func newLexicon(cues map[string]float64) *Lexicon {
	l := &Lexicon{
		cues:         make(map[string]float64, len(cues)),
		intensifiers: toSet(defaultIntensifiers),
		diminishers:  toSet(defaultDiminishers),
		negators:     toSet(defaultNegators),
	}
	for phrase, weight := range cues {
		normalized := strings.ToLower(strings.TrimSpace(phrase))
		if normalized == "" {
			continue
		}
		l.cues[normalized] = clamp(weight)
		if n := len(strings.Fields(normalized)); n > l.maxPhraseLen {
			l.maxPhraseLen = n
		}
	}
	return l
}

// Merge returns a new Lexicon with the given cue overrides applied on top
// of the receiver. Override weights are clamped to [-1, 1]; a zero weight
// removes the cue.
func (l *Lexicon) Merge(overrides map[string]float64) *Lexicon {
	merged := make(map[string]float64, len(l.cues)+len(overrides))
	for phrase, weight := range l.cues {
		merged[phrase] = weight
	}
	for phrase, weight := range overrides {
		normalized := strings.ToLower(strings.TrimSpace(phrase))
		if normalized == "" {
			continue
		}
		if weight == 0 {
			delete(merged, normalized)
			continue
		}
		merged[normalized] = weight
	}
	return newLexicon(merged)
}

// Weight reports the signed intensity of a cue phrase, if present.
func (l *Lexicon) Weight(phrase string) (float64, bool) {
	w, ok := l.cues[strings.ToLower(phrase)]
	return w, ok
}

// MaxPhraseLen is the token length of the longest cue phrase. The tracker
// uses it to bound longest-phrase-first matching.
func (l *Lexicon) MaxPhraseLen() int {
	return l.maxPhraseLen
}

// Size reports the number of cue phrases in the lexicon.
func (l *Lexicon) Size() int {
	return len(l.cues)
}

func (l *Lexicon) modifierKind(token string) (ModifierKind, float64, bool) {
	switch {
	case l.intensifiers[token]:
		return ModifierIntensifier, IntensifierFactor, true
	case l.diminishers[token]:
		return ModifierDiminisher, DiminisherFactor, true
	case l.negators[token]:
		return ModifierNegator, NegatorFactor, true
	}
	return "", 0, false
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
