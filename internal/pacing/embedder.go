// Package pacing measures how fast a manuscript moves through semantic
// space, using a deterministic lexical-category embedding.
package pacing

import (
	"math"
	"strings"
	"unicode"
)

// Dimensions is the size of the semantic space: one axis per narrative
// domain.
const Dimensions = 6

// Axis indices into a Vector.
const (
	AxisPhysical = iota
	AxisEmotional
	AxisPhilosophical
	AxisPolitical
	AxisSpiritual
	AxisMythological
)

// Vector is a scene's position in semantic space. Unit-normalized when
// any domain term matched, the zero vector otherwise.
type Vector [Dimensions]float64

// Distance is the Euclidean distance between two semantic positions.
func Distance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// MaxPairDistance is the largest possible distance between two embedded
// vectors. Embeddings are non-negative and unit length, so the extremes
// are orthogonal unit vectors.
var MaxPairDistance = math.Sqrt2

var domainTerms = [Dimensions][]string{
	AxisPhysical: {
		"sword", "blade", "march", "run", "ride", "strike", "wound",
		"climb", "road", "battle", "fist", "stone", "fire", "storm",
		"blood", "gate", "wall", "horse",
	},
	AxisEmotional: {
		"love", "fear", "grief", "joy", "rage", "longing", "hope",
		"despair", "tears", "heart", "sorrow", "tenderness", "fury",
	},
	AxisPhilosophical: {
		"truth", "meaning", "fate", "choice", "freedom", "justice",
		"virtue", "wisdom", "doubt", "purpose", "mortality", "reason",
	},
	AxisPolitical: {
		"king", "queen", "throne", "council", "treaty", "rebellion",
		"crown", "empire", "alliance", "court", "decree", "realm",
		"succession",
	},
	AxisSpiritual: {
		"prayer", "temple", "god", "goddess", "blessing", "soul",
		"ritual", "faith", "sacred", "pilgrimage", "curse", "oath",
	},
	AxisMythological: {
		"dragon", "prophecy", "ancient", "legend", "rune", "elder",
		"titan", "phoenix", "wyrm", "relic", "seer", "omen",
	},
}

// Embedder maps scene text to a semantic Vector. The mapping is pure:
// identical text always produces identical vectors.
type Embedder struct {
	index map[string]int
}

// NewEmbedder builds an embedder over the built-in domain lexicons.
func NewEmbedder() *Embedder {
	idx := make(map[string]int)
	for axis, terms := range domainTerms {
		for _, term := range terms {
			idx[term] = axis
		}
	}
	return &Embedder{index: idx}
}

// Embed counts domain-term occurrences per axis and unit-normalizes the
// result. Text with no domain terms embeds to the zero vector.
func (e *Embedder) Embed(text string) Vector {
	var v Vector
	for _, token := range tokenize(text) {
		if axis, ok := e.index[token]; ok {
			v[axis]++
		}
	}
	var norm float64
	for _, c := range v {
		norm += c * c
	}
	if norm == 0 {
		return Vector{}
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
