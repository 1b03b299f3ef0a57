package reversal

import (
	"fmt"
	"math"
)

// Type names the dramatic shape of a planned reversal.
type Type string

const (
	ClassicPeripeteia Type = "classic_peripeteia"
	FalseDefeat       Type = "false_defeat"
	BetrayalCascade   Type = "betrayal_cascade"
	PyrrhicVictory    Type = "pyrrhic_victory"
	RecognitionScene  Type = "recognition_scene"
	RoleReversal      Type = "role_reversal"
)

// narrativeFunctions describe what each reversal type does for the story.
// The prompt builder embeds these verbatim.
var narrativeFunctions = map[Type]string{
	ClassicPeripeteia: "the protagonist's fortune collapses at the moment of apparent mastery",
	FalseDefeat:       "an early loss that conceals the seed of later strength",
	BetrayalCascade:   "a trusted ally's turn triggers a chain of failing alliances",
	PyrrhicVictory:    "the goal is won at a cost that hollows the triumph",
	RecognitionScene:  "a hidden truth surfaces and redraws every allegiance",
	RoleReversal:      "hunter and hunted exchange places",
}

// NarrativeFunction returns the descriptive text for a reversal type.
func (t Type) NarrativeFunction() string {
	return narrativeFunctions[t]
}

// Planned is one step of a planned valence trajectory. Index is the
// scene the swing lands on; TargetValence is the valence that scene
// should reach.
type Planned struct {
	Index         int
	Position      string
	Type          Type
	Sign          Sign
	TargetValence float64
	Swing         float64
}

const scenesPerChapterLabel = 3

// DefaultSeed builds a deterministic alternating trajectory for n scenes.
// The envelope follows the smoothstep curve 3t^2 - 2t^3 so swings grow
// toward the climax.
func DefaultSeed(n int) []float64 {
	if n < 2 {
		n = 5
	}
	seed := make([]float64, n)
	for i := range seed {
		t := float64(i) / float64(n-1)
		envelope := 0.4 + 0.6*(3*t*t-2*t*t*t)
		if i%2 == 1 {
			envelope = -envelope
		}
		seed[i] = envelope
	}
	return seed
}

// PlanTrajectory turns a seed valence trajectory into a sequence of
// planned reversals, adjusting the seed so every consecutive swing meets
// minIntensity. Seeds shorter than two points fall back to DefaultSeed.
// The returned plan has one entry per transition; entry i targets scene
// i+1 of the trajectory.
func PlanTrajectory(seed []float64, minIntensity float64) []Planned {
	if minIntensity <= 0 {
		minIntensity = DefaultMinIntensity
	}
	if len(seed) < 2 {
		seed = DefaultSeed(5)
	}
	traj := enforceMinSwing(seed, minIntensity)

	plan := make([]Planned, 0, len(traj)-1)
	for i := 1; i < len(traj); i++ {
		sign := SignRise
		if traj[i] < traj[i-1] {
			sign = SignFall
		}
		plan = append(plan, Planned{
			Index:         i,
			Position:      positionLabel(i),
			Type:          classify(sign, i, len(traj)),
			Sign:          sign,
			TargetValence: traj[i],
			Swing:         math.Abs(traj[i] - traj[i-1]),
		})
	}
	return plan
}

// enforceMinSwing pushes each point away from its predecessor until the
// swing reaches the minimum, preserving the seed's direction where it has
// one and alternating where it does not. Points are clamped to [-1, 1];
// when the preferred direction cannot reach the minimum inside the range,
// the swing flips.
func enforceMinSwing(seed []float64, min float64) []float64 {
	out := make([]float64, len(seed))
	copy(out, seed)
	for i := 1; i < len(out); i++ {
		delta := out[i] - out[i-1]
		if math.Abs(delta) >= min {
			continue
		}
		dir := 1.0
		switch {
		case delta < 0:
			dir = -1
		case delta == 0 && i%2 == 0:
			dir = -1
		}
		candidate := out[i-1] + dir*min
		if candidate > 1 || candidate < -1 {
			candidate = out[i-1] - dir*min
		}
		out[i] = clampUnit(candidate)
	}
	return out
}

// classify picks a reversal type from the swing direction and where the
// scene falls in the manuscript.
func classify(sign Sign, index, total int) Type {
	early := index < total/3
	late := index >= total-total/3-1
	if sign == SignFall {
		switch {
		case early:
			return FalseDefeat
		case late:
			return ClassicPeripeteia
		default:
			return BetrayalCascade
		}
	}
	switch {
	case early:
		return RoleReversal
	case late:
		return RecognitionScene
	default:
		return PyrrhicVictory
	}
}

func positionLabel(index int) string {
	return fmt.Sprintf("chapter_%d_scene_%d", index/scenesPerChapterLabel+1, index%scenesPerChapterLabel+1)
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
