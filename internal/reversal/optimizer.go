package reversal

import "math"

// InstructionType identifies what the optimizer is asking for.
type InstructionType string

const (
	// InsertReversal asks for a new swing near the flattest transition.
	InsertReversal InstructionType = "insert_reversal"
	// AmplifySwing asks to deepen the weakest existing reversal.
	AmplifySwing InstructionType = "amplify_swing"
	// NeedMoreScenes reports that the manuscript is too short to
	// evaluate. It is a normal outcome, not an error.
	NeedMoreScenes InstructionType = "need_more_scenes"
)

// Instruction is advisory guidance for the orchestrator. The optimizer
// never mutates scenes; the orchestrator decides whether and how to act.
type Instruction struct {
	Type InstructionType
	// SceneIndex is the suggested site of the change. For
	// InsertReversal it is the later scene of the flattest adjacent
	// pair; for AmplifySwing it is the end scene of the weakest event.
	SceneIndex int
	// TargetDelta is the additional valence swing needed, where
	// applicable.
	TargetDelta float64
	Reason      string
}

// Targets are the profile values the optimizer steers toward.
type Targets struct {
	FrequencyPerChapter float64
	MinIntensity        float64
}

// Optimizer compares detected reversals against a target profile and
// produces instructions.
type Optimizer struct {
	detector *Detector
}

// NewOptimizer wraps a detector; nil gets a default-threshold detector.
func NewOptimizer(d *Detector) *Optimizer {
	if d == nil {
		d = NewDetector(0)
	}
	return &Optimizer{detector: d}
}

// Optimize evaluates the valence sequence against the targets. Fewer
// than two valences yields a single NeedMoreScenes instruction.
func (o *Optimizer) Optimize(valences []float64, chapterCount int, targets Targets) []Instruction {
	if len(valences) < 2 {
		return []Instruction{{
			Type:   NeedMoreScenes,
			Reason: "fewer than two scenes, reversal structure cannot be evaluated",
		}}
	}

	events := o.detector.Detect(valences)
	var instructions []Instruction

	if targets.FrequencyPerChapter > 0 && Frequency(events, chapterCount) < targets.FrequencyPerChapter {
		idx := flattestTransition(valences)
		instructions = append(instructions, Instruction{
			Type:        InsertReversal,
			SceneIndex:  idx,
			TargetDelta: o.detector.MinIntensity(),
			Reason:      "reversal frequency below target",
		})
	}

	if targets.MinIntensity > 0 && len(events) > 0 {
		weakest := events[0]
		for _, e := range events[1:] {
			if e.Intensity < weakest.Intensity {
				weakest = e
			}
		}
		if weakest.Intensity < targets.MinIntensity {
			instructions = append(instructions, Instruction{
				Type:        AmplifySwing,
				SceneIndex:  weakest.EndIndex,
				TargetDelta: targets.MinIntensity - weakest.Intensity,
				Reason:      "weakest reversal below target intensity",
			})
		}
	}

	return instructions
}

// flattestTransition returns the later index of the adjacent pair with
// the smallest absolute valence change. Earlier pairs win ties.
func flattestTransition(valences []float64) int {
	best := 1
	bestDelta := math.Abs(valences[1] - valences[0])
	for j := 2; j < len(valences); j++ {
		d := math.Abs(valences[j] - valences[j-1])
		if d < bestDelta {
			best = j
			bestDelta = d
		}
	}
	return best
}
