// Package temporal assigns narrative time to scenes, separating the
// order events happen in from the order the reader meets them.
package temporal

import (
	"fmt"
	"sort"
)

// Technique names a nonlinear structuring strategy.
type Technique string

const (
	InMediasRes       Technique = "in_medias_res"
	ParallelTimelines Technique = "parallel_timelines"
	NestedFlashback   Technique = "nested_flashback"
	PropheticVision   Technique = "prophetic_vision"
)

// Techniques lists the supported strategies.
func Techniques() []Technique {
	return []Technique{InMediasRes, ParallelTimelines, NestedFlashback, PropheticVision}
}

// Valid reports whether the technique is one the designer knows.
func (t Technique) Valid() bool {
	switch t {
	case InMediasRes, ParallelTimelines, NestedFlashback, PropheticVision:
		return true
	}
	return false
}

// Assignment records the mapping between presentation order and story
// chronology. Times is indexed by presentation position; Chronology
// lists presentation indices in story order. The mapping is lossless:
// the presentation order is recoverable from Chronology alone.
type Assignment struct {
	Technique  Technique
	Times      []float64
	Chronology []int
}

// Ranks inverts Chronology: the result maps each presentation index to
// its chronological rank. Reordering scenes by Chronology and then
// placing each back at Chronology[rank] reproduces the original
// presentation exactly.
func (a Assignment) Ranks() []int {
	ranks := make([]int, len(a.Chronology))
	for rank, idx := range a.Chronology {
		ranks[idx] = rank
	}
	return ranks
}

// ChronologicalRank reports where the scene at the given presentation
// index falls in story order.
func (a Assignment) ChronologicalRank(presentationIndex int) (int, error) {
	if presentationIndex < 0 || presentationIndex >= len(a.Chronology) {
		return 0, fmt.Errorf("presentation index %d out of range for %d scenes", presentationIndex, len(a.Chronology))
	}
	return a.Ranks()[presentationIndex], nil
}

// Trim restricts the assignment to the first n presentation positions,
// keeping their original narrative times. Chronology is recomputed over
// the kept scenes so the mapping stays lossless when a run stops early.
func (a Assignment) Trim(n int) Assignment {
	if n >= len(a.Times) {
		return a
	}
	if n < 0 {
		n = 0
	}
	times := make([]float64, n)
	copy(times, a.Times[:n])
	return Assignment{Technique: a.Technique, Times: times, Chronology: chronology(times)}
}

// Designer produces narrative-time assignments.
type Designer struct{}

// NewDesigner returns a Designer.
func NewDesigner() *Designer {
	return &Designer{}
}

// Assign computes narrative times for n scenes under the technique. An
// unknown technique or n < 1 is an error; n == 1 degenerates to the
// trivial assignment for every technique.
func (d *Designer) Assign(n int, technique Technique) (Assignment, error) {
	if n < 1 {
		return Assignment{}, fmt.Errorf("assigning narrative time: need at least one scene, got %d", n)
	}
	if !technique.Valid() {
		return Assignment{}, fmt.Errorf("assigning narrative time: unknown technique %q", technique)
	}

	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i)
	}

	switch technique {
	case InMediasRes:
		// The opening scene actually happens after the first few
		// scenes shown: the reader starts mid-action.
		if n > 1 {
			anchor := 3
			if anchor > n-1 {
				anchor = n - 1
			}
			times[0] = float64(anchor) + 0.5
		}
	case ParallelTimelines:
		// Even presentation positions form one strand, odd the
		// other; the strands interleave at half-step offsets.
		for i := range times {
			times[i] = float64(i/2) + 0.5*float64(i%2)
		}
	case NestedFlashback:
		nestFlashbacks(times, 0, n, 0)
	case PropheticVision:
		// One early scene shows the story's far future.
		vision := 1
		if n == 1 {
			vision = 0
		}
		times[vision] = float64(n)
	}

	return Assignment{Technique: technique, Times: times, Chronology: chronology(times)}, nil
}

// nestFlashbacks shifts the middle third of [lo, hi) into the past,
// recursing while the range still holds three or more scenes. Deeper
// nesting moves further back.
func nestFlashbacks(times []float64, lo, hi, depth int) {
	span := hi - lo
	if span < 3 {
		return
	}
	midLo := lo + span/3
	midHi := lo + 2*span/3
	shift := float64(len(times) * (depth + 1))
	for i := midLo; i < midHi; i++ {
		times[i] -= shift
	}
	nestFlashbacks(times, midLo, midHi, depth+1)
}

// chronology sorts presentation indices by narrative time, presentation
// order breaking ties, so the mapping is total and deterministic.
func chronology(times []float64) []int {
	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]] < times[order[b]]
	})
	return order
}
