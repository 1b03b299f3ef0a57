// Package reversal detects and optimizes peripeteia: large swings in the
// emotional valence trajectory of a manuscript.
package reversal

import "math"

// Sign labels the direction of a reversal.
type Sign string

const (
	SignRise Sign = "rise"
	SignFall Sign = "fall"
)

// Event is one detected reversal. Intensity is the absolute valence
// change across the full monotonic trend, so it is always >= 0. Events
// are derived values; callers recompute them whenever the underlying
// valence sequence changes.
type Event struct {
	StartIndex int
	EndIndex   int
	Intensity  float64
	Sign       Sign
}

// DefaultMinIntensity is the threshold below which a swing does not
// register as a reversal.
const DefaultMinIntensity = 0.8

// Detector finds reversal events in a valence sequence.
type Detector struct {
	minIntensity float64
}

// NewDetector builds a detector. Thresholds <= 0 fall back to the
// default.
func NewDetector(minIntensity float64) *Detector {
	if minIntensity <= 0 {
		minIntensity = DefaultMinIntensity
	}
	return &Detector{minIntensity: minIntensity}
}

// MinIntensity reports the detection threshold.
func (d *Detector) MinIntensity() float64 {
	return d.minIntensity
}

// Detect segments the sequence into maximal monotonic trends and emits
// one event per trend whose amplitude meets the threshold. A trend's
// start is the previous extremum: indices inside a monotonic run are not
// candidate starts, so each qualifying swing yields exactly one event.
// Plateaus extend the current trend. Fewer than two valences means no
// events.
func (d *Detector) Detect(valences []float64) []Event {
	if len(valences) < 2 {
		return nil
	}

	var events []Event
	emit := func(start, end int) {
		amp := math.Abs(valences[end] - valences[start])
		if amp < d.minIntensity {
			return
		}
		sign := SignRise
		if valences[end] < valences[start] {
			sign = SignFall
		}
		events = append(events, Event{StartIndex: start, EndIndex: end, Intensity: amp, Sign: sign})
	}

	trendStart := 0
	trendDir := 0
	for j := 1; j < len(valences); j++ {
		dir := direction(valences[j] - valences[j-1])
		if dir == 0 {
			continue
		}
		if trendDir == 0 {
			trendDir = dir
			continue
		}
		if dir != trendDir {
			emit(trendStart, j-1)
			trendStart = j - 1
			trendDir = dir
		}
	}
	if trendDir != 0 {
		emit(trendStart, len(valences)-1)
	}
	return events
}

// Frequency is events per chapter. Zero chapters yields zero.
func Frequency(events []Event, chapterCount int) float64 {
	if chapterCount <= 0 {
		return 0
	}
	return float64(len(events)) / float64(chapterCount)
}

// AverageIntensity is the mean intensity across events, zero when empty.
func AverageIntensity(events []Event) float64 {
	if len(events) == 0 {
		return 0
	}
	var sum float64
	for _, e := range events {
		sum += e.Intensity
	}
	return sum / float64(len(events))
}

func direction(delta float64) int {
	switch {
	case delta > 0:
		return 1
	case delta < 0:
		return -1
	}
	return 0
}
