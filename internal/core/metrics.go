package core

import (
	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/reversal"
)

// MetricsSnapshot is the heuristic evaluation of a manuscript at a point
// in time. Snapshots are computed on demand, never cached.
type MetricsSnapshot struct {
	ReversalFrequencyPerChapter float64 `json:"reversal_frequency_per_chapter"`
	AverageReversalIntensity    float64 `json:"average_reversal_intensity"`
	EmotionalVariance           float64 `json:"emotional_variance"`
	SemanticDistanceTotal       float64 `json:"semantic_distance_total"`

	// Normalized contributions, each min(1, actual/target).
	FrequencyScore float64 `json:"frequency_score"`
	IntensityScore float64 `json:"intensity_score"`
	VarianceScore  float64 `json:"variance_score"`
	DistanceScore  float64 `json:"distance_score"`

	SuccessScore float64 `json:"success_score"`
}

// ComputeSnapshot evaluates the valence trajectory and semantic movement
// against the profile. Each metric is normalized as min(1, actual /
// target) so the success score is monotone in every metric and capped
// per metric at its target; a non-positive target counts as already met.
func ComputeSnapshot(valences []float64, pm pacing.Metrics, chapterCount int, profile TargetProfile, weights Weights, detector *reversal.Detector) MetricsSnapshot {
	if detector == nil {
		detector = reversal.NewDetector(profile.ReversalIntensityMin)
	}
	events := detector.Detect(valences)

	snap := MetricsSnapshot{
		ReversalFrequencyPerChapter: reversal.Frequency(events, chapterCount),
		AverageReversalIntensity:    reversal.AverageIntensity(events),
		EmotionalVariance:           variance(valences),
		SemanticDistanceTotal:       pm.TotalDistance,
	}

	snap.FrequencyScore = normalize(snap.ReversalFrequencyPerChapter, profile.ReversalFrequency)
	snap.IntensityScore = normalize(snap.AverageReversalIntensity, profile.ReversalIntensityMin)
	snap.VarianceScore = normalize(snap.EmotionalVariance, profile.EmotionalVarianceMin)
	snap.DistanceScore = normalize(snap.SemanticDistanceTotal, profile.SemanticDistanceMin)

	snap.SuccessScore = weights.ReversalFrequency*snap.FrequencyScore +
		weights.ReversalIntensity*snap.IntensityScore +
		weights.EmotionalVariance*snap.VarianceScore +
		weights.SemanticDistance*snap.DistanceScore
	return snap
}

func normalize(actual, target float64) float64 {
	if target <= 0 {
		return 1
	}
	if actual >= target {
		return 1
	}
	return actual / target
}

// variance is the population variance of the sequence.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}
