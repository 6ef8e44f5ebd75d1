package federation

import (
	"math"

	"github.com/nvandessel/fedq/internal/constants"
)

// ShouldFederateByEpisodes reports whether the mean episode count across
// clients has crossed into a new multiple-of-interval boundary since the
// round recorded by lastTrigger.
//
// The predicate fires exactly once per boundary crossing: the caller
// stores the mean at which it last fired and passes it back as
// lastTrigger, and the predicate stays false while the mean remains
// inside the same interval.
func ShouldFederateByEpisodes(episodeCounts []int, intervalSize, lastTrigger int) bool {
	if len(episodeCounts) == 0 || intervalSize <= 0 {
		return false
	}

	total := 0
	for _, c := range episodeCounts {
		total += c
	}
	mean := total / len(episodeCounts)

	if mean < intervalSize {
		return false
	}
	// Fire when the mean sits in a later interval than the last trigger.
	return mean/intervalSize > lastTrigger/intervalSize
}

// ShouldFederateByPerformance reports whether learning has plateaued
// over the recent reward history.
//
// The last 2*windowSize rewards are split into a previous and a recent
// half; relative improvement is (recentAvg - prevAvg) / (|prevAvg| + eps).
// Improvement at or below improvementThreshold means the local models
// have stopped gaining and a merge is worthwhile. With fewer than
// 2*windowSize samples the predicate is false; it never speculatively
// triggers on thin data.
func ShouldFederateByPerformance(rewards []float64, windowSize int, improvementThreshold float64) bool {
	if windowSize <= 0 || len(rewards) < 2*windowSize {
		return false
	}

	tail := rewards[len(rewards)-2*windowSize:]
	prev := mean(tail[:windowSize])
	recent := mean(tail[windowSize:])

	improvement := (recent - prev) / (math.Abs(prev) + constants.RelativeEpsilon)
	return improvement <= improvementThreshold
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
