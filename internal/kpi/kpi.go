// Package kpi provides pluggable success-metric strategies for training
// runs. A deployment picks a strategy instead of hard-coding a metric
// per scenario.
package kpi

import "sort"

// Episode is the per-episode outcome a strategy scores.
type Episode struct {
	Reward  float64
	Steps   int
	Success bool
}

// Strategy computes a per-episode KPI value and aggregates values across
// episodes into one scalar.
type Strategy interface {
	// Name identifies the strategy in logs and CLI output.
	Name() string

	// Compute maps one episode outcome to a KPI value.
	Compute(ep Episode) float64

	// Aggregate reduces per-episode values to a single scalar.
	// Returns 0 for an empty slice.
	Aggregate(values []float64) float64
}

// MeanReward scores each episode by its total reward and aggregates by
// arithmetic mean.
type MeanReward struct{}

func (MeanReward) Name() string { return "mean_reward" }

func (MeanReward) Compute(ep Episode) float64 { return ep.Reward }

func (MeanReward) Aggregate(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SuccessRate scores each episode 1 or 0 by its success flag and
// aggregates to the fraction of successful episodes.
type SuccessRate struct{}

func (SuccessRate) Name() string { return "success_rate" }

func (SuccessRate) Compute(ep Episode) float64 {
	if ep.Success {
		return 1
	}
	return 0
}

func (SuccessRate) Aggregate(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MedianSteps scores each episode by its step count and aggregates by
// median. Useful for shortest-path style environments where fewer steps
// means a better policy.
type MedianSteps struct{}

func (MedianSteps) Name() string { return "median_steps" }

func (MedianSteps) Compute(ep Episode) float64 { return float64(ep.Steps) }

func (MedianSteps) Aggregate(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ByName returns the strategy registered under name, or nil if unknown.
func ByName(name string) Strategy {
	switch name {
	case "mean_reward":
		return MeanReward{}
	case "success_rate":
		return SuccessRate{}
	case "median_steps":
		return MedianSteps{}
	default:
		return nil
	}
}
