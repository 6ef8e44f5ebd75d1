package federation

import (
	"math"

	"github.com/nvandessel/fedq/internal/constants"
	"github.com/nvandessel/fedq/internal/model"
)

// DeltaConfig holds the thresholds used when comparing two models.
// Both values are empirical and deployment-tunable, which is why they
// live in config rather than as package constants.
type DeltaConfig struct {
	// ConvergenceThreshold: the merge is converged when AvgDelta falls
	// below this value.
	ConvergenceThreshold float64 `json:"convergence_threshold" yaml:"convergence_threshold"`

	// ChangedEpsilon: per-value differences at or below this are treated
	// as floating-point noise when counting changed states.
	ChangedEpsilon float64 `json:"changed_epsilon" yaml:"changed_epsilon"`
}

// DefaultDeltaConfig returns the standard thresholds.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{
		ConvergenceThreshold: constants.DefaultConvergenceThreshold,
		ChangedEpsilon:       constants.DefaultChangedEpsilon,
	}
}

// DeltaReport summarizes how much a model moved between two snapshots,
// typically successive federation rounds.
type DeltaReport struct {
	// TotalDelta is the sum of |old - new| over every (state, action)
	// pair in the union of both models, missing sides padded with zero.
	TotalDelta float64 `json:"total_delta"`

	// AvgDelta is TotalDelta divided by the number of compared pairs.
	AvgDelta float64 `json:"avg_delta"`

	// MaxDelta is the single largest per-value difference.
	MaxDelta float64 `json:"max_delta"`

	// StatesChanged counts states where any action moved by more than
	// the changed epsilon.
	StatesChanged int `json:"states_changed"`

	// TotalStates is the size of the key union.
	TotalStates int `json:"total_states"`

	// RelativeDelta is AvgDelta scaled by the old model's mean |Q|,
	// giving a scale-independent convergence signal.
	RelativeDelta float64 `json:"relative_delta"`

	// Converged reports AvgDelta < ConvergenceThreshold.
	Converged bool `json:"converged"`
}

// ComputeDelta compares two models over the union of their state keys.
// A state missing on either side is treated as a zero vector, so growth
// of the state space registers as change rather than being ignored.
// The comparison is symmetric in TotalDelta, AvgDelta and MaxDelta.
func ComputeDelta(oldModel, newModel model.Model, cfg DeltaConfig) DeltaReport {
	union := model.KeyUnion(oldModel, newModel)

	var report DeltaReport
	report.TotalStates = len(union)

	totalPairs := 0
	for key := range union {
		oldQ := oldModel[key]
		newQ := newModel[key]
		width := max(len(oldQ), len(newQ))

		stateChanged := false
		for i := 0; i < width; i++ {
			var o, n float64
			if i < len(oldQ) {
				o = oldQ[i]
			}
			if i < len(newQ) {
				n = newQ[i]
			}
			d := math.Abs(o - n)
			report.TotalDelta += d
			if d > report.MaxDelta {
				report.MaxDelta = d
			}
			if d > cfg.ChangedEpsilon {
				stateChanged = true
			}
			totalPairs++
		}
		if stateChanged {
			report.StatesChanged++
		}
	}

	report.AvgDelta = report.TotalDelta / float64(max(1, totalPairs))
	report.RelativeDelta = report.AvgDelta / (oldModel.MeanAbs() + constants.RelativeEpsilon)
	report.Converged = report.AvgDelta < cfg.ConvergenceThreshold
	return report
}
