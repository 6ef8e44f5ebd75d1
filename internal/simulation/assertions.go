package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/fedq/internal/model"
)

// AssertCoversState asserts the final global model contains the state.
func AssertCoversState(t *testing.T, result Result, key model.StateKey) {
	t.Helper()
	if _, ok := result.Train.Global[key]; !ok {
		t.Errorf("AssertCoversState: global model missing state %q", key)
	}
}

// AssertConverged asserts the final round reported convergence.
func AssertConverged(t *testing.T, result Result) {
	t.Helper()
	if !result.Train.Converged {
		t.Errorf("AssertConverged: final avg delta %.6f did not converge",
			result.Train.LastReport.AvgDelta)
	}
}

// AssertDeltaShrinks asserts that the average delta of the last
// persisted round is smaller than that of round `early`. Deltas wobble
// between individual rounds, so this compares against an early round
// rather than demanding monotonicity.
func AssertDeltaShrinks(t *testing.T, result Result, early int) {
	t.Helper()

	history, err := result.Store.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("AssertDeltaShrinks: History: %v", err)
	}
	if len(history) < 2 {
		t.Fatalf("AssertDeltaShrinks: need at least 2 rounds, got %d", len(history))
	}

	var earlyDelta float64
	found := false
	for _, cp := range history {
		if cp.Round == early {
			earlyDelta = cp.AvgDelta
			found = true
		}
	}
	if !found {
		t.Fatalf("AssertDeltaShrinks: round %d not in history", early)
	}

	last := history[0] // newest first
	if last.AvgDelta >= earlyDelta {
		t.Errorf("AssertDeltaShrinks: round %d delta %.6f did not shrink below round %d delta %.6f",
			last.Round, last.AvgDelta, early, earlyDelta)
	}
}

// AssertKPIAtLeast asserts the aggregated KPI reached a floor.
func AssertKPIAtLeast(t *testing.T, result Result, floor float64) {
	t.Helper()
	if result.Train.KPI < floor {
		t.Errorf("AssertKPIAtLeast: KPI %.4f below floor %.4f", result.Train.KPI, floor)
	}
}
