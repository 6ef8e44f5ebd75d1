package federation

import (
	"math"
	"testing"

	"github.com/nvandessel/fedq/internal/model"
)

func TestComputeDelta_IdenticalModels(t *testing.T) {
	m := model.Model{"s0": model.QVector{1, 2}, "s1": model.QVector{-3, 0.5}}

	report := ComputeDelta(m, m, DefaultDeltaConfig())

	if report.AvgDelta != 0 {
		t.Errorf("AvgDelta = %f, want 0", report.AvgDelta)
	}
	if report.TotalDelta != 0 || report.MaxDelta != 0 {
		t.Errorf("TotalDelta/MaxDelta = %f/%f, want 0/0", report.TotalDelta, report.MaxDelta)
	}
	if report.StatesChanged != 0 {
		t.Errorf("StatesChanged = %d, want 0", report.StatesChanged)
	}
	if !report.Converged {
		t.Error("identical models must report converged")
	}
}

func TestComputeDelta_Symmetry(t *testing.T) {
	oldM := model.Model{"a": model.QVector{1, 2}, "b": model.QVector{3, 4}}
	newM := model.Model{"a": model.QVector{2, 2}, "c": model.QVector{5, 5}}

	fwd := ComputeDelta(oldM, newM, DefaultDeltaConfig())
	rev := ComputeDelta(newM, oldM, DefaultDeltaConfig())

	if math.Abs(fwd.TotalDelta-rev.TotalDelta) > 1e-12 {
		t.Errorf("TotalDelta asymmetric: %f vs %f", fwd.TotalDelta, rev.TotalDelta)
	}
	if math.Abs(fwd.AvgDelta-rev.AvgDelta) > 1e-12 {
		t.Errorf("AvgDelta asymmetric: %f vs %f", fwd.AvgDelta, rev.AvgDelta)
	}
	if fwd.MaxDelta != rev.MaxDelta {
		t.Errorf("MaxDelta asymmetric: %f vs %f", fwd.MaxDelta, rev.MaxDelta)
	}
}

func TestComputeDelta_MissingStatesPadZero(t *testing.T) {
	oldM := model.Model{"a": model.QVector{1, 1}}
	newM := model.Model{"a": model.QVector{1, 1}, "b": model.QVector{2, 0}}

	report := ComputeDelta(oldM, newM, DefaultDeltaConfig())

	// "b" compares against an implicit zero vector: |2-0| + |0-0| = 2.
	if math.Abs(report.TotalDelta-2) > 1e-12 {
		t.Errorf("TotalDelta = %f, want 2", report.TotalDelta)
	}
	if report.TotalStates != 2 {
		t.Errorf("TotalStates = %d, want 2", report.TotalStates)
	}
	if report.StatesChanged != 1 {
		t.Errorf("StatesChanged = %d, want 1", report.StatesChanged)
	}
	if report.MaxDelta != 2 {
		t.Errorf("MaxDelta = %f, want 2", report.MaxDelta)
	}
	// Four compared pairs: two for "a", two for "b".
	if math.Abs(report.AvgDelta-0.5) > 1e-12 {
		t.Errorf("AvgDelta = %f, want 0.5", report.AvgDelta)
	}
}

func TestComputeDelta_ChangedEpsilonFiltersNoise(t *testing.T) {
	oldM := model.Model{"a": model.QVector{1.0}}
	newM := model.Model{"a": model.QVector{1.0 + 1e-12}}

	report := ComputeDelta(oldM, newM, DefaultDeltaConfig())
	if report.StatesChanged != 0 {
		t.Errorf("StatesChanged = %d, want 0 for sub-epsilon noise", report.StatesChanged)
	}

	cfg := DefaultDeltaConfig()
	cfg.ChangedEpsilon = 0
	report = ComputeDelta(oldM, newM, cfg)
	if report.StatesChanged != 1 {
		t.Errorf("StatesChanged = %d, want 1 with zero epsilon", report.StatesChanged)
	}
}

func TestComputeDelta_ConvergenceThreshold(t *testing.T) {
	oldM := model.Model{"a": model.QVector{0, 0}}
	newM := model.Model{"a": model.QVector{0.004, 0.004}}

	report := ComputeDelta(oldM, newM, DefaultDeltaConfig())
	if !report.Converged {
		t.Errorf("AvgDelta %f below default threshold should converge", report.AvgDelta)
	}

	cfg := DefaultDeltaConfig()
	cfg.ConvergenceThreshold = 0.001
	report = ComputeDelta(oldM, newM, cfg)
	if report.Converged {
		t.Error("tighter threshold should not converge")
	}
}

func TestComputeDelta_RelativeDelta(t *testing.T) {
	oldM := model.Model{"a": model.QVector{10, 10}}
	newM := model.Model{"a": model.QVector{11, 10}}

	report := ComputeDelta(oldM, newM, DefaultDeltaConfig())

	// AvgDelta = 0.5, old mean |Q| = 10.
	want := 0.5 / (10 + 1e-9)
	if math.Abs(report.RelativeDelta-want) > 1e-9 {
		t.Errorf("RelativeDelta = %f, want %f", report.RelativeDelta, want)
	}
}

func TestComputeDelta_EmptyModels(t *testing.T) {
	report := ComputeDelta(model.Model{}, model.Model{}, DefaultDeltaConfig())

	if report.AvgDelta != 0 {
		t.Errorf("AvgDelta = %f, want 0", report.AvgDelta)
	}
	if !report.Converged {
		t.Error("empty comparison should converge")
	}
	if report.TotalStates != 0 {
		t.Errorf("TotalStates = %d, want 0", report.TotalStates)
	}
}

func TestComputeDelta_DoesNotMutateInputs(t *testing.T) {
	oldM := model.Model{"a": model.QVector{1}}
	newM := model.Model{"b": model.QVector{2}}

	ComputeDelta(oldM, newM, DefaultDeltaConfig())

	if len(oldM) != 1 || len(newM) != 1 {
		t.Error("ComputeDelta mutated an input")
	}
}
