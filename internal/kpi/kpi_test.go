package kpi

import (
	"math"
	"testing"
)

func TestMeanReward(t *testing.T) {
	s := MeanReward{}

	if got := s.Compute(Episode{Reward: 3.5}); got != 3.5 {
		t.Errorf("Compute = %f, want 3.5", got)
	}
	if got := s.Aggregate([]float64{1, 2, 3}); math.Abs(got-2) > 1e-12 {
		t.Errorf("Aggregate = %f, want 2", got)
	}
	if got := s.Aggregate(nil); got != 0 {
		t.Errorf("Aggregate(nil) = %f, want 0", got)
	}
}

func TestSuccessRate(t *testing.T) {
	s := SuccessRate{}

	if got := s.Compute(Episode{Success: true}); got != 1 {
		t.Errorf("Compute(success) = %f, want 1", got)
	}
	if got := s.Compute(Episode{Success: false}); got != 0 {
		t.Errorf("Compute(failure) = %f, want 0", got)
	}
	if got := s.Aggregate([]float64{1, 0, 1, 1}); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Aggregate = %f, want 0.75", got)
	}
}

func TestMedianSteps(t *testing.T) {
	s := MedianSteps{}

	if got := s.Aggregate([]float64{9, 1, 5}); got != 5 {
		t.Errorf("odd median = %f, want 5", got)
	}
	if got := s.Aggregate([]float64{1, 3, 5, 9}); got != 4 {
		t.Errorf("even median = %f, want 4", got)
	}

	// Aggregate must not reorder the caller's slice.
	values := []float64{9, 1, 5}
	s.Aggregate(values)
	if values[0] != 9 {
		t.Error("Aggregate sorted the caller's slice")
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"mean_reward", "success_rate", "median_steps"} {
		s := ByName(name)
		if s == nil {
			t.Fatalf("ByName(%q) = nil", name)
		}
		if s.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, s.Name())
		}
	}
	if ByName("made-up") != nil {
		t.Error("unknown name should return nil")
	}
}
