package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/fedq/internal/agent"
	"github.com/nvandessel/fedq/internal/federation"
	"github.com/nvandessel/fedq/internal/model"
)

// newColdAgent builds a fresh agent with alpha 0.1 and 2 actions.
func newColdAgent(t *testing.T) *agent.Agent {
	t.Helper()

	cfg := agent.DefaultConfig()
	cfg.Alpha = 0.1
	cfg.NumActions = 2
	a, err := agent.New(cfg, agent.WithSeed(1))
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	return a
}

func TestColdStart_TwoAgentsSingleUpdateAverage(t *testing.T) {
	// Two fresh agents make the same single update from zero-initialized
	// states; averaging their exports must reproduce the single-update
	// value alpha * reward.
	a1 := newColdAgent(t)
	a2 := newColdAgent(t)

	for _, a := range []*agent.Agent{a1, a2} {
		if err := a.Learn("s0", 0, 10, "s1"); err != nil {
			t.Fatalf("Learn: %v", err)
		}
	}

	merged, err := federation.Average(
		[]model.Model{a1.ExportModel(), a2.ExportModel()}, nil, nil)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}

	want := 0.1 * 10.0
	if got := merged["s0"][0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("merged[s0][0] = %f, want %f", got, want)
	}
}

func TestColdStart_MergeOfFreshAndTrainedAgent(t *testing.T) {
	fresh := newColdAgent(t)
	trained := newColdAgent(t)

	if err := trained.Learn("s0", 1, 10, "s1"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	merged, err := federation.Average(
		[]model.Model{fresh.ExportModel(), trained.ExportModel()}, nil, nil)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}

	// The fresh agent has no states; the trained agent's knowledge is
	// halved by the uniform merge, not dropped.
	if got := merged["s0"][1]; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("merged[s0][1] = %f, want 0.5", got)
	}

	// Importing the merge leaves the fresh agent able to act greedily on
	// states it never visited.
	fresh.ImportModel(merged)
	fresh.SetInferenceMode(true)
	if got := fresh.ChooseAction("s0"); got != 1 {
		t.Errorf("cold agent chose %d on transferred state, want 1", got)
	}
}
