package training

import (
	"context"
	"fmt"
	"testing"

	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/kpi"
	"github.com/nvandessel/fedq/internal/model"
	"github.com/nvandessel/fedq/internal/store"
)

// chainEnv is a deterministic corridor: states 0..length, action 1 moves
// right, action 0 moves left. Reaching the end pays 10 and ends the
// episode. Each client can be offset so clients visit disjoint states.
type chainEnv struct {
	length int
	prefix string
}

func (e *chainEnv) Reset() State { return 0 }

func (e *chainEnv) Step(s State, a model.ActionIndex) StepResult {
	pos := s.(int)
	if a == 1 {
		pos++
	} else if pos > 0 {
		pos--
	}
	if pos >= e.length {
		return StepResult{State: pos, Reward: 10, Done: true}
	}
	return StepResult{State: pos, Reward: -1, Done: false}
}

func (e *chainEnv) StateKey(s State) model.StateKey {
	return model.StateKey(fmt.Sprintf("%s:%d", e.prefix, s.(int)))
}

func (e *chainEnv) NumActions() int { return 2 }

func testTrainingConfig() *config.FedqConfig {
	cfg := config.Default()
	cfg.Agent.NumActions = 2
	cfg.Agent.EpsilonDecay = 0.97
	cfg.Training.Clients = 3
	cfg.Training.Episodes = 60
	cfg.Training.MaxSteps = 50
	cfg.Training.Seed = 42
	cfg.Federation.Interval = 20
	return cfg
}

func TestNewCoordinator_BuildsOneAgentPerClient(t *testing.T) {
	cfg := testTrainingConfig()
	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 4, prefix: "c"}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	if len(c.Agents()) != 3 {
		t.Errorf("agents = %d, want 3", len(c.Agents()))
	}
}

func TestNewCoordinator_NumActionsFromEnv(t *testing.T) {
	cfg := testTrainingConfig()
	cfg.Agent.NumActions = 0 // let the environment decide

	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 4, prefix: "c"}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	if got := c.Agents()[0].Config().NumActions; got != 2 {
		t.Errorf("NumActions = %d, want 2 from env", got)
	}
}

func TestRun_FederatesOnEpisodeBoundaries(t *testing.T) {
	cfg := testTrainingConfig()
	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 4, prefix: "c"}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 60 episodes / interval 20 = 3 triggered rounds, plus the final
	// merge.
	if result.Rounds != 4 {
		t.Errorf("Rounds = %d, want 4", result.Rounds)
	}
	if result.Episodes != 60 {
		t.Errorf("Episodes = %d, want 60", result.Episodes)
	}
	if len(result.Global) == 0 {
		t.Error("empty global model after training")
	}
}

func TestRun_SharedEnvAgentsAgreeAfterMerge(t *testing.T) {
	cfg := testTrainingConfig()
	c, err := NewCoordinator(cfg, func(client int) Environment {
		// Same prefix: all clients explore the same state space.
		return &chainEnv{length: 4, prefix: "shared"}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// After the final merge every agent holds the same model.
	base := c.Agents()[0].ExportModel()
	for i, a := range c.Agents()[1:] {
		if !a.ExportModel().Equal(base, 1e-12) {
			t.Errorf("agent %d diverges from agent 0 after final merge", i+1)
		}
	}
}

func TestRun_DisjointClientsUnionInGlobal(t *testing.T) {
	cfg := testTrainingConfig()
	cfg.Training.Episodes = 20

	c, err := NewCoordinator(cfg, func(client int) Environment {
		// Distinct prefixes: each client learns states no other client
		// ever visits. The merged model must still contain all of them.
		return &chainEnv{length: 3, prefix: fmt.Sprintf("client%d", client)}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for client := 0; client < cfg.Training.Clients; client++ {
		key := model.StateKey(fmt.Sprintf("client%d:0", client))
		if _, ok := result.Global[key]; !ok {
			t.Errorf("global model missing state %q contributed by one client", key)
		}
	}
}

func TestRun_PersistsCheckpoints(t *testing.T) {
	cfg := testTrainingConfig()
	cps := store.NewMemoryStore()

	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 4, prefix: "c"}
	}, WithCheckpointStore(cps))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	history, err := cps.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != result.Rounds {
		t.Fatalf("checkpoints = %d, want %d", len(history), result.Rounds)
	}

	// The latest payload must decode back into the global model.
	latest, err := cps.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	decoded, ok := model.Decode(latest.Payload)
	if !ok {
		t.Fatal("latest checkpoint payload failed to decode")
	}
	if !decoded.Equal(result.Global, 1e-12) {
		t.Error("checkpoint payload does not match the final global model")
	}
}

func TestRun_PerformanceTrigger(t *testing.T) {
	cfg := testTrainingConfig()
	cfg.Federation.Trigger = config.TriggerPerformance
	cfg.Federation.PerformanceWindow = 5
	cfg.Training.Episodes = 40

	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 4, prefix: "c"}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rounds < 1 {
		t.Error("performance trigger never federated")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	cfg := testTrainingConfig()
	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 4, prefix: "c"}
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Run(ctx); err == nil {
		t.Error("expected a context error")
	}
}

func TestRun_KPIStrategy(t *testing.T) {
	cfg := testTrainingConfig()
	cfg.Training.Episodes = 30

	c, err := NewCoordinator(cfg, func(client int) Environment {
		return &chainEnv{length: 3, prefix: "c"}
	}, WithKPI(kpi.SuccessRate{}))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.KPI < 0 || result.KPI > 1 {
		t.Errorf("success rate = %f, want within [0, 1]", result.KPI)
	}
}
