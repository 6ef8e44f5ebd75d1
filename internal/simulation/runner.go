package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/kpi"
	"github.com/nvandessel/fedq/internal/store"
	"github.com/nvandessel/fedq/internal/training"
)

// Scenario defines a complete federated-training experiment.
type Scenario struct {
	Name string

	// Clients is the number of independent agents. Defaults to 3.
	Clients int

	// Episodes is the per-client episode budget. Defaults to 100.
	Episodes int

	// MaxSteps caps each episode. Defaults to 100.
	MaxSteps int

	// Interval is the episodes-trigger boundary. Defaults to 25.
	Interval int

	// Trigger overrides the federation trigger. Defaults to episodes.
	Trigger config.TriggerMode

	// WeightBySamples switches the merge to sample-count weighting.
	WeightBySamples bool

	// Seed makes the run deterministic. Defaults to 1.
	Seed uint64

	// EnvFactory builds one environment per client. Required.
	EnvFactory func(client int) training.Environment

	// KPI overrides the KPI strategy. Defaults to mean reward.
	KPI kpi.Strategy

	// Agent tweaks the default hyperparameters before the run.
	Agent func(*config.FedqConfig)
}

// Result captures the training outcome, the coordinator (for per-agent
// inspection), and the persisted checkpoints.
type Result struct {
	Train       *training.Result
	Coordinator *training.Coordinator
	Store       store.CheckpointStore
}

// Runner executes scenarios against a real coordinator and an isolated
// SQLite checkpoint store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteStore
}

// NewRunner creates a simulation runner with an isolated SQLite store.
func NewRunner(t *testing.T) *Runner {
	t.Helper()

	s, err := store.NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()

	if scenario.EnvFactory == nil {
		r.t.Fatalf("scenario %q: EnvFactory is required", scenario.Name)
	}

	cfg := config.Default()
	cfg.Training.Clients = valueOr(scenario.Clients, 3)
	cfg.Training.Episodes = valueOr(scenario.Episodes, 100)
	cfg.Training.MaxSteps = valueOr(scenario.MaxSteps, 100)
	cfg.Training.Seed = scenario.Seed
	if cfg.Training.Seed == 0 {
		cfg.Training.Seed = 1
	}
	cfg.Federation.Interval = valueOr(scenario.Interval, 25)
	if scenario.Trigger != "" {
		cfg.Federation.Trigger = scenario.Trigger
	}
	cfg.Federation.WeightBySamples = scenario.WeightBySamples
	if scenario.Agent != nil {
		scenario.Agent(cfg)
	}

	opts := []training.Option{training.WithCheckpointStore(r.store)}
	if scenario.KPI != nil {
		opts = append(opts, training.WithKPI(scenario.KPI))
	}

	coord, err := training.NewCoordinator(cfg, scenario.EnvFactory, opts...)
	if err != nil {
		r.t.Fatalf("scenario %q: NewCoordinator: %v", scenario.Name, err)
	}

	result, err := coord.Run(context.Background())
	if err != nil {
		r.t.Fatalf("scenario %q: Run: %v", scenario.Name, err)
	}

	return Result{Train: result, Coordinator: coord, Store: r.store}
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
