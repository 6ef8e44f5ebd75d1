package training

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/fedq/internal/agent"
	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/errs"
	"github.com/nvandessel/fedq/internal/federation"
	"github.com/nvandessel/fedq/internal/kpi"
	"github.com/nvandessel/fedq/internal/logging"
	"github.com/nvandessel/fedq/internal/model"
	"github.com/nvandessel/fedq/internal/store"
)

// Result summarizes a completed training run.
type Result struct {
	// Episodes is the number of episodes each client completed.
	Episodes int

	// Rounds is the number of federation rounds that ran.
	Rounds int

	// Converged reports whether the last round's delta fell below the
	// convergence threshold.
	Converged bool

	// LastReport is the delta report of the final federation round.
	LastReport federation.DeltaReport

	// KPI is the aggregated KPI over each client's episode history.
	KPI float64

	// Global is the last merged global model. Nil if no round ran.
	Global model.Model
}

// Coordinator advances N agents through episodes and periodically merges
// their models. Each agent is touched only by the coordinator's single
// loop, satisfying the one-owner-per-agent rule; federation itself is
// pure and operates on exported snapshots.
type Coordinator struct {
	cfg    *config.FedqConfig
	agents []*agent.Agent
	envs   []Environment

	logger *slog.Logger
	rounds *logging.RoundLogger
	cps    store.CheckpointStore
	metric kpi.Strategy

	global      model.Model
	round       int
	lastTrigger int

	// sweepRewards holds the cross-client mean reward per sweep, the
	// series the performance trigger inspects.
	sweepRewards []float64

	// episodeValues holds per-client KPI values per episode.
	episodeValues [][]float64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithRoundLogger attaches a JSONL round tracer. Nil is fine.
func WithRoundLogger(rl *logging.RoundLogger) Option {
	return func(c *Coordinator) { c.rounds = rl }
}

// WithCheckpointStore persists each round's merged model. Nil disables
// persistence.
func WithCheckpointStore(s store.CheckpointStore) Option {
	return func(c *Coordinator) { c.cps = s }
}

// WithKPI sets the KPI strategy. Defaults to kpi.MeanReward.
func WithKPI(s kpi.Strategy) Option {
	return func(c *Coordinator) { c.metric = s }
}

// NewCoordinator builds one agent and one environment per configured
// client. envFactory is called once per client index.
func NewCoordinator(cfg *config.FedqConfig, envFactory func(client int) Environment, opts ...Option) (*Coordinator, error) {
	const op = "training.NewCoordinator"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:           cfg,
		logger:        slog.Default(),
		metric:        kpi.MeanReward{},
		episodeValues: make([][]float64, cfg.Training.Clients),
	}
	for _, opt := range opts {
		opt(c)
	}

	for i := 0; i < cfg.Training.Clients; i++ {
		env := envFactory(i)
		if env == nil {
			return nil, errs.E(errs.KindConfiguration, op,
				fmt.Sprintf("env factory returned nil for client %d", i))
		}

		agentCfg := cfg.Agent
		if agentCfg.NumActions == 0 {
			agentCfg.NumActions = env.NumActions()
		}

		var agentOpts []agent.Option
		if cfg.Training.Seed != 0 {
			agentOpts = append(agentOpts, agent.WithSeed(cfg.Training.Seed+uint64(i)))
		}
		a, err := agent.New(agentCfg, agentOpts...)
		if err != nil {
			return nil, err
		}

		c.agents = append(c.agents, a)
		c.envs = append(c.envs, env)
	}

	return c, nil
}

// Agents returns the coordinator's agents. Exposed for tests and the
// CLI; callers must not advance them concurrently with Run.
func (c *Coordinator) Agents() []*agent.Agent { return c.agents }

// Global returns the last merged global model, or nil before the first
// round.
func (c *Coordinator) Global() model.Model { return c.global.Clone() }

// Rounds returns the number of federation rounds completed so far.
func (c *Coordinator) Rounds() int { return c.round }

// Run trains all clients for the configured episode budget, federating
// whenever the configured trigger fires, and merges once more at the end
// so the final global model reflects all learning. Cancellation is
// honored at episode boundaries; agents stay internally consistent.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	var lastReport federation.DeltaReport

	for ep := 0; ep < c.cfg.Training.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// One sweep: each client runs one episode.
		var sweepTotal float64
		for i := range c.agents {
			reward, err := c.runEpisode(i)
			if err != nil {
				return nil, err
			}
			sweepTotal += reward
		}
		c.sweepRewards = append(c.sweepRewards, sweepTotal/float64(len(c.agents)))

		if c.shouldFederate() {
			report, err := c.federate(ctx)
			if err != nil {
				return nil, err
			}
			lastReport = report
		}
	}

	// Final merge so stragglers since the last trigger are included.
	report, err := c.federate(ctx)
	if err != nil {
		return nil, err
	}
	lastReport = report

	return &Result{
		Episodes:   c.cfg.Training.Episodes,
		Rounds:     c.round,
		Converged:  lastReport.Converged,
		LastReport: lastReport,
		KPI:        c.aggregateKPI(),
		Global:     c.global.Clone(),
	}, nil
}

// runEpisode advances one client through one episode and returns the
// episode's total reward.
func (c *Coordinator) runEpisode(client int) (float64, error) {
	a, env := c.agents[client], c.envs[client]
	state := env.Reset()
	var total float64
	steps := 0
	done := false

	for ; steps < c.cfg.Training.MaxSteps && !done; steps++ {
		key := env.StateKey(state)
		action := a.ChooseAction(key)

		res := env.Step(state, action)
		if err := a.Learn(key, action, res.Reward, env.StateKey(res.State)); err != nil {
			return 0, err
		}

		total += res.Reward
		state = res.State
		done = res.Done
	}

	a.FinishEpisode()

	c.episodeValues[client] = append(c.episodeValues[client], c.metric.Compute(kpi.Episode{
		Reward:  total,
		Steps:   steps,
		Success: done,
	}))
	return total, nil
}

// shouldFederate applies the configured trigger predicate.
func (c *Coordinator) shouldFederate() bool {
	switch c.cfg.Federation.Trigger {
	case config.TriggerPerformance:
		fired := federation.ShouldFederateByPerformance(
			c.sweepRewards,
			c.cfg.Federation.PerformanceWindow,
			c.cfg.Federation.ImprovementThreshold,
		)
		if fired {
			// Start a fresh window so the plateau does not re-fire
			// every sweep until rewards move.
			c.sweepRewards = nil
		}
		return fired
	default:
		counts := make([]int, len(c.agents))
		for i, a := range c.agents {
			counts[i] = a.Episodes()
		}
		fired := federation.ShouldFederateByEpisodes(counts, c.cfg.Federation.Interval, c.lastTrigger)
		if fired {
			c.lastTrigger = meanInt(counts)
		}
		return fired
	}
}

// federate snapshots every agent, merges, compares against the previous
// global model, redistributes, and checkpoints.
func (c *Coordinator) federate(ctx context.Context) (federation.DeltaReport, error) {
	snapshots := make([]model.Model, len(c.agents))
	counts := make([]int, len(c.agents))
	for i, a := range c.agents {
		snapshots[i] = a.ExportModel()
		counts[i] = a.Episodes()
	}

	reporter := federation.WarnFunc(logging.Reporter(c.logger))

	var merged model.Model
	var err error
	if c.cfg.Federation.WeightBySamples {
		merged, err = federation.AverageBySamples(snapshots, counts, reporter)
	} else {
		merged, err = federation.Average(snapshots, nil, reporter)
	}
	if err != nil {
		return federation.DeltaReport{}, err
	}

	report := federation.ComputeDelta(c.global, merged, c.cfg.Federation.Delta)

	// Import before persisting: every agent observes the full merge or
	// nothing, never a partial update.
	for _, a := range c.agents {
		a.ImportModel(merged)
	}
	c.global = merged
	c.round++

	c.logger.Info("federation round complete",
		"round", c.round,
		"states", len(merged),
		"avg_delta", report.AvgDelta,
		"converged", report.Converged)

	c.rounds.Log(map[string]any{
		"round":          c.round,
		"states":         len(merged),
		"avg_delta":      report.AvgDelta,
		"max_delta":      report.MaxDelta,
		"states_changed": report.StatesChanged,
		"relative_delta": report.RelativeDelta,
		"converged":      report.Converged,
	})

	if c.cps != nil {
		payload, err := model.Encode(merged, map[string]any{
			"round":   c.round,
			"clients": len(c.agents),
		})
		if err != nil {
			return report, errs.E(errs.KindStorage, "training.federate", "encoding checkpoint", err)
		}
		if _, err := c.cps.SaveCheckpoint(ctx, store.Checkpoint{
			Round:     c.round,
			Payload:   payload,
			AvgDelta:  report.AvgDelta,
			Converged: report.Converged,
		}); err != nil {
			return report, err
		}
	}

	return report, nil
}

// aggregateKPI pools every client's per-episode KPI values.
func (c *Coordinator) aggregateKPI() float64 {
	var all []float64
	for _, vs := range c.episodeValues {
		all = append(all, vs...)
	}
	return c.metric.Aggregate(all)
}

func meanInt(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total / len(xs)
}
