// Package agent implements a tabular Q-learning agent: epsilon-greedy
// action selection, incremental Bellman updates, and value-semantics
// model export/import for federation.
package agent

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/nvandessel/fedq/internal/constants"
	"github.com/nvandessel/fedq/internal/errs"
	"github.com/nvandessel/fedq/internal/model"
)

// Config holds the agent hyperparameters. All values are validated at
// construction; invalid values fail, they are never silently clamped.
type Config struct {
	// Alpha is the learning rate, in (0, 1].
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// Gamma is the discount factor for future rewards, in [0, 1].
	Gamma float64 `json:"gamma" yaml:"gamma"`

	// Epsilon is the starting exploration rate, in [0, 1].
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// EpsilonDecay is the per-episode multiplicative decay, in (0, 1].
	EpsilonDecay float64 `json:"epsilon_decay" yaml:"epsilon_decay"`

	// EpsilonFloor is the lowest epsilon may decay to, in [0, Epsilon].
	EpsilonFloor float64 `json:"epsilon_floor" yaml:"epsilon_floor"`

	// NumActions is the fixed action-space size, >= 1. Every QVector the
	// agent creates has exactly this length.
	NumActions int `json:"num_actions" yaml:"num_actions"`
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return Config{
		Alpha:        constants.DefaultAlpha,
		Gamma:        constants.DefaultGamma,
		Epsilon:      constants.DefaultEpsilon,
		EpsilonDecay: constants.DefaultEpsilonDecay,
		EpsilonFloor: constants.DefaultEpsilonFloor,
		NumActions:   0, // must be set by the caller
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	const op = "agent.Config.Validate"
	if c.NumActions < 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("num_actions must be >= 1, got %d", c.NumActions))
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("alpha must be in (0, 1], got %f", c.Alpha))
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("gamma must be in [0, 1], got %f", c.Gamma))
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("epsilon must be in [0, 1], got %f", c.Epsilon))
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("epsilon_decay must be in (0, 1], got %f", c.EpsilonDecay))
	}
	if c.EpsilonFloor < 0 || c.EpsilonFloor > c.Epsilon {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("epsilon_floor must be in [0, epsilon], got %f", c.EpsilonFloor))
	}
	return nil
}

// Agent is a tabular Q-learning agent. It owns its model exclusively;
// the model leaves the agent only as a copy via ExportModel.
//
// An Agent is not safe for concurrent use. One logical owner advances
// the select/learn sequence; orchestration that runs many agents does so
// one owner per agent.
type Agent struct {
	id      string
	cfg     Config
	epsilon float64
	table   model.Model
	rng     *rand.Rand

	inference bool
	episodes  int
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithSeed makes the agent's exploration deterministic. Intended for
// tests and reproducible experiments.
func WithSeed(seed uint64) Option {
	return func(a *Agent) {
		a.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithID overrides the generated agent ID.
func WithID(id string) Option {
	return func(a *Agent) {
		a.id = id
	}
}

// New creates an agent with an empty model. Returns a configuration
// error if cfg is out of range.
func New(cfg Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		id:      uuid.NewString(),
		cfg:     cfg,
		epsilon: cfg.Epsilon,
		table:   make(model.Model),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.id }

// Config returns the agent's hyperparameters.
func (a *Agent) Config() Config { return a.cfg }

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 { return a.epsilon }

// Episodes returns the number of completed episodes.
func (a *Agent) Episodes() int { return a.episodes }

// States returns the number of states the model currently covers.
func (a *Agent) States() int { return len(a.table) }

// ChooseAction selects an action for the given state.
//
// In training mode the state's QVector is lazily zero-initialized if
// unseen, then epsilon-greedy selection applies: a uniform-random action
// with probability epsilon, otherwise the arg-max action with ties
// broken by lowest index.
//
// In inference mode selection is pure greedy (epsilon treated as 0) and
// the model is never mutated; an unseen state selects action 0.
func (a *Agent) ChooseAction(state model.StateKey) model.ActionIndex {
	if a.inference {
		q, ok := a.table[state]
		if !ok {
			return 0
		}
		return q.ArgMax()
	}

	q := a.ensureState(state)
	if a.rng.Float64() < a.epsilon {
		return model.ActionIndex(a.rng.IntN(a.cfg.NumActions))
	}
	return q.ArgMax()
}

// Learn applies one Bellman update for the observed transition:
//
//	Q(s,a) += alpha * (reward + gamma * max_a' Q(s',a') - Q(s,a))
//
// Both state and next are lazily initialized if unseen. Returns an
// invalid-operation error in inference mode; a frozen model is never
// silently mutated.
func (a *Agent) Learn(state model.StateKey, action model.ActionIndex, reward float64, next model.StateKey) error {
	const op = "agent.Learn"
	if a.inference {
		return errs.E(errs.KindInvalidOperation, op, "agent is in inference mode")
	}
	if action < 0 || int(action) >= a.cfg.NumActions {
		return errs.E(errs.KindInvalidOperation, op,
			fmt.Sprintf("action %d out of range [0, %d)", action, a.cfg.NumActions))
	}

	q := a.ensureState(state)
	nextQ := a.ensureState(next)

	target := reward + a.cfg.Gamma*nextQ.Max()
	q[action] += a.cfg.Alpha * (target - q[action])
	return nil
}

// DecayEpsilon applies one step of multiplicative decay, clamped at the
// configured floor. Intended to be called once per episode.
func (a *Agent) DecayEpsilon() {
	a.epsilon = max(a.cfg.EpsilonFloor, a.epsilon*a.cfg.EpsilonDecay)
}

// FinishEpisode records a completed episode and decays epsilon.
func (a *Agent) FinishEpisode() {
	a.episodes++
	a.DecayEpsilon()
}

// ResetEpsilon restores the exploration rate to its configured start.
func (a *Agent) ResetEpsilon() {
	a.epsilon = a.cfg.Epsilon
}

// SetInferenceMode freezes (true) or unfreezes (false) the agent.
// A frozen agent selects greedily and rejects Learn; existing Q-values
// are untouched.
func (a *Agent) SetInferenceMode(on bool) {
	a.inference = on
}

// InferenceMode reports whether the agent is frozen.
func (a *Agent) InferenceMode() bool { return a.inference }

// ExportModel returns an isolated deep copy of the agent's model.
// Mutating the returned model never affects the agent.
func (a *Agent) ExportModel() model.Model {
	return a.table.Clone()
}

// ImportModel replaces the agent's model with a deep copy of m.
// Vectors shorter than NumActions are padded with zeros and longer ones
// truncated, so a merged global model produced under a different action
// count still imports cleanly.
func (a *Agent) ImportModel(m model.Model) {
	table := make(model.Model, len(m))
	for k, v := range m {
		qv := make(model.QVector, a.cfg.NumActions)
		copy(qv, v)
		table[k] = qv
	}
	a.table = table
}

// ensureState returns the state's QVector, creating a zero vector on
// first access. Explicit upsert; no default-value reflection.
func (a *Agent) ensureState(state model.StateKey) model.QVector {
	q, ok := a.table[state]
	if !ok {
		q = make(model.QVector, a.cfg.NumActions)
		a.table[state] = q
	}
	return q
}
