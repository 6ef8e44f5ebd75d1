// Package training runs the multi-client federated training loop: it
// owns the agents, advances episodes, applies federation triggers, and
// redistributes merged models.
package training

import (
	"github.com/nvandessel/fedq/internal/model"
)

// State is an opaque environment state. The loop only ever converts it
// to a model.StateKey via the environment.
type State any

// StepResult is the outcome of one environment step.
type StepResult struct {
	State  State
	Reward float64
	Done   bool
}

// Environment is the collaborator that produces states and rewards.
// Implementations need not be safe for concurrent use; each client gets
// its own instance.
type Environment interface {
	// Reset starts a new episode and returns the initial state.
	Reset() State

	// Step applies an action to a state.
	Step(s State, a model.ActionIndex) StepResult

	// StateKey discretizes a state into the model's lookup key.
	StateKey(s State) model.StateKey

	// NumActions is the size of the action space.
	NumActions() int
}
