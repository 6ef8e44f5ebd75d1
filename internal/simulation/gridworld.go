package simulation

import (
	"fmt"

	"github.com/nvandessel/fedq/internal/model"
	"github.com/nvandessel/fedq/internal/training"
)

// Gridworld action indices.
const (
	ActUp = iota
	ActDown
	ActLeft
	ActRight
)

// gridState is the agent's position.
type gridState struct {
	x, y int
}

// Gridworld is a deterministic W×H grid. The agent starts at (0,0) and
// seeks the goal at (W-1,H-1). Every step costs StepPenalty; reaching
// the goal pays GoalReward and ends the episode. Moves off the edge
// leave the position unchanged (and still cost the penalty).
type Gridworld struct {
	Width, Height int
	StepPenalty   float64
	GoalReward    float64

	// KeyPrefix namespaces state keys so disjoint-client scenarios can
	// give each client its own region of the state space.
	KeyPrefix string
}

// NewGridworld creates a grid with the standard rewards: -1 per step,
// +10 at the goal.
func NewGridworld(width, height int) *Gridworld {
	return &Gridworld{
		Width:       width,
		Height:      height,
		StepPenalty: -1,
		GoalReward:  10,
	}
}

// Reset implements training.Environment.
func (g *Gridworld) Reset() training.State {
	return gridState{0, 0}
}

// Step implements training.Environment.
func (g *Gridworld) Step(s training.State, a model.ActionIndex) training.StepResult {
	pos := s.(gridState)

	switch a {
	case ActUp:
		if pos.y > 0 {
			pos.y--
		}
	case ActDown:
		if pos.y < g.Height-1 {
			pos.y++
		}
	case ActLeft:
		if pos.x > 0 {
			pos.x--
		}
	case ActRight:
		if pos.x < g.Width-1 {
			pos.x++
		}
	}

	if pos.x == g.Width-1 && pos.y == g.Height-1 {
		return training.StepResult{State: pos, Reward: g.GoalReward, Done: true}
	}
	return training.StepResult{State: pos, Reward: g.StepPenalty, Done: false}
}

// StateKey implements training.Environment.
func (g *Gridworld) StateKey(s training.State) model.StateKey {
	pos := s.(gridState)
	if g.KeyPrefix != "" {
		return model.StateKey(fmt.Sprintf("%s:%d,%d", g.KeyPrefix, pos.x, pos.y))
	}
	return model.StateKey(fmt.Sprintf("%d,%d", pos.x, pos.y))
}

// NumActions implements training.Environment.
func (g *Gridworld) NumActions() int { return 4 }
