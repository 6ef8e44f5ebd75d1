// Package model defines the tabular value-function types shared by the
// agent and the federation engine: state keys, action-value vectors, and
// the sparse state-to-vector table itself.
package model

import (
	"math"
)

// StateKey uniquely identifies a discretized environment state.
// It is opaque to the core; environments decide how states are encoded.
type StateKey string

// ActionIndex identifies an action in [0, numActions).
type ActionIndex int

// QVector holds the estimated return of each action from one state.
// Index i is the value of action i. Length is fixed per agent.
type QVector []float64

// Clone returns an independent copy of the vector.
func (q QVector) Clone() QVector {
	if q == nil {
		return nil
	}
	out := make(QVector, len(q))
	copy(out, q)
	return out
}

// ArgMax returns the index of the highest value, ties broken by lowest
// index. Returns 0 for an empty vector.
func (q QVector) ArgMax() ActionIndex {
	best := ActionIndex(0)
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = ActionIndex(i)
		}
	}
	return best
}

// Max returns the highest value in the vector, or 0 for an empty vector.
func (q QVector) Max() float64 {
	if len(q) == 0 {
		return 0
	}
	m := q[0]
	for _, v := range q[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Model is a sparse mapping from state key to action-value vector.
// A Model is exclusively owned by one agent; it crosses ownership
// boundaries only as a copy (see Clone).
type Model map[StateKey]QVector

// Clone returns a deep copy sharing no storage with the receiver.
func (m Model) Clone() Model {
	if m == nil {
		return nil
	}
	out := make(Model, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Keys returns the state keys in unspecified order.
func (m Model) Keys() []StateKey {
	keys := make([]StateKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// Equal reports whether two models hold the same states with values
// equal within tol.
func (m Model) Equal(other Model, tol float64) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || len(v) != len(ov) {
			return false
		}
		for i := range v {
			if math.Abs(v[i]-ov[i]) > tol {
				return false
			}
		}
	}
	return true
}

// MeanAbs returns the mean absolute value across all entries, or 0 for
// an empty model. Used as the scale reference for relative deltas.
func (m Model) MeanAbs() float64 {
	var sum float64
	var n int
	for _, v := range m {
		for _, x := range v {
			sum += math.Abs(x)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// KeyUnion returns the set of state keys present in any of the models.
func KeyUnion(models ...Model) map[StateKey]struct{} {
	union := make(map[StateKey]struct{})
	for _, m := range models {
		for k := range m {
			union[k] = struct{}{}
		}
	}
	return union
}
