// Package federation implements the model-merging engine: weighted
// federated averaging over tabular models, delta/convergence reporting,
// and the predicates that decide when a federation round should run.
//
// Every function here is pure: inputs are read, never mutated, and each
// call allocates a fresh output. That makes the package safe to call
// from any goroutine without locking.
package federation

import (
	"fmt"

	"github.com/nvandessel/fedq/internal/errs"
	"github.com/nvandessel/fedq/internal/model"
)

// WarningReporter receives non-fatal merge anomalies, e.g. models that
// disagree on action count. Implementations must tolerate a nil receiver
// being wrapped by callers; Average itself accepts a nil reporter.
type WarningReporter interface {
	Warn(kind errs.Kind, msg string)
}

// WarnFunc adapts a function to the WarningReporter interface.
type WarnFunc func(kind errs.Kind, msg string)

// Warn implements WarningReporter.
func (f WarnFunc) Warn(kind errs.Kind, msg string) { f(kind, msg) }

// Average merges models into one by weighted per-entry averaging.
//
// The output covers the union of state keys across all inputs; a model
// that lacks a state contributes a zero vector for it. Missing data
// dilutes the average toward zero, it never excludes the state. This
// union property is the load-bearing correctness guarantee of the whole
// engine: reading keys from only the first model would silently discard
// every other client's knowledge.
//
// weights must be nil (uniform 1/n) or have one non-negative entry per
// model with a positive sum; they are normalized internally. Models
// whose vectors disagree on length are padded with zeros to the longest
// and reported through reporter (which may be nil).
func Average(models []model.Model, weights []float64, reporter WarningReporter) (model.Model, error) {
	const op = "federation.Average"
	if len(models) == 0 {
		return nil, errs.E(errs.KindInvalidOperation, op, "no models to merge")
	}

	norm, err := normalizeWeights(weights, len(models), op)
	if err != nil {
		return nil, err
	}

	union := model.KeyUnion(models...)

	// The merged vector length per state is the longest seen across
	// inputs. Shorter vectors are treated as zero-padded.
	merged := make(model.Model, len(union))
	for key := range union {
		width := 0
		mismatch := false
		for _, m := range models {
			if q, ok := m[key]; ok {
				if width != 0 && len(q) != width {
					mismatch = true
				}
				if len(q) > width {
					width = len(q)
				}
			}
		}
		if mismatch && reporter != nil {
			reporter.Warn(errs.KindDimensionMismatch,
				fmt.Sprintf("state %q has inconsistent action counts; padding with zeros", key))
		}

		out := make(model.QVector, width)
		for i, m := range models {
			q, ok := m[key]
			if !ok {
				continue // absent state contributes zero
			}
			for j, v := range q {
				out[j] += norm[i] * v
			}
		}
		merged[key] = out
	}

	return merged, nil
}

// AverageBySamples merges models weighted proportionally to each
// client's sample count. Counts must be non-negative with at least one
// positive entry.
func AverageBySamples(models []model.Model, sampleCounts []int, reporter WarningReporter) (model.Model, error) {
	const op = "federation.AverageBySamples"
	if len(sampleCounts) != len(models) {
		return nil, errs.E(errs.KindInvalidOperation, op,
			fmt.Sprintf("got %d sample counts for %d models", len(sampleCounts), len(models)))
	}

	total := 0
	for _, c := range sampleCounts {
		if c < 0 {
			return nil, errs.E(errs.KindInvalidOperation, op,
				fmt.Sprintf("sample count must be non-negative, got %d", c))
		}
		total += c
	}
	if total == 0 {
		return nil, errs.E(errs.KindInvalidOperation, op, "all sample counts are zero")
	}

	weights := make([]float64, len(sampleCounts))
	for i, c := range sampleCounts {
		weights[i] = float64(c) / float64(total)
	}
	return Average(models, weights, reporter)
}

// normalizeWeights validates weights and scales them to sum to 1.
// nil yields uniform weights.
func normalizeWeights(weights []float64, n int, op string) ([]float64, error) {
	if weights == nil {
		norm := make([]float64, n)
		for i := range norm {
			norm[i] = 1.0 / float64(n)
		}
		return norm, nil
	}

	if len(weights) != n {
		return nil, errs.E(errs.KindInvalidOperation, op,
			fmt.Sprintf("got %d weights for %d models", len(weights), n))
	}

	var sum float64
	for _, w := range weights {
		if w < 0 {
			return nil, errs.E(errs.KindInvalidOperation, op,
				fmt.Sprintf("weight must be non-negative, got %f", w))
		}
		sum += w
	}
	if sum <= 0 {
		return nil, errs.E(errs.KindInvalidOperation, op, "weights sum to zero")
	}

	norm := make([]float64, n)
	for i, w := range weights {
		norm[i] = w / sum
	}
	return norm, nil
}
