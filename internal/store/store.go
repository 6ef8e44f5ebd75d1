// Package store defines the CheckpointStore interface for persisting
// merged global models between federation rounds, plus memory and
// SQLite implementations.
package store

import (
	"context"
	"time"
)

// Checkpoint is one persisted federation round: the merged global model
// in wire format plus the round's convergence summary.
type Checkpoint struct {
	ID        string    `json:"id"`
	Round     int       `json:"round"`
	Payload   []byte    `json:"payload"` // versioned wire-format model
	AvgDelta  float64   `json:"avg_delta"`
	Converged bool      `json:"converged"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckpointStore persists federation checkpoints. Implementations are
// safe for concurrent use.
type CheckpointStore interface {
	// SaveCheckpoint persists cp and returns its ID. A missing ID is
	// generated; a missing CreatedAt is set to now.
	SaveCheckpoint(ctx context.Context, cp Checkpoint) (string, error)

	// LoadCheckpoint returns the checkpoint with the given ID, or a
	// storage error if absent.
	LoadCheckpoint(ctx context.Context, id string) (*Checkpoint, error)

	// LoadLatest returns the most recent checkpoint by round, or
	// (nil, nil) when the store is empty.
	LoadLatest(ctx context.Context) (*Checkpoint, error)

	// History returns up to limit checkpoints, newest round first.
	// limit <= 0 means no limit.
	History(ctx context.Context, limit int) ([]Checkpoint, error)

	// Close releases underlying resources.
	Close() error
}
