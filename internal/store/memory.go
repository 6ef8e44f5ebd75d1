package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/fedq/internal/errs"
)

// MemoryStore implements CheckpointStore for testing and development.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]Checkpoint),
	}
}

// SaveCheckpoint stores a copy of cp.
func (s *MemoryStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	// Copy the payload so later caller mutations don't leak in.
	payload := make([]byte, len(cp.Payload))
	copy(payload, cp.Payload)
	cp.Payload = payload

	s.checkpoints[cp.ID] = cp
	return cp.ID, nil
}

// LoadCheckpoint returns the checkpoint with the given ID.
func (s *MemoryStore) LoadCheckpoint(ctx context.Context, id string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[id]
	if !ok {
		return nil, errs.E(errs.KindStorage, "store.LoadCheckpoint", "checkpoint not found: "+id)
	}
	return &cp, nil
}

// LoadLatest returns the checkpoint with the highest round.
func (s *MemoryStore) LoadLatest(ctx context.Context) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Checkpoint
	for _, cp := range s.checkpoints {
		if latest == nil || cp.Round > latest.Round {
			c := cp
			latest = &c
		}
	}
	return latest, nil
}

// History returns checkpoints newest round first.
func (s *MemoryStore) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round > out[j].Round })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
