package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/fedq/internal/constants"
	"github.com/nvandessel/fedq/internal/errs"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    id TEXT PRIMARY KEY,
    round INTEGER NOT NULL,
    payload BLOB NOT NULL,   -- versioned wire-format model
    avg_delta REAL NOT NULL,
    converged INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_round ON checkpoints(round);
`

// SQLiteStore implements CheckpointStore using SQLite for persistence.
// The database lives at <workspace>/.fedq/checkpoints.db.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a SQLiteStore rooted at workspace dir.
// The .fedq directory and schema are created as needed.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	const op = "store.NewSQLiteStore"

	fedqDir := filepath.Join(dir, constants.FedqDirName)
	if err := os.MkdirAll(fedqDir, 0755); err != nil {
		return nil, errs.E(errs.KindStorage, op, "creating fedq directory", err)
	}

	dbPath := filepath.Join(fedqDir, constants.CheckpointDBName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errs.E(errs.KindStorage, op, "opening database", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), checkpointSchema); err != nil {
		db.Close()
		return nil, errs.E(errs.KindStorage, op, "initializing schema", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// SaveCheckpoint persists cp and returns its ID.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) (string, error) {
	const op = "store.SaveCheckpoint"

	s.mu.Lock()
	defer s.mu.Unlock()

	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoints (id, round, payload, avg_delta, converged, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.Round, cp.Payload, cp.AvgDelta, boolToInt(cp.Converged),
		cp.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", errs.E(errs.KindStorage, op, "inserting checkpoint", err)
	}
	return cp.ID, nil
}

// LoadCheckpoint returns the checkpoint with the given ID.
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, id string) (*Checkpoint, error) {
	const op = "store.LoadCheckpoint"

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, round, payload, avg_delta, converged, created_at
		FROM checkpoints WHERE id = ?`, id)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.KindStorage, op, "checkpoint not found: "+id)
	}
	if err != nil {
		return nil, errs.E(errs.KindStorage, op, "scanning checkpoint", err)
	}
	return cp, nil
}

// LoadLatest returns the newest checkpoint by round, or (nil, nil) when
// the store is empty.
func (s *SQLiteStore) LoadLatest(ctx context.Context) (*Checkpoint, error) {
	const op = "store.LoadLatest"

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, round, payload, avg_delta, converged, created_at
		FROM checkpoints ORDER BY round DESC, created_at DESC LIMIT 1`)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.E(errs.KindStorage, op, "scanning checkpoint", err)
	}
	return cp, nil
}

// History returns checkpoints newest round first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	const op = "store.History"

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, round, payload, avg_delta, converged, created_at
		FROM checkpoints ORDER BY round DESC, created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.E(errs.KindStorage, op, "querying checkpoints", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, errs.E(errs.KindStorage, op, "scanning row", err)
		}
		out = append(out, *cp)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.E(errs.KindStorage, op, "iterating rows", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(sc scanner) (*Checkpoint, error) {
	var cp Checkpoint
	var converged int
	var createdAt string

	if err := sc.Scan(&cp.ID, &cp.Round, &cp.Payload, &cp.AvgDelta, &converged, &createdAt); err != nil {
		return nil, err
	}

	cp.Converged = converged != 0
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		cp.CreatedAt = t
	}
	return &cp, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
