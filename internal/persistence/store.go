// Package persistence provides SQLite-based run storage. A run row carries
// the latest full state as a compressed blob; per-turn snapshots are kept in
// a side table for history queries.
package persistence

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"

	"github.com/talgya/demesne/internal/engine"
)

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("run not found")

// Store wraps a SQLite connection for run persistence.
type Store struct {
	conn *sqlx.DB
}

// RunSummary is the list-view projection of a stored run.
type RunSummary struct {
	ID        string    `db:"id" json:"id"`
	Seed      string    `db:"seed" json:"seed"`
	Policy    string    `db:"policy" json:"policy,omitempty"`
	Turn      int       `db:"turn" json:"turn"`
	GameOver  string    `db:"game_over" json:"game_over,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	st := &Store{conn: conn}
	if err := st.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return st, nil
}

// Close closes the database connection.
func (st *Store) Close() error {
	return st.conn.Close()
}

func (st *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		policy TEXT NOT NULL DEFAULT '',
		turn INTEGER NOT NULL,
		game_over TEXT NOT NULL DEFAULT '',
		state BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turn_snapshots (
		run_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		report TEXT NOT NULL,
		state BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, turn)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_snapshots_run ON turn_snapshots(run_id);
	`
	_, err := st.conn.Exec(schema)
	return err
}

// CreateRun stores a fresh state and returns its new run id.
func (st *Store) CreateRun(s *engine.RunState, policy string) (string, error) {
	blob, err := packState(s)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = st.conn.Exec(
		`INSERT INTO runs (id, seed, policy, turn, game_over, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.Seed, policy, s.Turn, gameOverReason(s), blob, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// SaveRun replaces the stored state for an existing run.
func (st *Store) SaveRun(id string, s *engine.RunState) error {
	blob, err := packState(s)
	if err != nil {
		return err
	}
	res, err := st.conn.Exec(
		`UPDATE runs SET turn = ?, game_over = ?, state = ?, updated_at = ? WHERE id = ?`,
		s.Turn, gameOverReason(s), blob, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: %w", id, ErrNotFound)
	}
	return nil
}

// LoadRun fetches and decodes a stored run.
func (st *Store) LoadRun(id string) (*engine.RunState, error) {
	var blob []byte
	err := st.conn.Get(&blob, `SELECT state FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	raw, err := unpack(blob)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	s, err := engine.DecodeState(raw)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return s, nil
}

// ListRuns returns run summaries, newest first.
func (st *Store) ListRuns() ([]RunSummary, error) {
	var out []RunSummary
	err := st.conn.Select(&out,
		`SELECT id, seed, policy, turn, game_over, created_at, updated_at
		 FROM runs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// SaveSnapshot records one committed turn for history queries.
func (st *Store) SaveSnapshot(runID string, entry engine.LogEntry) error {
	report, err := json.Marshal(entry.Report)
	if err != nil {
		return fmt.Errorf("snapshot report: %w", err)
	}
	blob, err := packState(entry.After)
	if err != nil {
		return err
	}
	_, err = st.conn.Exec(
		`INSERT OR REPLACE INTO turn_snapshots (run_id, turn, report, state, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, entry.Turn, string(report), blob, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s/%d: %w", runID, entry.Turn, err)
	}
	return nil
}

// LoadSnapshot fetches the state as it stood after the given turn.
func (st *Store) LoadSnapshot(runID string, turn int) (*engine.RunState, error) {
	var blob []byte
	err := st.conn.Get(&blob,
		`SELECT state FROM turn_snapshots WHERE run_id = ? AND turn = ?`, runID, turn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load snapshot %s/%d: %w", runID, turn, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s/%d: %w", runID, turn, err)
	}
	raw, err := unpack(blob)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s/%d: %w", runID, turn, err)
	}
	return engine.DecodeState(raw)
}

func gameOverReason(s *engine.RunState) string {
	if s.GameOver != nil {
		return s.GameOver.Reason
	}
	return ""
}

func packState(s *engine.RunState) ([]byte, error) {
	raw, err := engine.EncodeState(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress state: %w", err)
	}
	return buf.Bytes(), nil
}

func unpack(blob []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress state: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress state: %w", err)
	}
	return raw, nil
}
