// Package archive persists terminal simulation runs to SQLite so run history
// survives restarts. The live registry stays in memory; the archive is written
// once per run, after the runner has decided the terminal status.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neurolabhq/neurosim/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    model_id    TEXT NOT NULL,
    progress    REAL NOT NULL,
    error       TEXT,
    result      BLOB,
    duration_ms INTEGER,
    created_at  DATETIME NOT NULL,
    started_at  DATETIME,
    finished_at DATETIME
)`

// ErrNotFound is returned when an archived run is not found.
var ErrNotFound = errors.New("run not found")

// SQLiteArchive stores terminal runs in a SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens the SQLite database at dbPath and runs migrations.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// SaveRun upserts a terminal run record. The result payload, when present, is
// stored as JSON.
func (a *SQLiteArchive) SaveRun(ctx context.Context, s *model.Simulation) error {
	var result []byte
	if s.Result != nil {
		var err error
		result, err = json.Marshal(s.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
			id, status, model_id, progress, error, result,
			duration_ms, created_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Status, s.ModelID, s.Progress, s.Error, result,
		s.DurationMS, s.CreatedAt, s.StartedAt, s.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves an archived run by id.
func (a *SQLiteArchive) GetRun(ctx context.Context, id string) (*model.Simulation, error) {
	s := &model.Simulation{}
	var result []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT id, status, model_id, progress, error, result,
			duration_ms, created_at, started_at, finished_at
		FROM runs WHERE id = ?`, id,
	).Scan(
		&s.ID, &s.Status, &s.ModelID, &s.Progress, &s.Error, &result,
		&s.DurationMS, &s.CreatedAt, &s.StartedAt, &s.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if len(result) > 0 {
		s.Result = &model.Result{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return s, nil
}

// ListRuns returns a paginated list of archived runs ordered by finished_at
// DESC, along with the total count.
func (a *SQLiteArchive) ListRuns(ctx context.Context, limit, offset int) ([]*model.Simulation, int, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, model_id, progress, error,
			duration_ms, created_at, started_at, finished_at
		FROM runs ORDER BY finished_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Simulation
	for rows.Next() {
		s := &model.Simulation{}
		if err := rows.Scan(
			&s.ID, &s.Status, &s.ModelID, &s.Progress, &s.Error,
			&s.DurationMS, &s.CreatedAt, &s.StartedAt, &s.FinishedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}
