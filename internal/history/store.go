// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite ledger of pipeline runs and their page
// groups so past runs can be listed, inspected, and exported.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// DBFile is the default ledger file name inside the output directory.
const DBFile = "history.db"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Store manages the run ledger database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at path, creating its parent directory
// and schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			output_dir TEXT,
			artifact_path TEXT,
			page_count INTEGER,
			group_size INTEGER,
			provider TEXT,
			model_id TEXT,
			state TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_groups (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			first_page INTEGER,
			last_page INTEGER,
			sub_document TEXT,
			text_file TEXT,
			stage TEXT,
			status TEXT,
			error TEXT,
			warnings TEXT,
			appended_tags TEXT,
			duration_ms INTEGER,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_status ON run_groups(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts or replaces a run and all of its groups.
func (s *Store) Record(ctx context.Context, run *types.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, output_dir, artifact_path, page_count, group_size, provider, model_id, state, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_path=excluded.source_path, output_dir=excluded.output_dir,
			artifact_path=excluded.artifact_path, page_count=excluded.page_count,
			group_size=excluded.group_size, provider=excluded.provider,
			model_id=excluded.model_id, state=excluded.state,
			started_at=excluded.started_at, completed_at=excluded.completed_at`,
		run.RunID, run.SourcePath, run.OutputDir, run.ArtifactPath, run.PageCount, run.GroupSize,
		string(run.Provider), run.ModelID, string(run.State),
		formatTime(run.StartedAt), formatTime(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_groups WHERE run_id = ?`, run.RunID); err != nil {
		return fmt.Errorf("deleting old groups: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_groups (run_id, idx, first_page, last_page, sub_document, text_file, stage, status, error, warnings, appended_tags, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range run.Groups {
		warningsJSON, err := json.Marshal(g.Warnings)
		if err != nil {
			return fmt.Errorf("encoding warnings of group %d: %w", g.Index, err)
		}
		tagsJSON, err := json.Marshal(g.AppendedTags)
		if err != nil {
			return fmt.Errorf("encoding appended tags of group %d: %w", g.Index, err)
		}
		_, err = stmt.ExecContext(ctx,
			run.RunID, g.Index, g.FirstPage, g.LastPage, g.SubDocument, g.TextFile,
			string(g.Stage), string(g.Status), g.Error,
			string(warningsJSON), string(tagsJSON), g.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("inserting group %d: %w", g.Index, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs first, without their groups. A limit of
// zero or less returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]types.RunSummary, error) {
	query := `SELECT id, source_path, output_dir, artifact_path, page_count, group_size, provider, model_id, state, started_at, completed_at
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run with its groups in index order.
func (s *Store) Get(ctx context.Context, id string) (*types.RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, output_dir, artifact_path, page_count, group_size, provider, model_id, state, started_at, completed_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	groups, err := s.groups(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Groups = groups
	return &run, nil
}

func (s *Store) groups(ctx context.Context, runID string) ([]types.GroupResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, first_page, last_page, sub_document, text_file, stage, status, error, warnings, appended_tags, duration_ms
		 FROM run_groups WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []types.GroupResult
	for rows.Next() {
		var (
			g                      types.GroupResult
			stage, status          string
			warningsJSON, tagsJSON string
			durationMS             int64
		)
		if err := rows.Scan(&g.Index, &g.FirstPage, &g.LastPage, &g.SubDocument, &g.TextFile,
			&stage, &status, &g.Error, &warningsJSON, &tagsJSON, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.Stage = types.GroupStage(stage)
		g.Status = types.GroupStatus(status)
		g.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(warningsJSON), &g.Warnings); err != nil {
			return nil, fmt.Errorf("decoding warnings of group %d: %w", g.Index, err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &g.AppendedTags); err != nil {
			return nil, fmt.Errorf("decoding appended tags of group %d: %w", g.Index, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (types.RunSummary, error) {
	var (
		run                    types.RunSummary
		provider, state        string
		startedAt, completedAt string
	)
	err := row.Scan(&run.RunID, &run.SourcePath, &run.OutputDir, &run.ArtifactPath,
		&run.PageCount, &run.GroupSize, &provider, &run.ModelID, &state, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scanning run: %w", err)
	}
	run.Provider = types.Provider(provider)
	run.State = types.RunState(state)
	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt)
	return run, nil
}

// timeLayout is RFC 3339 with a fixed nine-digit fraction so stored
// timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
