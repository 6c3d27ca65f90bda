// Package history keeps a SQLite log of validation reports.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petal-labs/addonvet/validate"
)

//go:embed history_schema.sql
var schema string

// Config configures the history store.
type Config struct {
	// DSN is the database connection string, usually a file path.
	DSN string
}

// Entry is one recorded report.
type Entry struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"runId"`
	File       string    `json:"file"`
	Valid      bool      `json:"valid"`
	Errors     []string  `json:"errors"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Store persists reports to a SQLite database in WAL mode.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores rep with the time it was produced.
func (s *Store) Record(ctx context.Context, rep validate.Report, at time.Time) error {
	errs := rep.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("history: marshal errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, file, valid, errors, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		rep.RunID,
		rep.File,
		rep.OK(),
		string(errsJSON),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// List returns recorded reports, newest first. A limit of 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, file, valid, errors, recorded_at FROM reports ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListFile returns the reports recorded for one submission file, newest first.
func (s *Store) ListFile(ctx context.Context, file string, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, file, valid, errors, recorded_at FROM reports WHERE file = ? ORDER BY id DESC`
	args := []any{file}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list file: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Prune deletes reports recorded before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reports WHERE recorded_at < ?`, cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			errsJSON string
			timeStr  string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.File, &e.Valid, &errsJSON, &timeStr); err != nil {
			return nil, fmt.Errorf("history: scan report: %w", err)
		}

		t, err := time.Parse(time.RFC3339Nano, timeStr)
		if err != nil {
			return nil, fmt.Errorf("history: parse time %q: %w", timeStr, err)
		}
		e.RecordedAt = t

		if err := json.Unmarshal([]byte(errsJSON), &e.Errors); err != nil {
			return nil, fmt.Errorf("history: unmarshal errors: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
