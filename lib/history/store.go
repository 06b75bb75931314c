// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/decommission/lib/codec"
	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/sqlitepool"
)

// ErrRunNotFound is returned by Run and Results for an unknown run id.
var ErrRunNotFound = errors.New("history: run not found")

// ErrDuplicateRun is returned by Record when the run id is already
// stored.
var ErrDuplicateRun = errors.New("history: run already recorded")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	organization  TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	fail_count    INTEGER NOT NULL,
	archive_path  TEXT NOT NULL DEFAULT '',
	digest        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS runs_started ON runs (started_at);

CREATE TABLE IF NOT EXISTS results (
	run_id   TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	kind     TEXT NOT NULL,
	category TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	name     TEXT NOT NULL,
	serial   TEXT NOT NULL,
	error    TEXT NOT NULL DEFAULT '',
	asset    BLOB NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Result kinds.
const (
	KindDeleted   = "deleted"
	KindFailed    = "failed"
	KindSecondary = "secondary"
)

// Run is the summary row of one recorded run.
type Run struct {
	RunID        string    `json:"run_id"`
	Organization string    `json:"organization"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	ArchivePath  string    `json:"archive_path,omitempty"`
	Digest       string    `json:"digest,omitempty"`
}

// Result is one attempted asset of a run.
type Result struct {
	Kind  string          `json:"kind"`
	Asset inventory.Asset `json:"asset"`
	Error string          `json:"error,omitempty"`
}

// ArchiveRef points at the archive written for a run, if any.
type ArchiveRef struct {
	Path   string
	Digest string
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Store is the run history database.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the history database at config.Path.
func Open(config Config) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   config.Path,
		Schema: schema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Record stores ledger and all its results.
func (s *Store) Record(ctx context.Context, ledger *decommission.Ledger, archive ArchiveRef) (err error) {
	if ledger == nil || ledger.RunID == "" {
		return fmt.Errorf("history: ledger has no run id")
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("history: beginning transaction: %w", err)
	}
	defer endTransaction(&err)

	exists, err := runExists(conn, ledger.RunID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, ledger.RunID)
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO runs (run_id, organization, started_at, finished_at,
			success_count, fail_count, archive_path, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			ledger.RunID,
			ledger.Organization,
			ledger.StartedAt.UnixNano(),
			ledger.FinishedAt.UnixNano(),
			ledger.SuccessCount,
			ledger.FailCount,
			archive.Path,
			archive.Digest,
		}})
	if err != nil {
		return fmt.Errorf("history: inserting run: %w", err)
	}

	seq := 0
	insert := func(kind string, asset inventory.Asset, message string) error {
		blob, err := codec.Marshal(asset)
		if err != nil {
			return fmt.Errorf("history: encoding %s %s: %w", asset.Category.Slug(), asset.ID, err)
		}
		err = sqlitex.Execute(conn, `
			INSERT INTO results (run_id, seq, kind, category, asset_id, name, serial, error, asset)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				ledger.RunID, seq, kind, asset.Category.Slug(),
				asset.ID, asset.DisplayName(), asset.Serial, message, blob,
			}})
		if err != nil {
			return fmt.Errorf("history: inserting result: %w", err)
		}
		seq++
		return nil
	}
	for _, asset := range ledger.Deleted {
		if err = insert(KindDeleted, asset, ""); err != nil {
			return err
		}
	}
	for _, failure := range ledger.Failed {
		if err = insert(KindFailed, failure.Asset, failure.Error); err != nil {
			return err
		}
	}
	for _, failure := range ledger.Secondary {
		if err = insert(KindSecondary, failure.Asset, failure.Error); err != nil {
			return err
		}
	}

	s.logger.Info("run recorded",
		"run_id", ledger.RunID,
		"organization", ledger.Organization,
		"results", seq,
	)
	return nil
}

// Runs returns recorded runs, newest first. A limit of zero or less
// returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer s.pool.Put(conn)

	query := runColumns + ` ORDER BY started_at DESC, run_id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var runs []Run
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			runs = append(runs, scanRun(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	return runs, nil
}

// Run returns one run by id.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("history: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		run   Run
		found bool
	)
	err = sqlitex.Execute(conn, runColumns+` WHERE run_id = ?`, &sqlitex.ExecOptions{
		Args: []any{runID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			run = scanRun(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return Run{}, fmt.Errorf("history: reading run: %w", err)
	}
	if !found {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// Results returns the results of one run in recorded order. kinds
// filters by kind; none means all.
func (s *Store) Results(ctx context.Context, runID string, kinds ...string) ([]Result, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer s.pool.Put(conn)

	exists, err := runExists(conn, runID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	wanted := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = true
	}
	var results []Result
	err = sqlitex.Execute(conn,
		`SELECT kind, error, asset FROM results WHERE run_id = ? ORDER BY seq`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				kind := stmt.ColumnText(0)
				if len(wanted) > 0 && !wanted[kind] {
					return nil
				}
				blob := make([]byte, stmt.ColumnLen(2))
				stmt.ColumnBytes(2, blob)
				var asset inventory.Asset
				if err := codec.Unmarshal(blob, &asset); err != nil {
					return fmt.Errorf("decoding asset: %w", err)
				}
				results = append(results, Result{
					Kind:  kind,
					Asset: asset,
					Error: stmt.ColumnText(1),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history: reading results: %w", err)
	}
	return results, nil
}

// Failures returns the failed and secondary results of a run.
func (s *Store) Failures(ctx context.Context, runID string) ([]Result, error) {
	return s.Results(ctx, runID, KindFailed, KindSecondary)
}

const runColumns = `SELECT run_id, organization, started_at, finished_at,
	success_count, fail_count, archive_path, digest FROM runs`

func scanRun(stmt *sqlite.Stmt) Run {
	return Run{
		RunID:        stmt.ColumnText(0),
		Organization: stmt.ColumnText(1),
		StartedAt:    time.Unix(0, stmt.ColumnInt64(2)).UTC(),
		FinishedAt:   time.Unix(0, stmt.ColumnInt64(3)).UTC(),
		SuccessCount: stmt.ColumnInt(4),
		FailCount:    stmt.ColumnInt(5),
		ArchivePath:  stmt.ColumnText(6),
		Digest:       stmt.ColumnText(7),
	}
}

func runExists(conn *sqlite.Conn, runID string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn, `SELECT 1 FROM runs WHERE run_id = ?`, &sqlitex.ExecOptions{
		Args: []any{runID},
		ResultFunc: func(*sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("history: checking run: %w", err)
	}
	return exists, nil
}
