// Package store persists batches and run records in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/piwi3910/curenest/internal/model"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const driver = "sqlite3"

// Store is a SQLite-backed batch ledger.
type Store struct {
	db     *sqlx.DB
	logger hclog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migrations and store events.
func WithLogger(l hclog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects to the database at path and applies pending migrations.
// Use ":memory:" for a throwaway database.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.Connect(driver, path)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(s.logger.Named("migrate").StandardLogger(&hclog.StandardLoggerOptions{ForceLevel: hclog.Debug}))
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.db = db
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type batchRow struct {
	ID          string    `db:"id"`
	RunID       string    `db:"run_id"`
	BedID       string    `db:"bed_id"`
	BedLabel    string    `db:"bed_label"`
	State       string    `db:"state"`
	WindowStart time.Time `db:"window_start"`
	WindowEnd   time.Time `db:"window_end"`
	Solution    string    `db:"solution"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toRow(b model.Batch) (batchRow, error) {
	sol, err := json.Marshal(b.Solution)
	if err != nil {
		return batchRow{}, fmt.Errorf("encoding solution of batch %s: %w", b.ID, err)
	}
	return batchRow{
		ID:          b.ID,
		RunID:       b.RunID,
		BedID:       b.BedID,
		BedLabel:    b.BedLabel,
		State:       string(b.State),
		WindowStart: b.Window.Start.UTC(),
		WindowEnd:   b.Window.End.UTC(),
		Solution:    string(sol),
		CreatedAt:   b.CreatedAt.UTC(),
		UpdatedAt:   b.UpdatedAt.UTC(),
	}, nil
}

func (r batchRow) toBatch() (model.Batch, error) {
	var sol model.Solution
	if err := json.Unmarshal([]byte(r.Solution), &sol); err != nil {
		return model.Batch{}, fmt.Errorf("decoding solution of batch %s: %w", r.ID, err)
	}
	return model.Batch{
		ID:        r.ID,
		RunID:     r.RunID,
		BedID:     r.BedID,
		BedLabel:  r.BedLabel,
		Solution:  sol,
		State:     model.BatchState(r.State),
		Window:    model.Window{Start: r.WindowStart, End: r.WindowEnd},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

const upsertBatch = `INSERT INTO batches
	(id, run_id, bed_id, bed_label, state, window_start, window_end, solution, created_at, updated_at)
	VALUES (:id, :run_id, :bed_id, :bed_label, :state, :window_start, :window_end, :solution, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		state = excluded.state,
		window_start = excluded.window_start,
		window_end = excluded.window_end,
		solution = excluded.solution,
		updated_at = excluded.updated_at`

// SaveBatches inserts or updates batches in one transaction.
func (s *Store) SaveBatches(ctx context.Context, batches []model.Batch) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range batches {
		row, err := toRow(b)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertBatch, row); err != nil {
			return fmt.Errorf("saving batch %s: %w", b.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("batches saved", "count", len(batches))
	return nil
}

const batchColumns = `id, run_id, bed_id, bed_label, state, window_start, window_end, solution, created_at, updated_at`

// GetBatch returns one batch or model.ErrNotFound.
func (s *Store) GetBatch(ctx context.Context, id string) (model.Batch, error) {
	var row batchRow
	err := s.db.GetContext(ctx, &row, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Batch{}, fmt.Errorf("batch %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Batch{}, err
	}
	return row.toBatch()
}

// BatchFilter narrows ListBatches. Empty fields match everything.
type BatchFilter struct {
	RunID  string
	BedID  string
	States []model.BatchState
}

// ListBatches returns matching batches ordered by creation time, then id.
func (s *Store) ListBatches(ctx context.Context, f BatchFilter) ([]model.Batch, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.BedID != "" {
		where = append(where, "bed_id = ?")
		args = append(args, f.BedID)
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, st := range f.States {
			states[i] = string(st)
		}
		clause, stateArgs, err := sqlx.In("state IN (?)", states)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
		args = append(args, stateArgs...)
	}

	query := `SELECT ` + batchColumns + ` FROM batches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	var rows []batchRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	batches := make([]model.Batch, 0, len(rows))
	for _, r := range rows {
		b, err := r.toBatch()
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// DeleteBatch removes a batch or returns model.ErrNotFound.
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("batch %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// Run is the persisted outcome of a submission beyond its batches.
type Run struct {
	ID        string
	Unplaced  []string
	CreatedAt time.Time
}

type runRow struct {
	ID        string    `db:"id"`
	Unplaced  string    `db:"unplaced"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveRun records a run. Saving an existing run id replaces its unplaced list.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	unplaced := r.Unplaced
	if unplaced == nil {
		unplaced = []string{}
	}
	data, err := json.Marshal(unplaced)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, unplaced, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET unplaced = excluded.unplaced`,
		r.ID, string(data), r.CreatedAt.UTC())
	return err
}

// GetRun returns a run record or model.ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT id, unplaced, created_at FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	r := Run{ID: row.ID, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal([]byte(row.Unplaced), &r.Unplaced); err != nil {
		return Run{}, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return r, nil
}
