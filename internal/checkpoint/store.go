// Package checkpoint persists updater state in a SQL database.
//
// Each Save writes one row per accumulator buffer of a graph updater,
// tagged with a run ID, so training can stop and resume with the same
// momentum and moment estimates. SQLite is the default backend; a MySQL
// DSN works as well.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/structs"
	// Need to use MySQL connections.
	_ "github.com/go-sql-driver/mysql"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/born-ml/gradstate/internal/optim"
)

// Errors returned by Store.
var (
	ErrRunNotFound     = errors.New("checkpoint: run not found")
	ErrUpdaterMismatch = errors.New("checkpoint: run was saved by a different updater")
)

// Updater is what a Store saves and restores.
//
// *optim.GraphUpdater implements it.
type Updater interface {
	Kind() optim.Kind
	StateDict() []optim.StateEntry
	LoadStateDict(entries []optim.StateEntry) error
}

var _ Updater = (*optim.GraphUpdater)(nil)

// Run describes one saved state.
type Run struct {
	ID      string    `json:"id"`
	Updater string    `json:"updater"`
	Entries int       `json:"entries"`
	SavedAt time.Time `json:"saved_at"`
}

// runRow and accumulatorRow mirror the table columns. Field order is the
// column order.
type runRow struct {
	ID      string
	Updater string
	Entries int
	SavedAt int64
}

type accumulatorRow struct {
	RunID string
	Seq   int
	Layer string
	Param string
	Slot  string
	Size  int
	Step  int
	Data  []byte
}

const (
	runsTable         = "gradstate_runs"
	accumulatorsTable = "gradstate_accumulators"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
	ID VARCHAR(64) NOT NULL PRIMARY KEY,
	Updater VARCHAR(32) NOT NULL,
	Entries INTEGER NOT NULL,
	SavedAt BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS ` + accumulatorsTable + ` (
	RunID VARCHAR(64) NOT NULL,
	Seq INTEGER NOT NULL,
	Layer VARCHAR(255) NOT NULL,
	Param VARCHAR(255) NOT NULL,
	Slot VARCHAR(64) NOT NULL,
	Size INTEGER NOT NULL,
	Step INTEGER NOT NULL,
	Data LONGBLOB,
	PRIMARY KEY (RunID, Seq)
)`,
}

// Store reads and writes updater state.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens or creates a SQLite store at path. A blank path creates a
// new file named gradstate_<xid>.sqlite3 in the working directory.
//
// The database is closed automatically when the program exits through
// atexit.Exit.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = "gradstate_" + xid.New().String() + ".sqlite3"
	}
	return OpenDSN("sqlite3", path, opts...)
}

// OpenDSN opens a store with a database/sql driver name and DSN. Supported
// drivers are "sqlite3" and "mysql".
func OpenDSN(driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case "sqlite3", "mysql":
	default:
		return nil, fmt.Errorf("checkpoint: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", driver, err)
	}

	s, err := NewWithDB(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.path = dsn

	atexit.Register(func() { s.Close() })

	s.logger.Info("checkpoint store opened", "driver", driver, "path", dsn)
	return s, nil
}

// NewWithDB creates a store on an open database and creates the tables
// if they do not exist.
func NewWithDB(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("checkpoint: create schema: %w", err)
		}
	}
	return s, nil
}

// Path returns the DSN the store was opened with, or "" for NewWithDB.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database. Closing twice is harmless.
func (s *Store) Close() error {
	return s.db.Close()
}

func columns(row any) string {
	return strings.Join(structs.Names(row), ", ")
}

func placeholders(row any) string {
	n := len(structs.Names(row))
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Save writes the updater's state under run and returns the run ID. A
// blank run gets a fresh xid. Saving an existing run replaces it.
func (s *Store) Save(ctx context.Context, run string, u Updater) (string, error) {
	if run == "" {
		run = xid.New().String()
	}
	entries := u.StateDict()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("checkpoint: save %s: %w", run, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := deleteRun(ctx, tx, run); err != nil {
		return "", fmt.Errorf("checkpoint: save %s: %w", run, err)
	}

	r := runRow{
		ID:      run,
		Updater: u.Kind().String(),
		Entries: len(entries),
		SavedAt: time.Now().UnixNano(),
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+runsTable+" ("+columns(r)+") VALUES ("+placeholders(r)+")",
		r.ID, r.Updater, r.Entries, r.SavedAt)
	if err != nil {
		return "", fmt.Errorf("checkpoint: save %s: %w", run, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+accumulatorsTable+" ("+columns(accumulatorRow{})+") VALUES ("+placeholders(accumulatorRow{})+")")
	if err != nil {
		return "", fmt.Errorf("checkpoint: save %s: %w", run, err)
	}
	defer stmt.Close()

	for i, e := range entries {
		row := accumulatorRow{
			RunID: run,
			Seq:   i,
			Layer: e.Layer,
			Param: e.Param,
			Slot:  e.Slot,
			Size:  e.Size,
			Step:  e.Step,
			Data:  encodeFloats(e.Data),
		}
		if _, err := stmt.ExecContext(ctx,
			row.RunID, row.Seq, row.Layer, row.Param, row.Slot, row.Size, row.Step, row.Data,
		); err != nil {
			return "", fmt.Errorf("checkpoint: save %s: %s/%s/%s: %w", run, e.Layer, e.Param, e.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("checkpoint: save %s: %w", run, err)
	}

	s.logger.Info("saved updater state", "run", run, "updater", r.Updater, "entries", len(entries))
	return run, nil
}

// Load restores run into u. The run must have been saved by an updater of
// the same kind.
func (s *Store) Load(ctx context.Context, run string, u Updater) error {
	r, err := s.Run(ctx, run)
	if err != nil {
		return err
	}
	if r.Updater != u.Kind().String() {
		return fmt.Errorf("%w: %s saved by %s, loading into %s", ErrUpdaterMismatch, run, r.Updater, u.Kind())
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns(accumulatorRow{})+" FROM "+accumulatorsTable+" WHERE RunID = ? ORDER BY Seq",
		run)
	if err != nil {
		return fmt.Errorf("checkpoint: load %s: %w", run, err)
	}
	defer rows.Close()

	var entries []optim.StateEntry
	for rows.Next() {
		var row accumulatorRow
		if err := rows.Scan(
			&row.RunID, &row.Seq, &row.Layer, &row.Param, &row.Slot, &row.Size, &row.Step, &row.Data,
		); err != nil {
			return fmt.Errorf("checkpoint: load %s: %w", run, err)
		}

		e := optim.StateEntry{
			Layer: row.Layer,
			Accumulator: optim.Accumulator{
				Param: row.Param,
				Slot:  row.Slot,
				Size:  row.Size,
				Step:  row.Step,
			},
		}
		// Rules without slots store no buffer.
		if row.Slot != "" {
			e.Data, err = decodeFloats(row.Data, row.Size)
			if err != nil {
				return fmt.Errorf("checkpoint: load %s: %s/%s/%s: %w", run, row.Layer, row.Param, row.Slot, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checkpoint: load %s: %w", run, err)
	}
	if len(entries) != r.Entries {
		return fmt.Errorf("checkpoint: load %s: found %d entries, run lists %d", run, len(entries), r.Entries)
	}

	if err := u.LoadStateDict(entries); err != nil {
		return fmt.Errorf("checkpoint: load %s: %w", run, err)
	}

	s.logger.Info("loaded updater state", "run", run, "entries", len(entries))
	return nil
}

// Run returns one run by ID.
func (s *Store) Run(ctx context.Context, run string) (Run, error) {
	var r runRow
	err := s.db.QueryRowContext(ctx,
		"SELECT "+columns(r)+" FROM "+runsTable+" WHERE ID = ?", run,
	).Scan(&r.ID, &r.Updater, &r.Entries, &r.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, run)
	}
	if err != nil {
		return Run{}, fmt.Errorf("checkpoint: run %s: %w", run, err)
	}
	return r.toRun(), nil
}

// Runs lists all saved runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns(runRow{})+" FROM "+runsTable+" ORDER BY SavedAt, ID")
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r runRow
		if err := rows.Scan(&r.ID, &r.Updater, &r.Entries, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("checkpoint: list runs: %w", err)
		}
		runs = append(runs, r.toRun())
	}
	return runs, rows.Err()
}

// Latest returns the most recently saved run.
func (s *Store) Latest(ctx context.Context) (Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrRunNotFound
	}
	return runs[len(runs)-1], nil
}

// Delete removes a run and its accumulators.
func (s *Store) Delete(ctx context.Context, run string) error {
	if _, err := s.Run(ctx, run); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkpoint: delete %s: %w", run, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := deleteRun(ctx, tx, run); err != nil {
		return fmt.Errorf("checkpoint: delete %s: %w", run, err)
	}
	return tx.Commit()
}

func deleteRun(ctx context.Context, tx *sql.Tx, run string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+accumulatorsTable+" WHERE RunID = ?", run); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM "+runsTable+" WHERE ID = ?", run)
	return err
}

func (r runRow) toRun() Run {
	return Run{
		ID:      r.ID,
		Updater: r.Updater,
		Entries: r.Entries,
		SavedAt: time.Unix(0, r.SavedAt),
	}
}
