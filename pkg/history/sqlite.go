package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, "sqlite"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/hydrate"
)

// Store records hydration runs in a SQLite database.
//
// The database runs in WAL mode with a single connection, so one Store
// serializes its own writes while other processes can still read.
type Store struct {
	db        *sql.DB
	path      string
	retain    int
	logger    *slog.Logger
	mu        sync.RWMutex
	closeOnce sync.Once

	insertRunStmt    *sql.Stmt
	insertOutputStmt *sql.Stmt
	runStmt          *sql.Stmt
	previousStmt     *sql.Stmt
	listStmt         *sql.Stmt
	outputsStmt      *sql.Stmt
}

const runColumns = `id, started_at, duration_ms, input_dir, output_dir, status, applications, failures`

// Open opens (creating if needed) the history database at cfg.Path.
func Open(cfg config.HistoryConfig, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = config.DefaultHistoryBusyTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Driver == "" {
		cfg.Driver = config.DefaultHistoryDriver
	}

	var dsn string
	switch cfg.Driver {
	case "sqlite":
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
			cfg.Path, cfg.BusyTimeout.Milliseconds())
	case "sqlite3":
		dsn = fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
			cfg.Path, cfg.BusyTimeout.Milliseconds())
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		path:   cfg.Path,
		retain: cfg.Retain,
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		status TEXT NOT NULL,
		applications INTEGER NOT NULL,
		failures INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outputs (
		run_id TEXT NOT NULL,
		application TEXT NOT NULL,
		environment TEXT NOT NULL,
		path TEXT NOT NULL,
		digest TEXT NOT NULL,
		document TEXT NOT NULL,
		PRIMARY KEY (run_id, application, environment)
	);

	CREATE INDEX IF NOT EXISTS idx_outputs_digest ON outputs(digest);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertRunStmt, err = s.db.Prepare(`
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert run statement: %w", err)
	}

	s.insertOutputStmt, err = s.db.Prepare(`
		INSERT INTO outputs (run_id, application, environment, path, digest, document)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert output statement: %w", err)
	}

	s.runStmt, err = s.db.Prepare(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare run statement: %w", err)
	}

	s.previousStmt, err = s.db.Prepare(`
		SELECT ` + runColumns + ` FROM runs
		WHERE seq < (SELECT seq FROM runs WHERE id = ?)
		ORDER BY seq DESC
		LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare previous run statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT ` + runColumns + ` FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.outputsStmt, err = s.db.Prepare(`
		SELECT run_id, application, environment, path, digest, document
		FROM outputs
		WHERE run_id = ?
		ORDER BY application, environment
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outputs statement: %w", err)
	}

	return nil
}

// RecordRun stores report and its outputs, then prunes the database down to
// the configured number of runs.
func (s *Store) RecordRun(ctx context.Context, report *hydrate.Report) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	if report.RunID == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	type row struct {
		app, env, path, digest string
		doc                    []byte
	}
	var rows []row
	for _, ar := range report.Applications {
		for _, out := range ar.Outputs {
			doc, err := canonicalJSON(out.Document)
			if err != nil {
				return fmt.Errorf("application %s env %s: %w", ar.Application, out.Environment, err)
			}
			digest, err := Digest(out.Document)
			if err != nil {
				return err
			}
			rows = append(rows, row{ar.Application, out.Environment, out.Path, digest, doc})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.StmtContext(ctx, s.insertRunStmt).ExecContext(ctx,
		report.RunID,
		report.StartedAt.UnixNano(),
		report.Duration.Milliseconds(),
		report.InputDir,
		report.OutputDir,
		string(report.Status()),
		len(report.Applications),
		report.Count(hydrate.StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	insert := tx.StmtContext(ctx, s.insertOutputStmt)
	for _, r := range rows {
		if _, err := insert.ExecContext(ctx, report.RunID, r.app, r.env, r.path, r.digest, string(r.doc)); err != nil {
			return fmt.Errorf("failed to record output %s/%s: %w", r.app, r.env, err)
		}
	}

	if s.retain >= 0 {
		pruned, err := prune(ctx, tx, s.retain)
		if err != nil {
			return err
		}
		if pruned > 0 {
			s.logger.DebugContext(ctx, "pruned run history", "runs", pruned, "retain", s.retain)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.DebugContext(ctx, "recorded run", "run_id", report.RunID, "outputs", len(rows))
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}

// Run returns the run with the given ID, or ErrRunNotFound.
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRun(s.runStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Latest returns the most recent run, or ErrRunNotFound when the history is
// empty.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[0], nil
}

// PreviousRun returns the run recorded just before id, or ErrRunNotFound
// when id is the oldest run or unknown.
func (s *Store) PreviousRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRun(s.previousStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no run before %s", ErrRunNotFound, id)
	}
	return r, err
}

// Outputs returns the outputs of a run ordered by application and
// environment.
func (s *Store) Outputs(ctx context.Context, runID string) ([]Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.outputsStmt.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer rows.Close()

	var outputs []Output
	for rows.Next() {
		var (
			o   Output
			doc string
		)
		if err := rows.Scan(&o.RunID, &o.Application, &o.Environment, &o.Path, &o.Digest, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		o.Document, err = document.ParseJSON([]byte(doc), "history:"+o.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to decode output %s/%s: %w", o.Application, o.Environment, err)
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return outputs, nil
}

// Diff compares the outputs of two runs. Both runs must exist.
func (s *Store) Diff(ctx context.Context, fromID, toID string) ([]OutputDiff, error) {
	for _, id := range []string{fromID, toID} {
		if _, err := s.Run(ctx, id); err != nil {
			return nil, err
		}
	}
	from, err := s.Outputs(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.Outputs(ctx, toID)
	if err != nil {
		return nil, err
	}
	return diffOutputs(from, to), nil
}

// Prune deletes all but the newest keep runs and their outputs. A negative
// keep deletes nothing. It returns the number of runs deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := prune(ctx, tx, keep)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}

func prune(ctx context.Context, tx *sql.Tx, keep int) (int, error) {
	const stale = `SELECT id FROM runs ORDER BY seq DESC LIMIT -1 OFFSET ?`

	if _, err := tx.ExecContext(ctx, `DELETE FROM outputs WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("failed to prune outputs: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{
			s.insertRunStmt, s.insertOutputStmt, s.runStmt,
			s.previousStmt, s.listStmt, s.outputsStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r          Run
		startedAt  int64
		durationMS int64
	)
	err := row.Scan(&r.ID, &startedAt, &durationMS, &r.InputDir, &r.OutputDir, &r.Status, &r.Applications, &r.Failures)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}

func sortDiffs(diffs []OutputDiff) {
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Application != diffs[j].Application {
			return diffs[i].Application < diffs[j].Application
		}
		return diffs[i].Environment < diffs[j].Environment
	})
}
