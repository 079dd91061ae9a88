package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateRun creates a new solve run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *SolveRun) error {
	query := `
		INSERT INTO solve_runs (
			id, domain, start_mask, goal_mask, status, plan_length,
			tried, skipped, explored, expansions, goal_tests, new_nodes,
			elapsed_ms, error, started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Domain,
		run.StartMask,
		run.GoalMask,
		run.Status,
		run.PlanLength,
		run.Tried,
		run.Skipped,
		run.Explored,
		run.Expansions,
		run.GoalTests,
		run.NewNodes,
		run.ElapsedMS,
		run.Error,
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create solve run: %w", err)
	}

	return nil
}

const solveRunColumns = `
	id, domain, start_mask, goal_mask, status, plan_length,
	tried, skipped, explored, expansions, goal_tests, new_nodes,
	elapsed_ms, error, started_at, completed_at, created_at, updated_at
`

func scanSolveRun(scan func(dest ...interface{}) error) (*SolveRun, error) {
	run := &SolveRun{}
	err := scan(
		&run.ID,
		&run.Domain,
		&run.StartMask,
		&run.GoalMask,
		&run.Status,
		&run.PlanLength,
		&run.Tried,
		&run.Skipped,
		&run.Explored,
		&run.Expansions,
		&run.GoalTests,
		&run.NewNodes,
		&run.ElapsedMS,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun retrieves a solve run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*SolveRun, error) {
	query := `SELECT ` + solveRunColumns + ` FROM solve_runs WHERE id = ?`

	run, err := scanSolveRun(s.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("solve run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get solve run: %w", err)
	}

	return run, nil
}

// FinishRun records the terminal status and statistics of a solve run
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, outcome RunOutcome) error {
	query := `
		UPDATE solve_runs
		SET status = ?, plan_length = ?,
			tried = ?, skipped = ?, explored = ?, expansions = ?,
			goal_tests = ?, new_nodes = ?, elapsed_ms = ?, error = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		outcome.Status,
		outcome.PlanLength,
		outcome.Tried,
		outcome.Skipped,
		outcome.Explored,
		outcome.Expansions,
		outcome.GoalTests,
		outcome.NewNodes,
		outcome.ElapsedMS,
		outcome.Error,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish solve run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("solve run not found: %s", id)
	}

	return nil
}

// ListRuns lists solve runs with pagination, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*SolveRun, error) {
	query := `
		SELECT ` + solveRunColumns + `
		FROM solve_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list solve runs: %w", err)
	}
	defer rows.Close()

	return collectSolveRuns(rows)
}

// ListRunsByDomain lists solve runs for one domain with pagination
func (s *SQLiteStore) ListRunsByDomain(ctx context.Context, domain string, limit, offset int) ([]*SolveRun, error) {
	query := `
		SELECT ` + solveRunColumns + `
		FROM solve_runs
		WHERE domain = ?
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, domain, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list solve runs: %w", err)
	}
	defer rows.Close()

	return collectSolveRuns(rows)
}

func collectSolveRuns(rows *sql.Rows) ([]*SolveRun, error) {
	runs := []*SolveRun{}
	for rows.Next() {
		run, err := scanSolveRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solve run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solve runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a solve run and its plan steps
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	query := `DELETE FROM solve_runs WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete solve run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("solve run not found: %s", id)
	}

	return nil
}

// CreatePlanSteps records the winning plan of a run in one transaction
func (s *SQLiteStore) CreatePlanSteps(ctx context.Context, runID string, steps []*PlanStep) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO plan_steps (id, run_id, position, actions, must_mask, then_mask, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, step := range steps {
		_, err := tx.ExecContext(ctx, query,
			step.ID,
			runID,
			step.Position,
			step.Actions,
			step.MustMask,
			step.ThenMask,
			step.CreatedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to create plan step %d: %w", step.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan steps: %w", err)
	}

	return nil
}

// ListPlanSteps lists the plan steps of a run in execution order
func (s *SQLiteStore) ListPlanSteps(ctx context.Context, runID string) ([]*PlanStep, error) {
	query := `
		SELECT id, run_id, position, actions, must_mask, then_mask, created_at
		FROM plan_steps
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan steps: %w", err)
	}
	defer rows.Close()

	steps := []*PlanStep{}
	for rows.Next() {
		step := &PlanStep{}
		err := rows.Scan(
			&step.ID,
			&step.RunID,
			&step.Position,
			&step.Actions,
			&step.MustMask,
			&step.ThenMask,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan steps: %w", err)
	}

	return steps, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
