package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRecorder persists assignment runs as queryable rows instead of
// rotating CSV files, for operators who want history they can aggregate
// over. Grounded on pkg/database/manager.go's sql.DB-over-lib/pq pattern
// and pkg/database/operations.go's query style.
type PostgresRecorder struct {
	db *sql.DB
}

// PostgresConfig mirrors pkg/database/manager.go's Config shape, trimmed to
// what this recorder needs.
type PostgresConfig struct {
	Host            string
	Port            int
	Database        string
	Username        string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgresRecorder opens a connection pool and ensures the
// assignment_runs / assignment_rows tables exist.
func NewPostgresRecorder(ctx context.Context, cfg PostgresConfig) (*PostgresRecorder, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	r := &PostgresRecorder{db: db}
	if err := r.migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS assignment_runs (
			id SERIAL PRIMARY KEY,
			solver_status TEXT NOT NULL,
			total_error INTEGER NOT NULL,
			total_emission DOUBLE PRECISION NOT NULL,
			mean_error DOUBLE PRECISION NOT NULL,
			solve_time_seconds DOUBLE PRECISION NOT NULL,
			per_slot_emissions JSONB NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS assignment_rows (
			run_id INTEGER NOT NULL REFERENCES assignment_runs(id) ON DELETE CASCADE,
			request_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			time_slot INTEGER NOT NULL,
			emission DOUBLE PRECISION NOT NULL,
			error INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating assignment tables: %w", err)
	}
	return nil
}

// Record inserts one run and its rows inside a single transaction.
func (r *PostgresRecorder) Record(rows []Row, summary Summary) error {
	ctx := context.Background()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	perSlotJSON, err := json.Marshal(summary.PerSlotEmissions)
	if err != nil {
		return fmt.Errorf("marshaling per-slot emissions: %w", err)
	}

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO assignment_runs (solver_status, total_error, total_emission, mean_error, solve_time_seconds, per_slot_emissions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		summary.SolverStatus, summary.TotalError, summary.TotalEmission, summary.MeanError, summary.SolveTimeSeconds, perSlotJSON,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("inserting assignment run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assignment_rows (run_id, request_id, strategy, time_slot, emission, error)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, runID, row.RequestID, row.Strategy, row.Slot, row.Emission, row.Error); err != nil {
			return fmt.Errorf("inserting row for request %q: %w", row.RequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing assignment run: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
