// Package bench persists and reports benchmark runs of the model search.
package bench

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AxiomAlive/imba-automl/automl"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
)

// Store writes benchmark results to a SQLite database so runs on the same
// machine can be compared over time.
type Store struct {
	db *sql.DB
}

// RunRecord is one stored benchmark run.
type RunRecord struct {
	ID           int64
	StartedAt    time.Time
	Dataset      string
	Target       string
	Metric       string
	Seed         int64
	Budget       int
	BestFamily   string
	BestScore    float64
	HoldoutScore float64
	ElapsedSec   float64
	Host         HostInfo
}

// NewStore opens (and migrates) the database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, scierr.Wrapf(err, "opening results database %s", path)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			dataset TEXT NOT NULL,
			target TEXT NOT NULL,
			metric TEXT NOT NULL,
			seed INTEGER NOT NULL,
			budget INTEGER NOT NULL,
			best_family TEXT NOT NULL,
			best_score REAL NOT NULL,
			holdout_score REAL NOT NULL,
			elapsed_seconds REAL NOT NULL,
			hostname TEXT,
			platform TEXT,
			cpu_model TEXT,
			num_cpu INTEGER,
			total_memory_mb INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS trials (
			run_id INTEGER NOT NULL,
			trial_id INTEGER NOT NULL,
			family TEXT NOT NULL,
			loss REAL,
			duration_ms INTEGER NOT NULL,
			failed INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			PRIMARY KEY (run_id, trial_id),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset, metric)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return scierr.Wrap(err, "migrating results schema")
		}
	}
	return nil
}

// SaveRun records a run and its trials in one transaction and returns the
// run ID.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord, trials []automl.Trial) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, scierr.Wrap(err, "starting results transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
			started_at, dataset, target, metric, seed, budget,
			best_family, best_score, holdout_score, elapsed_seconds,
			hostname, platform, cpu_model, num_cpu, total_memory_mb
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt, rec.Dataset, rec.Target, rec.Metric, rec.Seed, rec.Budget,
		rec.BestFamily, rec.BestScore, rec.HoldoutScore, rec.ElapsedSec,
		rec.Host.Hostname, rec.Host.Platform, rec.Host.CPUModel, rec.Host.NumCPU, rec.Host.TotalMemoryMB,
	)
	if err != nil {
		return 0, scierr.Wrap(err, "inserting run record")
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, scierr.Wrap(err, "reading run id")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trials (run_id, trial_id, family, loss, duration_ms, failed, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, scierr.Wrap(err, "preparing trial insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, trial := range trials {
		var loss interface{}
		var errText interface{}
		failed := 0
		if trial.Failed() {
			failed = 1
			errText = trial.Err.Error()
		} else {
			loss = trial.Loss
		}
		if _, err := stmt.ExecContext(ctx,
			runID, trial.ID, trial.Family, loss,
			trial.Duration.Milliseconds(), failed, errText,
		); err != nil {
			return 0, scierr.Wrapf(err, "inserting trial %d", trial.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, scierr.Wrap(err, "committing results")
	}
	return runID, nil
}

// ListRuns returns the stored runs for a dataset, newest first. An empty
// dataset returns all runs.
func (s *Store) ListRuns(ctx context.Context, dataset string) ([]RunRecord, error) {
	query := `SELECT id, started_at, dataset, target, metric, seed, budget,
		best_family, best_score, holdout_score, elapsed_seconds,
		hostname, platform, cpu_model, num_cpu, total_memory_mb
		FROM runs`
	args := []interface{}{}
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, scierr.Wrap(err, "querying runs")
	}
	defer func() { _ = rows.Close() }()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.StartedAt, &rec.Dataset, &rec.Target, &rec.Metric,
			&rec.Seed, &rec.Budget, &rec.BestFamily, &rec.BestScore,
			&rec.HoldoutScore, &rec.ElapsedSec,
			&rec.Host.Hostname, &rec.Host.Platform, &rec.Host.CPUModel,
			&rec.Host.NumCPU, &rec.Host.TotalMemoryMB,
		); err != nil {
			return nil, scierr.Wrap(err, "scanning run record")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
