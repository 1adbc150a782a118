// Package store persists sweep results in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/yshklarov/percolator/internal/sweep"
)

// SchemaVersion is recorded in the meta table.
const SchemaVersion = 1

// Store wraps an open database.
type Store struct {
	db *sql.DB
}

// SweepRecord is one stored sweep without its points.
type SweepRecord struct {
	ID        int64
	CreatedAt time.Time
	Width     int
	Height    int
	Trials    int
	Seed      int64
	Elapsed   time.Duration
	Options   sweep.Options
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sweeps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			trials INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			torus_x INTEGER NOT NULL,
			torus_y INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			options TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sweep_points (
			sweep_id INTEGER NOT NULL,
			p REAL NOT NULL,
			trials INTEGER NOT NULL,
			percolated INTEGER NOT NULL,
			percolation_probability REAL NOT NULL,
			largest_mean REAL NOT NULL,
			largest_stddev REAL NOT NULL,
			clusters_mean REAL NOT NULL,
			PRIMARY KEY (sweep_id, p),
			FOREIGN KEY (sweep_id) REFERENCES sweeps(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sweep_points_p ON sweep_points(p)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion))
	return err
}

// SaveSweep stores res and all of its points in one transaction and
// returns the new sweep id.
func (s *Store) SaveSweep(ctx context.Context, res sweep.Result) (int64, error) {
	opts, err := json.Marshal(res.Options)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	o := res.Options
	r, err := tx.ExecContext(ctx, `
		INSERT INTO sweeps (created_at, width, height, trials, seed, torus_x, torus_y, elapsed_ms, options)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, time.Now().UTC().Format(time.RFC3339Nano), o.Width, o.Height, o.Trials, o.Seed, o.Torus.X, o.Torus.Y, res.Elapsed.Milliseconds(), string(opts))
	if err != nil {
		return 0, fmt.Errorf("insert sweep: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_points (sweep_id, p, trials, percolated, percolation_probability, largest_mean, largest_stddev, clusters_mean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, pt := range res.Points {
		if _, err := stmt.ExecContext(ctx, id, pt.P, pt.Trials, pt.Percolated, pt.PercolationProbability, pt.LargestMean, pt.LargestStdDev, pt.ClustersMean); err != nil {
			return 0, fmt.Errorf("insert point p=%g: %w", pt.P, err)
		}
	}
	return id, tx.Commit()
}

// Sweeps lists stored sweeps, newest first.
func (s *Store) Sweeps(ctx context.Context) ([]SweepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, width, height, trials, seed, elapsed_ms, options
		FROM sweeps ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SweepRecord
	for rows.Next() {
		var (
			rec       SweepRecord
			createdAt string
			elapsedMS int64
			opts      string
		)
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Width, &rec.Height, &rec.Trials, &rec.Seed, &elapsedMS, &opts); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("sweep %d: %w", rec.ID, err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if err := json.Unmarshal([]byte(opts), &rec.Options); err != nil {
			return nil, fmt.Errorf("sweep %d options: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Points returns the points of sweep id ordered by p.
func (s *Store) Points(ctx context.Context, id int64) ([]sweep.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p, trials, percolated, percolation_probability, largest_mean, largest_stddev, clusters_mean
		FROM sweep_points WHERE sweep_id = ? ORDER BY p
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sweep.Point
	for rows.Next() {
		var pt sweep.Point
		if err := rows.Scan(&pt.P, &pt.Trials, &pt.Percolated, &pt.PercolationProbability, &pt.LargestMean, &pt.LargestStdDev, &pt.ClustersMean); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
