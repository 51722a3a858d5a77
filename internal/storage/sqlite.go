package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite-backed run catalog.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "ideaforge.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	// Needed for the run -> run_ideas cascade.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Runs ---

// SaveRun writes the run record and its idea rows in one transaction.
func (s *Store) SaveRun(r RunRecord, ideas []IdeaRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	degraded := 0
	if r.Degraded {
		degraded = 1
	}
	if _, err := tx.Exec(`
		INSERT INTO runs (id, created_at, mode, model, user_query, brief, idea_count, critique_count, degraded, degraded_reason, artifact_dir, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Mode, r.Model, r.Query, r.Brief,
		r.IdeaCount, r.CritiqueCount, degraded, r.DegradedReason, r.ArtifactDir, r.ResultJSON,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	for _, idea := range ideas {
		if _, err := tx.Exec(`
			INSERT INTO run_ideas (id, run_id, name, target_customer, what_it_is, mean_score, fatal_flag_count, archive_votes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			idea.ID, r.ID, idea.Name, idea.TargetCustomer, idea.WhatItIs,
			idea.MeanScore, idea.FatalFlagCount, idea.ArchiveVotes,
		); err != nil {
			return fmt.Errorf("inserting idea %s: %w", idea.ID, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a single run record by id.
func (s *Store) GetRun(id string) (RunRecord, error) {
	var r RunRecord
	var createdAt string
	var degraded int
	err := s.db.QueryRow(`
		SELECT id, created_at, mode, model, user_query, brief, idea_count, critique_count, degraded, degraded_reason, artifact_dir, result_json
		FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &r.Mode, &r.Model, &r.Query, &r.Brief, &r.IdeaCount, &r.CritiqueCount, &degraded, &r.DegradedReason, &r.ArtifactDir, &r.ResultJSON)
	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, err
	}
	r.Degraded = degraded != 0
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}

// ListRuns returns the most recent runs, newest first. ResultJSON is
// omitted from listings to keep them light.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, mode, model, user_query, brief, idea_count, critique_count, degraded, degraded_reason, artifact_dir
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var r RunRecord
		var createdAt string
		var degraded int
		if err := rows.Scan(&r.ID, &createdAt, &r.Mode, &r.Model, &r.Query, &r.Brief, &r.IdeaCount, &r.CritiqueCount, &degraded, &r.DegradedReason, &r.ArtifactDir); err != nil {
			return nil, err
		}
		r.Degraded = degraded != 0
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

// RunIdeas returns a run's idea rows ranked best-first.
func (s *Store) RunIdeas(runID string) ([]IdeaRow, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, name, target_customer, what_it_is, mean_score, fatal_flag_count, archive_votes
		FROM run_ideas WHERE run_id = ?
		ORDER BY fatal_flag_count ASC, archive_votes ASC, mean_score DESC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IdeaRow
	for rows.Next() {
		var i IdeaRow
		if err := rows.Scan(&i.ID, &i.RunID, &i.Name, &i.TargetCustomer, &i.WhatItIs, &i.MeanScore, &i.FatalFlagCount, &i.ArchiveVotes); err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// DeleteRun removes a run and, via cascade, its idea rows.
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
