// Package ledger records one row per compilation run in SQLite. The
// pipeline consults the latest row when deciding whether a module is
// fresh, and the status command reads the history back.
package ledger

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Run outcomes as stored in the ledger.
const (
	OutcomeCompiled = "compiled"
	OutcomeDeclined = "declined"
	OutcomeFailed   = "failed"
)

// Record is one compilation run.
type Record struct {
	ID        int64
	SpecPath  string
	ModuleID  string
	SpecHash  string
	Outcome   string
	AgentExit int
	Duration  time.Duration
	CreatedAt string
}

// Ledger is the on-disk run history.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path and runs
// migrations.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("ledger: pragma %q: %w", p, err)
		}
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("ledger: migration: %w", err)
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			spec_path   TEXT    NOT NULL,
			module_id   TEXT    NOT NULL,
			spec_hash   TEXT    NOT NULL,
			outcome     TEXT    NOT NULL,
			agent_exit  INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_spec    ON runs(spec_path, id DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one run to the history and returns its row id.
func (l *Ledger) Record(rec Record) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt == "" {
		createdAt = now()
	}
	res, err := l.db.Exec(
		`INSERT INTO runs (spec_path, module_id, spec_hash, outcome, agent_exit, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SpecPath, rec.ModuleID, rec.SpecHash, rec.Outcome,
		rec.AgentExit, rec.Duration.Milliseconds(), createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("ledger: record run: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the most recent run for a spec, or nil when the spec
// has never been compiled.
func (l *Ledger) Latest(specPath string) (*Record, error) {
	row := l.db.QueryRow(
		`SELECT id, spec_path, module_id, spec_hash, outcome, agent_exit, duration_ms, created_at
		 FROM runs WHERE spec_path = ? ORDER BY id DESC LIMIT 1`,
		specPath,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: latest run: %w", err)
	}
	return rec, nil
}

// History returns runs for a spec, newest first.
func (l *Ledger) History(specPath string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(
		`SELECT id, spec_path, module_id, spec_hash, outcome, agent_exit, duration_ms, created_at
		 FROM runs WHERE spec_path = ? ORDER BY id DESC LIMIT ?`,
		specPath, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRecords(rows)
}

// LatestAll returns the most recent run for every spec the ledger has
// seen, newest activity first. Used by status.
func (l *Ledger) LatestAll() ([]Record, error) {
	rows, err := l.db.Query(
		`SELECT r.id, r.spec_path, r.module_id, r.spec_hash, r.outcome, r.agent_exit, r.duration_ms, r.created_at
		 FROM runs r
		 JOIN (SELECT spec_path, MAX(id) AS max_id FROM runs GROUP BY spec_path) t
		   ON r.id = t.max_id
		 ORDER BY r.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: latest runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRecords(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var durationMS int64
	if err := row.Scan(
		&rec.ID, &rec.SpecPath, &rec.ModuleID, &rec.SpecHash,
		&rec.Outcome, &rec.AgentExit, &durationMS, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// HashContent returns the hex SHA-256 of a spec's content, the form
// stored in spec_hash.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
