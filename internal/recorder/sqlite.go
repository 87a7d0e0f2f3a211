package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the API can read history while a scan is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id               TEXT PRIMARY KEY,
			started_at       INTEGER NOT NULL,
			finished_at      INTEGER NOT NULL,
			max_rsi          REAL,
			max_per          REAL,
			min_roe_percent  REAL,
			universe_size    INTEGER,
			universe_warning TEXT,
			match_count      INTEGER,
			cancelled        INTEGER,
			counts_json      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_matches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES scan_runs(id),
			position    INTEGER,
			symbol      TEXT NOT NULL,
			price       REAL,
			rsi         REAL,
			per         REAL,
			roe_percent REAL,
			company     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_matches_run ON scan_matches(run_id)`,

		`CREATE TABLE IF NOT EXISTS fx_quotes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			code      TEXT NOT NULL,
			rate      REAL,
			change    REAL,
			source    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fx_quotes_ts ON fx_quotes(code, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(res *model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts, err := json.Marshal(res.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO scan_runs
		(id, started_at, finished_at, max_rsi, max_per, min_roe_percent,
		 universe_size, universe_warning, match_count, cancelled, counts_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(),
		res.Criteria.MaxRSI, res.Criteria.MaxPER, res.Criteria.MinROEPercent,
		res.UniverseSize, res.UniverseWarning, len(res.Matches), res.Cancelled, string(counts),
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	for i, m := range res.Matches {
		_, err := tx.Exec(`INSERT INTO scan_matches
			(run_id, position, symbol, price, rsi, per, roe_percent, company)
			VALUES (?,?,?,?,?,?,?,?)`,
			res.ID, i+1, m.Symbol, m.Price, m.RSI, m.PER, m.ROEPercent, m.Company,
		)
		if err != nil {
			return fmt.Errorf("insert scan match %s: %w", m.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordQuote(q *model.FXQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := q.FetchedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO fx_quotes
		(timestamp, code, rate, change, source)
		VALUES (?,?,?,?,?)`,
		ts.UnixMilli(), q.Code, q.Rate, q.Change, q.Source,
	)
	return err
}

// RecentScans returns the latest scans, newest first, with their matches.
func (r *SQLiteRecorder) RecentScans(limit int) ([]ScanSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, started_at, finished_at, max_rsi, max_per, min_roe_percent,
		universe_size, universe_warning, cancelled
		FROM scan_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}

	var scans []ScanSummary
	for rows.Next() {
		var s ScanSummary
		var started, finished int64
		var warning sql.NullString
		if err := rows.Scan(&s.ID, &started, &finished,
			&s.Criteria.MaxRSI, &s.Criteria.MaxPER, &s.Criteria.MinROEPercent,
			&s.UniverseSize, &warning, &s.Cancelled); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		s.StartedAt = time.UnixMilli(started)
		s.FinishedAt = time.UnixMilli(finished)
		s.UniverseWarning = warning.String
		scans = append(scans, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range scans {
		matches, err := r.matches(scans[i].ID)
		if err != nil {
			return nil, err
		}
		scans[i].Matches = matches
	}
	return scans, nil
}

func (r *SQLiteRecorder) matches(runID string) ([]model.Match, error) {
	rows, err := r.db.Query(`SELECT symbol, price, rsi, per, roe_percent, company
		FROM scan_matches WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scan matches: %w", err)
	}
	defer rows.Close()

	matches := []model.Match{}
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.Symbol, &m.Price, &m.RSI, &m.PER, &m.ROEPercent, &m.Company); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DB exposes the handle for liveness probes.
func (r *SQLiteRecorder) DB() *sql.DB { return r.db }

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
