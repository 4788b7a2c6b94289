package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"RSIRadar/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists scanner state to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL so readers (dashboards, sqlite3 shell) don't block the batch writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			symbol     TEXT PRIMARY KEY,
			rsi        REAL,
			status     TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			position INTEGER PRIMARY KEY,
			symbol   TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS flags (
			name       TEXT PRIMARY KEY,
			value      INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (map[string]model.MetricRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT symbol, rsi, status, updated_at FROM metrics`)
	if err != nil {
		return map[string]model.MetricRecord{}, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	snap := map[string]model.MetricRecord{}
	for rows.Next() {
		var (
			rec       model.MetricRecord
			rsi       sql.NullFloat64
			status    string
			updatedAt int64
		)
		if err := rows.Scan(&rec.Symbol, &rsi, &status, &updatedAt); err != nil {
			return map[string]model.MetricRecord{}, fmt.Errorf("%w: scan metrics: %v", ErrCorrupt, err)
		}
		rec.RSI = rsi.Float64
		rec.Status = model.RSIStatus(status)
		rec.UpdatedAt = time.UnixMilli(updatedAt)
		snap[rec.Symbol] = rec
	}
	return snap, rows.Err()
}

// SaveSnapshot replaces the whole metrics table in one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap map[string]model.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM metrics`); err != nil {
		return fmt.Errorf("clear metrics: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metrics (symbol, rsi, status, updated_at) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for sym, rec := range snap {
		var rsi sql.NullFloat64
		if v, ok := rec.Value(); ok {
			rsi = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, sym, rsi, string(rec.Status), rec.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert %s: %w", sym, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadFavorites(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM favorites ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	var favs []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("%w: scan favorites: %v", ErrCorrupt, err)
		}
		favs = append(favs, sym)
	}
	return favs, rows.Err()
}

func (s *SQLiteStore) SaveFavorites(ctx context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites`); err != nil {
		return fmt.Errorf("clear favorites: %w", err)
	}
	for i, sym := range symbols {
		if _, err := tx.ExecContext(ctx, `INSERT INTO favorites (position, symbol) VALUES (?,?)`, i, sym); err != nil {
			return fmt.Errorf("insert favorite %s: %w", sym, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadCycleCompleted(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE name = 'cycle_completed'`).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query flag: %w", err)
	}
	return v == 1, nil
}

func (s *SQLiteStore) SaveCycleCompleted(ctx context.Context, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := 0
	if done {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO flags (name, value, updated_at) VALUES ('cycle_completed', ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		v, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
