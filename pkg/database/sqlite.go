package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors postgresSchema. Dates are stored as YYYY-MM-DD text so
// lexical order is chronological order.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS daily_ohlc (
		symbol       TEXT    NOT NULL,
		trade_date   TEXT    NOT NULL,
		open         REAL    NOT NULL,
		high         REAL    NOT NULL,
		low          REAL    NOT NULL,
		close        REAL    NOT NULL,
		volume       INTEGER NOT NULL,
		traded_value REAL    NOT NULL,
		updated_at   TEXT    NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_ohlc_date ON daily_ohlc (trade_date)`,
	`CREATE TABLE IF NOT EXISTS scan_results (
		as_of          TEXT    PRIMARY KEY,
		run_id         TEXT    NOT NULL,
		payload        TEXT    NOT NULL,
		total_symbols  INTEGER NOT NULL,
		ranked_symbols INTEGER NOT NULL,
		duration_ms    INTEGER NOT NULL,
		created_at     TEXT    NOT NULL
	)`,
}

// SQLiteDSN builds a modernc DSN with pragmas applied to every pooled connection.
// _txlock=immediate takes the write lock at BEGIN so concurrent per-symbol
// transactions wait on busy_timeout instead of failing on lock upgrade.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(10000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// OpenSQLite opens (or creates) the embedded store and applies the schema
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	return db, nil
}
