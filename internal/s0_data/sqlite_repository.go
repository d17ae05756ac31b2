package s0_data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// SQLiteRepository implements contracts.Store on the embedded database
// ⭐ SSOT: 기본(파일) 저장소
//
// Dates are stored as YYYY-MM-DD text. Each Upsert is one immediate
// transaction, so writers for different symbols queue on busy_timeout.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps an opened and migrated database
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert writes bars for one symbol in one transaction
func (r *SQLiteRepository) Upsert(ctx context.Context, symbol string, bars []contracts.Bar) (int, error) {
	if err := checkBars(symbol, bars); err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert %s: %w", symbol, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_ohlc (symbol, trade_date, open, high, low, close, volume, traded_value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			traded_value = excluded.traded_value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert %s: %w", symbol, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			symbol, b.Date.Format(contracts.DateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.TradedValue(), now,
		); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", symbol, b.Date.Format(contracts.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert %s: %w", symbol, err)
	}
	return len(bars), nil
}

// Range returns bars of symbol within window, oldest first
func (r *SQLiteRepository) Range(ctx context.Context, symbol string, window contracts.DateRange) (contracts.Series, error) {
	series := contracts.Series{Symbol: symbol}
	if window.Empty() {
		return series, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT trade_date, open, high, low, close, volume
		FROM daily_ohlc
		WHERE symbol = ? AND trade_date BETWEEN ? AND ?
		ORDER BY trade_date ASC
	`, symbol, window.From.Format(contracts.DateLayout), window.To.Format(contracts.DateLayout))
	if err != nil {
		return series, fmt.Errorf("range %s: %w", symbol, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day string
			b   = contracts.Bar{Symbol: symbol}
		)
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return series, fmt.Errorf("scan %s: %w", symbol, err)
		}
		if b.Date, err = contracts.ParseDate(day); err != nil {
			return series, err
		}
		series.Bars = append(series.Bars, b)
	}
	return series, rows.Err()
}

// LatestDate returns the newest stored date for symbol
func (r *SQLiteRepository) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return r.maxDate(ctx, `SELECT MAX(trade_date) FROM daily_ohlc WHERE symbol = ?`, symbol)
}

// LatestIngestedDate returns the newest stored date across all symbols
func (r *SQLiteRepository) LatestIngestedDate(ctx context.Context) (time.Time, bool, error) {
	return r.maxDate(ctx, `SELECT MAX(trade_date) FROM daily_ohlc`)
}

func (r *SQLiteRepository) maxDate(ctx context.Context, query string, args ...any) (time.Time, bool, error) {
	var day sql.NullString
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&day); err != nil {
		return time.Time{}, false, fmt.Errorf("latest date: %w", err)
	}
	if !day.Valid {
		return time.Time{}, false, nil
	}
	t, err := contracts.ParseDate(day.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// LatestDates returns the newest stored date of every symbol in one query
func (r *SQLiteRepository) LatestDates(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, MAX(trade_date) FROM daily_ohlc GROUP BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("latest dates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var symbol, day string
		if err := rows.Scan(&symbol, &day); err != nil {
			return nil, err
		}
		t, err := contracts.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("latest date %s: %w", symbol, err)
		}
		out[symbol] = t
	}
	return out, rows.Err()
}

// Symbols lists every symbol with stored bars
func (r *SQLiteRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM daily_ohlc ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveScan replaces the result stored for result.AsOf
func (r *SQLiteRepository) SaveScan(ctx context.Context, result *contracts.ScanResult, run contracts.ScanRun) error {
	payload, err := encodeScan(result)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_results (as_of, run_id, payload, total_symbols, ranked_symbols, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (as_of) DO UPDATE SET
			run_id = excluded.run_id,
			payload = excluded.payload,
			total_symbols = excluded.total_symbols,
			ranked_symbols = excluded.ranked_symbols,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at
	`,
		result.AsOf.Format(contracts.DateLayout), run.RunID, string(payload),
		run.TotalSymbols, run.RankedSymbols, run.Duration.Milliseconds(),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", result.AsOf.Format(contracts.DateLayout), err)
	}
	return nil
}

const sqliteScanColumns = `as_of, run_id, payload, total_symbols, ranked_symbols, duration_ms, created_at`

// LatestScan returns the newest stored scan or contracts.ErrNotFound
func (r *SQLiteRepository) LatestScan(ctx context.Context) (*contracts.ScanResult, *contracts.ScanRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteScanColumns+` FROM scan_results ORDER BY as_of DESC LIMIT 1`)
	return scanSQLiteRow(row)
}

// ScanByDate returns the scan stored for asOf or contracts.ErrNotFound
func (r *SQLiteRepository) ScanByDate(ctx context.Context, asOf time.Time) (*contracts.ScanResult, *contracts.ScanRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteScanColumns+` FROM scan_results WHERE as_of = ?`,
		contracts.NormalizeDate(asOf).Format(contracts.DateLayout))
	return scanSQLiteRow(row)
}

func scanSQLiteRow(row *sql.Row) (*contracts.ScanResult, *contracts.ScanRun, error) {
	var (
		asOf, payload, created string
		durationMs             int64
		run                    contracts.ScanRun
	)
	err := row.Scan(&asOf, &run.RunID, &payload, &run.TotalSymbols, &run.RankedSymbols, &durationMs, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read scan: %w", err)
	}

	result, err := decodeScan([]byte(payload))
	if err != nil {
		return nil, nil, err
	}
	if run.AsOf, err = contracts.ParseDate(asOf); err != nil {
		return nil, nil, err
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return result, &run, nil
}

// ScanDates lists stored as-of dates, newest first
func (r *SQLiteRepository) ScanDates(ctx context.Context) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT as_of FROM scan_results ORDER BY as_of DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scan dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		t, err := contracts.ParseDate(day)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close releases the database handle
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
