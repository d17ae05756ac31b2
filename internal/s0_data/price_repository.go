package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/database"
)

// PriceRepository implements contracts.Store on PostgreSQL
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	db *database.DB
}

// NewPriceRepository creates a new price repository over a migrated pool
func NewPriceRepository(db *database.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

const upsertBarSQL = `
	INSERT INTO daily_ohlc (symbol, trade_date, open, high, low, close, volume, traded_value, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	ON CONFLICT (symbol, trade_date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		traded_value = EXCLUDED.traded_value,
		updated_at = NOW()
`

// Upsert writes bars for one symbol as one batched transaction
func (r *PriceRepository) Upsert(ctx context.Context, symbol string, bars []contracts.Bar) (int, error) {
	if err := checkBars(symbol, bars); err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range bars {
			batch.Queue(upsertBarSQL, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.TradedValue())
		}

		br := tx.SendBatch(ctx, batch)
		for range bars {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		return br.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", symbol, err)
	}
	return len(bars), nil
}

// Range returns bars of symbol within window, oldest first
func (r *PriceRepository) Range(ctx context.Context, symbol string, window contracts.DateRange) (contracts.Series, error) {
	series := contracts.Series{Symbol: symbol}
	if window.Empty() {
		return series, nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT trade_date, open, high, low, close, volume
		FROM daily_ohlc
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`, symbol, window.From, window.To)
	if err != nil {
		return series, fmt.Errorf("range %s: %w", symbol, err)
	}
	defer rows.Close()

	for rows.Next() {
		b := contracts.Bar{Symbol: symbol}
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return series, fmt.Errorf("scan %s: %w", symbol, err)
		}
		b.Date = contracts.NormalizeDate(b.Date)
		series.Bars = append(series.Bars, b)
	}
	return series, rows.Err()
}

// LatestDate returns the newest stored date for symbol
func (r *PriceRepository) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return r.maxDate(ctx, `SELECT MAX(trade_date) FROM daily_ohlc WHERE symbol = $1`, symbol)
}

// LatestIngestedDate returns the newest stored date across all symbols
func (r *PriceRepository) LatestIngestedDate(ctx context.Context) (time.Time, bool, error) {
	return r.maxDate(ctx, `SELECT MAX(trade_date) FROM daily_ohlc`)
}

func (r *PriceRepository) maxDate(ctx context.Context, query string, args ...any) (time.Time, bool, error) {
	var day *time.Time
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&day); err != nil {
		return time.Time{}, false, fmt.Errorf("latest date: %w", err)
	}
	if day == nil {
		return time.Time{}, false, nil
	}
	return contracts.NormalizeDate(*day), true, nil
}

// LatestDates returns the newest stored date of every symbol in one query
func (r *PriceRepository) LatestDates(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT symbol, MAX(trade_date) FROM daily_ohlc GROUP BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("latest dates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var symbol string
		var day time.Time
		if err := rows.Scan(&symbol, &day); err != nil {
			return nil, err
		}
		out[symbol] = contracts.NormalizeDate(day)
	}
	return out, rows.Err()
}

// Symbols lists every symbol with stored bars
func (r *PriceRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT DISTINCT symbol FROM daily_ohlc ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// SaveScan replaces the result stored for result.AsOf
func (r *PriceRepository) SaveScan(ctx context.Context, result *contracts.ScanResult, run contracts.ScanRun) error {
	payload, err := encodeScan(result)
	if err != nil {
		return err
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO scan_results (as_of, run_id, payload, total_symbols, ranked_symbols, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (as_of) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			payload = EXCLUDED.payload,
			total_symbols = EXCLUDED.total_symbols,
			ranked_symbols = EXCLUDED.ranked_symbols,
			duration_ms = EXCLUDED.duration_ms,
			created_at = EXCLUDED.created_at
	`, result.AsOf, run.RunID, payload, run.TotalSymbols, run.RankedSymbols, run.Duration.Milliseconds(), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", result.AsOf.Format(contracts.DateLayout), err)
	}
	return nil
}

const pgScanColumns = `as_of, run_id, payload, total_symbols, ranked_symbols, duration_ms, created_at`

// LatestScan returns the newest stored scan or contracts.ErrNotFound
func (r *PriceRepository) LatestScan(ctx context.Context) (*contracts.ScanResult, *contracts.ScanRun, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+pgScanColumns+` FROM scan_results ORDER BY as_of DESC LIMIT 1`)
	return scanPgRow(row)
}

// ScanByDate returns the scan stored for asOf or contracts.ErrNotFound
func (r *PriceRepository) ScanByDate(ctx context.Context, asOf time.Time) (*contracts.ScanResult, *contracts.ScanRun, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+pgScanColumns+` FROM scan_results WHERE as_of = $1`, contracts.NormalizeDate(asOf))
	return scanPgRow(row)
}

func scanPgRow(row pgx.Row) (*contracts.ScanResult, *contracts.ScanRun, error) {
	var (
		payload    []byte
		durationMs int64
		run        contracts.ScanRun
	)
	err := row.Scan(&run.AsOf, &run.RunID, &payload, &run.TotalSymbols, &run.RankedSymbols, &durationMs, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read scan: %w", err)
	}

	result, err := decodeScan(payload)
	if err != nil {
		return nil, nil, err
	}
	run.AsOf = contracts.NormalizeDate(run.AsOf)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return result, &run, nil
}

// ScanDates lists stored as-of dates, newest first
func (r *PriceRepository) ScanDates(ctx context.Context) ([]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT as_of FROM scan_results ORDER BY as_of DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scan dates: %w", err)
	}
	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, err
	}
	for i := range dates {
		dates[i] = contracts.NormalizeDate(dates[i])
	}
	return dates, nil
}

// Close closes the pool
func (r *PriceRepository) Close() error {
	r.db.Close()
	return nil
}
