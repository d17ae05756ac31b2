package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// BarStore is the per-symbol daily bar store.
// Writes for one symbol never touch another symbol's rows, and each Upsert
// commits atomically.
type BarStore interface {
	// Upsert inserts or overwrites bars keyed by (symbol, date) and returns rows written
	Upsert(ctx context.Context, symbol string, bars []Bar) (int, error)
	// Range returns bars within window in date order, empty when none exist
	Range(ctx context.Context, symbol string, window DateRange) (Series, error)
	// LatestDate returns the newest stored date for symbol
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
	// LatestIngestedDate returns the newest stored date across all symbols
	LatestIngestedDate(ctx context.Context) (time.Time, bool, error)
	// LatestDates returns the newest stored date per symbol; symbols with no bars are absent
	LatestDates(ctx context.Context) (map[string]time.Time, error)
	// Symbols lists every symbol with at least one bar
	Symbols(ctx context.Context) ([]string, error)
}

// ScanStore keeps one ScanResult per as-of date
type ScanStore interface {
	SaveScan(ctx context.Context, result *ScanResult, run ScanRun) error
	LatestScan(ctx context.Context) (*ScanResult, *ScanRun, error)
	ScanByDate(ctx context.Context, asOf time.Time) (*ScanResult, *ScanRun, error)
	ScanDates(ctx context.Context) ([]time.Time, error)
}

// Store is what a backend provides
type Store interface {
	BarStore
	ScanStore
	Close() error
}
