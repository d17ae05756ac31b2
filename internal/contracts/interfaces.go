package contracts

import (
	"context"
	"time"
)

// Fetcher pulls a symbol's daily bars from the upstream API (S0)
// ⭐ SSOT: S0 업스트림 조회 인터페이스
// Implementations must pass every network call through a shared rate gate
// and must not write to the store.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, window DateRange) (Series, error)
}

// UniverseResolver supplies the symbols for a run (S1)
// ⭐ SSOT: S1 유니버스 인터페이스
type UniverseResolver interface {
	Resolve(ctx context.Context, date time.Time) (*Universe, error)
}

// Scanner produces a ranked result for an as-of date (S4)
// ⭐ SSOT: S4 스캔 인터페이스
type Scanner interface {
	Scan(ctx context.Context, asOf time.Time) (*ScanResult, error)
}
