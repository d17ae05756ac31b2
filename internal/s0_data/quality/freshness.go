package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/momentumchaser/internal/calendar"
	"github.com/wonny/momentumchaser/internal/contracts"
)

// FreshnessStore is the part of the store the health signal reads
type FreshnessStore interface {
	LatestIngestedDate(ctx context.Context) (time.Time, bool, error)
	LatestDates(ctx context.Context) (map[string]time.Time, error)
	LatestScan(ctx context.Context) (*contracts.ScanResult, *contracts.ScanRun, error)
}

// FreshnessChecker derives the no-data / stale / fresh signal
// ⭐ SSOT: S0 데이터 신선도 판정
type FreshnessChecker struct {
	store    FreshnessStore
	calendar *calendar.Calendar
	location *time.Location
	now      func() time.Time
}

// NewFreshnessChecker creates a checker that evaluates "today" in loc
func NewFreshnessChecker(store FreshnessStore, cal *calendar.Calendar, loc *time.Location) *FreshnessChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &FreshnessChecker{store: store, calendar: cal, location: loc, now: time.Now}
}

// WithClock replaces the wall clock
func (c *FreshnessChecker) WithClock(now func() time.Time) *FreshnessChecker {
	c.now = now
	return c
}

// Check compares the store against the last trading day.
// symbols, when given, are checked one by one and the laggards listed.
func (c *FreshnessChecker) Check(ctx context.Context, symbols []string) (*contracts.DataQualitySnapshot, error) {
	// 거래소 시간대 기준 오늘
	local := c.now().In(c.location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	snap := &contracts.DataQualitySnapshot{
		TradingDate:  c.calendar.LastTradingDay(today),
		Health:       contracts.HealthNoData,
		TotalSymbols: len(symbols),
	}

	latest, ok, err := c.store.LatestIngestedDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest ingested: %w", err)
	}
	if ok {
		snap.LatestIngested = &latest
		snap.Health = HealthOf(latest, snap.TradingDate)
	}

	result, _, err := c.store.LatestScan(ctx)
	switch {
	case err == nil:
		asOf := result.AsOf
		snap.LatestScan = &asOf
	case !errors.Is(err, contracts.ErrNotFound):
		return nil, fmt.Errorf("latest scan: %w", err)
	}

	if len(symbols) == 0 {
		return snap, nil
	}

	// 종목별 조회 대신 한 번에
	latestBySymbol, err := c.store.LatestDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest dates: %w", err)
	}
	for _, sym := range symbols {
		d, ok := latestBySymbol[sym]
		if ok && !d.Before(snap.TradingDate) {
			snap.CurrentSymbols++
			continue
		}
		snap.StaleSymbols = append(snap.StaleSymbols, sym)
	}

	return snap, nil
}

// HealthOf classifies the newest stored date against the trading day
func HealthOf(latest, tradingDay time.Time) contracts.Health {
	switch {
	case latest.IsZero():
		return contracts.HealthNoData
	case latest.Before(tradingDay):
		return contracts.HealthStale
	default:
		return contracts.HealthFresh
	}
}
