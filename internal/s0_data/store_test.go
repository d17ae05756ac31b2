package s0_data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/database"
	"github.com/wonny/momentumchaser/pkg/logger"
)

func day(n int) time.Time {
	return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC)
}

func bar(symbol string, d time.Time, close float64) contracts.Bar {
	return contracts.Bar{Symbol: symbol, Date: d, Open: close - 1, High: close + 2, Low: close - 2, Close: close, Volume: 1000}
}

func newSQLite(t *testing.T) contracts.Store {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)

	store := NewSQLiteRepository(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func newPostgres(t *testing.T) contracts.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	cfg := &config.Config{Store: config.StoreConfig{Driver: "postgres"}, Database: config.DatabaseConfig{URL: url, MaxConns: 8, MinConns: 1}}
	store, err := Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)

	pg := store.(*PriceRepository)
	_, err = pg.db.Pool.Exec(ctx, `TRUNCATE daily_ohlc, scan_results`)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store
}

// storeContract runs the same behaviour checks against every backend
func storeContract(t *testing.T, open func(t *testing.T) contracts.Store) {
	ctx := context.Background()

	t.Run("upsert then range", func(t *testing.T) {
		store := open(t)
		bars := []contracts.Bar{bar("A", day(8), 103), bar("A", day(6), 101), bar("A", day(7), 102)}

		n, err := store.Upsert(ctx, "A", bars)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		series, err := store.Range(ctx, "A", contracts.NewDateRange(day(1), day(31)))
		require.NoError(t, err)
		require.Len(t, series.Bars, 3)
		for i, want := range []time.Time{day(6), day(7), day(8)} {
			assert.Equal(t, want, series.Bars[i].Date)
			assert.Equal(t, "A", series.Bars[i].Symbol)
		}
		assert.Equal(t, 101.0, series.Bars[0].Close)
		assert.Equal(t, int64(1000), series.Bars[0].Volume)
	})

	t.Run("re-upsert overwrites", func(t *testing.T) {
		store := open(t)
		_, err := store.Upsert(ctx, "A", []contracts.Bar{bar("A", day(6), 101), bar("A", day(7), 102)})
		require.NoError(t, err)
		_, err = store.Upsert(ctx, "A", []contracts.Bar{bar("A", day(7), 150)})
		require.NoError(t, err)

		series, err := store.Range(ctx, "A", contracts.NewDateRange(day(1), day(31)))
		require.NoError(t, err)
		require.Len(t, series.Bars, 2, "no duplicate rows")
		assert.Equal(t, 150.0, series.Bars[1].Close)
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		store := open(t)
		_, err := store.Upsert(ctx, "A", []contracts.Bar{bar("A", day(6), 1), bar("A", day(7), 2), bar("A", day(8), 3), bar("A", day(9), 4)})
		require.NoError(t, err)

		series, err := store.Range(ctx, "A", contracts.NewDateRange(day(7), day(8)))
		require.NoError(t, err)
		require.Len(t, series.Bars, 2)
		assert.Equal(t, day(7), series.Bars[0].Date)
		assert.Equal(t, day(8), series.Bars[1].Date)
	})

	t.Run("range of unknown symbol is empty", func(t *testing.T) {
		store := open(t)
		series, err := store.Range(ctx, "NOPE", contracts.NewDateRange(day(1), day(31)))
		require.NoError(t, err)
		assert.True(t, series.Empty())
		assert.Equal(t, "NOPE", series.Symbol)
	})

	t.Run("symbols are isolated", func(t *testing.T) {
		store := open(t)
		_, err := store.Upsert(ctx, "A", []contracts.Bar{bar("A", day(6), 10)})
		require.NoError(t, err)
		_, err = store.Upsert(ctx, "B", []contracts.Bar{bar("B", day(6), 20), bar("B", day(7), 21)})
		require.NoError(t, err)

		a, err := store.Range(ctx, "A", contracts.NewDateRange(day(1), day(31)))
		require.NoError(t, err)
		assert.Len(t, a.Bars, 1)

		syms, err := store.Symbols(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, syms)
	})

	t.Run("mismatched symbol is rejected whole", func(t *testing.T) {
		store := open(t)
		_, err := store.Upsert(ctx, "A", []contracts.Bar{bar("A", day(6), 10), bar("B", day(6), 20)})
		require.Error(t, err)

		latest, ok, err := store.LatestDate(ctx, "A")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, latest.IsZero())
	})

	t.Run("latest dates", func(t *testing.T) {
		store := open(t)

		_, ok, err := store.LatestIngestedDate(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.Upsert(ctx, "A", []contracts.Bar{bar("A", day(6), 10), bar("A", day(10), 11)})
		require.NoError(t, err)
		_, err = store.Upsert(ctx, "B", []contracts.Bar{bar("B", day(13), 20)})
		require.NoError(t, err)

		latest, ok, err := store.LatestDate(ctx, "A")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, day(10), latest)

		overall, ok, err := store.LatestIngestedDate(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, day(13), overall)

		all, err := store.LatestDates(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]time.Time{"A": day(10), "B": day(13)}, all)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		store := open(t)

		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sym := fmt.Sprintf("S%d", i)
				bars := make([]contracts.Bar, 0, 10)
				for d := 1; d <= 10; d++ {
					bars = append(bars, bar(sym, day(d), float64(100+d)))
				}
				_, err := store.Upsert(ctx, sym, bars)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		for i := 0; i < 6; i++ {
			series, err := store.Range(ctx, fmt.Sprintf("S%d", i), contracts.NewDateRange(day(1), day(31)))
			require.NoError(t, err)
			assert.Len(t, series.Bars, 10)
		}
	})

	t.Run("scan results", func(t *testing.T) {
		store := open(t)

		_, _, err := store.LatestScan(ctx)
		assert.ErrorIs(t, err, contracts.ErrNotFound)

		first := &contracts.ScanResult{
			AsOf:         day(9),
			ConfigHash:   "abc",
			Scorer:       "swing",
			UniverseSize: 2,
			Ranked:       []contracts.RankedSymbol{{Rank: 1, Symbol: "A", Score: 0.8, Tags: []string{"NR7"}}},
			Skipped:      []contracts.SkippedSymbol{{Symbol: "B", Reason: contracts.SkipInsufficientHistory}},
		}
		run := contracts.ScanRun{RunID: "r1", AsOf: day(9), TotalSymbols: 2, RankedSymbols: 1, Duration: 1500 * time.Millisecond, CreatedAt: time.Now()}
		require.NoError(t, store.SaveScan(ctx, first, run))

		second := *first
		second.AsOf = day(10)
		run.RunID, run.AsOf = "r2", day(10)
		require.NoError(t, store.SaveScan(ctx, &second, run))

		// replacing day 9
		replaced := *first
		replaced.ConfigHash = "def"
		run.RunID, run.AsOf = "r3", day(9)
		require.NoError(t, store.SaveScan(ctx, &replaced, run))

		latest, latestRun, err := store.LatestScan(ctx)
		require.NoError(t, err)
		assert.Equal(t, day(10), latest.AsOf)
		assert.Equal(t, "r2", latestRun.RunID)
		assert.Equal(t, 1500*time.Millisecond, latestRun.Duration)
		assert.Equal(t, first.Ranked, latest.Ranked)

		byDate, byDateRun, err := store.ScanByDate(ctx, day(9))
		require.NoError(t, err)
		assert.Equal(t, "def", byDate.ConfigHash)
		assert.Equal(t, "r3", byDateRun.RunID)

		_, _, err = store.ScanByDate(ctx, day(1))
		assert.ErrorIs(t, err, contracts.ErrNotFound)

		dates, err := store.ScanDates(ctx)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{day(10), day(9)}, dates)
	})
}

func TestSQLiteRepository(t *testing.T) {
	storeContract(t, newSQLite)
}

func TestPriceRepository(t *testing.T) {
	storeContract(t, newPostgres)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "mongo"}}, logger.Nop())
	assert.Error(t, err)
}

func TestOpen_SQLiteDefault(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{SQLitePath: filepath.Join(t.TempDir(), "x.db")}}
	store, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &SQLiteRepository{}, store)
}
