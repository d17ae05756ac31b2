package selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s2_signals"
	"github.com/wonny/momentumchaser/internal/strategyconfig"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// SeriesReader is the read side of the bar store
type SeriesReader interface {
	Range(ctx context.Context, symbol string, window contracts.DateRange) (contracts.Series, error)
}

// Engine ranks the universe as of a date
// ⭐ SSOT: S4 스캔은 읽기 전용. 같은 입력 → 같은 결과
type Engine struct {
	store    SeriesReader
	universe contracts.UniverseResolver
	cfg      *strategyconfig.Config
	hash     string

	builder  *s2_signals.Builder
	scorer   Scorer
	screener *Screener
	ranker   *Ranker
	logger   *logger.Logger
}

// NewEngine wires an engine for one scan config
func NewEngine(store SeriesReader, universe contracts.UniverseResolver, cfg *strategyconfig.Config, log *logger.Logger) (*Engine, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("scan config: %w", errs[0])
	}
	scorer, err := NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash scan config: %w", err)
	}

	log = log.WithField("module", "scan")
	return &Engine{
		store:    store,
		universe: universe,
		cfg:      cfg,
		hash:     hash,
		builder:  s2_signals.NewBuilder(ParamsFrom(cfg.Indicators)),
		scorer:   scorer,
		screener: NewScreener(cfg.Filters, log),
		ranker:   NewRanker(log),
		logger:   log,
	}, nil
}

// ParamsFrom maps YAML indicator windows onto the metric builder
func ParamsFrom(ind strategyconfig.Indicators) s2_signals.Params {
	return s2_signals.Params{
		BoxLen:        ind.BoxLen,
		ATRPeriod:     ind.ATRPeriod,
		ATRBaseLen:    ind.ATRBaseLen,
		VolFast:       ind.VolFast,
		VolSlow:       ind.VolSlow,
		TradedValueN:  ind.TradedValueDays,
		HighLookback:  ind.HighLookback,
		NearHighPct:   ind.NearHighPct,
		VolatilityLen: ind.VolatilityLen,
	}
}

// ConfigHash identifies the scan config behind every result
func (e *Engine) ConfigHash() string { return e.hash }

// evaluation is one symbol's scan outcome, exactly one field set
type evaluation struct {
	ranked  *contracts.RankedSymbol
	skipped *contracts.SkippedSymbol
}

// Scan ranks every universe member using bars dated on or before asOf
func (e *Engine) Scan(ctx context.Context, asOf time.Time) (*contracts.ScanResult, error) {
	asOf = contracts.NormalizeDate(asOf)

	universe, err := e.universe.Resolve(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve universe: %w", err)
	}

	window := contracts.NewDateRange(asOf.AddDate(0, 0, -e.cfg.Filters.HistoryDays), asOf)
	evals := make([]evaluation, len(universe.Symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Scan.Workers)
	for i, symbol := range universe.Symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			series, err := e.store.Range(gctx, symbol, window)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.WithSymbol(symbol).WithError(err).Warn("Failed to read series")
				evals[i] = evaluation{skipped: skip(symbol, contracts.SkipStoreError, err.Error())}
				return nil
			}
			evals[i] = e.evaluate(symbol, series)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &contracts.ScanResult{
		AsOf:         asOf,
		ConfigHash:   e.hash,
		Scorer:       e.scorer.Name(),
		UniverseSize: universe.Count(),
		Ranked:       make([]contracts.RankedSymbol, 0, len(evals)),
		Skipped:      []contracts.SkippedSymbol{},
		Stale:        []string{},
	}
	for _, ev := range evals {
		switch {
		case ev.ranked != nil:
			result.Ranked = append(result.Ranked, *ev.ranked)
			if ev.ranked.Metrics.LastDate.Before(asOf) {
				result.Stale = append(result.Stale, ev.ranked.Symbol)
			}
		case ev.skipped != nil:
			result.Skipped = append(result.Skipped, *ev.skipped)
		}
	}
	e.ranker.Rank(result.Ranked)
	sort.Strings(result.Stale)

	e.logger.WithFields(map[string]interface{}{
		"as_of":   asOf.Format(contracts.DateLayout),
		"ranked":  len(result.Ranked),
		"skipped": len(result.Skipped),
		"stale":   len(result.Stale),
	}).Info("Scan completed")

	return result, nil
}

func (e *Engine) evaluate(symbol string, series contracts.Series) evaluation {
	series.Symbol = symbol
	if s := e.screener.CheckSeries(series); s != nil {
		return evaluation{skipped: s}
	}

	m := e.builder.Build(series)
	if s := e.screener.CheckMetrics(symbol, m); s != nil {
		return evaluation{skipped: s}
	}

	score := e.scorer.Score(series, &m)
	return evaluation{ranked: &contracts.RankedSymbol{
		Symbol:  symbol,
		Score:   score,
		Metrics: m,
		Tags:    s2_signals.Tags(m),
	}}
}

// ScanAndSave runs Scan and stores the result with its run metadata
func (e *Engine) ScanAndSave(ctx context.Context, asOf time.Time, store contracts.ScanStore) (*contracts.ScanResult, *contracts.ScanRun, error) {
	start := time.Now()
	result, err := e.Scan(ctx, asOf)
	if err != nil {
		return nil, nil, err
	}

	run := &contracts.ScanRun{
		RunID:         uuid.NewString(),
		AsOf:          result.AsOf,
		TotalSymbols:  result.UniverseSize,
		RankedSymbols: len(result.Ranked),
		Duration:      time.Since(start),
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.SaveScan(ctx, result, *run); err != nil {
		return nil, nil, fmt.Errorf("save scan %s: %w", result.AsOf.Format(contracts.DateLayout), err)
	}

	e.logger.WithRun(run.RunID).WithField("duration", run.Duration).Info("Scan saved")
	return result, run, nil
}
