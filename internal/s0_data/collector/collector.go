package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wonny/momentumchaser/internal/calendar"
	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/quality"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Collector orchestrates incremental ingestion for a universe
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	fetcher   contracts.Fetcher
	store     contracts.BarStore
	universe  contracts.UniverseResolver
	calendar  *calendar.Calendar
	validator *quality.Validator
	logger    *logger.Logger
	cfg       Config
}

// Config holds collector configuration
type Config struct {
	Workers       int           // Number of concurrent workers
	BootstrapDays int           // Calendar days fetched for a symbol with no data
	RunBudget     time.Duration // Wall-clock limit for the whole run, 0 = none
}

// NewCollector creates a new Collector instance
func NewCollector(
	fetcher contracts.Fetcher,
	store contracts.BarStore,
	universe contracts.UniverseResolver,
	cal *calendar.Calendar,
	cfg Config,
	log *logger.Logger,
) *Collector {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BootstrapDays <= 0 {
		cfg.BootstrapDays = 600
	}
	if cal == nil {
		cal = calendar.Weekdays()
	}

	log = log.WithField("module", "collector")
	return &Collector{
		fetcher:   fetcher,
		store:     store,
		universe:  universe,
		calendar:  cal,
		validator: quality.NewValidator(log),
		logger:    log,
		cfg:       cfg,
	}
}

// Run brings every universe symbol up to the last trading day on or before target.
//
// The report is always returned. The error is non-nil when the run ends
// Failed: AuthExpired, cancellation, budget, universe failure, or no
// symbol holding current data afterwards. A run where every symbol came back
// NoNewData is a market holiday upstream and ends Succeeded with Partial set.
func (c *Collector) Run(ctx context.Context, target time.Time) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Target:    c.calendar.LastTradingDay(target),
		StartedAt: time.Now(),
	}
	report.transition(StateStart)
	log := c.logger.WithRun(report.RunID)

	// budget → abort
	if c.cfg.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.cfg.RunBudget, ErrBudgetExceeded)
		defer cancel()
	}
	// AuthExpired stops dispatch for everyone
	dispatchCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	report.transition(StateResolvingUniverse)
	universe, err := c.universe.Resolve(dispatchCtx, report.Target)
	if err != nil {
		return c.finishAborted(report, log, fmt.Errorf("resolve universe: %w", err))
	}

	log.WithFields(map[string]interface{}{
		"target":  report.Target.Format(contracts.DateLayout),
		"symbols": universe.Count(),
		"workers": c.cfg.Workers,
	}).Info("Starting ingestion run")

	report.transition(StateFetching)
	report.Outcomes = c.dispatch(dispatchCtx, abort, universe.Symbols, report.Target, log)

	if cause := context.Cause(dispatchCtx); cause != nil {
		return c.finishAborted(report, log, cause)
	}

	report.transition(StateCommitting)
	return c.finish(report, log)
}

type indexedOutcome struct {
	idx     int
	outcome SymbolOutcome
}

// dispatch runs the bounded worker pool. Jobs are handed over one at a time on
// an unbuffered channel, so once dispatchCtx is done nothing new starts.
func (c *Collector) dispatch(
	ctx context.Context,
	abort context.CancelCauseFunc,
	symbols []string,
	target time.Time,
	log *logger.Logger,
) []SymbolOutcome {
	outcomes := make([]SymbolOutcome, len(symbols))
	for i, sym := range symbols {
		outcomes[i] = SymbolOutcome{Symbol: sym, Status: OutcomeNotAttempted}
	}

	jobCh := make(chan int)
	resultCh := make(chan indexedOutcome, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < c.cfg.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobCh {
				// 이미 중단된 경우 시작하지 않음
				if ctx.Err() != nil {
					continue
				}
				out := c.process(ctx, symbols[idx], target, log.WithField("worker", workerID))
				if contracts.IsAuthExpired(out.Err) {
					abort(contracts.ErrAuthExpired)
				}
				resultCh <- indexedOutcome{idx: idx, outcome: out}
			}
		}(w)
	}

	go func() {
		defer close(jobCh)
		for idx := range symbols {
			select {
			case <-ctx.Done():
				return
			case jobCh <- idx:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	progress := rate.Sometimes{First: 1, Interval: 10 * time.Second}
	done := 0
	for res := range resultCh {
		outcomes[res.idx] = res.outcome
		done++
		progress.Do(func() {
			log.WithFields(map[string]interface{}{
				"done":  done,
				"total": len(symbols),
			}).Info("Ingestion progress")
		})
	}

	return outcomes
}

// process handles one symbol: plan, fetch, validate, commit
func (c *Collector) process(ctx context.Context, symbol string, target time.Time, log *logger.Logger) SymbolOutcome {
	out := SymbolOutcome{Symbol: symbol}
	log = log.WithSymbol(symbol)

	latest, ok, err := c.store.LatestDate(ctx, symbol)
	if err != nil {
		out.Status, out.Err = OutcomeFailed, fmt.Errorf("latest date: %w", err)
		log.WithError(err).Error("Failed to read latest date")
		return out
	}
	if !ok {
		latest = time.Time{}
	}

	out.Range = c.calendar.MissingRange(latest, target, c.cfg.BootstrapDays)
	if out.Range.Empty() {
		out.Status = OutcomeUpToDate
		return out
	}

	series, err := c.fetcher.Fetch(ctx, symbol, out.Range)
	if err != nil {
		out.Status, out.Err = OutcomeFailed, err
		log.WithError(err).WithField("range", out.Range.String()).Warn("Fetch failed")
		return out
	}
	out.Fetched = series.Len()

	checked := c.validator.Filter(symbol, series.Bars)
	out.Rejected = len(checked.Rejected)
	if len(checked.Valid) == 0 {
		out.Status = OutcomeNoNewData
		return out
	}

	// 커밋은 취소와 무관하게 끝까지
	n, err := c.store.Upsert(context.WithoutCancel(ctx), symbol, checked.Valid)
	if err != nil {
		out.Status, out.Err = OutcomeFailed, err
		log.WithError(err).Error("Commit failed")
		return out
	}
	out.Status, out.Committed = OutcomeCommitted, n

	log.WithFields(map[string]interface{}{
		"range":     out.Range.String(),
		"committed": n,
		"rejected":  out.Rejected,
	}).Debug("Committed bars")
	return out
}

func (c *Collector) finishAborted(report *RunReport, log *logger.Logger, cause error) (*RunReport, error) {
	report.transition(StateAborted)
	report.Status = RunFailed
	report.AbortCause = cause.Error()
	report.FinishedAt = time.Now()

	counts := report.Counts()
	log.WithError(cause).WithFields(map[string]interface{}{
		"committed":     counts[OutcomeCommitted],
		"not_attempted": counts[OutcomeNotAttempted],
	}).Error("Ingestion run aborted")

	return report, fmt.Errorf("run %s aborted: %w", report.RunID, cause)
}

func (c *Collector) finish(report *RunReport, log *logger.Logger) (*RunReport, error) {
	report.transition(StateDone)
	report.FinishedAt = time.Now()

	counts := report.Counts()
	current := counts[OutcomeCommitted] + counts[OutcomeUpToDate]

	var err error
	switch {
	case current == 0 && counts[OutcomeNoNewData] > 0 && counts[OutcomeNoNewData] == len(report.Outcomes):
		// 전 종목 빈 응답 = 거래소 휴장. MARKET_HOLIDAYS 누락일 가능성
		report.Status = RunSucceeded
		report.Partial = true
		log.WithField("target", report.Target.Format(contracts.DateLayout)).
			Warn("Upstream returned no bars for any symbol; treating target as a market holiday")
	case current == 0:
		report.Status = RunFailed
		err = fmt.Errorf("run %s: no symbol has data for %s", report.RunID, report.Target.Format(contracts.DateLayout))
		if first := firstError(report.Outcomes); first != nil {
			err = fmt.Errorf("%w: %w", err, first)
		}
	default:
		report.Status = RunSucceeded
		report.Partial = counts[OutcomeFailed] > 0 || counts[OutcomeNoNewData] > 0
	}

	log.WithFields(map[string]interface{}{
		"status":      report.Status,
		"partial":     report.Partial,
		"committed":   counts[OutcomeCommitted],
		"up_to_date":  counts[OutcomeUpToDate],
		"no_new_data": counts[OutcomeNoNewData],
		"failed":      counts[OutcomeFailed],
		"duration":    report.Duration(),
	}).Info("Ingestion run finished")

	return report, err
}

func firstError(outcomes []SymbolOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			return o.Err
		}
	}
	return nil
}
