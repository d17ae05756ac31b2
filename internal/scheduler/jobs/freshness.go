package jobs

import (
	"context"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/quality"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// FreshnessJob logs the data health signal so a missed batch shows up in logs
type FreshnessJob struct {
	checker  *quality.FreshnessChecker
	universe contracts.UniverseResolver
	logger   *logger.Logger
}

// NewFreshnessJob creates a new freshness job
func NewFreshnessJob(checker *quality.FreshnessChecker, universe contracts.UniverseResolver, log *logger.Logger) *FreshnessJob {
	return &FreshnessJob{
		checker:  checker,
		universe: universe,
		logger:   log,
	}
}

// Name returns the job name
func (j *FreshnessJob) Name() string {
	return "freshness_check"
}

// Schedule returns the cron schedule (hourly)
func (j *FreshnessJob) Schedule() string {
	return "0 0 * * * *"
}

// Run checks freshness. A stale store is reported, not returned as an error.
func (j *FreshnessJob) Run(ctx context.Context) error {
	var symbols []string
	if j.universe != nil {
		u, err := j.universe.Resolve(ctx, contracts.NormalizeDate(time.Now()))
		if err != nil {
			j.logger.WithError(err).Warn("Universe unavailable, checking store-wide freshness only")
		} else {
			symbols = u.Symbols
		}
	}

	snap, err := j.checker.Check(ctx, symbols)
	if err != nil {
		return err
	}

	log := j.logger.WithFields(map[string]interface{}{
		"health":       snap.Health,
		"trading_date": snap.TradingDate.Format(contracts.DateLayout),
		"stale":        len(snap.StaleSymbols),
	})
	if snap.Health == contracts.HealthFresh {
		log.Debug("Data is fresh")
	} else {
		log.Warn("Data is not fresh")
	}
	return nil
}
