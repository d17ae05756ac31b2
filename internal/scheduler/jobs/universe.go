package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/momentumchaser/internal/s1_universe"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// UniverseJob refreshes the membership file weekly
// ⭐ SSOT: Universe 갱신 스케줄은 이 Job에서만
type UniverseJob struct {
	refresher *s1_universe.Refresher
	logger    *logger.Logger
}

// NewUniverseJob creates a new universe job
func NewUniverseJob(r *s1_universe.Refresher, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		refresher: r,
		logger:    log,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule (Sunday evening, before the week's first run)
func (j *UniverseJob) Schedule() string {
	return "0 0 20 * * SUN"
}

// Run executes the universe refresh
func (j *UniverseJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled universe refresh")

	res, err := j.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh universe: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"source":  res.Source,
		"symbols": len(res.Symbols),
		"added":   len(res.Added),
		"removed": len(res.Removed),
	}).Info("Universe refreshed")

	return nil
}
