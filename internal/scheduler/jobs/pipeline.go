package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/publish"
	"github.com/wonny/momentumchaser/internal/s0_data/collector"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Ingester brings the store up to date
type Ingester interface {
	Run(ctx context.Context, target time.Time) (*collector.RunReport, error)
}

// Scanner ranks and stores a scan
type Scanner interface {
	ScanAndSave(ctx context.Context, asOf time.Time, store contracts.ScanStore) (*contracts.ScanResult, *contracts.ScanRun, error)
}

// Publisher writes scan artifacts
type Publisher interface {
	Publish(result *contracts.ScanResult, run *contracts.ScanRun) (*publish.Artifacts, error)
}

// ResponseCache drops cached API responses once the store changes
type ResponseCache interface {
	InvalidateScan(ctx context.Context, date string) error
	InvalidateSeries(ctx context.Context) error
}

// Pipeline is the daily batch: ingest → scan → publish
// ⭐ SSOT: 일일 배치 순서는 여기서만
type Pipeline struct {
	ingester  Ingester
	scanner   Scanner
	scans     contracts.ScanStore
	publisher Publisher // nil = skip publishing
	cache     ResponseCache // nil = nothing to invalidate
	logger    *logger.Logger
}

// PipelineResult is what one pipeline pass produced
type PipelineResult struct {
	Ingest    *collector.RunReport
	Scan      *contracts.ScanResult
	ScanRun   *contracts.ScanRun
	Artifacts *publish.Artifacts
}

// NewPipeline creates a pipeline. publisher may be nil.
func NewPipeline(ing Ingester, sc Scanner, scans contracts.ScanStore, pub Publisher, log *logger.Logger) *Pipeline {
	return &Pipeline{
		ingester:  ing,
		scanner:   sc,
		scans:     scans,
		publisher: pub,
		logger:    log.WithField("module", "pipeline"),
	}
}

// WithCache sets the cache invalidated after new bars and each stored scan
func (p *Pipeline) WithCache(c ResponseCache) *Pipeline {
	p.cache = c
	return p
}

// Execute runs one pass for target.
// A failed ingestion stops the pass: scanning a store that did not advance
// would republish yesterday's ranking under today's date.
func (p *Pipeline) Execute(ctx context.Context, target time.Time) (*PipelineResult, error) {
	res := &PipelineResult{}

	report, err := p.ingester.Run(ctx, target)
	res.Ingest = report
	// aborted runs may still have committed bars
	if p.cache != nil && report != nil && report.Counts()[collector.OutcomeCommitted] > 0 {
		if err := p.cache.InvalidateSeries(ctx); err != nil {
			p.logger.WithError(err).Warn("Failed to invalidate cached series")
		}
	}
	if err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	if report.Partial {
		counts := report.Counts()
		p.logger.WithRun(report.RunID).WithFields(map[string]interface{}{
			"failed":      counts[collector.OutcomeFailed],
			"no_new_data": counts[collector.OutcomeNoNewData],
		}).Warn("Ingestion partial, scanning anyway")
	}

	result, run, err := p.scanner.ScanAndSave(ctx, report.Target, p.scans)
	if err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	res.Scan, res.ScanRun = result, run

	if p.cache != nil {
		// stale cache only delays readers by a TTL
		if err := p.cache.InvalidateScan(ctx, result.AsOf.Format(contracts.DateLayout)); err != nil {
			p.logger.WithError(err).Warn("Failed to invalidate cached scan")
		}
	}

	if p.publisher != nil {
		artifacts, err := p.publisher.Publish(result, run)
		if err != nil {
			return res, fmt.Errorf("publish: %w", err)
		}
		res.Artifacts = artifacts
	}

	p.logger.WithFields(map[string]interface{}{
		"as_of":  result.AsOf.Format(contracts.DateLayout),
		"ranked": len(result.Ranked),
		"stale":  len(result.Stale),
	}).Info("Pipeline pass finished")
	return res, nil
}

// PipelineJob runs the pipeline on a schedule
type PipelineJob struct {
	pipeline *Pipeline
	schedule string
	location *time.Location
	now      func() time.Time
}

// NewPipelineJob creates the daily pipeline job.
// loc decides which calendar date "today" is.
func NewPipelineJob(p *Pipeline, schedule string, loc *time.Location) *PipelineJob {
	if loc == nil {
		loc = time.UTC
	}
	return &PipelineJob{pipeline: p, schedule: schedule, location: loc, now: time.Now}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "daily_pipeline"
}

// Schedule returns the cron schedule
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes one pass for today in the market timezone
func (j *PipelineJob) Run(ctx context.Context) error {
	today := j.now().In(j.location)
	target := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	_, err := j.pipeline.Execute(ctx, target)
	return err
}
