package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wonny/momentumchaser/internal/api/cache"
	"github.com/wonny/momentumchaser/internal/api/handlers"
	"github.com/wonny/momentumchaser/internal/calendar"
	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/external/kite"
	"github.com/wonny/momentumchaser/internal/publish"
	"github.com/wonny/momentumchaser/internal/s0_data"
	"github.com/wonny/momentumchaser/internal/s0_data/collector"
	"github.com/wonny/momentumchaser/internal/s0_data/quality"
	"github.com/wonny/momentumchaser/internal/s1_universe"
	"github.com/wonny/momentumchaser/internal/scheduler/jobs"
	"github.com/wonny/momentumchaser/internal/selection"
	"github.com/wonny/momentumchaser/internal/strategyconfig"
	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/httputil"
	"github.com/wonny/momentumchaser/pkg/logger"
	"github.com/wonny/momentumchaser/pkg/ratelimit"
	"github.com/wonny/momentumchaser/pkg/redis"
)

// keyPrefix namespaces every redis key this process writes
const keyPrefix = "chaser"

// app holds the dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    contracts.Store
	redis    *redis.Client
	calendar *calendar.Calendar
	universe *s1_universe.FileResolver

	gateOnce sync.Once
	gate     ratelimit.Gate
	gateErr  error
}

// loadConfig reads the environment and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp loads config and opens the store and redis
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	store, err := s0_data.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		redis:    rc,
		calendar: calendar.New(cfg.Market.Holidays),
		universe: s1_universe.NewFileResolver(cfg.Universe.Path),
	}, nil
}

// Close releases the store and redis
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// rateGate returns the process-wide gate. With RATE_LIMIT_BACKEND=redis the
// ceiling is shared across processes and the local gate is the fallback.
func (a *app) rateGate() (ratelimit.Gate, error) {
	a.gateOnce.Do(func() {
		local, err := ratelimit.NewWindowGate(a.cfg.RateLimit.Requests, a.cfg.RateLimit.Window)
		if err != nil {
			a.gateErr = err
			return
		}
		local.OnGrant(func(t time.Time) {
			a.log.WithField("granted_at", t.Format(time.StampMilli)).Debug("Gate grant")
		})

		if strings.EqualFold(a.cfg.RateLimit.Backend, "redis") {
			limiter := redis.NewRateLimiter(a.redis, keyPrefix)
			a.gate = redis.NewGate(limiter, redis.RateLimitConfig{
				Key:    "kite",
				Limit:  a.cfg.RateLimit.Requests,
				Window: a.cfg.RateLimit.Window,
			}, local, a.log)
			return
		}
		a.gate = local
	})
	return a.gate, a.gateErr
}

// kiteClient reads the credential fresh, so each run picks up the day's token
func (a *app) kiteClient() (*kite.Client, error) {
	cred, err := kite.LoadCredential(a.cfg.Kite.TokensFile, a.cfg.Kite.APIKey)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	gate, err := a.rateGate()
	if err != nil {
		return nil, fmt.Errorf("rate gate: %w", err)
	}

	today := time.Now().In(a.cfg.Market.Location())
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if cred.IssuedBefore(midnight) {
		a.log.WithField("login_time", cred.LoginTime).Warn("Access token was issued before today, it has probably expired")
	}

	return kite.NewClient(a.cfg.Kite, cred, httputil.New(a.cfg, a.log), gate, a.log), nil
}

// collector builds an ingestion orchestrator bound to a fresh kite client
func (a *app) collector() (*collector.Collector, error) {
	client, err := a.kiteClient()
	if err != nil {
		return nil, err
	}
	return collector.NewCollector(client, a.store, a.universe, a.calendar, collector.Config{
		Workers:       a.cfg.Ingest.Workers,
		BootstrapDays: a.cfg.Ingest.BootstrapDays,
		RunBudget:     a.cfg.Ingest.RunBudget,
	}, a.log), nil
}

// engine loads scan parameters and builds the scan engine
func (a *app) engine() (*selection.Engine, error) {
	params, err := strategyconfig.Load(a.cfg.Scan.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load scan config: %w", err)
	}
	for _, w := range strategyconfig.Warn(params) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}
	return selection.NewEngine(a.store, a.universe, params, a.log)
}

func (a *app) publisher() *publish.Publisher {
	return publish.New(a.cfg.Scan.OutDir, a.cfg.Scan.SiteDir, a.log)
}

func (a *app) checker() *quality.FreshnessChecker {
	return quality.NewFreshnessChecker(a.store, a.calendar, a.cfg.Market.Location())
}

// cache returns the redis cache, or an in-process one cleaned until ctx is done
func (a *app) cache(ctx context.Context) handlers.Cache {
	if a.redis.Enabled() {
		return redis.NewCache(a.redis, keyPrefix)
	}
	mem := cache.NewMemoryCache(a.log)
	go mem.Run(ctx, time.Minute)
	return mem
}

func (a *app) refresher() *s1_universe.Refresher {
	return s1_universe.NewRefresher(httputil.New(a.cfg, a.log), a.cfg.Universe.Path, a.log,
		a.cfg.Universe.SourceURL, a.cfg.Universe.FallbackURL)
}

// pipeline wires ingest → scan → publish. withPublish=false skips artifacts.
func (a *app) pipeline(withPublish bool) (*jobs.Pipeline, error) {
	eng, err := a.engine()
	if err != nil {
		return nil, err
	}
	var pub jobs.Publisher
	if withPublish {
		pub = a.publisher()
	}
	p := jobs.NewPipeline(runIngester{app: a}, eng, a.store, pub, a.log)
	if c := a.responseCache(); c != nil {
		p.WithCache(c)
	}
	return p, nil
}

// responseCache is the shared cache API processes read from, nil when redis is off
func (a *app) responseCache() jobs.ResponseCache {
	if !a.redis.Enabled() {
		return nil
	}
	return redis.NewCache(a.redis, keyPrefix)
}

// runIngester builds a new collector per run: the scheduler outlives a day's token
type runIngester struct {
	app *app
}

func (r runIngester) Run(ctx context.Context, target time.Time) (*collector.RunReport, error) {
	col, err := r.app.collector()
	if err != nil {
		return nil, err
	}
	return col.Run(ctx, target)
}

// resolveDate parses YYYY-MM-DD, defaulting to today in the market timezone
func resolveDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return contracts.ParseDate(raw)
}
