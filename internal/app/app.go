// Package app holds the long-lived services of a crawl run and wires them
// together: session engine, crawl engine, progress sinks, export, and the
// optional Postgres, Pub/Sub, and metrics integrations.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/config"
	"github.com/JakeFAU/jobscout-crawler/internal/crawler"
	"github.com/JakeFAU/jobscout-crawler/internal/export"
	"github.com/JakeFAU/jobscout-crawler/internal/extract"
	"github.com/JakeFAU/jobscout-crawler/internal/id/uuid"
	"github.com/JakeFAU/jobscout-crawler/internal/listing"
	"github.com/JakeFAU/jobscout-crawler/internal/metrics"
	"github.com/JakeFAU/jobscout-crawler/internal/progress"
	"github.com/JakeFAU/jobscout-crawler/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/jobscout-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/jobscout-crawler/internal/session"
	"github.com/JakeFAU/jobscout-crawler/internal/session/headless"
	"github.com/JakeFAU/jobscout-crawler/internal/session/static"
	gcsstore "github.com/JakeFAU/jobscout-crawler/internal/storage/gcs"
	pgstore "github.com/JakeFAU/jobscout-crawler/internal/storage/postgres"
)

// RecordStore persists exported records.
type RecordStore interface {
	SaveRecords(ctx context.Context, runID string, scrapedAt time.Time, records []crawler.JobRecord) error
	Close()
}

// Publisher sends the run summary notification.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
	Close() error
}

// App holds the services shared by a crawl run.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	hub      *progress.Hub
	metrics  *metrics.Server
	opener   session.Opener
	records  RecordStore
	pub      Publisher
	gcs      *gcstorage.Client
	ids      crawler.IDGenerator
	now      func() time.Time
	pauser   crawler.Pauser
}

// Option overrides a service New would otherwise build from config.
type Option func(*App)

// WithOpener replaces the configured browser engine.
func WithOpener(o session.Opener) Option {
	return func(a *App) { a.opener = o }
}

// WithRecordStore replaces the Postgres record store.
func WithRecordStore(s RecordStore) Option {
	return func(a *App) { a.records = s }
}

// WithPublisher replaces the Pub/Sub publisher.
func WithPublisher(p Publisher) Option {
	return func(a *App) { a.pub = p }
}

// WithPauser replaces the engine's timer-based pauser.
func WithPauser(p crawler.Pauser) Option {
	return func(a *App) { a.pauser = p }
}

// New builds the App. Optional integrations are only initialized when their
// configuration is present and no Option already supplied them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		ids:      uuid.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.initProgress(); err != nil {
		return nil, err
	}
	if a.opener == nil {
		a.opener = a.buildOpener()
	}
	if err := a.initRecordStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if cfg.Metrics.Addr != "" {
		srv, err := metrics.Start(cfg.Metrics.Addr, a.registry, logger)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		a.metrics = srv
	}
	return a, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

func (a *App) initProgress() error {
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return fmt.Errorf("init progress metrics: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{Logger: a.logger}, sinks.NewLogSink(a.logger.Named("progress")), promSink)
	return nil
}

func (a *App) buildOpener() session.Opener {
	b := a.cfg.Browser
	if b.Engine == config.EngineStatic {
		loader := static.NewCollyLoader(static.CollyConfig{
			UserAgent:     b.UserAgent,
			RespectRobots: b.RespectRobots,
			Timeout:       b.NavigationTimeout,
		}, a.logger.Named("colly"))
		return static.Opener(loader, a.logger.Named("static"))
	}
	return headless.Opener(headless.Config{
		Headless:          b.Headless,
		UserAgent:         b.UserAgent,
		ExecPath:          b.ExecPath,
		NavigationTimeout: b.NavigationTimeout,
	}, a.logger.Named("chromedp"))
}

func (a *App) initRecordStore(ctx context.Context) error {
	if a.records != nil || a.cfg.DB.DSN == "" {
		return nil
	}
	store, err := pgstore.NewRecordStore(ctx, pgstore.RecordStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	if a.cfg.DB.CreateTable {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return err
		}
	}
	a.records = store
	a.logger.Info("postgres persistence enabled", zap.String("table", a.cfg.DB.Table))
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if a.pub != nil || a.cfg.PubSub.Topic == "" {
		return nil
	}
	pub, err := pubsubpublisher.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
	if err != nil {
		return fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.pub = pub
	a.logger.Info("run notifications enabled", zap.String("topic", a.cfg.PubSub.Topic))
	return nil
}

// bucketOpener returns an export.BucketOpener that tags uploaded objects with
// the run id. The GCS client is created on first use.
func (a *App) bucketOpener(runID string) export.BucketOpener {
	return func(ctx context.Context, bucket string) (export.BlobStore, error) {
		if a.gcs == nil {
			client, err := gcstorage.NewClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("create gcs client: %w", err)
			}
			a.gcs = client
		}
		return gcsstore.New(a.gcs, gcsstore.Config{
			Bucket:   bucket,
			Metadata: map[string]string{"run_id": runID, "base_url": a.cfg.Crawl.BaseURL},
		})
	}
}

func (a *App) runID() (string, error) {
	if a.cfg.Crawl.RunID != "" {
		return uuid.Canonical(a.cfg.Crawl.RunID)
	}
	return a.ids.NewID()
}

func (a *App) buildEngine() (*crawler.Engine, error) {
	c := a.cfg
	harvester, err := listing.NewHarvester(c.Selectors.Listing, c.Crawl.SiteOrigin, c.Crawl.WaitTimeout, a.logger)
	if err != nil {
		return nil, err
	}
	pager, err := listing.NewPaginationResolver(c.Selectors.Listing.Pagination, c.Crawl.PaginationToken, a.logger)
	if err != nil {
		return nil, err
	}
	opts := []crawler.Option{crawler.WithPauser(a.pauser)}
	if c.Browser.Engine == config.EngineChromedp && c.Browser.RespectRobots {
		opts = append(opts, crawler.WithRobots(crawler.NewRobotsEnforcer(true, c.Browser.UserAgent, a.logger)))
	}
	engine, err := crawler.NewEngine(
		crawler.Config{
			ListingSelector:   c.Selectors.Listing.ListItem,
			WaitTimeout:       c.Crawl.WaitTimeout,
			RequestsPerSecond: c.Crawl.RequestsPerSecond,
		},
		a.opener,
		pager,
		harvester,
		extract.New(c.Selectors.Detail, c.Crawl.WaitTimeout, a.logger),
		a.hub,
		a.logger,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("build crawl engine: %w", err)
	}
	return engine, nil
}

// Run performs one crawl, exports whatever was collected, persists and
// announces it, and returns the summary. An interrupted run still exports its
// partial result and returns the context error alongside the summary.
func (a *App) Run(ctx context.Context) (crawler.RunSummary, error) {
	runID, err := a.runID()
	if err != nil {
		return crawler.RunSummary{}, err
	}
	params := crawler.RunParams{
		RunID:             runID,
		BaseURL:           a.cfg.Crawl.BaseURL,
		MaxPages:          a.cfg.Crawl.MaxPages,
		DelayBetweenJobs:  a.cfg.Crawl.DelayBetweenJobs,
		DelayBetweenPages: a.cfg.Crawl.DelayBetweenPages,
	}
	logger := a.logger.With(zap.String("run_id", runID))
	engine, err := a.buildEngine()
	if err != nil {
		return crawler.RunSummary{}, err
	}

	started := a.now()
	res, runErr := engine.ScrapeAllJobs(ctx, params)
	summary := res.Summarize(params, started, a.now())

	// Post-run work must finish even when the crawl was interrupted.
	postCtx := context.WithoutCancel(ctx)
	if runErr != nil && crawler.IsFatal(runErr) {
		summary.Error = runErr.Error()
		a.publish(postCtx, summary, logger)
		return summary, runErr
	}

	uri, err := export.NewCSVExporter(a.bucketOpener(runID), a.logger).Export(postCtx, res.Records, a.cfg.Output.Path)
	if err != nil {
		summary.Error = err.Error()
		a.publish(postCtx, summary, logger)
		return summary, errors.Join(runErr, fmt.Errorf("export: %w", err))
	}
	summary.Output = uri

	if a.records != nil && len(res.Records) > 0 {
		if err := a.records.SaveRecords(postCtx, runID, summary.FinishedAt, res.Records); err != nil {
			logger.Error("persist records failed", zap.Error(err))
			summary.Error = err.Error()
		}
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	a.publish(postCtx, summary, logger)

	logger.Info("run summary",
		zap.Int("pages_total", summary.PagesTotal),
		zap.Int("pages_processed", summary.PagesProcessed),
		zap.Int("pages_failed", summary.PagesFailed),
		zap.Int("items_scraped", summary.ItemsScraped),
		zap.Int("items_failed", summary.ItemsFailed),
		zap.String("output", summary.Output),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, runErr
}

func (a *App) publish(ctx context.Context, summary crawler.RunSummary, logger *zap.Logger) {
	if a.pub == nil {
		return
	}
	id, err := a.pub.Publish(ctx, a.cfg.PubSub.Topic, summary)
	if err != nil {
		logger.Warn("publish run summary failed", zap.Error(err))
		return
	}
	logger.Info("run summary published", zap.String("message_id", id))
}

// Close shuts down every service. It is safe to call on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := a.metrics.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
		cancel()
	}
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
	}
	if a.records != nil {
		a.records.Close()
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
