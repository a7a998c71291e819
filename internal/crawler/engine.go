package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/progress"
	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Engine drives one crawl run: discover the page count, walk every results
// page, and scrape each detail link with a single session.
type Engine struct {
	cfg       Config
	opener    session.Opener
	counter   PageCounter
	harvester Harvester
	extractor DetailExtractor
	emitter   progress.Emitter
	logger    *zap.Logger

	pauser  Pauser
	clock   Clock
	robots  RobotsPolicy
	limiter *hostLimiter
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPauser replaces the timer-based pauser.
func WithPauser(p Pauser) Option {
	return func(e *Engine) {
		if p != nil {
			e.pauser = p
		}
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRobots gates every navigation on the given policy.
func WithRobots(p RobotsPolicy) Option {
	return func(e *Engine) { e.robots = p }
}

// NewEngine wires the collaborators of a crawl run.
func NewEngine(
	cfg Config,
	opener session.Opener,
	counter PageCounter,
	harvester Harvester,
	extractor DetailExtractor,
	emitter progress.Emitter,
	logger *zap.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if opener == nil || counter == nil || harvester == nil || extractor == nil {
		return nil, errors.New("engine requires an opener, page counter, harvester, and extractor")
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		opener:    opener,
		counter:   counter,
		harvester: harvester,
		extractor: extractor,
		emitter:   emitter,
		logger:    logger.Named("engine"),
		pauser:    timerPauser{},
		clock:     systemClock{},
		limiter:   newHostLimiter(cfg.RequestsPerSecond),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ScrapeAllJobs runs a full crawl. Session startup and base page failures are
// fatal and return an empty Result. Page and item failures are counted and
// skipped. Cancellation stops the run between items or pages and returns the
// partial Result together with the context error.
func (e *Engine) ScrapeAllJobs(ctx context.Context, params RunParams) (res Result, err error) {
	if params.BaseURL == "" {
		return Result{}, errors.New("base url is required")
	}
	started := e.clock.Now()
	logger := e.logger.With(zap.String("run_id", params.RunID))
	e.emit(progress.Event{RunID: params.RunID, Stage: progress.StageRunStart, URL: params.BaseURL})
	defer func() {
		evt := progress.Event{
			RunID: params.RunID,
			Stage: progress.StageRunDone,
			Items: len(res.Records),
			Dur:   e.clock.Now().Sub(started),
		}
		if err != nil {
			evt.Stage = progress.StageRunError
			evt.Note = err.Error()
		}
		e.emit(evt)
	}()

	sess, err := e.opener.Open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSessionStartup, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("close session", zap.Error(cerr))
		}
	}()
	if e.limiter != nil || e.robots != nil {
		sess = pacedSession{Session: sess, limiter: e.limiter, robots: e.robots}
	}

	total, err := e.discoverPages(ctx, sess, params.BaseURL)
	if err != nil {
		return Result{}, err
	}
	if params.MaxPages > 0 && total > params.MaxPages {
		logger.Info("limiting pages", zap.Int("detected", total), zap.Int("max_pages", params.MaxPages))
		total = params.MaxPages
	}
	res.PagesTotal = total
	logger.Info("crawl started", zap.String("base_url", params.BaseURL), zap.Int("pages", total))

	for page := 1; page <= total; page++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("crawl interrupted before page %d: %w", page, ctxErr)
		}
		// A failed page moves straight on to the next one.
		if e.processPage(ctx, sess, params, page, &res, logger) {
			e.pauser.Pause(ctx, params.DelayBetweenPages)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("crawl interrupted: %w", ctxErr)
	}
	logger.Info("crawl finished",
		zap.Int("pages_processed", res.PagesProcessed),
		zap.Int("pages_failed", res.PagesFailed),
		zap.Int("items_scraped", res.ItemsScraped),
		zap.Int("items_failed", res.ItemsFailed),
	)
	return res, nil
}

func (e *Engine) discoverPages(ctx context.Context, sess session.Session, baseURL string) (int, error) {
	if err := sess.Navigate(ctx, baseURL); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPageLoad, baseURL, err)
	}
	if _, err := sess.WaitPresent(ctx, e.cfg.ListingSelector, e.cfg.WaitTimeout); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPageLoad, baseURL, err)
	}
	return e.counter.TotalPages(ctx, sess), nil
}

// processPage reports whether the page was harvested.
func (e *Engine) processPage(ctx context.Context, sess session.Session, params RunParams, page int, res *Result, logger *zap.Logger) bool {
	pageURL, err := PageURL(params.BaseURL, page)
	if err != nil {
		e.pageFailed(params, page, params.BaseURL, err, res, logger)
		return false
	}
	e.emit(progress.Event{RunID: params.RunID, Stage: progress.StagePageStart, Page: page, URL: pageURL})
	logger.Info("processing page", zap.Int("page", page), zap.Int("pages", res.PagesTotal), zap.String("url", pageURL))

	if err := sess.Navigate(ctx, pageURL); err != nil {
		if ctx.Err() != nil {
			return false
		}
		e.pageFailed(params, page, pageURL, err, res, logger)
		return false
	}
	links, err := e.harvester.CollectJobsOnCurrentPage(ctx, sess)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		e.pageFailed(params, page, pageURL, err, res, logger)
		return false
	}
	res.PagesProcessed++
	e.emit(progress.Event{RunID: params.RunID, Stage: progress.StagePageDone, Page: page, URL: pageURL, Items: len(links)})
	logger.Debug("harvested links", zap.Int("page", page), zap.Int("links", len(links)))

	for _, link := range links {
		if ctx.Err() != nil {
			return true
		}
		e.processItem(ctx, sess, params, page, link, res, logger)
		e.pauser.Pause(ctx, params.DelayBetweenJobs)
	}
	return true
}

func (e *Engine) processItem(ctx context.Context, sess session.Session, params RunParams, page int, link PageLink, res *Result, logger *zap.Logger) {
	start := e.clock.Now()
	record, err := e.extractor.ScrapeJobDetail(ctx, sess, link.DetailURL)
	if err != nil && ctx.Err() != nil {
		return
	}
	dur := e.clock.Now().Sub(start)
	if dur < 0 {
		dur = 0
	}
	evt := progress.Event{
		RunID: params.RunID,
		Stage: progress.StageItemDone,
		Page:  page,
		URL:   link.DetailURL,
		JobID: link.JobID,
		Dur:   dur,
	}
	if err != nil {
		res.ItemsFailed++
		evt.Stage = progress.StageItemError
		evt.Note = err.Error()
		e.emit(evt)
		logger.Warn("scrape job detail failed",
			zap.Int("page", page),
			zap.String("job_id", link.JobID),
			zap.String("url", link.DetailURL),
			zap.Error(err),
		)
		return
	}
	record.JobID = link.JobID
	res.Records = append(res.Records, record)
	res.ItemsScraped++
	e.emit(evt)
}

func (e *Engine) pageFailed(params RunParams, page int, pageURL string, err error, res *Result, logger *zap.Logger) {
	res.PagesFailed++
	e.emit(progress.Event{RunID: params.RunID, Stage: progress.StagePageError, Page: page, URL: pageURL, Note: err.Error()})
	logger.Warn("page failed", zap.Int("page", page), zap.String("url", pageURL), zap.Error(err))
}

func (e *Engine) emit(evt progress.Event) {
	if evt.TS.IsZero() {
		evt.TS = e.clock.Now()
	}
	e.emitter.Emit(evt)
}
