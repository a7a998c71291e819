// Package headless implements session.Session on top of headless Chrome via
// chromedp. One Session owns one browser process for its whole lifetime.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

const defaultNavigationTimeout = 45 * time.Second

// Config controls the browser launched for a session.
type Config struct {
	Headless          bool
	UserAgent         string
	ExecPath          string
	NavigationTimeout time.Duration
}

// Session drives a single Chrome tab.
type Session struct {
	cfg           Config
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closeOnce     sync.Once
}

var _ session.Session = (*Session)(nil)

// Open launches Chrome and returns a ready session. The browser is started
// eagerly so launch failures surface here rather than on first navigation.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.ExecPath == "" {
		cfg.ExecPath = FindChromePath(logger)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	stop := forwardCancel(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	logger.Debug("browser started", zap.Bool("headless", cfg.Headless), zap.String("exec_path", cfg.ExecPath))
	return &Session{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Opener returns a session.Opener that launches a fresh browser per call.
func Opener(cfg Config, logger *zap.Logger) session.Opener {
	return session.OpenerFunc(func(ctx context.Context) (session.Session, error) {
		return Open(ctx, cfg, logger)
	})
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	opts = append(opts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Navigate loads rawURL and waits for the load event.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Navigate(rawURL)); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

// WaitPresent polls the live DOM until selector matches or timeout elapses.
func (s *Session) WaitPresent(ctx context.Context, selector string, timeout time.Duration) (session.Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, session.EffectiveTimeout(timeout), chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	switch {
	case err == nil && len(nodes) > 0:
		return &element{s: s, node: nodes[0]}, nil
	case err == nil:
		return nil, fmt.Errorf("%w: %q", session.ErrNoSuchElement, selector)
	case ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %q", session.ErrWaitTimeout, selector)
	default:
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
}

// Find returns the first match without waiting.
func (s *Session) Find(ctx context.Context, selector string) (session.Element, error) {
	return s.first(ctx, selector)
}

// FindAll returns all matches without waiting.
func (s *Session) FindAll(ctx context.Context, selector string) ([]session.Element, error) {
	return s.all(ctx, selector)
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(s.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("close browser: %w", cerr)
		}
		s.browserCancel()
		s.allocCancel()
	})
	return err
}

func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.browserCtx.Err() != nil {
		return session.ErrClosed
	}
	taskCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (s *Session) first(ctx context.Context, selector string, opts ...chromedp.QueryOption) (session.Element, error) {
	els, err := s.all(ctx, selector, opts...)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %q", session.ErrNoSuchElement, selector)
	}
	return els[0], nil
}

func (s *Session) all(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]session.Element, error) {
	var nodes []*cdp.Node
	queryOpts := append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Nodes(selector, &nodes, queryOpts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]session.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{s: s, node: n})
	}
	return out, nil
}

type element struct {
	s    *Session
	node *cdp.Node
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.s.run(ctx, e.s.cfg.NavigationTimeout,
		chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID),
	); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	if err := e.s.run(ctx, e.s.cfg.NavigationTimeout,
		chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID),
	); err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	return value, ok, nil
}

func (e *element) Find(ctx context.Context, selector string) (session.Element, error) {
	return e.s.first(ctx, selector, chromedp.FromNode(e.node))
}

func (e *element) FindAll(ctx context.Context, selector string) ([]session.Element, error) {
	return e.s.all(ctx, selector, chromedp.FromNode(e.node))
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
