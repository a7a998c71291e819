// Package static implements session.Session over fetched HTML documents using
// goquery. Documents do not change after loading, so readiness waits resolve
// immediately: either the selector matches or the wait reports a timeout.
package static

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

// Session queries the most recently loaded document.
type Session struct {
	loader  Loader
	logger  *zap.Logger
	doc     *goquery.Document
	current string
	closed  bool
}

var _ session.Session = (*Session)(nil)

// New creates a static session backed by loader.
func New(loader Loader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{loader: loader, logger: logger}
}

// Opener returns a session.Opener that hands out static sessions over loader.
func Opener(loader Loader, logger *zap.Logger) session.Opener {
	return session.OpenerFunc(func(context.Context) (session.Session, error) {
		if loader == nil {
			return nil, fmt.Errorf("static session: loader is required")
		}
		return New(loader, logger), nil
	})
}

// Navigate loads rawURL and parses it into the current document.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if s.closed {
		return session.ErrClosed
	}
	body, err := s.loader.Load(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", rawURL, err)
	}
	s.doc = doc
	s.current = rawURL
	s.logger.Debug("navigated", zap.String("url", rawURL))
	return nil
}

// CurrentURL returns the URL of the loaded document.
func (s *Session) CurrentURL() string {
	return s.current
}

// WaitPresent returns the first match or a wrapped session.ErrWaitTimeout.
func (s *Session) WaitPresent(ctx context.Context, selector string, _ time.Duration) (session.Element, error) {
	el, err := s.Find(ctx, selector)
	if err == nil {
		return el, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("wait for %q: %w", selector, ctx.Err())
	}
	return nil, fmt.Errorf("%w: %q", session.ErrWaitTimeout, selector)
}

// Find returns the first element matching selector.
func (s *Session) Find(ctx context.Context, selector string) (session.Element, error) {
	root, err := s.root(ctx)
	if err != nil {
		return nil, err
	}
	return first(root, selector)
}

// FindAll returns every element matching selector.
func (s *Session) FindAll(ctx context.Context, selector string) ([]session.Element, error) {
	root, err := s.root(ctx)
	if err != nil {
		return nil, err
	}
	return all(root, selector), nil
}

// Close drops the document; later calls fail with session.ErrClosed.
func (s *Session) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

func (s *Session) root(ctx context.Context) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, session.ErrClosed
	}
	if s.doc == nil {
		return nil, session.ErrNoDocument
	}
	return s.doc.Selection, nil
}

type element struct {
	sel *goquery.Selection
}

func (e element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e element) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	val, ok := e.sel.Attr(name)
	return val, ok, nil
}

func (e element) Find(ctx context.Context, selector string) (session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return first(e.sel, selector)
}

func (e element) FindAll(ctx context.Context, selector string) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return all(e.sel, selector), nil
}

func first(root *goquery.Selection, selector string) (session.Element, error) {
	match := root.Find(selector).First()
	if match.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", session.ErrNoSuchElement, selector)
	}
	return element{sel: match}, nil
}

func all(root *goquery.Selection, selector string) []session.Element {
	matches := root.Find(selector)
	out := make([]session.Element, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{sel: s})
	})
	return out
}
