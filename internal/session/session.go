// Package session defines the browser-session capability the crawl pipeline is
// written against. Concrete engines live in the headless (chromedp-driven Chrome)
// and static (goquery over fetched HTML) subpackages.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSuchElement is returned when a selector matches nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrWaitTimeout is returned when a readiness wait expires.
	ErrWaitTimeout = errors.New("wait for element timed out")
	// ErrNoDocument is returned when the session is queried before any navigation.
	ErrNoDocument = errors.New("no document loaded")
	// ErrClosed is returned when a closed session is used.
	ErrClosed = errors.New("session closed")
)

// DefaultWaitTimeout bounds readiness waits when callers pass a zero timeout.
const DefaultWaitTimeout = 10 * time.Second

// Session is a single, exclusively owned page-loading capability. It is not
// safe for concurrent use; the crawl drives it from one goroutine.
type Session interface {
	// Navigate loads rawURL, replacing the current document.
	Navigate(ctx context.Context, rawURL string) error
	// WaitPresent blocks until selector matches at least one element or the
	// timeout expires, returning the first match.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Find returns the first element matching selector in the current document.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns every match in document order; no match is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// Close releases the underlying engine. It is safe to call more than once.
	Close() error
}

// Element is a node of the current document.
type Element interface {
	// Text returns the element's text content.
	Text(ctx context.Context) (string, error)
	// Attr returns the attribute value and whether it is present.
	Attr(ctx context.Context, name string) (string, bool, error)
	// Find returns the first descendant matching selector.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns every descendant matching selector in document order.
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// Opener acquires a new Session.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

// EffectiveTimeout returns timeout, or DefaultWaitTimeout when timeout is not positive.
func EffectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultWaitTimeout
	}
	return timeout
}
