package crawler

import "errors"

// Fatal run errors.
var (
	ErrSessionStartup = errors.New("browser session startup failed")
	ErrPageLoad       = errors.New("base page load failed")
)

// Recoverable errors; the orchestrator skips the page or item and continues.
var (
	ErrPageHarvest       = errors.New("page harvest failed")
	ErrExtractionTimeout = errors.New("detail container did not appear")
	ErrTitleNotFound     = errors.New("title not found")
)

// IsFatal reports whether err aborts the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionStartup) || errors.Is(err, ErrPageLoad)
}
