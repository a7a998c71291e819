package crawler

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the engine settings that do not vary per run.
type Config struct {
	// ListingSelector must match on the base page before the run proceeds.
	ListingSelector string
	// WaitTimeout bounds the base-page readiness wait.
	WaitTimeout time.Duration
	// RequestsPerSecond caps navigations per host; 0 disables the limiter.
	RequestsPerSecond float64
}

// Validate checks for obviously bad configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListingSelector) == "" {
		return fmt.Errorf("listing selector must be set")
	}
	if c.WaitTimeout < 0 {
		return fmt.Errorf("wait timeout must be >= 0")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be >= 0")
	}
	return nil
}
