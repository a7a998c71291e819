package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

type timerPauser struct{}

// Pause sleeps for delay or until ctx is done.
func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// hostLimiter spaces navigations per host with a token bucket.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
}

func newHostLimiter(rps float64) *hostLimiter {
	if rps <= 0 {
		return nil
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
	}
}

func (l *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.rps, 1)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// pacedSession applies the robots policy and host limiter to every
// navigation, including the ones the extractor performs on detail pages.
type pacedSession struct {
	session.Session
	limiter *hostLimiter
	robots  RobotsPolicy
}

func (p pacedSession) Navigate(ctx context.Context, rawURL string) error {
	if p.robots != nil && !p.robots.Allowed(ctx, rawURL) {
		return fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
	}
	if err := p.limiter.Wait(ctx, rawURL); err != nil {
		return err
	}
	return p.Session.Navigate(ctx, rawURL)
}
