package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

func TestTimerPauserHonorsContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	timerPauser{}.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "pause should exit immediately when context is done")
}

func TestTimerPauserSleeps(t *testing.T) {
	t.Parallel()

	start := time.Now()
	timerPauser{}.Pause(context.Background(), 20*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	timerPauser{}.Pause(context.Background(), 0)
}

func TestHostLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := newHostLimiter(0)
	require.Nil(t, l)
	require.NoError(t, l.Wait(context.Background(), "https://example.com"))
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	t.Parallel()

	l := newHostLimiter(20)
	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://example.com/a"))
	require.NoError(t, l.Wait(ctx, "https://EXAMPLE.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, l.Wait(cancelled, "https://example.com/c"))
}

type denyPolicy struct{ blocked string }

func (d denyPolicy) Allowed(_ context.Context, rawURL string) bool { return rawURL != d.blocked }

type navRecorder struct {
	session.Session
	urls []string
}

func (n *navRecorder) Navigate(_ context.Context, rawURL string) error {
	n.urls = append(n.urls, rawURL)
	return nil
}

func TestPacedSessionRobots(t *testing.T) {
	t.Parallel()

	inner := &navRecorder{}
	sess := pacedSession{Session: inner, robots: denyPolicy{blocked: "https://x/blocked"}}

	require.NoError(t, sess.Navigate(context.Background(), "https://x/ok"))
	err := sess.Navigate(context.Background(), "https://x/blocked")
	require.True(t, errors.Is(err, ErrDisallowedByRobots))
	assert.Equal(t, []string{"https://x/ok"}, inner.urls)
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base string
		page int
		want string
	}{
		{"https://www.jobscout24.ch/de/jobs/", 1, "https://www.jobscout24.ch/de/jobs/"},
		{"https://www.jobscout24.ch/de/jobs/?p=9", 1, "https://www.jobscout24.ch/de/jobs/?p=9"},
		{"https://www.jobscout24.ch/de/jobs/", 2, "https://www.jobscout24.ch/de/jobs/?p=2"},
		{"https://www.jobscout24.ch/de/jobs/?regidl=1&p=4&catid=7", 3, "https://www.jobscout24.ch/de/jobs/?regidl=1&catid=7&p=3"},
		{"https://www.jobscout24.ch/de/jobs/?q=go", 10, "https://www.jobscout24.ch/de/jobs/?q=go&p=10"},
		{"https://www.jobscout24.ch/de/jobs/?p=1&p=2", 5, "https://www.jobscout24.ch/de/jobs/?p=5"},
		{"https://www.jobscout24.ch/de/jobs/?page=2", 2, "https://www.jobscout24.ch/de/jobs/?page=2&p=2"},
	}
	for _, tc := range cases {
		got, err := PageURL(tc.base, tc.page)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s page %d", tc.base, tc.page)
	}

	_, err := PageURL("https://www.jobscout24.ch/de/jobs/", 0)
	require.Error(t, err)
	_, err = PageURL("://bad", 2)
	require.Error(t, err)
}
