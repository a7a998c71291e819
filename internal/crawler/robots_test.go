package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsEnforcer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	allowAll := NewRobotsEnforcer(false, "jobscout-test", nil)
	assert.True(t, allowAll.Allowed(ctx, "https://example.com/whatever"))

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	enforcer := NewRobotsEnforcer(true, "jobscout-test", nil)
	assert.True(t, enforcer.Allowed(ctx, srv.URL+"/de/jobs/?p=2"))
	assert.False(t, enforcer.Allowed(ctx, srv.URL+"/blocked/job/1"))
	require.Equal(t, int32(1), fetches.Load(), "robots.txt should be cached per host")
}

func TestRobotsEnforcerFetchFailureAllows(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	enforcer := NewRobotsEnforcer(true, "jobscout-test", nil)
	assert.True(t, enforcer.Allowed(context.Background(), url+"/de/jobs/"))
}
