package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobscout-crawler/internal/progress"
	"github.com/JakeFAU/jobscout-crawler/internal/session"
	"github.com/JakeFAU/jobscout-crawler/internal/session/static"
)

const (
	testBase    = "https://www.jobscout24.ch/de/jobs/?q=go"
	listingPage = `<ul><li class="job-list-item" data-job-id="x" data-job-detail-url="/x">x</li></ul>`
)

type mockHarvester struct{ mock.Mock }

func (m *mockHarvester) CollectJobsOnCurrentPage(ctx context.Context, sess session.Session) ([]PageLink, error) {
	args := m.Called(ctx, sess)
	links, _ := args.Get(0).([]PageLink)
	return links, args.Error(1)
}

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) ScrapeJobDetail(ctx context.Context, sess session.Session, rawURL string) (JobRecord, error) {
	args := m.Called(ctx, sess, rawURL)
	rec, _ := args.Get(0).(JobRecord)
	return rec, args.Error(1)
}

type fixedCounter int

func (f fixedCounter) TotalPages(context.Context, session.Session) int { return int(f) }

type recordingPauser struct{ delays []time.Duration }

func (r *recordingPauser) Pause(_ context.Context, d time.Duration) { r.delays = append(r.delays, d) }

func (r *recordingPauser) count(d time.Duration) int {
	n := 0
	for _, got := range r.delays {
		if got == d {
			n++
		}
	}
	return n
}

type closeTracker struct {
	session.Session
	closes int
}

func (c *closeTracker) Close() error {
	c.closes++
	return c.Session.Close()
}

type fixture struct {
	loader    *static.MapLoader
	tracker   *closeTracker
	harvester *mockHarvester
	extractor *mockExtractor
	pauser    *recordingPauser
	events    *progress.Recorder
}

func newFixture(pages map[string]string) *fixture {
	loader := static.NewMapLoader(pages)
	return &fixture{
		loader:    loader,
		tracker:   &closeTracker{Session: static.New(loader, nil)},
		harvester: &mockHarvester{},
		extractor: &mockExtractor{},
		pauser:    &recordingPauser{},
		events:    &progress.Recorder{},
	}
}

func (f *fixture) engine(t *testing.T, pages int, opts ...Option) *Engine {
	t.Helper()
	opener := session.OpenerFunc(func(context.Context) (session.Session, error) { return f.tracker, nil })
	opts = append([]Option{WithPauser(f.pauser)}, opts...)
	e, err := NewEngine(
		Config{ListingSelector: "li.job-list-item", WaitTimeout: time.Second},
		opener, fixedCounter(pages), f.harvester, f.extractor, f.events, nil, opts...,
	)
	require.NoError(t, err)
	return e
}

func threePages() map[string]string {
	return map[string]string{
		testBase:          listingPage,
		testBase + "&p=2": listingPage,
		testBase + "&p=3": listingPage,
	}
}

func params() RunParams {
	return RunParams{
		RunID:             "run-1",
		BaseURL:           testBase,
		DelayBetweenJobs:  300 * time.Millisecond,
		DelayBetweenPages: time.Second,
	}
}

func TestScrapeAllJobsHarvestFailureDoesNotStopRun(t *testing.T) {
	t.Parallel()

	f := newFixture(threePages())
	f.harvester.On("CollectJobsOnCurrentPage", mock.Anything, mock.Anything).
		Return([]PageLink{{JobID: "1", DetailURL: "https://d/1"}, {JobID: "2", DetailURL: "https://d/2"}}, nil).Once()
	f.harvester.On("CollectJobsOnCurrentPage", mock.Anything, mock.Anything).
		Return(nil, ErrPageHarvest).Once()
	f.harvester.On("CollectJobsOnCurrentPage", mock.Anything, mock.Anything).
		Return([]PageLink{{JobID: "3", DetailURL: "https://d/3"}}, nil).Once()
	f.extractor.On("ScrapeJobDetail", mock.Anything, mock.Anything, "https://d/1").Return(JobRecord{Title: "one", URL: "https://d/1"}, nil)
	f.extractor.On("ScrapeJobDetail", mock.Anything, mock.Anything, "https://d/2").Return(JobRecord{}, ErrTitleNotFound)
	f.extractor.On("ScrapeJobDetail", mock.Anything, mock.Anything, "https://d/3").Return(JobRecord{Title: "three", URL: "https://d/3"}, nil)

	res, err := f.engine(t, 3).ScrapeAllJobs(context.Background(), params())
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "1", res.Records[0].JobID)
	assert.Equal(t, "one", res.Records[0].Title)
	assert.Equal(t, "3", res.Records[1].JobID)
	assert.Equal(t, 3, res.PagesTotal)
	assert.Equal(t, 2, res.PagesProcessed)
	assert.Equal(t, 1, res.PagesFailed)
	assert.Equal(t, 2, res.ItemsScraped)
	assert.Equal(t, 1, res.ItemsFailed)

	assert.Equal(t, []string{testBase, testBase, testBase + "&p=2", testBase + "&p=3"}, f.loader.Visited())
	assert.Equal(t, 2, f.pauser.count(time.Second), "page delay follows processed pages only")
	assert.Equal(t, 3, f.pauser.count(300*time.Millisecond), "job delay follows every item, failed ones included")
	assert.Equal(t, 1, f.tracker.closes)
	f.harvester.AssertExpectations(t)
	f.extractor.AssertExpectations(t)

	stages := f.events.Stages()
	assert.Equal(t, progress.StageRunStart, stages[0])
	assert.Equal(t, progress.StageRunDone, stages[len(stages)-1])
	assert.Contains(t, stages, progress.StagePageError)
	assert.Contains(t, stages, progress.StageItemError)
}

func TestScrapeAllJobsSessionStartupIsFatal(t *testing.T) {
	t.Parallel()

	events := &progress.Recorder{}
	opener := session.OpenerFunc(func(context.Context) (session.Session, error) {
		return nil, errors.New("chrome not found")
	})
	e, err := NewEngine(Config{ListingSelector: "li"}, opener, fixedCounter(1), &mockHarvester{}, &mockExtractor{}, events, nil)
	require.NoError(t, err)

	res, err := e.ScrapeAllJobs(context.Background(), params())
	require.ErrorIs(t, err, ErrSessionStartup)
	assert.True(t, IsFatal(err))
	assert.Empty(t, res.Records)
	assert.Equal(t, []progress.Stage{progress.StageRunStart, progress.StageRunError}, events.Stages())
}

func TestScrapeAllJobsBasePageLoadIsFatal(t *testing.T) {
	t.Parallel()

	t.Run("navigation fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(nil)
		res, err := f.engine(t, 5).ScrapeAllJobs(context.Background(), params())
		require.ErrorIs(t, err, ErrPageLoad)
		assert.True(t, IsFatal(err))
		assert.Zero(t, res.PagesTotal)
		assert.Equal(t, 1, f.tracker.closes)
		f.harvester.AssertNotCalled(t, "CollectJobsOnCurrentPage", mock.Anything, mock.Anything)
	})
	t.Run("listing never appears", func(t *testing.T) {
		t.Parallel()
		f := newFixture(map[string]string{testBase: "<p>maintenance</p>"})
		_, err := f.engine(t, 5).ScrapeAllJobs(context.Background(), params())
		require.ErrorIs(t, err, ErrPageLoad)
		assert.Equal(t, 1, f.tracker.closes)
	})
	t.Run("robots disallows base", func(t *testing.T) {
		t.Parallel()
		f := newFixture(threePages())
		_, err := f.engine(t, 3, WithRobots(denyPolicy{blocked: testBase})).ScrapeAllJobs(context.Background(), params())
		require.ErrorIs(t, err, ErrPageLoad)
		require.ErrorIs(t, err, ErrDisallowedByRobots)
		assert.Empty(t, f.loader.Visited())
	})
}

func TestScrapeAllJobsLaterNavigationFailureIsPageFailure(t *testing.T) {
	t.Parallel()

	pages := threePages()
	delete(pages, testBase+"&p=2")
	f := newFixture(pages)
	f.harvester.On("CollectJobsOnCurrentPage", mock.Anything, mock.Anything).Return([]PageLink{}, nil)

	res, err := f.engine(t, 3).ScrapeAllJobs(context.Background(), params())
	require.NoError(t, err)
	assert.Equal(t, 2, res.PagesProcessed)
	assert.Equal(t, 1, res.PagesFailed)
	f.harvester.AssertNumberOfCalls(t, "CollectJobsOnCurrentPage", 2)
}

func TestScrapeAllJobsMaxPages(t *testing.T) {
	t.Parallel()

	f := newFixture(threePages())
	f.harvester.On("CollectJobsOnCurrentPage", mock.Anything, mock.Anything).Return([]PageLink{}, nil)

	p := params()
	p.MaxPages = 2
	res, err := f.engine(t, 100).ScrapeAllJobs(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PagesTotal)
	assert.Equal(t, []string{testBase, testBase, testBase + "&p=2"}, f.loader.Visited())
}

func TestScrapeAllJobsCancellationReturnsPartialResult(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(threePages())
	f.harvester.On("CollectJobsOnCurrentPage", mock.Anything, mock.Anything).
		Return([]PageLink{{JobID: "1", DetailURL: "https://d/1"}, {JobID: "2", DetailURL: "https://d/2"}}, nil)
	f.extractor.On("ScrapeJobDetail", mock.Anything, mock.Anything, "https://d/1").
		Run(func(mock.Arguments) { cancel() }).
		Return(JobRecord{Title: "one"}, nil)

	res, err := f.engine(t, 3).ScrapeAllJobs(ctx, params())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsFatal(err))
	require.Len(t, res.Records, 1)
	assert.Equal(t, "1", res.Records[0].JobID)
	assert.Zero(t, res.ItemsFailed)
	assert.Equal(t, 1, f.tracker.closes)
	f.extractor.AssertNotCalled(t, "ScrapeJobDetail", mock.Anything, mock.Anything, "https://d/2")
	assert.Equal(t, progress.StageRunError, f.events.Stages()[len(f.events.Stages())-1])
}

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()

	opener := session.OpenerFunc(func(context.Context) (session.Session, error) { return nil, nil })
	_, err := NewEngine(Config{}, opener, fixedCounter(1), &mockHarvester{}, &mockExtractor{}, nil, nil)
	require.Error(t, err)
	_, err = NewEngine(Config{ListingSelector: "li"}, nil, fixedCounter(1), &mockHarvester{}, &mockExtractor{}, nil, nil)
	require.Error(t, err)

	e, err := NewEngine(Config{ListingSelector: "li"}, opener, fixedCounter(1), &mockHarvester{}, &mockExtractor{}, nil, nil)
	require.NoError(t, err)
	_, err = e.ScrapeAllJobs(context.Background(), RunParams{})
	require.Error(t, err)
}
