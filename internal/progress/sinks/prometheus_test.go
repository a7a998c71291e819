package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobscout-crawler/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	now := time.Now()
	batch := []progress.Event{
		{RunID: "r1", TS: now, Stage: progress.StageRunStart},
		{RunID: "r1", TS: now, Stage: progress.StagePageStart, Page: 1},
		{RunID: "r1", TS: now, Stage: progress.StagePageDone, Page: 1, Items: 2},
		{RunID: "r1", TS: now, Stage: progress.StageItemDone, Page: 1, URL: "u1", Dur: 300 * time.Millisecond},
		{RunID: "r1", TS: now, Stage: progress.StageItemError, Page: 1, URL: "u2", Note: "title not found"},
		{RunID: "r1", TS: now, Stage: progress.StagePageError, Page: 2},
		{RunID: "r1", TS: now, Stage: progress.StageRunDone, Items: 1, Dur: 20 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pages.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pages.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.items.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.items.WithLabelValues("error")))
	require.Equal(t, 1, testutil.CollectAndCount(sink.itemDuration, "jobscout_item_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.runDuration, "jobscout_run_duration_seconds"))
}

// TestPrometheusSinkDuplicateRegistration surfaces registry conflicts.
func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
