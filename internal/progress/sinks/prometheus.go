package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/jobscout-crawler/internal/progress"
)

// PrometheusSink exports crawl progress via Prometheus. It owns the run, page,
// and item collectors.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	runDuration   *prometheus.HistogramVec

	pages        *prometheus.CounterVec
	pageLinks    prometheus.Histogram
	items        *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobscout_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobscout_runs_completed_total",
			Help: "Total crawl runs completed partitioned by result.",
		}, []string{"result"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobscout_runs_running",
			Help: "Current number of running crawl runs.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobscout_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{10, 30, 60, 300, 600, 1800, 3600, 7200, 14400},
		}, []string{"result"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobscout_pages_total",
			Help: "Results pages processed partitioned by result.",
		}, []string{"result"}),
		pageLinks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobscout_page_links",
			Help:    "Detail links harvested per results page.",
			Buckets: []float64{0, 5, 10, 20, 30, 50, 100},
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobscout_items_total",
			Help: "Detail pages scraped partitioned by result.",
		}, []string{"result"}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobscout_item_duration_seconds",
			Help:    "Detail page scrape latency partitioned by result.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"result"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.runDuration,
		s.pages,
		s.pageLinks,
		s.items,
		s.itemDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		s.runsRunning.Inc()
	case progress.StageRunDone:
		s.finishRun(evt, "success")
	case progress.StageRunError:
		s.finishRun(evt, "error")
	case progress.StagePageDone:
		s.pages.WithLabelValues("success").Inc()
		s.pageLinks.Observe(float64(evt.Items))
	case progress.StagePageError:
		s.pages.WithLabelValues("error").Inc()
	case progress.StageItemDone:
		s.observeItem(evt, "success")
	case progress.StageItemError:
		s.observeItem(evt, "error")
	}
}

func (s *PrometheusSink) finishRun(evt progress.Event, label string) {
	s.runsCompleted.WithLabelValues(label).Inc()
	s.runsRunning.Dec()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) observeItem(evt progress.Event, label string) {
	s.items.WithLabelValues(label).Inc()
	if evt.Dur > 0 {
		s.itemDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
