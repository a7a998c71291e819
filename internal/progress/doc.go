// Package progress provides the event primitives, hub, and emitter interfaces
// the crawl engine uses to report run progress. The hub fans events out to
// pluggable sinks such as structured logs or Prometheus metrics.
package progress
