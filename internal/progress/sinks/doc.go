// Package sinks implements concrete progress consumers: structured logging and
// Prometheus metrics. Each sink satisfies the progress.Sink interface.
package sinks
