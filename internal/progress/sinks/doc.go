// Package sinks implements concrete progress consumers: structured logging,
// Prometheus verdict metrics, and an in-memory tally used for the run summary.
// Each sink satisfies progress.Sink.
package sinks
