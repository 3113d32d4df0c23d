package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/soft404-sweeper/internal/progress"
)

// PrometheusSink exports verdict metrics via Prometheus. It owns the
// collectors for verdicts by reason, per-URL check duration, and chunks.
type PrometheusSink struct {
	verdicts      *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	chunksDone    prometheus.Counter
	runDuration   prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeper_verdicts_total",
			Help: "URLs classified, partitioned by verdict and deciding reason.",
		}, []string{"verdict", "reason"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweeper_check_duration_seconds",
			Help:    "Time spent classifying one URL, partitioned by deciding reason.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"reason"}),
		chunksDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_chunks_completed_total",
			Help: "Chunks that finished classification.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sweeper_run_duration_seconds",
			Help: "Wall time of the last completed run.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.verdicts,
		s.checkDuration,
		s.chunksDone,
		s.runDuration,
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
		switch evt.Stage {
		case progress.StageVerdict:
			s.verdicts.WithLabelValues(string(evt.Verdict), string(evt.Reason)).Inc()
			if evt.Dur > 0 {
				s.checkDuration.WithLabelValues(string(evt.Reason)).Observe(evt.Dur.Seconds())
			}
		case progress.StageChunkDone:
			s.chunksDone.Inc()
		case progress.StageRunDone:
			s.runDuration.Set(evt.Dur.Seconds())
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
