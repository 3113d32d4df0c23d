// Package metrics exposes Prometheus collectors for the fetch and render
// layers and writes the registry to a node-exporter textfile at the end of a
// run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Collectors owns the fetch, render, and worker collectors. A nil
// *Collectors is valid and records nothing.
type Collectors struct {
	activeWorkers  prometheus.Gauge
	fetchesTotal   *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	redirectHops   prometheus.Histogram
	renderOutcomes *prometheus.CounterVec
	renderDuration prometheus.Histogram
	rateLimitDelay prometheus.Histogram
}

// New registers the collectors against reg.
func New(reg prometheus.Registerer) (c *Collectors, err error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("register metrics: %v", r)
		}
	}()
	factory := promauto.With(reg)
	return &Collectors{
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sweeper_active_workers",
			Help: "Number of chunk workers currently classifying URLs.",
		}),
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeper_fetches_total",
			Help: "Plain GET requests, labeled by status class.",
		}, []string{"status_class"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweeper_fetch_duration_seconds",
			Help:    "Histogram of plain GET latencies.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		}),
		redirectHops: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweeper_redirect_hops",
			Help:    "Redirect hops followed per plain GET.",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		renderOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeper_render_outcomes_total",
			Help: "Headless renders, labeled by outcome.",
		}, []string{"status"}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweeper_render_duration_seconds",
			Help:    "Histogram of headless render latencies.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		rateLimitDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweeper_rate_limit_delay_seconds",
			Help:    "Time fetches waited for a per-host token.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}, nil
}

// IncActiveWorkers increments the active workers gauge.
func (c *Collectors) IncActiveWorkers() {
	if c == nil {
		return
	}
	c.activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func (c *Collectors) DecActiveWorkers() {
	if c == nil {
		return
	}
	c.activeWorkers.Dec()
}

// ObserveFetch records one plain GET. A failed request is labeled "error".
func (c *Collectors) ObserveFetch(res sweep.FetchResult, err error, d time.Duration) {
	if c == nil {
		return
	}
	class := "error"
	if err == nil {
		class = StatusClass(res.StatusCode)
		c.redirectHops.Observe(float64(len(res.Hops)))
	}
	c.fetchesTotal.WithLabelValues(class).Inc()
	c.fetchDuration.Observe(d.Seconds())
}

// ObserveRender records one headless render.
func (c *Collectors) ObserveRender(outcome sweep.RenderOutcome) {
	if c == nil {
		return
	}
	c.renderOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	if outcome.Duration > 0 {
		c.renderDuration.Observe(outcome.Duration.Seconds())
	}
}

// ObserveRateLimitDelay records time spent waiting on the per-host limiter.
func (c *Collectors) ObserveRateLimitDelay(_ string, d time.Duration) {
	if c == nil {
		return
	}
	c.rateLimitDelay.Observe(d.Seconds())
}

// StatusClass groups HTTP status codes into 2xx, 3xx, 4xx, 5xx, or other.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

// WriteTextfile writes every metric gathered from g to path in the Prometheus
// text format. Parent directories are created as needed.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
