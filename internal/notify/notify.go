// Package notify publishes a one-message summary when a sweep run ends.
package notify

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/progress/sinks"
)

// Publisher sends a JSON-serialisable payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Summary is the payload published for each run.
type Summary struct {
	RunID          string         `json:"run_id"`
	Input          string         `json:"input"`
	Output         string         `json:"output"`
	Workers        int            `json:"workers"`
	Total          int            `json:"total"`
	Alive          int            `json:"alive"`
	Dead           int            `json:"dead"`
	ByReason       map[string]int `json:"by_reason"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	Interrupted    bool           `json:"interrupted"`
	// DroppedEvents is non-zero when ByReason under-counts.
	DroppedEvents int64 `json:"dropped_events,omitempty"`
}

// NewSummary fills the counts of a Summary from a verdict tally.
func NewSummary(runID string, tally sinks.Tally, started, finished time.Time) Summary {
	byReason := make(map[string]int, len(tally.ByReason))
	for reason, n := range tally.ByReason {
		byReason[string(reason)] = n
	}
	return Summary{
		RunID:          runID,
		Total:          tally.Total(),
		Alive:          tally.Alive,
		Dead:           tally.Dead,
		ByReason:       byReason,
		StartedAt:      started,
		FinishedAt:     finished,
		ElapsedSeconds: finished.Sub(started).Seconds(),
	}
}

// Notifier publishes run summaries. A Notifier without a publisher or topic
// is disabled and Notify returns immediately.
type Notifier struct {
	pub    Publisher
	topic  string
	logger *zap.Logger
}

// New creates a Notifier.
func New(pub Publisher, topic string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{pub: pub, topic: topic, logger: logger}
}

// Enabled reports whether Notify will publish.
func (n *Notifier) Enabled() bool {
	return n != nil && n.pub != nil && n.topic != ""
}

// Notify publishes s.
func (n *Notifier) Notify(ctx context.Context, s Summary) error {
	if !n.Enabled() {
		return nil
	}
	id, err := n.pub.Publish(ctx, n.topic, s)
	if err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}
	n.logger.Info("run summary published",
		zap.String("topic", n.topic),
		zap.String("message_id", id),
		zap.String("run_id", s.RunID),
	)
	return nil
}

// Close closes the publisher when it holds resources.
func (n *Notifier) Close() error {
	if n == nil || n.pub == nil {
		return nil
	}
	if c, ok := n.pub.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close notifier: %w", err)
		}
	}
	return nil
}
