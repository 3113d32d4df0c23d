// Package worker runs the liveness classifier over one chunk of URLs.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/accumulator"
	"github.com/JakeFAU/soft404-sweeper/internal/metrics"
	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Classifier is the per-chunk verdict engine a Worker drives.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) sweep.Classification
	Reset()
}

// Config carries the run-scoped collaborators shared by every worker.
type Config struct {
	RunID   [16]byte
	Emitter progress.Emitter
	Clock   sweep.Clock
	Metrics *metrics.Collectors
}

// Result summarises one chunk.
type Result struct {
	Chunk     int
	Processed int
	Alive     int
	Faults    int
	// Err is set when the context ended before the chunk was finished.
	Err error
}

// Worker classifies the URLs of one chunk sequentially and appends the ALIVE
// ones to a shared accumulator.
type Worker struct {
	chunk      sweep.ChunkAssignment
	classifier Classifier
	acc        *accumulator.Accumulator
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	chunk sweep.ChunkAssignment,
	classifier Classifier,
	acc *accumulator.Accumulator,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		chunk:      chunk,
		classifier: classifier,
		acc:        acc,
		cfg:        cfg,
		logger:     logger.Named("worker").With(zap.Int("chunk", chunk.Index)),
	}
}

// Run blocks until every URL of the chunk has a verdict or ctx ends. Context
// cancellation is only observed between URLs.
func (w *Worker) Run(ctx context.Context) Result {
	res := Result{Chunk: w.chunk.Index}
	start := w.now()
	w.cfg.Metrics.IncActiveWorkers()
	defer w.cfg.Metrics.DecActiveWorkers()

	w.classifier.Reset()
	w.emitChunk(progress.StageChunkStart, len(w.chunk.URLs), 0)
	w.logger.Info("chunk started", zap.Int("urls", len(w.chunk.URLs)))

	for _, rawURL := range w.chunk.URLs {
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("chunk %d interrupted: %w", w.chunk.Index, err)
			w.logger.Warn("chunk interrupted", zap.Int("processed", res.Processed), zap.Error(err))
			break
		}
		verdict := w.classifyOne(ctx, rawURL)
		res.Processed++
		if verdict.Reason == sweep.ReasonFault {
			res.Faults++
		}
		if verdict.IsAlive() {
			w.acc.Add(rawURL)
			res.Alive++
		}
	}

	w.emitChunk(progress.StageChunkDone, res.Processed, w.now().Sub(start))
	w.logger.Info("chunk finished",
		zap.Int("processed", res.Processed),
		zap.Int("alive", res.Alive),
		zap.Int("faults", res.Faults),
	)
	return res
}

// classifyOne isolates a panic to the URL that caused it.
func (w *Worker) classifyOne(ctx context.Context, rawURL string) (out sweep.Classification) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		w.logger.Error("classifier panicked; marking url dead",
			zap.String("url", rawURL),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
		w.classifier.Reset()
		out = sweep.Classification{
			URL:     rawURL,
			Verdict: sweep.Dead,
			Reason:  sweep.ReasonFault,
			Detail:  fmt.Sprint(r),
		}
		w.emitFault(out)
	}()
	return w.classifier.Classify(ctx, rawURL)
}

func (w *Worker) emitChunk(stage progress.Stage, count int, dur time.Duration) {
	if w.cfg.Emitter == nil {
		return
	}
	w.cfg.Emitter.Emit(progress.Event{
		RunID: w.cfg.RunID,
		TS:    w.now(),
		Stage: stage,
		Chunk: w.chunk.Index,
		Count: count,
		Dur:   dur,
	})
}

func (w *Worker) emitFault(c sweep.Classification) {
	if w.cfg.Emitter == nil {
		return
	}
	w.cfg.Emitter.Emit(progress.Event{
		RunID:   w.cfg.RunID,
		TS:      w.now(),
		Stage:   progress.StageVerdict,
		Site:    progress.SiteOf(c.URL),
		URL:     c.URL,
		Verdict: c.Verdict,
		Reason:  c.Reason,
		Note:    c.Detail,
	})
}

func (w *Worker) now() time.Time {
	if w.cfg.Clock == nil {
		return time.Now().UTC()
	}
	return w.cfg.Clock.Now()
}
