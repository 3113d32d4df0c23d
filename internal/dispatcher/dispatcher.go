// Package dispatcher partitions a URL list into chunks and runs one worker
// per chunk in parallel, merging the survivors.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/accumulator"
	"github.com/JakeFAU/soft404-sweeper/internal/metrics"
	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
	"github.com/JakeFAU/soft404-sweeper/internal/worker"
)

// ClassifierFactory builds the classifier for one chunk. Each call must
// return an instance with its own HTTP client and browser lifecycle.
type ClassifierFactory func(chunk int, logger *zap.Logger) (worker.Classifier, error)

// Options carries the run-scoped collaborators handed to every worker.
type Options struct {
	RunID   [16]byte
	Emitter progress.Emitter
	Clock   sweep.Clock
	Metrics *metrics.Collectors
	Logger  *zap.Logger
}

// Dispatcher fans chunks out to workers.
type Dispatcher struct {
	factory ClassifierFactory
	opts    Options
	logger  *zap.Logger
}

// New constructs a Dispatcher.
func New(factory ClassifierFactory, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{factory: factory, opts: opts, logger: logger}
}

// Partition splits urls into consecutive chunks of ceil(len/workers) URLs.
// The last chunk may be shorter. workers <= 0 means runtime.NumCPU().
func Partition(urls []string, workers int) []sweep.ChunkAssignment {
	if len(urls) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(urls) {
		workers = len(urls)
	}
	size := (len(urls) + workers - 1) / workers
	chunks := make([]sweep.ChunkAssignment, 0, workers)
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))
		chunks = append(chunks, sweep.ChunkAssignment{
			Index: len(chunks),
			URLs:  urls[start:end:end],
		})
	}
	return chunks
}

// Report is the outcome of one Run. Counts come from the workers themselves,
// not from progress events, so they are exact.
type Report struct {
	Alive     []string
	Processed int
	Faults    int
}

// Dispatch classifies urls across workerCount parallel workers and returns
// the ALIVE URLs. See Run.
func (d *Dispatcher) Dispatch(ctx context.Context, urls []string, workerCount int) ([]string, error) {
	report, err := d.Run(ctx, urls, workerCount)
	return report.Alive, err
}

// Run classifies urls across workerCount parallel workers. Every classifier
// is built before any worker starts, so a factory error aborts the run before
// any network activity. A context error is returned alongside whatever was
// collected before it ended.
func (d *Dispatcher) Run(ctx context.Context, urls []string, workerCount int) (Report, error) {
	chunks := Partition(urls, workerCount)
	if len(chunks) == 0 {
		d.logger.Info("no urls to check")
		return Report{Alive: []string{}}, nil
	}
	if d.factory == nil {
		return Report{}, errors.New("classifier factory is required")
	}

	workers := make([]*worker.Worker, 0, len(chunks))
	acc := accumulator.New()
	for _, chunk := range chunks {
		chunkLogger := d.logger.With(zap.Int("chunk", chunk.Index))
		cls, err := d.factory(chunk.Index, chunkLogger)
		if err != nil {
			return Report{}, fmt.Errorf("build classifier for chunk %d: %w", chunk.Index, err)
		}
		workers = append(workers, worker.New(chunk, cls, acc, worker.Config{
			RunID:   d.opts.RunID,
			Emitter: d.opts.Emitter,
			Clock:   d.opts.Clock,
			Metrics: d.opts.Metrics,
		}, d.logger))
	}

	start := d.now()
	d.emitRun(progress.StageRunStart, len(urls), 0)
	d.logger.Info("dispatching",
		zap.Int("urls", len(urls)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", len(chunks[0].URLs)),
	)

	results := make([]worker.Result, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *worker.Worker) {
			defer wg.Done()
			results[i] = w.Run(ctx)
		}(i, w)
	}
	wg.Wait()

	var errs []error
	report := Report{}
	for _, res := range results {
		report.Processed += res.Processed
		report.Faults += res.Faults
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	report.Alive = acc.Snapshot()
	d.emitRun(progress.StageRunDone, report.Processed, d.now().Sub(start))
	d.logger.Info("dispatch finished",
		zap.Int("processed", report.Processed),
		zap.Int("alive", len(report.Alive)),
		zap.Int("faults", report.Faults),
	)
	return report, errors.Join(errs...)
}

func (d *Dispatcher) emitRun(stage progress.Stage, count int, dur time.Duration) {
	if d.opts.Emitter == nil {
		return
	}
	d.opts.Emitter.Emit(progress.Event{
		RunID: d.opts.RunID,
		TS:    d.now(),
		Stage: stage,
		Count: count,
		Dur:   dur,
	})
}

func (d *Dispatcher) now() time.Time {
	if d.opts.Clock == nil {
		return time.Now().UTC()
	}
	return d.opts.Clock.Now()
}
