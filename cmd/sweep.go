package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/clock/system"
	"github.com/JakeFAU/soft404-sweeper/internal/config"
	"github.com/JakeFAU/soft404-sweeper/internal/dispatcher"
	idgen "github.com/JakeFAU/soft404-sweeper/internal/id/uuid"
	"github.com/JakeFAU/soft404-sweeper/internal/logging"
	"github.com/JakeFAU/soft404-sweeper/internal/metrics"
	"github.com/JakeFAU/soft404-sweeper/internal/notify"
	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/progress/sinks"
	"github.com/JakeFAU/soft404-sweeper/internal/publisher/pubsub"
	"github.com/JakeFAU/soft404-sweeper/internal/ratelimit"
	"github.com/JakeFAU/soft404-sweeper/internal/storage"
	"github.com/JakeFAU/soft404-sweeper/internal/storage/gcs"
	"github.com/JakeFAU/soft404-sweeper/internal/storage/local"
	"github.com/JakeFAU/soft404-sweeper/internal/urllist"
)

const shutdownTimeout = 10 * time.Second

// errInterrupted is returned when a signal stopped the run before every URL
// had a verdict. The output list is left untouched in that case.
var errInterrupted = errors.New("sweep interrupted before every url was checked")

func runSweep(ctx context.Context, v *viper.Viper, opts *options, stdout io.Writer) error {
	if opts.input == "" {
		return &usageError{err: errors.New("input file is required (-i)")}
	}
	if opts.output == "" {
		return &usageError{err: errors.New("output file is required (-o)")}
	}

	cfg, err := config.LoadWith(v, opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	lists := urllist.New(local.New(), func(ctx context.Context) (storage.Provider, error) {
		return gcs.Dial(ctx, logger.Named("gcs"))
	}, logger.Named("urllist"))
	defer func() {
		if err := lists.Close(); err != nil {
			logger.Warn("close url lists", zap.Error(err))
		}
	}()

	urls, err := lists.Read(ctx, opts.input)
	if err != nil {
		return &usageError{err: fmt.Errorf("cannot read input %q: %w", opts.input, err)}
	}
	if err := lists.Remove(ctx, opts.output); err != nil {
		return fmt.Errorf("clear output: %w", err)
	}

	clock := system.New()
	runID, err := idgen.New().NewRunID()
	if err != nil {
		return err
	}
	runLogger := logger.With(zap.String("run_id", uuid.UUID(runID).String()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorsSet, err := metrics.New(registry)
	if err != nil {
		return err
	}
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return err
	}
	tally := sinks.NewTallySink()
	hub := progress.NewHub(progress.Config{Logger: runLogger.Named("progress")},
		sinks.NewLogSink(runLogger.Named("progress")),
		promSink,
		tally,
	)

	started := clock.Now()
	runLogger.Info("sweep starting",
		zap.String("input", opts.input),
		zap.String("output", opts.output),
		zap.Int("urls", len(urls)),
		zap.Int("workers", cfg.Sweep.Workers),
		zap.Bool("render", cfg.Render.Enabled),
	)

	factory := newClassifierFactory(cfg, classifierEnv{
		runID:   runID,
		clock:   clock,
		emitter: hub,
		metrics: collectorsSet,
		limiter: ratelimit.New(ratelimit.Config{
			RPS:   cfg.HTTP.PerHostRPS,
			Burst: cfg.HTTP.PerHostBurst,
		}, collectorsSet.ObserveRateLimitDelay),
	})
	disp := dispatcher.New(factory, dispatcher.Options{
		RunID:   runID,
		Emitter: hub,
		Clock:   clock,
		Metrics: collectorsSet,
		Logger:  runLogger,
	})
	report, dispatchErr := disp.Run(ctx, urls, cfg.Sweep.Workers)
	alive := report.Alive
	interrupted := dispatchErr != nil && ctx.Err() != nil

	// The run context may already be canceled; finish bookkeeping on a fresh one.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := hub.Close(shutdownCtx); err != nil {
		runLogger.Warn("progress hub did not drain", zap.Error(err))
	}
	if dropped := hub.Dropped(); dropped > 0 {
		runLogger.Warn("verdict events dropped", zap.Int64("dropped", dropped))
	}
	finished := clock.Now()

	if dispatchErr != nil && !interrupted {
		return fmt.Errorf("dispatch: %w", dispatchErr)
	}
	if !interrupted {
		if err := lists.Write(shutdownCtx, opts.output, alive); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if err := metrics.WriteTextfile(opts.metricsFile, registry); err != nil {
		runLogger.Warn("metrics export failed", zap.Error(err))
	}

	summary := notify.NewSummary(uuid.UUID(runID).String(), tally.Snapshot(), started, finished)
	summary.Input = opts.input
	summary.Output = opts.output
	summary.Workers = cfg.Sweep.Workers
	summary.Interrupted = interrupted
	summary.Total = report.Processed
	summary.Alive = len(alive)
	summary.Dead = report.Processed - len(alive)
	summary.DroppedEvents = hub.Dropped()
	publishSummary(shutdownCtx, cfg.Notify, summary, runLogger)

	elapsed := finished.Sub(started)
	runLogger.Info("sweep finished",
		zap.Int("checked", report.Processed),
		zap.Int("alive", len(alive)),
		zap.Duration("elapsed", elapsed),
	)
	fmt.Fprintf(stdout, "Checked %d of %d URLs, %d alive\n", report.Processed, len(urls), len(alive))
	fmt.Fprintf(stdout, "Sweep time: %s\n", elapsed.Round(time.Millisecond))

	if interrupted {
		return errInterrupted
	}
	return nil
}

// publishSummary sends the run summary when a topic is configured. Failures
// are logged; the output list is already written by then.
func publishSummary(ctx context.Context, cfg config.NotifyConfig, s notify.Summary, logger *zap.Logger) {
	if cfg.Topic == "" {
		return
	}
	pub, err := pubsub.Dial(ctx, cfg.ProjectID, logger.Named("pubsub"))
	if err != nil {
		logger.Warn("run summary not published", zap.Error(err))
		return
	}
	n := notify.New(pub, cfg.Topic, logger)
	defer func() {
		if err := n.Close(); err != nil {
			logger.Warn("close notifier", zap.Error(err))
		}
	}()
	if err := n.Notify(ctx, s); err != nil {
		logger.Warn("run summary not published", zap.Error(err))
	}
}
