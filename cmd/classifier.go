package cmd

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/classifier"
	"github.com/JakeFAU/soft404-sweeper/internal/config"
	"github.com/JakeFAU/soft404-sweeper/internal/detector"
	"github.com/JakeFAU/soft404-sweeper/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/soft404-sweeper/internal/fetcher/colly"
	"github.com/JakeFAU/soft404-sweeper/internal/fetcher/headless"
	"github.com/JakeFAU/soft404-sweeper/internal/hash/sha256"
	"github.com/JakeFAU/soft404-sweeper/internal/metrics"
	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/ratelimit"
	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
	"github.com/JakeFAU/soft404-sweeper/internal/worker"
)

// classifierEnv carries the run-scoped collaborators shared by all chunks.
type classifierEnv struct {
	runID   [16]byte
	clock   sweep.Clock
	emitter progress.Emitter
	metrics *metrics.Collectors
	limiter *ratelimit.Limiter
}

// newClassifierFactory returns a factory that gives every chunk its own HTTP
// client and browser engine.
func newClassifierFactory(cfg config.Config, env classifierEnv) dispatcher.ClassifierFactory {
	return func(_ int, logger *zap.Logger) (worker.Classifier, error) {
		fetcher := collyfetcher.New(collyfetcher.Config{
			UserAgent:    cfg.HTTP.UserAgent,
			Timeout:      cfg.HTTP.Timeout(),
			MaxRedirects: cfg.HTTP.MaxRedirects,
		}, logger.Named("fetcher"))
		scanner := detector.NewScanner(cfg.Detector.Phrases, cfg.Detector.Tags, logger.Named("scanner"))

		var render sweep.RenderCheck
		if cfg.Render.Enabled {
			renderer, err := headless.NewRenderer(cfg.Render.Engine, headless.Config{
				UserAgent:         cfg.HTTP.UserAgent,
				NavigationTimeout: cfg.Render.Timeout(),
				Settle:            cfg.Render.Settle(),
				ExecPath:          cfg.Render.ExecPath,
			}, logger.Named("render"))
			if err != nil {
				return nil, err
			}
			render = headless.NewFallback(metrics.InstrumentRenderer(renderer, env.metrics), scanner, logger.Named("render"))
		}

		c, err := classifier.New(classifier.Config{
			FetchErrorVerdict:     cfg.Classifier.Verdict(),
			HTTPErrorsAreFailures: cfg.Classifier.HTTPErrorsAreFailures,
		}, classifier.Deps{
			Fetcher:  metrics.InstrumentFetcher(env.limiter.Fetcher(fetcher), env.metrics),
			Redirect: detector.NewRedirectDetector(logger.Named("redirect")),
			Scanner:  scanner,
			Render:   render,
			Hasher:   sha256.New(),
			Clock:    env.clock,
			Emitter:  env.emitter,
		}, env.runID, logger.Named("classifier"))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
