// Package classifier runs the per-URL liveness state machine: duplicate-body
// short circuit, redirect anomaly check, static text scan, then the render
// fallback, cheapest first.
package classifier

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Config controls how fetch failures are settled.
type Config struct {
	// FetchErrorVerdict is applied when the plain GET fails. Defaults to Dead.
	FetchErrorVerdict sweep.Verdict
	// HTTPErrorsAreFailures treats 4xx/5xx final responses as fetch failures.
	HTTPErrorsAreFailures bool
}

// Deps groups the collaborators a Classifier needs.
type Deps struct {
	Fetcher  sweep.Fetcher
	Redirect sweep.RedirectDetector
	Scanner  sweep.TextScanner
	Render   sweep.RenderCheck
	Hasher   sweep.Hasher
	Clock    sweep.Clock
	Emitter  progress.Emitter
}

// Classifier decides ALIVE or DEAD for one URL at a time. It remembers the
// previous response body, so an instance belongs to exactly one chunk worker.
type Classifier struct {
	cfg    Config
	deps   Deps
	runID  [16]byte
	logger *zap.Logger

	prevDigest string
	hasPrev    bool
}

// New creates a Classifier.
func New(cfg Config, deps Deps, runID [16]byte, logger *zap.Logger) (*Classifier, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if deps.Hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.FetchErrorVerdict == "" {
		cfg.FetchErrorVerdict = sweep.Dead
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{cfg: cfg, deps: deps, runID: runID, logger: logger}, nil
}

// Reset forgets the previous response body.
func (c *Classifier) Reset() {
	c.prevDigest = ""
	c.hasPrev = false
}

// Classify runs every check against rawURL and returns its verdict.
func (c *Classifier) Classify(ctx context.Context, rawURL string) sweep.Classification {
	start := c.deps.Clock.Now()
	c.logger.Debug("checking url", zap.String("url", rawURL))

	result := c.evaluate(ctx, rawURL)
	result.URL = rawURL
	result.Duration = c.deps.Clock.Now().Sub(start)

	c.emit(result)
	if result.IsAlive() {
		c.logger.Debug("url found legit", zap.String("url", rawURL), zap.String("reason", string(result.Reason)))
	} else {
		c.logger.Debug("url rejected", zap.String("url", rawURL), zap.String("reason", string(result.Reason)))
	}
	return result
}

func (c *Classifier) evaluate(ctx context.Context, rawURL string) sweep.Classification {
	res, err := c.deps.Fetcher.Fetch(ctx, rawURL)
	if err == nil && c.cfg.HTTPErrorsAreFailures && res.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("http status %d", res.StatusCode)
	}
	if err != nil {
		c.Reset()
		c.logger.Info("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return sweep.Classification{
			Verdict: c.cfg.FetchErrorVerdict,
			Reason:  sweep.ReasonFetchError,
			Detail:  err.Error(),
		}
	}

	if c.isDuplicate(res.Body) {
		c.logger.Debug("same page detected; skipping", zap.String("url", rawURL))
		return sweep.Classification{Verdict: sweep.Alive, Reason: sweep.ReasonDuplicate}
	}

	if c.deps.Redirect != nil && c.deps.Redirect.Detect(res) {
		return sweep.Classification{Verdict: sweep.Dead, Reason: sweep.ReasonRedirect, Detail: res.FinalURL}
	}

	if c.deps.Scanner != nil && c.deps.Scanner.Scan(string(res.Body)) {
		return sweep.Classification{Verdict: sweep.Dead, Reason: sweep.ReasonStaticText}
	}

	if c.deps.Render != nil {
		if dead, reason := c.deps.Render.Check(ctx, rawURL); dead {
			return sweep.Classification{Verdict: sweep.Dead, Reason: reason}
		}
	}

	return sweep.Classification{Verdict: sweep.Alive, Reason: sweep.ReasonPassed}
}

// isDuplicate compares body against the previous body and remembers it.
func (c *Classifier) isDuplicate(body []byte) bool {
	digest, err := c.deps.Hasher.Hash(body)
	if err != nil {
		c.logger.Warn("hash body failed", zap.Error(err))
		c.Reset()
		return false
	}
	dup := c.hasPrev && digest == c.prevDigest
	c.prevDigest = digest
	c.hasPrev = true
	return dup
}

func (c *Classifier) emit(result sweep.Classification) {
	if c.deps.Emitter == nil {
		return
	}
	c.deps.Emitter.Emit(progress.Event{
		RunID:   c.runID,
		TS:      c.deps.Clock.Now(),
		Stage:   progress.StageVerdict,
		Site:    progress.SiteOf(result.URL),
		URL:     result.URL,
		Verdict: result.Verdict,
		Reason:  result.Reason,
		Dur:     result.Duration,
		Note:    result.Detail,
	})
}
