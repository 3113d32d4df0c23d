// Package headless contains the render-and-scan fallback and the browser
// engines that back it.
package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

const defaultNavigationTimeout = 30 * time.Second

// Config controls the behavior of the browser engines.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// Settle is an extra pause after the body is ready so client-side
	// redirects get a chance to run.
	Settle time.Duration
	// ExecPath overrides the browser binary; empty uses the engine's lookup.
	ExecPath string
}

func (c Config) navTimeout() time.Duration {
	if c.NavigationTimeout > 0 {
		return c.NavigationTimeout
	}
	return defaultNavigationTimeout
}

// Chromedp implements sweep.Renderer with a fresh headless Chrome per call.
type Chromedp struct {
	cfg    Config
	logger *zap.Logger
}

// NewChromedp creates a chromedp-backed renderer.
func NewChromedp(cfg Config, logger *zap.Logger) *Chromedp {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chromedp{cfg: cfg, logger: logger}
}

// Render launches a browser, navigates to rawURL, and returns the final URL and
// DOM. The browser process is torn down before Render returns on every path.
func (c *Chromedp) Render(ctx context.Context, rawURL string) sweep.RenderOutcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.navTimeout())
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	html, finalURL, err := c.run(taskCtx, sweep.EnsureScheme(rawURL))
	if err != nil {
		return failedOutcome(ctx, err, time.Since(start))
	}
	return sweep.RenderOutcome{
		Status:   sweep.RenderSuccess,
		FinalURL: finalURL,
		HTML:     html,
		Duration: time.Since(start),
	}
}

func (c *Chromedp) run(ctx context.Context, target string) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{c.userAgentAction()}
	actions = append(actions,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if c.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(c.cfg.Settle))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (c *Chromedp) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if c.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(c.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// failedOutcome maps an engine error onto TimedOut or NavigationFailed.
func failedOutcome(ctx context.Context, err error, dur time.Duration) sweep.RenderOutcome {
	status := sweep.RenderNavigationFailed
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		status = sweep.RenderTimedOut
	}
	return sweep.RenderOutcome{Status: status, Err: err, Duration: dur}
}
