package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Rod implements sweep.Renderer with go-rod, launching one browser per call.
type Rod struct {
	cfg    Config
	logger *zap.Logger
}

// NewRod creates a go-rod-backed renderer.
func NewRod(cfg Config, logger *zap.Logger) *Rod {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rod{cfg: cfg, logger: logger}
}

// Render launches a browser, navigates to rawURL, and returns the final URL and
// DOM. The page, the connection, and the browser process are released on every path.
func (r *Rod) Render(ctx context.Context, rawURL string) sweep.RenderOutcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.cfg.navTimeout())
	defer cancel()

	html, finalURL, err := r.run(ctx, sweep.EnsureScheme(rawURL))
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

func (r *Rod) run(ctx context.Context, target string) (string, string, error) {
	l := launcher.New().Context(ctx).Headless(true).Set("disable-gpu").Set("disable-dev-shm-usage")
	if r.cfg.ExecPath != "" {
		l = l.Bin(r.cfg.ExecPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return "", "", fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", "", fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			r.logger.Debug("browser close failed", zap.Error(cerr))
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", "", fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if r.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.cfg.UserAgent}); err != nil {
			return "", "", fmt.Errorf("set user-agent: %w", err)
		}
	}
	if err := page.Navigate(target); err != nil {
		return "", "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", "", fmt.Errorf("wait load: %w", err)
	}
	if r.cfg.Settle > 0 {
		if err := page.WaitDOMStable(r.cfg.Settle, 0.1); err != nil {
			return "", "", fmt.Errorf("wait dom stable: %w", err)
		}
	}
	info, err := page.Info()
	if err != nil {
		return "", "", fmt.Errorf("page info: %w", err)
	}
	html, err := page.HTML()
	if err != nil {
		return "", "", fmt.Errorf("page html: %w", err)
	}
	return html, info.URL, nil
}
