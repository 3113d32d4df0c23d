package headless

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Engine names accepted by NewRenderer.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// NewRenderer picks a browser engine by name.
func NewRenderer(engine string, cfg Config, logger *zap.Logger) (sweep.Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineChromedp:
		return NewChromedp(cfg, logger), nil
	case EngineRod:
		return NewRod(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}

// Fallback is the dynamic render-and-scan check. It proves a page dead when
// the rendered document lands on the site root or carries soft-404 language.
type Fallback struct {
	renderer sweep.Renderer
	scanner  sweep.TextScanner
	logger   *zap.Logger
}

// NewFallback wires a renderer to the text scanner.
func NewFallback(renderer sweep.Renderer, scanner sweep.TextScanner, logger *zap.Logger) *Fallback {
	if renderer == nil {
		renderer = NewDisabled()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{renderer: renderer, scanner: scanner, logger: logger}
}

// Check renders rawURL and reports whether it is provably dead. Unrenderable
// pages are never reported dead.
func (f *Fallback) Check(ctx context.Context, rawURL string) (bool, sweep.Reason) {
	outcome := f.renderer.Render(ctx, rawURL)
	if !outcome.Succeeded() {
		f.logger.Debug("render did not complete; page may be down",
			zap.String("url", rawURL),
			zap.String("status", string(outcome.Status)),
			zap.Duration("dur", outcome.Duration),
			zap.Error(outcome.Err),
		)
		return false, ""
	}

	if redirectedToRoot(rawURL, outcome.FinalURL) {
		f.logger.Debug("client-side redirect to root",
			zap.String("url", rawURL),
			zap.String("final_url", outcome.FinalURL),
		)
		return true, sweep.ReasonRenderRedirect
	}

	if f.scanner != nil && f.scanner.Scan(outcome.HTML) {
		return true, sweep.ReasonRenderText
	}
	return false, ""
}

// redirectedToRoot is true when the browser ended on a different URL whose
// path is the site root.
func redirectedToRoot(requested, final string) bool {
	if final == "" || sweep.SameURL(requested, final) {
		return false
	}
	return sweep.IsRootURL(final)
}
