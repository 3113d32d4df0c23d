package headless

import (
	"context"
	"errors"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// ErrRendererDisabled indicates rendering has been disabled via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

// Disabled implements sweep.Renderer for runs without a browser. Every
// navigation fails, so the fallback never proves a page dead.
type Disabled struct{}

// NewDisabled creates a Disabled renderer.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Render always reports a failed navigation.
func (Disabled) Render(context.Context, string) sweep.RenderOutcome {
	return sweep.RenderOutcome{Status: sweep.RenderNavigationFailed, Err: ErrRendererDisabled}
}
