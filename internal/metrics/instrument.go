package metrics

import (
	"context"
	"time"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// InstrumentFetcher wraps next so every Fetch is recorded in c.
func InstrumentFetcher(next sweep.Fetcher, c *Collectors) sweep.Fetcher {
	if c == nil {
		return next
	}
	return &instrumentedFetcher{next: next, c: c}
}

type instrumentedFetcher struct {
	next sweep.Fetcher
	c    *Collectors
}

func (f *instrumentedFetcher) Fetch(ctx context.Context, rawURL string) (sweep.FetchResult, error) {
	start := time.Now()
	res, err := f.next.Fetch(ctx, rawURL)
	f.c.ObserveFetch(res, err, time.Since(start))
	return res, err
}

// InstrumentRenderer wraps next so every Render outcome is recorded in c.
func InstrumentRenderer(next sweep.Renderer, c *Collectors) sweep.Renderer {
	if c == nil {
		return next
	}
	return &instrumentedRenderer{next: next, c: c}
}

type instrumentedRenderer struct {
	next sweep.Renderer
	c    *Collectors
}

func (r *instrumentedRenderer) Render(ctx context.Context, rawURL string) sweep.RenderOutcome {
	outcome := r.next.Render(ctx, rawURL)
	r.c.ObserveRender(outcome)
	return outcome
}
