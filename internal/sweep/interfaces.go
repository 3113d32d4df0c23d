package sweep

import (
	"context"
	"time"
)

// Fetcher performs a plain GET with automatic redirect following.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResult, error)
}

// Renderer loads a URL in a headless browser scoped to the call.
type Renderer interface {
	Render(ctx context.Context, rawURL string) RenderOutcome
}

// TextScanner decides whether HTML carries soft-404 language.
type TextScanner interface {
	Scan(html string) bool
}

// RedirectDetector decides whether a redirect chain lands on the homepage.
type RedirectDetector interface {
	Detect(result FetchResult) bool
}

// RenderCheck runs the dynamic fallback and reports why it fired.
type RenderCheck interface {
	Check(ctx context.Context, rawURL string) (bool, Reason)
}

// Hasher computes digests used for duplicate-body detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
