package sweep

import (
	"net/http"
	"time"
)

// Verdict is the outcome of classifying one URL.
type Verdict string

// Verdict values.
const (
	Alive Verdict = "ALIVE"
	Dead  Verdict = "DEAD"
)

// Reason names the check that settled a verdict.
type Reason string

// Reasons recorded alongside every verdict.
const (
	ReasonDuplicate      Reason = "duplicate"
	ReasonRedirect       Reason = "redirect"
	ReasonStaticText     Reason = "static_text"
	ReasonRenderRedirect Reason = "render_redirect"
	ReasonRenderText     Reason = "render_text"
	ReasonFetchError     Reason = "fetch_error"
	ReasonFault          Reason = "fault"
	ReasonPassed         Reason = "passed"
)

// Classification pairs a URL with its verdict and the reason behind it.
type Classification struct {
	URL      string
	Verdict  Verdict
	Reason   Reason
	Duration time.Duration
	// Detail carries low-volume diagnostics such as the matched phrase.
	Detail string
}

// IsAlive reports whether the URL survived every check.
func (c Classification) IsAlive() bool {
	return c.Verdict == Alive
}

// RedirectHop is one intermediate response in a redirect chain.
type RedirectHop struct {
	// URL is the address that answered with a redirect.
	URL        string
	StatusCode int
	Permanent  bool
	Temporary  bool
}

// IsRedirect reports whether the hop was flagged as any kind of redirect.
func (h RedirectHop) IsRedirect() bool {
	return h.Permanent || h.Temporary
}

// NewRedirectHop classifies a redirect status into permanent or temporary.
func NewRedirectHop(url string, status int) RedirectHop {
	hop := RedirectHop{URL: url, StatusCode: status}
	switch status {
	case http.StatusMovedPermanently, http.StatusPermanentRedirect:
		hop.Permanent = true
	case http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		hop.Temporary = true
	}
	return hop
}

// FetchResult is the outcome of one plain (non-rendered) GET.
type FetchResult struct {
	RequestURL string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Hops       []RedirectHop
	Duration   time.Duration
}

// RenderStatus describes how a headless navigation ended.
type RenderStatus string

// Render statuses.
const (
	RenderSuccess          RenderStatus = "success"
	RenderTimedOut         RenderStatus = "timed_out"
	RenderNavigationFailed RenderStatus = "navigation_failed"
)

// RenderOutcome is the result of one headless browser navigation.
type RenderOutcome struct {
	Status   RenderStatus
	FinalURL string
	HTML     string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the page rendered.
func (o RenderOutcome) Succeeded() bool {
	return o.Status == RenderSuccess
}

// ChunkAssignment is a contiguous slice of the input owned by one worker.
type ChunkAssignment struct {
	Index int
	URLs  []string
}
