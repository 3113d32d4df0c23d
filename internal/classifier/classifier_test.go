package classifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/soft404-sweeper/internal/detector"
	"github.com/JakeFAU/soft404-sweeper/internal/hash/sha256"
	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

type fakeFetcher struct {
	results map[string]sweep.FetchResult
	errs    map[string]error
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (sweep.FetchResult, error) {
	f.calls++
	if err, ok := f.errs[rawURL]; ok {
		return sweep.FetchResult{}, err
	}
	res, ok := f.results[rawURL]
	if !ok {
		return sweep.FetchResult{}, errors.New("no such host")
	}
	if res.RequestURL == "" {
		res.RequestURL = rawURL
	}
	if res.FinalURL == "" {
		res.FinalURL = rawURL
	}
	if res.StatusCode == 0 {
		res.StatusCode = 200
	}
	return res, nil
}

type countingScanner struct {
	inner sweep.TextScanner
	calls int
}

func (s *countingScanner) Scan(html string) bool {
	s.calls++
	return s.inner.Scan(html)
}

type countingRedirect struct {
	inner sweep.RedirectDetector
	calls int
}

func (r *countingRedirect) Detect(res sweep.FetchResult) bool {
	r.calls++
	return r.inner.Detect(res)
}

type stubRender struct {
	dead   map[string]sweep.Reason
	calls  int
	called []string
}

func (r *stubRender) Check(_ context.Context, rawURL string) (bool, sweep.Reason) {
	r.calls++
	r.called = append(r.called, rawURL)
	reason, ok := r.dead[rawURL]
	return ok, reason
}

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *recordingEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

type harness struct {
	fetcher  *fakeFetcher
	scanner  *countingScanner
	redirect *countingRedirect
	render   *stubRender
	emitter  *recordingEmitter
	c        *Classifier
}

func newHarness(t *testing.T, cfg Config, results map[string]sweep.FetchResult) *harness {
	t.Helper()
	h := &harness{
		fetcher:  &fakeFetcher{results: results, errs: map[string]error{}},
		scanner:  &countingScanner{inner: detector.NewScanner(nil, nil, nil)},
		redirect: &countingRedirect{inner: detector.NewRedirectDetector(nil)},
		render:   &stubRender{dead: map[string]sweep.Reason{}},
		emitter:  &recordingEmitter{},
	}
	c, err := New(cfg, Deps{
		Fetcher:  h.fetcher,
		Redirect: h.redirect,
		Scanner:  h.scanner,
		Render:   h.render,
		Hasher:   sha256.New(),
		Clock:    &stepClock{now: time.Unix(1700000000, 0), step: 10 * time.Millisecond},
		Emitter:  h.emitter,
	}, [16]byte{1}, nil)
	require.NoError(t, err)
	h.c = c
	return h
}

func page(body string) sweep.FetchResult {
	return sweep.FetchResult{Body: []byte(body)}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, Deps{Hasher: sha256.New(), Clock: &stepClock{}}, [16]byte{1}, nil)
	require.ErrorContains(t, err, "fetcher")
	_, err = New(Config{}, Deps{Fetcher: &fakeFetcher{}, Clock: &stepClock{}}, [16]byte{1}, nil)
	require.ErrorContains(t, err, "hasher")
	_, err = New(Config{}, Deps{Fetcher: &fakeFetcher{}, Hasher: sha256.New()}, [16]byte{1}, nil)
	require.ErrorContains(t, err, "clock")
}

func TestClassifyRedirectToRoot(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/old-page": {
			FinalURL: "http://example.com/",
			Body:     []byte("<html><h1>Welcome</h1></html>"),
			Hops:     []sweep.RedirectHop{sweep.NewRedirectHop("http://example.com/", 301)},
		},
	})

	got := h.c.Classify(context.Background(), "http://example.com/old-page")
	require.Equal(t, sweep.Dead, got.Verdict)
	require.Equal(t, sweep.ReasonRedirect, got.Reason)
	require.Equal(t, 0, h.scanner.calls)
	require.Equal(t, 0, h.render.calls)
}

func TestClassifyStaticText(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/missing": page("<html><head><title>Oops</title></head><body><h1>Page Not Found</h1></body></html>"),
	})

	got := h.c.Classify(context.Background(), "http://example.com/missing")
	require.Equal(t, sweep.Dead, got.Verdict)
	require.Equal(t, sweep.ReasonStaticText, got.Reason)
	require.Equal(t, 0, h.render.calls)
}

func TestClassifyRenderFallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/spa/item/9": page("<html><body><div id=app></div></body></html>"),
	})
	h.render.dead["http://example.com/spa/item/9"] = sweep.ReasonRenderRedirect

	got := h.c.Classify(context.Background(), "http://example.com/spa/item/9")
	require.Equal(t, sweep.Dead, got.Verdict)
	require.Equal(t, sweep.ReasonRenderRedirect, got.Reason)
	require.Equal(t, 1, h.render.calls)
}

func TestClassifyPassesLivePage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/about": page("<html><h1>About us</h1></html>"),
	})

	got := h.c.Classify(context.Background(), "http://example.com/about")
	require.True(t, got.IsAlive())
	require.Equal(t, sweep.ReasonPassed, got.Reason)
	require.Equal(t, "http://example.com/about", got.URL)
	require.Equal(t, 10*time.Millisecond, got.Duration)
	require.Equal(t, 1, h.redirect.calls)
	require.Equal(t, 1, h.scanner.calls)
	require.Equal(t, 1, h.render.calls)
}

func TestClassifyDuplicateShortCircuits(t *testing.T) {
	t.Parallel()

	body := "<html><h1>Same shell</h1></html>"
	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/a": page(body),
		"http://example.com/b": page(body),
		"http://example.com/c": page("<html><h1>Different</h1></html>"),
	})
	ctx := context.Background()

	first := h.c.Classify(ctx, "http://example.com/a")
	require.Equal(t, sweep.ReasonPassed, first.Reason)

	second := h.c.Classify(ctx, "http://example.com/b")
	require.Equal(t, sweep.Alive, second.Verdict)
	require.Equal(t, sweep.ReasonDuplicate, second.Reason)

	third := h.c.Classify(ctx, "http://example.com/c")
	require.Equal(t, sweep.ReasonPassed, third.Reason)

	require.Equal(t, 3, h.fetcher.calls)
	require.Equal(t, 2, h.redirect.calls)
	require.Equal(t, 2, h.scanner.calls)
	require.Equal(t, []string{"http://example.com/a", "http://example.com/c"}, h.render.called)
}

func TestClassifyFirstEmptyBodyIsNotDuplicate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/empty": page(""),
	})

	got := h.c.Classify(context.Background(), "http://example.com/empty")
	require.Equal(t, sweep.ReasonPassed, got.Reason)
	require.Equal(t, 1, h.render.calls)
}

func TestResetForgetsPreviousBody(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/a": page("same"),
		"http://example.com/b": page("same"),
	})
	ctx := context.Background()

	h.c.Classify(ctx, "http://example.com/a")
	h.c.Reset()
	got := h.c.Classify(ctx, "http://example.com/b")
	require.Equal(t, sweep.ReasonPassed, got.Reason)
}

func TestClassifyFetchErrorPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want sweep.Verdict
	}{
		{name: "default is dead", cfg: Config{}, want: sweep.Dead},
		{name: "explicit dead", cfg: Config{FetchErrorVerdict: sweep.Dead}, want: sweep.Dead},
		{name: "alive when configured", cfg: Config{FetchErrorVerdict: sweep.Alive}, want: sweep.Alive},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.cfg, map[string]sweep.FetchResult{})
			h.fetcher.errs["http://down.example"] = errors.New("dial tcp: connection refused")

			got := h.c.Classify(context.Background(), "http://down.example")
			require.Equal(t, tt.want, got.Verdict)
			require.Equal(t, sweep.ReasonFetchError, got.Reason)
			require.Contains(t, got.Detail, "connection refused")
			require.Equal(t, 0, h.redirect.calls)
			require.Equal(t, 0, h.scanner.calls)
			require.Equal(t, 0, h.render.calls)
		})
	}
}

func TestClassifyHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	results := map[string]sweep.FetchResult{
		"http://example.com/gone": {StatusCode: 404, Body: []byte("<html><h1>Gone fishing</h1></html>")},
	}

	strict := newHarness(t, Config{HTTPErrorsAreFailures: true}, results)
	got := strict.c.Classify(context.Background(), "http://example.com/gone")
	require.Equal(t, sweep.Dead, got.Verdict)
	require.Equal(t, sweep.ReasonFetchError, got.Reason)
	require.Contains(t, got.Detail, "404")

	lenient := newHarness(t, Config{}, results)
	got = lenient.c.Classify(context.Background(), "http://example.com/gone")
	require.Equal(t, sweep.ReasonPassed, got.Reason)
}

func TestFetchErrorClearsDuplicateMemory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://example.com/a": page("shell"),
		"http://example.com/c": page("shell"),
	})
	h.fetcher.errs["http://example.com/b"] = errors.New("timeout")
	ctx := context.Background()

	h.c.Classify(ctx, "http://example.com/a")
	h.c.Classify(ctx, "http://example.com/b")
	got := h.c.Classify(ctx, "http://example.com/c")
	require.Equal(t, sweep.ReasonPassed, got.Reason)
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	results := map[string]sweep.FetchResult{
		"http://example.com/1": page("<h1>one</h1>"),
		"http://example.com/2": page("<title>Invalid page</title>"),
		"http://example.com/3": page("<h2>three</h2>"),
	}
	urls := []string{"http://example.com/1", "http://example.com/2", "http://example.com/3"}

	run := func() []sweep.Classification {
		h := newHarness(t, Config{}, results)
		out := make([]sweep.Classification, 0, len(urls))
		for _, u := range urls {
			c := h.c.Classify(context.Background(), u)
			out = append(out, sweep.Classification{URL: c.URL, Verdict: c.Verdict, Reason: c.Reason})
		}
		return out
	}
	require.Equal(t, run(), run())
}

func TestClassifyEmitsVerdictEvents(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, map[string]sweep.FetchResult{
		"http://www.example.com/x": page("<h1>can't be found</h1>"),
	})
	h.c.Classify(context.Background(), "http://www.example.com/x")

	require.Len(t, h.emitter.events, 1)
	evt := h.emitter.events[0]
	require.NoError(t, evt.Validate())
	require.Equal(t, progress.StageVerdict, evt.Stage)
	require.Equal(t, "example.com", evt.Site)
	require.Equal(t, sweep.Dead, evt.Verdict)
	require.Equal(t, sweep.ReasonStaticText, evt.Reason)
	require.Equal(t, [16]byte{1}, evt.RunID)
}
