// Package collyfetcher implements sweep.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxRedirects = 10
)

// ErrTooManyRedirects is returned when a redirect chain exceeds the configured cap.
var ErrTooManyRedirects = errors.New("too many redirects")

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
}

// Fetcher implements sweep.Fetcher using the Colly collector. A Fetcher owns
// its HTTP client and is meant to be used by a single worker at a time.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
	SetRedirectHandler(func(req *http.Request, via []*http.Request) error)
}

// New builds a Fetcher with its own transport and collector.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	// Error pages still carry a body worth scanning.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes a single HTTP GET, following redirects and recording every hop.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (sweep.FetchResult, error) {
	var (
		result   sweep.FetchResult
		hops     []sweep.RedirectHop
		fetchErr error
	)
	target := sweep.EnsureScheme(rawURL)
	start := time.Now()

	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, rawURL, start, &result, &hops, &fetchErr)

	if err := f.runCollector(ctx, collector, target, &fetchErr); err != nil {
		return sweep.FetchResult{}, err
	}
	result.Hops = hops
	f.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.String("final_url", result.FinalURL),
		zap.Int("status", result.StatusCode),
		zap.Int("hops", len(hops)),
		zap.Duration("dur", result.Duration),
	)
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	requestURL string,
	start time.Time,
	result *sweep.FetchResult,
	hops *[]sweep.RedirectHop,
	fetchErr *error,
) {
	hooks.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 {
			status := 0
			if req.Response != nil {
				status = req.Response.StatusCode
			}
			*hops = append(*hops, sweep.NewRedirectHop(via[len(via)-1].URL.String(), status))
		}
		if len(via) >= f.cfg.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects: %w", len(via), ErrTooManyRedirects)
		}
		return nil
	})

	hooks.OnResponse(func(r *colly.Response) {
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		finalURL := requestURL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		*result = sweep.FetchResult{
			RequestURL: requestURL,
			FinalURL:   finalURL,
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}
