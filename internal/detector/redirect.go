package detector

import (
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// RedirectDetector flags redirect chains that quietly bounce to the site root.
type RedirectDetector struct {
	logger *zap.Logger
}

// NewRedirectDetector creates a RedirectDetector.
func NewRedirectDetector(logger *zap.Logger) *RedirectDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectDetector{logger: logger}
}

// Detect reports whether any redirect hop is one of the homepage variants of
// the final URL's host.
func (d *RedirectDetector) Detect(result sweep.FetchResult) bool {
	if len(result.Hops) == 0 {
		return false
	}
	candidates := HomepageVariants(hostname(result.FinalURL))
	if len(candidates) == 0 {
		return false
	}
	for _, hop := range result.Hops {
		if !hop.IsRedirect() {
			continue
		}
		if _, ok := candidates[hop.URL]; ok {
			d.logger.Debug("bad redirect found",
				zap.String("url", result.RequestURL),
				zap.String("hop", hop.URL),
				zap.Int("status", hop.StatusCode),
			)
			return true
		}
	}
	return false
}

// HomepageVariants returns the seven literal spellings of a host's root page.
func HomepageVariants(host string) map[string]struct{} {
	if host == "" {
		return nil
	}
	variants := []string{
		host,
		"http://" + host,
		"https://" + host,
		"http://" + host + "/",
		"https://" + host + "/",
		"http://" + host + "/#",
		"https://" + host + "/#",
	}
	out := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		out[v] = struct{}{}
	}
	return out
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
