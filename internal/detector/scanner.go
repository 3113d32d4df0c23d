// Package detector holds the cheap, fetch-only checks of the liveness
// pipeline: the soft-404 text heuristic and the redirect-to-homepage detector.
package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultPhrases is the soft-404 vocabulary searched for in headings and titles.
var DefaultPhrases = []string{
	"not found",
	"not exist",
	"don't exist",
	"can't be found",
	"invalid page",
	"invalid webpage",
	"invalid path",
}

// DefaultTags lists the elements scanned, in priority order.
var DefaultTags = []string{"h1", "h2", "h3", "title"}

// Match records which element and phrase tripped the scanner.
type Match struct {
	Tag    string
	Phrase string
	Text   string
}

// Scanner implements sweep.TextScanner using goquery.
type Scanner struct {
	phrases []string
	tags    []string
	logger  *zap.Logger
}

// NewScanner builds a Scanner. Empty phrase or tag lists fall back to the defaults.
func NewScanner(phrases, tags []string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := normalizePhrases(phrases)
	if len(p) == 0 {
		p = normalizePhrases(DefaultPhrases)
	}
	t := normalizeTags(tags)
	if len(t) == 0 {
		t = append([]string(nil), DefaultTags...)
	}
	return &Scanner{phrases: p, tags: t, logger: logger}
}

// Scan reports whether the HTML contains soft-404 language.
func (s *Scanner) Scan(html string) bool {
	_, ok := s.ScanMatch(html)
	return ok
}

// ScanMatch returns the first match found, scanning tags in priority order,
// elements in document order, and phrases in list order.
func (s *Scanner) ScanMatch(html string) (Match, bool) {
	if s == nil || strings.TrimSpace(html) == "" {
		return Match{}, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Debug("html parse failed; treating as no match", zap.Error(err))
		return Match{}, false
	}
	for _, tag := range s.tags {
		var (
			found Match
			ok    bool
		)
		doc.Find(tag).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.ToLower(sel.Text())
			for _, phrase := range s.phrases {
				if strings.Contains(text, phrase) {
					found = Match{Tag: tag, Phrase: phrase, Text: strings.TrimSpace(sel.Text())}
					ok = true
					return false
				}
			}
			return true
		})
		if ok {
			s.logger.Debug("bad text found", zap.String("tag", found.Tag), zap.String("phrase", found.Phrase))
			return found, true
		}
	}
	return Match{}, false
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
