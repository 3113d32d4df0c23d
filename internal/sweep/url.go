package sweep

import (
	"net/url"
	"strings"
)

// EnsureScheme prefixes scheme-less input lines with http:// so clients can dial them.
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + strings.TrimPrefix(raw, "//")
}

// IsRootURL reports whether the URL's path is the site root ("" or "/").
// Query and fragment are ignored, so a hash route on the root page counts.
func IsRootURL(raw string) bool {
	u, err := url.Parse(EnsureScheme(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Path == "" || u.Path == "/"
}

// SameURL reports whether a and b name the same page once the scheme is
// filled in and trailing slashes or '#' are trimmed.
func SameURL(a, b string) bool {
	return trimTail(EnsureScheme(a)) == trimTail(EnsureScheme(b))
}

func trimTail(raw string) string {
	return strings.TrimRight(raw, "/#")
}
