// Package resolver turns the untrusted target typed by a user into the
// absolute URL the proxy will fetch.
package resolver

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"proxybrowser-go/internal/config"
	"proxybrowser-go/internal/urlutil"
)

var (
	// ErrMissingURL is returned for an empty or all-whitespace target.
	ErrMissingURL = errors.New("URL is required")
	// ErrInvalidURL is returned when the candidate is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")
)

// DefaultSearchURL is the search fallback prefix; the escaped query is appended.
const DefaultSearchURL = "https://www.google.com/search?q="

// Target is a resolved, absolute http or https URL.
type Target struct {
	URL *url.URL
	// Search is true when the raw input was treated as a search query.
	Search bool

	raw string
}

// String returns the candidate URL exactly as it was built from the input.
func (t *Target) String() string {
	return t.raw
}

// Origin returns scheme://host[:port] of the target.
func (t *Target) Origin() string {
	return urlutil.Origin(t.URL)
}

// Resolver applies the target heuristics with a configurable search engine.
type Resolver struct {
	searchURL string
}

// New creates a Resolver that sends free text to searchURL.
// An empty searchURL selects DefaultSearchURL.
func New(searchURL string) *Resolver {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &Resolver{searchURL: searchURL}
}

// NewFromConfig creates a Resolver from the [resolver] config section.
func NewFromConfig(cfg *config.Config) *Resolver {
	return New(cfg.Resolver.SearchURL)
}

var defaultResolver = New(DefaultSearchURL)

// Resolve resolves raw with the default search engine.
func Resolve(raw string) (*Target, error) {
	return defaultResolver.Resolve(raw)
}

// Resolve normalizes raw into a Target. The rules are a heuristic, not a
// DNS or format check:
//   - input starting with http:// or https:// (any case) is used verbatim;
//   - input with a '.' and no whitespace is a bare host and gets https://;
//   - anything else becomes a search query.
func (r *Resolver) Resolve(raw string) (*Target, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingURL
	}

	candidate, search := r.candidate(raw)

	u, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, candidate)
	}

	return &Target{URL: u, Search: search, raw: candidate}, nil
}

func (r *Resolver) candidate(raw string) (string, bool) {
	switch {
	case hasPrefixFold(raw, "http://"), hasPrefixFold(raw, "https://"):
		return raw, false
	case strings.Contains(raw, ".") && !containsSpace(raw):
		return "https://" + raw, false
	default:
		return r.searchURL + urlutil.EscapeComponent(raw), true
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func containsSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
