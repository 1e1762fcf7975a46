// Package service implements the core proxy forwarding logic.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"proxybrowser-go/internal/metrics"
	"proxybrowser-go/internal/model"
	"proxybrowser-go/internal/resolver"
	"proxybrowser-go/internal/rewrite"
	"proxybrowser-go/internal/urlutil"
)

// blockedResponseHeaders are never forwarded to the caller. The first two
// no longer describe the body once it has been decoded or rewritten; the
// rest would stop the page from rendering inside a frame.
var blockedResponseHeaders = map[string]bool{
	"Content-Encoding":        true,
	"Content-Length":          true,
	"X-Frame-Options":         true,
	"Content-Security-Policy": true,
	"Frame-Options":           true,
}

// FilterResponseHeaders returns a copy of src without the blocked headers.
// Names are compared case-insensitively; every other header keeps all of its
// values in their original order.
func FilterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if blockedResponseHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}

// Fetcher retrieves a single upstream page. Errors wrap
// client.ErrFetchFailure.
type Fetcher interface {
	Fetch(ctx context.Context, target *url.URL) (*model.UpstreamResponse, error)
}

// ProxyService resolves, fetches, filters and rewrites one page per call.
type ProxyService struct {
	resolver *resolver.Resolver
	fetcher  Fetcher
	rewriter *rewrite.Rewriter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewProxyService creates a ProxyService around the shared upstream fetcher,
// normally a *client.UpstreamClient. The metrics parameter is optional.
func NewProxyService(r *resolver.Resolver, f Fetcher, m *metrics.Metrics, logger *slog.Logger) *ProxyService {
	if m != nil {
		// Export every classification from the first scrape, zero or not.
		for _, class := range rewrite.Classifications() {
			m.LinksRewritten.WithLabelValues(class.String())
		}
	}
	return &ProxyService{
		resolver: r,
		fetcher:  f,
		rewriter: rewrite.Default,
		metrics:  m,
		logger:   logger.With("component", "proxy_service"),
	}
}

// Fetch resolves raw, fetches it and returns what should be sent back.
//
// Errors are resolver.ErrMissingURL and resolver.ErrInvalidURL for bad input
// and client.ErrFetchFailure when the upstream could not be reached. HTML
// bodies have their links rewritten against the origin of the final,
// post-redirect URL; all other bodies pass through untouched.
func (s *ProxyService) Fetch(ctx context.Context, raw string) (*model.ProxyResult, error) {
	target, err := s.resolver.Resolve(raw)
	if err != nil {
		return nil, err
	}

	if target.Search {
		s.logger.Debug("input is not a URL, using search fallback", "target", target.String())
	}

	up, err := s.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return nil, err
	}

	result := &model.ProxyResult{
		StatusCode: up.StatusCode,
		Header:     FilterResponseHeaders(up.Header),
		Body:       up.Body,
	}
	if !up.IsHTML() {
		return result, nil
	}

	origin := target.Origin()
	if up.FinalURL != nil {
		origin = urlutil.Origin(up.FinalURL)
	}

	body, stats, err := s.rewriter.Rewrite(up.Body, origin)
	if err != nil {
		s.logger.Warn("rewrite failed, forwarding original body",
			"origin", origin,
			"error", err,
		)
		return result, nil
	}
	result.Body = body
	result.Rewritten = true
	s.observe(stats)

	s.logger.Debug("rewrote page",
		"origin", origin,
		"status", up.StatusCode,
		"links", stats.Rewritten(),
		"base_injected", stats.BaseInjected,
	)
	return result, nil
}

func (s *ProxyService) observe(stats rewrite.Stats) {
	if s.metrics == nil {
		return
	}
	s.metrics.PagesRewritten.Inc()
	for class, n := range stats.Links {
		s.metrics.LinksRewritten.WithLabelValues(class.String()).Add(float64(n))
	}
}
