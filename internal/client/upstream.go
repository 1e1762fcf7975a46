// Package client provides the outbound HTTP client used to fetch proxied pages.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"proxybrowser-go/internal/config"
	"proxybrowser-go/internal/metrics"
	"proxybrowser-go/internal/model"
)

// ErrFetchFailure wraps every transport-level failure of an upstream fetch.
var ErrFetchFailure = errors.New("fetch failure")

// Browser-like request headers sent with every fetch.
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	acceptLanguage = "en-US,en;q=0.9"
)

// UpstreamClient fetches pages on behalf of callers. It is built once at
// startup and shared by all requests; nothing in it is mutated afterwards.
type UpstreamClient struct {
	httpClient   *http.Client
	maxBodyBytes int64
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	maxRedirects := cfg.Upstream.MaxRedirects
	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if maxRedirects > 0 && len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		maxBodyBytes: cfg.Upstream.MaxBodyBytes,
		logger:       logger.With("component", "upstream_client"),
		metrics:      m,
	}
}

// Fetch issues a single GET against target, following redirects, and returns
// the final response with its body fully read. The context controls the
// lifetime of the fetch: when the caller disconnects the fetch is canceled.
func (c *UpstreamClient) Fetch(ctx context.Context, target *url.URL) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetchFailure, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)

	c.logger.Debug("upstream request", "host", target.Host, "path", target.Path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, "error")
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readBody(resp.Body)
	if err != nil {
		c.observe(start, "error")
		return nil, fmt.Errorf("%w: read body: %w", ErrFetchFailure, err)
	}
	c.observe(start, strconv.Itoa(resp.StatusCode))

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		FinalURL:   resp.Request.URL,
		Body:       body,
	}, nil
}

// readBody reads at most maxBodyBytes; a larger body is an error rather than
// a silently truncated page.
func (c *UpstreamClient) readBody(r io.Reader) ([]byte, error) {
	if c.maxBodyBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, c.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

func (c *UpstreamClient) observe(start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(http.MethodGet).Observe(time.Since(start).Seconds())
	c.metrics.UpstreamResponses.WithLabelValues(http.MethodGet, status).Inc()
}
