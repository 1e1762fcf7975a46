package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"proxybrowser-go/internal/config"
	"proxybrowser-go/internal/metrics"
	"proxybrowser-go/internal/middleware"
	"proxybrowser-go/internal/model"
	"proxybrowser-go/internal/resolver"
	"proxybrowser-go/internal/search"
	"proxybrowser-go/internal/service"
	"proxybrowser-go/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubFetcher returns a fixed upstream response whose final URL is the
// requested one, and remembers the last target.
type stubFetcher struct {
	resp   model.UpstreamResponse
	err    error
	target *url.URL
}

func (f *stubFetcher) Fetch(_ context.Context, target *url.URL) (*model.UpstreamResponse, error) {
	f.target = target
	if f.err != nil {
		return nil, f.err
	}
	resp := f.resp
	resp.FinalURL = target
	return &resp, nil
}

// stubSearcher returns a fixed answer or error.
type stubSearcher struct {
	ans   *search.Answer
	err   error
	query string
}

func (s *stubSearcher) Search(_ context.Context, query string) (*search.Answer, error) {
	s.query = query
	return s.ans, s.err
}

type testApp struct {
	e        *echo.Echo
	cfg      *config.Config
	store    *store.Memory
	searcher *stubSearcher
}

// newTestApp builds the full route table with the same middleware the
// server uses for response headers, around the given fetcher.
func newTestApp(t *testing.T, f service.Fetcher) *testApp {
	t.Helper()
	cfg := &config.Config{
		Search:  config.SearchConfig{APIKey: "sk-test", Model: "gpt-4o"},
		Store:   config.StoreConfig{Driver: "memory"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	m := metrics.New()
	logger := testLogger()

	svc := service.NewProxyService(resolver.New(""), f, m, logger)
	mem := store.NewMemory()
	searcher := &stubSearcher{}

	e := echo.New()
	e.Validator = NewValidator()
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		Skipper:      middleware.SkipPrefixes(FetchPath),
		FrameOptions: "DENY",
	}))

	RegisterRoutes(e, cfg, m,
		NewProxyHandler(svc, logger),
		&SearchHandler{searcher: searcher, logger: logger},
		NewRecordsHandler(mem, logger),
		NewHealthHandler(cfg, "test"),
	)
	return &testApp{e: e, cfg: cfg, store: mem, searcher: searcher}
}

func (a *testApp) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}
