package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"proxybrowser-go/internal/client"
	"proxybrowser-go/internal/config"
	"proxybrowser-go/internal/metrics"
	"proxybrowser-go/internal/model"
	"proxybrowser-go/internal/resolver"
	"proxybrowser-go/internal/rewrite"
)

// stubFetcher answers every fetch with a fixed response, reporting the
// requested URL as the final URL.
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, m *metrics.Metrics) *ProxyService {
	t.Helper()
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:  10,
			IdleConnections: 10,
			MaxRedirects:    5,
		},
	}
	c := client.NewUpstreamClient(cfg, testLogger(), m)
	return NewProxyService(resolver.New(""), c, m, testLogger())
}

// counterValue returns the value of counter name, restricted to the series
// whose classification label equals class when class is not empty.
func counterValue(t *testing.T, m *metrics.Metrics, name, class string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if class == "" {
				return metric.GetCounter().GetValue()
			}
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "classification" && lp.GetValue() == class {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestFilterResponseHeaders(t *testing.T) {
	src := http.Header{
		"Content-Type":            {"text/html; charset=utf-8"},
		"Content-Length":          {"42"},
		"Content-Encoding":        {"gzip"},
		"X-Frame-Options":         {"DENY"},
		"Content-Security-Policy": {"frame-ancestors 'none'"},
		"Set-Cookie":              {"a=1", "b=2"},
		"Cache-Control":           {"no-cache"},
		"Vary":                    {"Accept-Encoding", "Cookie"},
	}
	// Non-canonical keys as a map literal can carry them.
	src["frame-options"] = []string{"SAMEORIGIN"}
	src["x-custom"] = []string{"kept"}

	dst := FilterResponseHeaders(src)

	tests := []struct {
		name string
		key  string
		want []string
	}{
		{"Content-Type forwarded", "Content-Type", []string{"text/html; charset=utf-8"}},
		{"Set-Cookie multiplicity kept", "Set-Cookie", []string{"a=1", "b=2"}},
		{"Vary order kept", "Vary", []string{"Accept-Encoding", "Cookie"}},
		{"Cache-Control forwarded", "Cache-Control", []string{"no-cache"}},
		{"Content-Length stripped", "Content-Length", nil},
		{"Content-Encoding stripped", "Content-Encoding", nil},
		{"X-Frame-Options stripped", "X-Frame-Options", nil},
		{"Content-Security-Policy stripped", "Content-Security-Policy", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dst.Values(tt.key)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("header %q = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if _, ok := dst["frame-options"]; ok {
		t.Error("lower-case frame-options should be stripped")
	}
	if got := dst["x-custom"]; len(got) != 1 || got[0] != "kept" {
		t.Errorf("x-custom = %q, want [kept]", got)
	}
	if len(src["Set-Cookie"]) != 2 || src.Get("X-Frame-Options") != "DENY" {
		t.Error("source header was modified")
	}
}

func TestFilterResponseHeaders_Empty(t *testing.T) {
	if got := FilterResponseHeaders(nil); len(got) != 0 {
		t.Errorf("FilterResponseHeaders(nil) = %v, want empty", got)
	}
}

func TestFetch_RewritesHTML(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Frame-Options", "DENY")
		_, _ = io.WriteString(w, `<html><head></head><body><a href="/about">About</a><a href="#top">Top</a></body></html>`)
	}))
	defer upstream.Close()

	m := metrics.New()
	svc := newTestService(t, m)

	res, err := svc.Fetch(context.Background(), upstream.URL+"/index.html")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if !res.Rewritten {
		t.Error("Rewritten = false, want true")
	}
	if res.Header.Get("X-Frame-Options") != "" {
		t.Error("X-Frame-Options should be stripped")
	}

	body := string(res.Body)
	wantBase := `<head><base href="` + upstream.URL + `/">`
	if !strings.Contains(body, wantBase) {
		t.Errorf("body missing %q: %s", wantBase, body)
	}
	wantLink := `href="/api/proxy/fetch?url=` + strings.ReplaceAll(strings.ReplaceAll(upstream.URL, ":", "%3A"), "/", "%2F") + `%2Fabout"`
	if !strings.Contains(body, wantLink) {
		t.Errorf("body missing %q: %s", wantLink, body)
	}
	if !strings.Contains(body, `href="#top"`) {
		t.Errorf("fragment link should be untouched: %s", body)
	}

	if got := counterValue(t, m, "proxybrowser_pages_rewritten_total", ""); got != 1 {
		t.Errorf("pages rewritten = %v, want 1", got)
	}
	if got := counterValue(t, m, "proxybrowser_links_rewritten_total", "root_relative"); got != 1 {
		t.Errorf("root_relative links = %v, want 1", got)
	}
	if got := counterValue(t, m, "proxybrowser_links_rewritten_total", "skip"); got != 1 {
		t.Errorf("skip links = %v, want 1", got)
	}
}

func TestFetch_UsesOriginAfterRedirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<head></head>`)
	}))
	defer final.Close()

	start := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/landing", http.StatusFound)
	}))
	defer start.Close()

	svc := newTestService(t, nil)
	res, err := svc.Fetch(context.Background(), start.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := `<head><base href="` + final.URL + `/"></head>`
	if string(res.Body) != want {
		t.Errorf("body = %q, want %q", res.Body, want)
	}
}

func TestFetch_NonHTMLPassthrough(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\n<a href=\"/x\">")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Add("Link", "</a>; rel=preload")
		w.Header().Add("Link", "</b>; rel=preload")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(payload)
	}))
	defer upstream.Close()

	svc := newTestService(t, nil)
	res, err := svc.Fetch(context.Background(), upstream.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if res.Rewritten {
		t.Error("Rewritten = true for a non-HTML body")
	}
	if string(res.Body) != string(payload) {
		t.Errorf("body = %q, want %q", res.Body, payload)
	}
	if res.StatusCode != http.StatusPartialContent {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, http.StatusPartialContent)
	}
	if got := res.Header.Values("Link"); len(got) != 2 {
		t.Errorf("Link values = %q, want 2", got)
	}
}

func TestFetch_UpstreamErrorStatusMirrored(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	svc := newTestService(t, nil)
	res, err := svc.Fetch(context.Background(), upstream.URL+"/missing")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestFetch_ResolveErrors(t *testing.T) {
	svc := newTestService(t, nil)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", resolver.ErrMissingURL},
		{"whitespace", "  ", resolver.ErrMissingURL},
		{"no host", "http://", resolver.ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Fetch(context.Background(), tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Fetch(%q) error = %v, want %v", tt.raw, err, tt.want)
			}
		})
	}
}

func TestFetch_Unreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	svc := newTestService(t, nil)
	_, err := svc.Fetch(context.Background(), addr)
	if !errors.Is(err, client.ErrFetchFailure) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailure", err)
	}
}

func TestFetch_ScenarioRootRelative(t *testing.T) {
	f := &stubFetcher{resp: model.UpstreamResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/html"}},
		Body:       []byte(`<a href="/about">About</a><a href="#section">S</a>`),
	}}
	svc := NewProxyService(resolver.New(""), f, nil, testLogger())

	res, err := svc.Fetch(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if f.target.String() != "https://example.com" {
		t.Errorf("fetched %q, want %q", f.target, "https://example.com")
	}

	want := `<a href="/api/proxy/fetch?url=https%3A%2F%2Fexample.com%2Fabout">About</a><a href="#section">S</a>`
	if string(res.Body) != want {
		t.Errorf("body = %q, want %q", res.Body, want)
	}
}

func TestFetch_ContentTypeCaseInsensitive(t *testing.T) {
	f := &stubFetcher{resp: model.UpstreamResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"Text/HTML; charset=ISO-8859-1"}},
		Body:       []byte(`<a href="x">x</a>`),
	}}
	svc := NewProxyService(resolver.New(""), f, nil, testLogger())

	res, err := svc.Fetch(context.Background(), "https://example.com/dir/page")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := `<a href="/api/proxy/fetch?url=https%3A%2F%2Fexample.com%2Fx">x</a>`
	if string(res.Body) != want {
		t.Errorf("body = %q, want %q", res.Body, want)
	}
}

func TestFetch_XHTMLNotRewritten(t *testing.T) {
	body := []byte(`<a href="/x">x</a>`)
	f := &stubFetcher{resp: model.UpstreamResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/xhtml+xml"}},
		Body:       body,
	}}
	svc := NewProxyService(resolver.New(""), f, nil, testLogger())

	res, err := svc.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Rewritten || string(res.Body) != string(body) {
		t.Errorf("body = %q, Rewritten = %v; want untouched", res.Body, res.Rewritten)
	}
}

func TestFetch_FetcherErrorPassedThrough(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	f := &stubFetcher{err: fmt.Errorf("%w: %w", client.ErrFetchFailure, cause)}
	svc := NewProxyService(resolver.New(""), f, nil, testLogger())

	_, err := svc.Fetch(context.Background(), "example.com")
	if !errors.Is(err, client.ErrFetchFailure) || !errors.Is(err, cause) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailure wrapping the cause", err)
	}
}

func TestNewProxyService_ExportsEveryClassification(t *testing.T) {
	m := metrics.New()
	_ = NewProxyService(resolver.New(""), &stubFetcher{}, m, testLogger())

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	seen := map[string]bool{}
	for _, f := range families {
		if f.GetName() != "proxybrowser_links_rewritten_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "classification" {
					seen[lp.GetValue()] = true
				}
			}
		}
	}
	for _, class := range rewrite.Classifications() {
		if !seen[class.String()] {
			t.Errorf("series for classification %q not exported", class)
		}
	}
}

func TestFetch_SearchFallback(t *testing.T) {
	f := &stubFetcher{resp: model.UpstreamResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte("results"),
	}}
	svc := NewProxyService(resolver.New(""), f, nil, testLogger())

	if _, err := svc.Fetch(context.Background(), "hello world"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := "https://www.google.com/search?q=hello%20world"
	if f.target.String() != want {
		t.Errorf("fetched %q, want %q", f.target, want)
	}
}
