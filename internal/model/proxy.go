// Package model defines shared types for the proxy.
package model

import (
	"net/http"
	"net/url"
	"strings"
)

// UpstreamResponse is a fully buffered response from a proxied site.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	// FinalURL is the URL actually fetched after redirects.
	FinalURL *url.URL
	Body     []byte
}

// ContentType returns the upstream Content-Type header value.
func (r *UpstreamResponse) ContentType() string {
	return r.Header.Get("Content-Type")
}

// IsHTML reports whether the upstream declared an HTML payload.
func (r *UpstreamResponse) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType()), "text/html")
}

// ProxyResult is what the emitter writes back to the caller.
type ProxyResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Rewritten  bool
}
