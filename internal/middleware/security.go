package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// hopByHopHeaders are request headers that only apply to a single connection.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// SecurityConfig configures SecurityHeadersWithConfig.
type SecurityConfig struct {
	// Skipper selects requests whose response headers are left alone.
	// Hop-by-hop request headers are stripped regardless.
	Skipper echomw.Skipper
	// FrameOptions is the X-Frame-Options value; empty omits the header.
	FrameOptions string
}

// DefaultSecurityConfig applies to every route.
var DefaultSecurityConfig = SecurityConfig{
	Skipper:      echomw.DefaultSkipper,
	FrameOptions: "DENY",
}

// SecurityHeaders returns SecurityHeadersWithConfig(DefaultSecurityConfig).
func SecurityHeaders() echo.MiddlewareFunc {
	return SecurityHeadersWithConfig(DefaultSecurityConfig)
}

// SecurityHeadersWithConfig returns an Echo middleware that strips hop-by-hop
// request headers and sets security headers on responses that are not skipped.
// Headers are set before the handler runs so they are present once the
// handler writes the status line.
func SecurityHeadersWithConfig(cfg SecurityConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, h := range hopByHopHeaders {
				c.Request().Header.Del(h)
			}

			if !cfg.Skipper(c) {
				h := c.Response().Header()
				h.Set(echo.HeaderXContentTypeOptions, "nosniff")
				if cfg.FrameOptions != "" {
					h.Set(echo.HeaderXFrameOptions, cfg.FrameOptions)
				}
			}

			return next(c)
		}
	}
}

// SkipPrefixes returns a Skipper matching request paths that equal one of
// prefixes or continue it with a '/'.
func SkipPrefixes(prefixes ...string) echomw.Skipper {
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		for _, prefix := range prefixes {
			if p == prefix || strings.HasPrefix(p, prefix+"/") {
				return true
			}
		}
		return false
	}
}
