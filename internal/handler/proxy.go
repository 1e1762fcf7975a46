package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"proxybrowser-go/internal/resolver"
	"proxybrowser-go/internal/service"
)

// ProxyHandler serves the fetch endpoint.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Fetch proxies the page named by the url query parameter. The upstream
// status and filtered headers are mirrored; nothing is written until the
// whole body is available, so a failed fetch never leaves a partial response.
//
// An upstream header replaces any value middleware already set under the
// same name (X-Request-Id, for one). Headers the upstream did not send are
// kept. When the upstream sent no Content-Type, one is detected from the
// body with mimetype.
func (h *ProxyHandler) Fetch(c echo.Context) error {
	res, err := h.service.Fetch(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		return h.mapError(c, err)
	}

	header := c.Response().Header()
	for key, vals := range res.Header {
		header.Del(key)
		for _, v := range vals {
			header.Add(key, v)
		}
	}
	if header.Get(echo.HeaderContentType) == "" {
		header.Set(echo.HeaderContentType, mimetype.Detect(res.Body).String())
	}

	c.Response().WriteHeader(res.StatusCode)
	if _, err := c.Response().Write(res.Body); err != nil {
		h.logger.Warn("writing response body",
			"err", err,
			"status", res.StatusCode,
		)
	}
	return nil
}

// mapError turns a service error into the plain-text response of the fetch
// endpoint. Every upstream failure is a 500; the reason is only logged.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, resolver.ErrMissingURL):
		return c.String(http.StatusBadRequest, "URL is required")
	case errors.Is(err, resolver.ErrInvalidURL):
		return c.String(http.StatusBadRequest, "Invalid URL")
	}

	h.logger.Error("fetch failed",
		"err", err,
		"reason", failureReason(err),
	)
	return c.String(http.StatusInternalServerError, "Error fetching url: "+err.Error())
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "client disconnected"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "host unreachable"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection failed"
	}
	return "upstream error"
}
