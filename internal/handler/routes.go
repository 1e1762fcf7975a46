package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proxybrowser-go/internal/config"
	"proxybrowser-go/internal/metrics"
	"proxybrowser-go/internal/rewrite"
)

// FetchPath is the route rewritten links point at.
const FetchPath = rewrite.FetchEndpoint

// RegisterRoutes wires all route handlers onto the Echo instance. Every
// route is registered once.
func RegisterRoutes(
	e *echo.Echo,
	cfg *config.Config,
	m *metrics.Metrics,
	proxy *ProxyHandler,
	search *SearchHandler,
	records *RecordsHandler,
	health *HealthHandler,
) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.GET(FetchPath, proxy.Fetch)

	api := e.Group("/api")
	api.POST("/proxy/search", search.Search)

	api.GET("/history", records.ListHistory)
	api.POST("/history", records.CreateHistory)
	api.GET("/downloads", records.ListDownloads)
	api.POST("/downloads", records.CreateDownload)
	api.PATCH("/downloads/:id", records.UpdateDownload)
	api.POST("/feedback", records.CreateFeedback)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
