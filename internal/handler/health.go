package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"proxybrowser-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	SearchEnabled bool   `json:"search_enabled"`
	SearchModel   string `json:"search_model"`
	Store         string `json:"store"`
	Metrics       bool   `json:"metrics"`
}

// Status reports the build version and which optional features are active.
// Secrets such as the search API key are never included.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:        "ok",
		Version:       string(h.version),
		SearchEnabled: h.cfg.Search.APIKey != "",
		SearchModel:   h.cfg.Search.Model,
		Store:         h.cfg.Store.Driver,
		Metrics:       h.cfg.Metrics.Enabled,
	})
}
