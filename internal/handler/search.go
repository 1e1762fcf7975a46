package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"proxybrowser-go/internal/search"
)

// SearchHandler serves the AI search endpoint.
type SearchHandler struct {
	searcher search.Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(c *search.Client, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: c,
		logger:   logger.With("component", "search_handler"),
	}
}

type searchRequest struct {
	Query string `json:"query" validate:"required,max=2048"`
}

// Search answers {"query": "..."} with {"answer": "...", "results": [...]}.
func (h *SearchHandler) Search(c echo.Context) error {
	var req searchRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ans, err := h.searcher.Search(c.Request().Context(), req.Query)
	if errors.Is(err, search.ErrDisabled) {
		return jsonMessage(c, http.StatusServiceUnavailable, "Search is not configured")
	}
	if err != nil {
		h.logger.Error("search failed", "err", err)
		return jsonMessage(c, http.StatusInternalServerError, "Search failed")
	}
	return c.JSON(http.StatusOK, ans)
}
