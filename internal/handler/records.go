package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"proxybrowser-go/internal/model"
	"proxybrowser-go/internal/store"
)

// RecordsHandler serves history, downloads and feedback.
type RecordsHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewRecordsHandler creates a RecordsHandler.
func NewRecordsHandler(s store.Store, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{
		store:  s,
		logger: logger.With("component", "records_handler"),
	}
}

func (h *RecordsHandler) internalError(c echo.Context, op string, err error) error {
	h.logger.Error("store operation failed", "op", op, "err", err)
	return jsonMessage(c, http.StatusInternalServerError, "Internal server error")
}

// ListHistory returns the most recent history entries, newest first.
func (h *RecordsHandler) ListHistory(c echo.Context) error {
	entries, err := h.store.History(c.Request().Context())
	if err != nil {
		return h.internalError(c, "list_history", err)
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateHistory records a visited page.
func (h *RecordsHandler) CreateHistory(c echo.Context) error {
	var in model.NewHistoryEntry
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	entry, err := h.store.AddHistory(c.Request().Context(), in)
	if err != nil {
		return h.internalError(c, "create_history", err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// ListDownloads returns every download, newest first.
func (h *RecordsHandler) ListDownloads(c echo.Context) error {
	downloads, err := h.store.Downloads(c.Request().Context())
	if err != nil {
		return h.internalError(c, "list_downloads", err)
	}
	return c.JSON(http.StatusOK, downloads)
}

// CreateDownload records a new download.
func (h *RecordsHandler) CreateDownload(c echo.Context) error {
	var in model.NewDownload
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	d, err := h.store.AddDownload(c.Request().Context(), in)
	if err != nil {
		return h.internalError(c, "create_download", err)
	}
	return c.JSON(http.StatusCreated, d)
}

// UpdateDownload changes the status and progress of download :id.
func (h *RecordsHandler) UpdateDownload(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return jsonMessage(c, http.StatusBadRequest, "Invalid download id")
	}

	var in model.DownloadUpdate
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}

	d, err := h.store.UpdateDownload(c.Request().Context(), id, in)
	if errors.Is(err, store.ErrNotFound) {
		return jsonMessage(c, http.StatusNotFound, "Download not found")
	}
	if err != nil {
		return h.internalError(c, "update_download", err)
	}
	return c.JSON(http.StatusOK, d)
}

// CreateFeedback records user feedback.
func (h *RecordsHandler) CreateFeedback(c echo.Context) error {
	var in model.NewFeedback
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	f, err := h.store.AddFeedback(c.Request().Context(), in)
	if err != nil {
		return h.internalError(c, "create_feedback", err)
	}
	return c.JSON(http.StatusCreated, f)
}
