// Package store keeps the browsing records: visited pages, downloads and
// user feedback.
package store

import (
	"context"
	"errors"

	"proxybrowser-go/internal/model"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// HistoryLimit is the number of entries History returns.
const HistoryLimit = 100

// DefaultDownloadStatus is assigned to downloads created without a status.
const DefaultDownloadStatus = "pending"

// Store is the persistence collaborator used by the records handlers.
// Lists are returned newest first.
type Store interface {
	AddHistory(ctx context.Context, in model.NewHistoryEntry) (*model.HistoryEntry, error)
	History(ctx context.Context) ([]model.HistoryEntry, error)

	AddDownload(ctx context.Context, in model.NewDownload) (*model.Download, error)
	Downloads(ctx context.Context) ([]model.Download, error)
	UpdateDownload(ctx context.Context, id int64, in model.DownloadUpdate) (*model.Download, error)

	AddFeedback(ctx context.Context, in model.NewFeedback) (*model.Feedback, error)
}
