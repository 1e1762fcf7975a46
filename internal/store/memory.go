package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"proxybrowser-go/internal/model"
)

// Memory is a process-local Store. Records are lost on restart; only the
// newest HistoryLimit history entries are retained.
type Memory struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64

	history   []model.HistoryEntry
	downloads []model.Download
	feedback  []model.Feedback
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// AddHistory records a visited page.
func (m *Memory) AddHistory(_ context.Context, in model.NewHistoryEntry) (*model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := model.HistoryEntry{ID: m.id(), URL: in.URL, Title: in.Title, Timestamp: m.now()}
	m.history = append(m.history, e)
	if n := len(m.history); n > HistoryLimit {
		m.history = slices.Clone(m.history[n-HistoryLimit:])
	}
	return &e, nil
}

// History returns up to HistoryLimit entries, newest first.
func (m *Memory) History(_ context.Context) ([]model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.history), nil
}

// AddDownload records a new download.
func (m *Memory) AddDownload(_ context.Context, in model.NewDownload) (*model.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := in.Status
	if status == "" {
		status = DefaultDownloadStatus
	}
	d := model.Download{
		ID:        m.id(),
		Filename:  in.Filename,
		URL:       in.URL,
		Status:    status,
		Progress:  in.Progress,
		Timestamp: m.now(),
	}
	m.downloads = append(m.downloads, d)
	return &d, nil
}

// Downloads returns every download, newest first.
func (m *Memory) Downloads(_ context.Context) ([]model.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.downloads), nil
}

// UpdateDownload sets the status, and the progress when given, of download id.
func (m *Memory) UpdateDownload(_ context.Context, id int64, in model.DownloadUpdate) (*model.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.downloads, func(d model.Download) bool { return d.ID == id })
	if i < 0 {
		return nil, ErrNotFound
	}
	d := &m.downloads[i]
	d.Status = in.Status
	if in.Progress != nil {
		d.Progress = *in.Progress
	}
	out := *d
	return &out, nil
}

// AddFeedback records user feedback.
func (m *Memory) AddFeedback(_ context.Context, in model.NewFeedback) (*model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := model.Feedback{ID: m.id(), Message: in.Message, Rating: in.Rating, Timestamp: m.now()}
	m.feedback = append(m.feedback, f)
	return &f, nil
}

func newestFirst[T any](s []T) []T {
	out := slices.Clone(s)
	slices.Reverse(out)
	if out == nil {
		out = []T{}
	}
	return out
}
