package model

import "time"

// HistoryEntry is a visited page.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHistoryEntry is the body accepted by the history endpoint.
type NewHistoryEntry struct {
	URL   string `json:"url" validate:"required,max=8192"`
	Title string `json:"title" validate:"max=1024"`
}

// Download tracks a file the browsing surface is saving.
type Download struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDownload is the body accepted when a download starts.
type NewDownload struct {
	Filename string `json:"filename" validate:"required,max=1024"`
	URL      string `json:"url" validate:"required,max=8192"`
	Status   string `json:"status" validate:"omitempty,oneof=pending downloading completed failed cancelled"`
	Progress int    `json:"progress" validate:"min=0,max=100"`
}

// DownloadUpdate changes the status of an existing download.
// A nil Progress leaves the stored value untouched.
type DownloadUpdate struct {
	Status   string `json:"status" validate:"required,oneof=pending downloading completed failed cancelled"`
	Progress *int   `json:"progress" validate:"omitempty,min=0,max=100"`
}

// Feedback is a user-submitted note about the browser.
type Feedback struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFeedback is the body accepted by the feedback endpoint.
type NewFeedback struct {
	Message string `json:"message" validate:"required,max=4096"`
	Rating  int    `json:"rating" validate:"omitempty,min=1,max=5"`
}
