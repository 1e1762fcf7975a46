package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"proxybrowser-go/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id        BIGSERIAL PRIMARY KEY,
	url       TEXT NOT NULL,
	title     TEXT NOT NULL DEFAULT '',
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS downloads (
	id        BIGSERIAL PRIMARY KEY,
	filename  TEXT NOT NULL,
	url       TEXT NOT NULL,
	status    TEXT NOT NULL DEFAULT 'pending',
	progress  INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS feedback (
	id        BIGSERIAL PRIMARY KEY,
	message   TEXT NOT NULL,
	rating    INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool for dsn. Connections are established lazily;
// call Migrate to verify connectivity and create the tables.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (p *Postgres) Close() {
	p.pool.Close()
}

// AddHistory records a visited page.
func (p *Postgres) AddHistory(ctx context.Context, in model.NewHistoryEntry) (*model.HistoryEntry, error) {
	var e model.HistoryEntry
	err := p.pool.QueryRow(ctx,
		`INSERT INTO history (url, title) VALUES ($1, $2)
		 RETURNING id, url, title, timestamp`,
		in.URL, in.Title,
	).Scan(&e.ID, &e.URL, &e.Title, &e.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("store: insert history: %w", err)
	}
	return &e, nil
}

// History returns up to HistoryLimit entries, newest first.
func (p *Postgres) History(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, url, title, timestamp FROM history
		 ORDER BY timestamp DESC, id DESC LIMIT $1`, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.HistoryEntry, error) {
		var e model.HistoryEntry
		err := row.Scan(&e.ID, &e.URL, &e.Title, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan history: %w", err)
	}
	return entries, nil
}

// AddDownload records a new download.
func (p *Postgres) AddDownload(ctx context.Context, in model.NewDownload) (*model.Download, error) {
	status := in.Status
	if status == "" {
		status = DefaultDownloadStatus
	}
	var d model.Download
	err := p.pool.QueryRow(ctx,
		`INSERT INTO downloads (filename, url, status, progress) VALUES ($1, $2, $3, $4)
		 RETURNING id, filename, url, status, progress, timestamp`,
		in.Filename, in.URL, status, in.Progress,
	).Scan(&d.ID, &d.Filename, &d.URL, &d.Status, &d.Progress, &d.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("store: insert download: %w", err)
	}
	return &d, nil
}

// Downloads returns every download, newest first.
func (p *Postgres) Downloads(ctx context.Context) ([]model.Download, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, filename, url, status, progress, timestamp FROM downloads
		 ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: query downloads: %w", err)
	}
	downloads, err := pgx.CollectRows(rows, scanDownload)
	if err != nil {
		return nil, fmt.Errorf("store: scan downloads: %w", err)
	}
	return downloads, nil
}

// UpdateDownload sets the status, and the progress when given, of download id.
func (p *Postgres) UpdateDownload(ctx context.Context, id int64, in model.DownloadUpdate) (*model.Download, error) {
	rows, err := p.pool.Query(ctx,
		`UPDATE downloads SET status = $1, progress = COALESCE($2, progress)
		 WHERE id = $3
		 RETURNING id, filename, url, status, progress, timestamp`,
		in.Status, in.Progress, id,
	)
	if err != nil {
		return nil, fmt.Errorf("store: update download: %w", err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDownload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: update download: %w", err)
	}
	return &d, nil
}

// AddFeedback records user feedback.
func (p *Postgres) AddFeedback(ctx context.Context, in model.NewFeedback) (*model.Feedback, error) {
	var f model.Feedback
	err := p.pool.QueryRow(ctx,
		`INSERT INTO feedback (message, rating) VALUES ($1, $2)
		 RETURNING id, message, rating, timestamp`,
		in.Message, in.Rating,
	).Scan(&f.ID, &f.Message, &f.Rating, &f.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("store: insert feedback: %w", err)
	}
	return &f, nil
}

func scanDownload(row pgx.CollectableRow) (model.Download, error) {
	var d model.Download
	err := row.Scan(&d.ID, &d.Filename, &d.URL, &d.Status, &d.Progress, &d.Timestamp)
	return d, err
}
