// Package cache records which remote sources have been downloaded, where the
// local copy lives, and the ETag the server returned for it.
package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Entry is one cached download.
type Entry struct {
	URL       string
	Path      string
	ETag      string
	Size      int64
	FetchedAt time.Time
}

// Manifest is a SQLite-backed index of cached downloads.
type Manifest struct {
	db *sql.DB
}

const manifestMigration = `
CREATE TABLE IF NOT EXISTS downloads (
	url        TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	etag       TEXT NOT NULL DEFAULT '',
	size       INTEGER NOT NULL DEFAULT 0,
	fetched_at DATETIME NOT NULL
);
`

// Open opens (or creates) the manifest database at dsn, switches it to WAL
// mode and applies the schema.
func Open(ctx context.Context, dsn string) (*Manifest, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, manifestMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "cache: migrate")
	}
	return &Manifest{db: db}, nil
}

// Close releases the database handle.
func (m *Manifest) Close() error {
	return m.db.Close()
}

// Get returns the entry for url, or nil when it has never been cached.
func (m *Manifest) Get(ctx context.Context, url string) (*Entry, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT url, path, etag, size, fetched_at FROM downloads WHERE url = ?`, url)

	var e Entry
	err := row.Scan(&e.URL, &e.Path, &e.ETag, &e.Size, &e.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: get %s", url)
	}
	return &e, nil
}

// Put inserts or replaces the entry keyed by e.URL. A zero FetchedAt is
// stamped with the current time.
func (m *Manifest) Put(ctx context.Context, e Entry) error {
	if e.URL == "" {
		return eris.New("cache: entry has empty url")
	}
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now().UTC()
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO downloads (url, path, etag, size, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			path = excluded.path,
			etag = excluded.etag,
			size = excluded.size,
			fetched_at = excluded.fetched_at`,
		e.URL, e.Path, e.ETag, e.Size, e.FetchedAt,
	)
	return eris.Wrapf(err, "cache: put %s", e.URL)
}

// Delete removes the entry for url. Deleting a missing entry is not an error.
func (m *Manifest) Delete(ctx context.Context, url string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM downloads WHERE url = ?`, url)
	return eris.Wrapf(err, "cache: delete %s", url)
}

// List returns every entry ordered by URL.
func (m *Manifest) List(ctx context.Context) ([]Entry, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT url, path, etag, size, fetched_at FROM downloads ORDER BY url`)
	if err != nil {
		return nil, eris.Wrap(err, "cache: list")
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.URL, &e.Path, &e.ETag, &e.Size, &e.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "cache: scan entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "cache: iterate entries")
}
