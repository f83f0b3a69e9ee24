// Package history records past extractions in a SQLite database so a page
// can be found again without re-running the browser.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hlsgrab/internal/config"
	"hlsgrab/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	webpage_url  TEXT NOT NULL,
	manifest_url TEXT NOT NULL,
	formats      INTEGER NOT NULL DEFAULT 0,
	extracted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extractions_extracted_at ON extractions(extracted_at);
`

// Store is the extraction history database.
type Store struct {
	db *sql.DB
}

// Open opens the history database at the default XDG location.
func Open() (*Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(path)
}

// OpenPath opens or creates the history database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One writer at a time; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records an extraction, replacing any earlier entry with the same ID.
func (s *Store) Save(info *media.Info, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO extractions (id, title, webpage_url, manifest_url, formats, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			webpage_url = excluded.webpage_url,
			manifest_url = excluded.manifest_url,
			formats = excluded.formats,
			extracted_at = excluded.extracted_at`,
		info.ID, info.Title, info.WebpageURL, info.ManifestURL, len(info.Formats), at.Unix())
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Load returns all entries, most recent first.
func (s *Store) Load() ([]media.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, title, webpage_url, manifest_url, formats, extracted_at
		FROM extractions
		ORDER BY extracted_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var e media.HistoryEntry
		var at int64
		if err := rows.Scan(&e.ID, &e.Title, &e.WebpageURL, &e.ManifestURL, &e.Formats, &at); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.ExtractedAt = time.Unix(at, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return entries, nil
}

// Remove deletes one entry. Removing an unknown ID is not an error.
func (s *Store) Remove(id string) error {
	if _, err := s.db.Exec(`DELETE FROM extractions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing history entry: %w", err)
	}
	return nil
}

// Clear deletes every entry.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM extractions`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// FormatForDisplay creates display strings for history listings.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, fmt.Sprintf("%s  %s  %s  (%d formats)  %s",
			e.ExtractedAt.Format("2006-01-02 15:04"), e.ID, e.Title, e.Formats, e.WebpageURL))
	}
	return items
}
