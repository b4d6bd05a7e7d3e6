// Package history persists watch progress in a small SQLite database,
// one row per (anime, episode) pair.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hibiki/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	anime_id       TEXT NOT NULL,
	anime_title    TEXT NOT NULL,
	episode_id     TEXT NOT NULL,
	episode_number REAL NOT NULL,
	position       REAL NOT NULL,
	duration       REAL NOT NULL,
	updated_at     INTEGER NOT NULL,
	PRIMARY KEY (anime_id, episode_id)
);
`

// Store wraps the progress database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or updates the progress row for the entry's episode.
func (s *Store) Save(entry media.HistoryEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (anime_id, anime_title, episode_id, episode_number, position, duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (anime_id, episode_id) DO UPDATE SET
			anime_title    = excluded.anime_title,
			episode_number = excluded.episode_number,
			position       = excluded.position,
			duration       = excluded.duration,
			updated_at     = excluded.updated_at`,
		entry.AnimeID, entry.Title, entry.EpisodeID, entry.Episode,
		entry.Position, entry.Duration, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Load returns all entries, most recently watched first.
func (s *Store) Load() ([]media.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT anime_id, anime_title, episode_id, episode_number, position, duration
		FROM progress
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var e media.HistoryEntry
		if err := rows.Scan(&e.AnimeID, &e.Title, &e.EpisodeID, &e.Episode, &e.Position, &e.Duration); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the most recent entry for the given anime, if any.
func (s *Store) Latest(animeID string) (media.HistoryEntry, bool, error) {
	var e media.HistoryEntry
	err := s.db.QueryRow(`
		SELECT anime_id, anime_title, episode_id, episode_number, position, duration
		FROM progress
		WHERE anime_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, animeID).
		Scan(&e.AnimeID, &e.Title, &e.EpisodeID, &e.Episode, &e.Position, &e.Duration)
	if err == sql.ErrNoRows {
		return media.HistoryEntry{}, false, nil
	}
	if err != nil {
		return media.HistoryEntry{}, false, fmt.Errorf("reading history: %w", err)
	}
	return e, true, nil
}

// Remove deletes the progress row for one episode.
func (s *Store) Remove(animeID, episodeID string) error {
	_, err := s.db.Exec(`DELETE FROM progress WHERE anime_id = ? AND episode_id = ?`, animeID, episodeID)
	if err != nil {
		return fmt.Errorf("removing history entry: %w", err)
	}
	return nil
}

// Clear wipes the whole store.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM progress`)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// FormatForDisplay renders entries as single-line picker items.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	var items []string
	for _, e := range entries {
		display := fmt.Sprintf("%s Ep. %g", e.Title, e.Episode)
		if e.Position > 0 && e.Duration > 0 {
			pct := (e.Position / e.Duration) * 100
			display += fmt.Sprintf(" [%.0f%%]", pct)
		}
		items = append(items, display)
	}
	return items
}
