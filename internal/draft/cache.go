package draft

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache is the durable local slot for in-progress drafts. One row per
// user, always overwritten with the complete serialized draft, so a
// process restart mid-edit loses nothing.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the SQLite draft cache at dir/drafts.db.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "drafts.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening draft cache: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS draft_cache (
		user_id    INTEGER PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating draft cache table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Load returns the cached draft payload for the user, if any.
func (c *Cache) Load(userID int) ([]byte, bool, error) {
	var payload string
	err := c.db.QueryRow(
		`SELECT payload FROM draft_cache WHERE user_id = ?`, userID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// Store overwrites the user's slot with the complete serialized draft.
func (c *Cache) Store(userID int, payload []byte) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO draft_cache (user_id, payload) VALUES (?, ?)`,
		userID, string(payload),
	)
	return err
}

// Clear removes the user's slot. Clearing an absent slot is not an error.
func (c *Cache) Clear(userID int) error {
	_, err := c.db.Exec(`DELETE FROM draft_cache WHERE user_id = ?`, userID)
	return err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
