package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medley/models"
)

// ErrNotFound is returned when no cache row exists for a user.
var ErrNotFound = errors.New("database: not found")

// RecCacheRepository persists one recommendation result per user. The row is
// replaced wholesale on write; concurrent writers race benignly and the last
// one wins.
type RecCacheRepository struct {
	db *sql.DB
}

func NewRecCacheRepository(db *sql.DB) *RecCacheRepository {
	return &RecCacheRepository{db: db}
}

// Get returns the stored entry for userID, or ErrNotFound.
func (r *RecCacheRepository) Get(userID string) (*models.RecCacheEntry, error) {
	var (
		hash      string
		resultsJS string
		updatedAt time.Time
	)
	err := r.db.QueryRow(
		`SELECT favorites_hash, results, updated_at FROM rec_cache WHERE user_id = ?`,
		userID,
	).Scan(&hash, &resultsJS, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rec cache: %w", err)
	}

	var results []models.MediaItem
	if err := json.Unmarshal([]byte(resultsJS), &results); err != nil {
		return nil, fmt.Errorf("failed to decode cached results: %w", err)
	}
	return &models.RecCacheEntry{
		FavoritesHash: hash,
		Results:       results,
		UpdatedAt:     updatedAt,
	}, nil
}

// Put upserts the entry for userID.
func (r *RecCacheRepository) Put(userID string, entry models.RecCacheEntry) error {
	resultsJS, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO rec_cache (user_id, favorites_hash, results, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   favorites_hash = excluded.favorites_hash,
		   results = excluded.results,
		   updated_at = excluded.updated_at`,
		userID, entry.FavoritesHash, string(resultsJS), entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rec cache: %w", err)
	}
	return nil
}

// Delete removes the entry for userID. Deleting an absent row is not an error.
func (r *RecCacheRepository) Delete(userID string) error {
	if _, err := r.db.Exec(`DELETE FROM rec_cache WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete rec cache entry: %w", err)
	}
	return nil
}
