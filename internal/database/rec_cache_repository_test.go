package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"medley/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecCachePutGet(t *testing.T) {
	db := newTestDB(t)

	entry := models.RecCacheEntry{
		FavoritesHash: "abc123",
		Results: []models.MediaItem{
			{ID: "27205", Type: models.MediaTypeMovie, Title: "Inception", Year: 2010},
			{ID: "1396", Type: models.MediaTypeTV, Title: "Breaking Bad", Year: 2008},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := db.RecCache.Put("user-1", entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := db.RecCache.Get("user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FavoritesHash != "abc123" {
		t.Errorf("hash = %q, want abc123", got.FavoritesHash)
	}
	if len(got.Results) != 2 || got.Results[0].Title != "Inception" {
		t.Errorf("unexpected results: %+v", got.Results)
	}
}

func TestRecCacheGetMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.RecCache.Get("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecCacheUpsertReplaces(t *testing.T) {
	db := newTestDB(t)

	first := models.RecCacheEntry{FavoritesHash: "h1", Results: []models.MediaItem{{ID: "1", Type: models.MediaTypeGame, Title: "Portal"}}, UpdatedAt: time.Now()}
	second := models.RecCacheEntry{FavoritesHash: "h2", Results: []models.MediaItem{{ID: "2", Type: models.MediaTypeBook, Title: "Dune"}}, UpdatedAt: time.Now()}

	if err := db.RecCache.Put("user-1", first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := db.RecCache.Put("user-1", second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := db.RecCache.Get("user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FavoritesHash != "h2" || len(got.Results) != 1 || got.Results[0].Title != "Dune" {
		t.Errorf("expected last write to win, got %+v", got)
	}
}

func TestRecCacheDelete(t *testing.T) {
	db := newTestDB(t)

	entry := models.RecCacheEntry{FavoritesHash: "h", Results: nil, UpdatedAt: time.Now()}
	if err := db.RecCache.Put("user-1", entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.RecCache.Delete("user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.RecCache.Get("user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// deleting again is a no-op
	if err := db.RecCache.Delete("user-1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
