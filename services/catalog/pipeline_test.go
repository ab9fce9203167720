package catalog

import (
	"errors"
	"testing"

	"medley/models"
)

func catalogItem(id string, pop, rating float64, votes int, genres ...int64) models.CatalogItem {
	return models.CatalogItem{
		ID:          id,
		MediaType:   models.MediaTypeMovie,
		Title:       "Item " + id,
		Popularity:  pop,
		VoteAverage: rating,
		VoteCount:   votes,
		GenreIDs:    genres,
	}
}

func TestPopularitySortTotalOrder(t *testing.T) {
	items := []models.CatalogItem{
		catalogItem("movie:A", 80, 7, 100),
		catalogItem("movie:B", 95, 6, 100),
		catalogItem("movie:C", 80, 9, 100),
	}

	out, err := sortItems(items, models.CatalogSortPopularity)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	want := []string{"movie:B", "movie:C", "movie:A"}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, out[i].ID, id)
		}
	}
}

func TestTopRatedSortVoteFloor(t *testing.T) {
	items := []models.CatalogItem{
		catalogItem("movie:high-but-thin", 10, 9.9, 10),
		catalogItem("movie:solid", 10, 8.0, 5000),
		catalogItem("movie:okay", 10, 7.5, 300),
	}

	out, err := sortItems(items, models.CatalogSortTopRated)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected vote floor to exclude thin item, got %d items", len(out))
	}
	if out[0].ID != "movie:solid" || out[1].ID != "movie:okay" {
		t.Errorf("unexpected order: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestTopRatedTieBreaks(t *testing.T) {
	items := []models.CatalogItem{
		catalogItem("movie:a", 10, 8.0, 200),
		catalogItem("movie:b", 99, 8.0, 200),
		catalogItem("movie:c", 10, 8.0, 900),
	}

	out, err := sortItems(items, models.CatalogSortTopRated)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	// Equal rating: votes first, then popularity.
	want := []string{"movie:c", "movie:b", "movie:a"}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, out[i].ID, id)
		}
	}
}

func TestUnknownSortMode(t *testing.T) {
	_, err := sortItems(nil, models.CatalogSortMode("trending"))
	if !errors.Is(err, ErrUnknownSortMode) {
		t.Fatalf("expected ErrUnknownSortMode, got %v", err)
	}
}

func TestGenreFilterAnyMatch(t *testing.T) {
	items := []models.CatalogItem{
		catalogItem("movie:1", 1, 1, 1, 16, 28),
		catalogItem("movie:2", 1, 1, 1, 35),
		catalogItem("movie:3", 1, 1, 1),
	}

	out := filterByGenres(items, []int64{28})
	if len(out) != 1 || out[0].ID != "movie:1" {
		t.Errorf("expected ANY-match to keep movie:1 only, got %v", out)
	}
}

func TestGenreFilterEmptySelectionKeepsAll(t *testing.T) {
	items := []models.CatalogItem{
		catalogItem("movie:1", 1, 1, 1, 16),
		catalogItem("movie:2", 1, 1, 1),
	}
	out := filterByGenres(items, nil)
	if len(out) != 2 {
		t.Errorf("expected all items kept, got %d", len(out))
	}
}

func TestDedupeFirstSeenWins(t *testing.T) {
	items := []models.CatalogItem{
		{ID: "movie:1", Title: "First"},
		{ID: "tv:1", Title: "Different type"},
		{ID: "movie:1", Title: "Duplicate"},
	}
	out := dedupe(items)
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
	if out[0].Title != "First" {
		t.Errorf("expected first-seen kept, got %q", out[0].Title)
	}
}
