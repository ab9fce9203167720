package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"medley/internal/database"
	"medley/models"
)

type fakeFavorites struct {
	items map[string][]models.FavoriteItem
}

func (f *fakeFavorites) List(userID string) ([]models.FavoriteItem, error) {
	return f.items[userID], nil
}

type fakeScreen struct {
	mu    sync.Mutex
	calls int
	fn    func(mediaType models.MediaType, id string) ([]models.MediaItem, error)
}

func (f *fakeScreen) Similar(ctx context.Context, mediaType models.MediaType, id string) ([]models.MediaItem, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(mediaType, id)
}

type fakeGames struct {
	mu    sync.Mutex
	calls int
	fn    func(id string) ([]models.MediaItem, error)
}

func (f *fakeGames) Similar(ctx context.Context, id string) ([]models.MediaItem, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(id)
}

type fakeBooks struct {
	mu    sync.Mutex
	calls int
	fn    func(seed models.FavoriteItem) ([]models.MediaItem, error)
}

func (f *fakeBooks) Similar(ctx context.Context, seed models.FavoriteItem) ([]models.MediaItem, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(seed)
}

type memStore struct {
	mu      sync.Mutex
	entries map[string]models.RecCacheEntry
	puts    int
	getErr  error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]models.RecCacheEntry)}
}

func (m *memStore) Get(userID string) (*models.RecCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &entry, nil
}

func (m *memStore) Put(userID string, entry models.RecCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.entries[userID] = entry
	return nil
}

func (m *memStore) Delete(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

func screenItems(prefix string, n int) []models.MediaItem {
	items := make([]models.MediaItem, n)
	for i := range items {
		items[i] = models.MediaItem{ID: fmt.Sprintf("%s-%d", prefix, i), Type: models.MediaTypeMovie}
	}
	return items
}

func TestRecommendEmptyFavorites(t *testing.T) {
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{}}, &fakeScreen{}, &fakeGames{}, &fakeBooks{}, newMemStore(), Options{})

	out, err := svc.Recommend(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil result, got %v", out)
	}
}

func TestRecommendBoundedFanOut(t *testing.T) {
	var favorites []models.FavoriteItem
	for i := 0; i < 20; i++ {
		favorites = append(favorites, models.FavoriteItem{ID: fmt.Sprintf("m%d", i), Type: models.MediaTypeMovie})
	}
	for i := 0; i < 10; i++ {
		favorites = append(favorites, models.FavoriteItem{ID: fmt.Sprintf("g%d", i), Type: models.MediaTypeGame})
	}
	for i := 0; i < 10; i++ {
		favorites = append(favorites, models.FavoriteItem{ID: fmt.Sprintf("b%d", i), Type: models.MediaTypeBook})
	}

	screen := &fakeScreen{}
	games := &fakeGames{}
	books := &fakeBooks{}
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, games, books, newMemStore(), Options{})

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if screen.calls != 6 {
		t.Errorf("screen calls = %d, want 6", screen.calls)
	}
	if games.calls != 3 {
		t.Errorf("games calls = %d, want 3", games.calls)
	}
	if books.calls != 3 {
		t.Errorf("books calls = %d, want 3", books.calls)
	}
}

func TestRecommendSeedFailureIsolated(t *testing.T) {
	favorites := []models.FavoriteItem{
		{ID: "1", Type: models.MediaTypeMovie},
		{ID: "100", Type: models.MediaTypeGame},
	}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return nil, errors.New("upstream 500")
	}}
	games := &fakeGames{fn: func(id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "101", Type: models.MediaTypeGame, Title: "Portal 2"}}, nil
	}}
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, games, &fakeBooks{}, newMemStore(), Options{})

	out, err := svc.Recommend(context.Background(), "u")
	if err != nil {
		t.Fatalf("Recommend must not propagate seed failures: %v", err)
	}
	if len(out) != 1 || out[0].ID != "101" {
		t.Errorf("expected surviving seed's candidates, got %v", out)
	}
}

func TestRecommendPerSeedLimit(t *testing.T) {
	favorites := []models.FavoriteItem{{ID: "1", Type: models.MediaTypeMovie}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return screenItems("x", 25), nil
	}}
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, &fakeGames{}, &fakeBooks{}, newMemStore(), Options{})

	out, err := svc.Recommend(context.Background(), "u")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(out) != 10 {
		t.Errorf("expected per-seed cap of 10, got %d", len(out))
	}
}

func TestRecommendCacheRoundTrip(t *testing.T) {
	favorites := []models.FavoriteItem{{ID: "1", Type: models.MediaTypeMovie}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "2", Type: models.MediaTypeMovie, Title: "Cached"}}, nil
	}}
	store := newMemStore()
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, &fakeGames{}, &fakeBooks{}, store, Options{})

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	out, err := svc.Recommend(context.Background(), "u")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if screen.calls != 1 {
		t.Errorf("expected second call served from cache, screen calls = %d", screen.calls)
	}
	if len(out) != 1 || out[0].Title != "Cached" {
		t.Errorf("unexpected cached result: %v", out)
	}
}

func TestRecommendCacheMissOnHashChange(t *testing.T) {
	favs := &fakeFavorites{items: map[string][]models.FavoriteItem{
		"u": {{ID: "1", Type: models.MediaTypeMovie}},
	}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "r-" + id, Type: models.MediaTypeMovie}}, nil
	}}
	svc := NewService(favs, screen, &fakeGames{}, &fakeBooks{}, newMemStore(), Options{})

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Favorites change: the stored hash no longer matches.
	favs.items["u"] = append(favs.items["u"], models.FavoriteItem{ID: "9", Type: models.MediaTypeTV})

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if screen.calls != 3 {
		t.Errorf("expected recompute after favorites change, screen calls = %d", screen.calls)
	}
}

func TestRecommendCacheExpiresAfterTTL(t *testing.T) {
	favorites := []models.FavoriteItem{{ID: "1", Type: models.MediaTypeMovie}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "2", Type: models.MediaTypeMovie}}, nil
	}}
	store := newMemStore()
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, &fakeGames{}, &fakeBooks{}, store, Options{TTL: 5 * time.Minute})

	now := time.Now()
	svc.now = func() time.Time { return now }

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	svc.now = func() time.Time { return now.Add(6 * time.Minute) }

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if screen.calls != 2 {
		t.Errorf("expected recompute after TTL, screen calls = %d", screen.calls)
	}
}

func TestRecommendInvalidateForcesRecompute(t *testing.T) {
	favorites := []models.FavoriteItem{{ID: "1", Type: models.MediaTypeMovie}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "2", Type: models.MediaTypeMovie}}, nil
	}}
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, &fakeGames{}, &fakeBooks{}, newMemStore(), Options{})

	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	svc.InvalidateUser("u")
	if _, err := svc.Recommend(context.Background(), "u"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if screen.calls != 2 {
		t.Errorf("expected recompute after invalidation, screen calls = %d", screen.calls)
	}
}

func TestRecommendAnonymousBypassesCache(t *testing.T) {
	favorites := []models.FavoriteItem{{ID: "1", Type: models.MediaTypeMovie}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "2", Type: models.MediaTypeMovie}}, nil
	}}
	store := newMemStore()
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{models.DefaultUserID: favorites}}, screen, &fakeGames{}, &fakeBooks{}, store, Options{})

	for i := 0; i < 2; i++ {
		if _, err := svc.Recommend(context.Background(), ""); err != nil {
			t.Fatalf("anonymous call %d: %v", i+1, err)
		}
	}
	if screen.calls != 2 {
		t.Errorf("anonymous calls must always recompute, screen calls = %d", screen.calls)
	}
	if store.puts != 0 {
		t.Errorf("anonymous results must not be cached, puts = %d", store.puts)
	}
}

func TestRecommendStoreFailuresDegrade(t *testing.T) {
	favorites := []models.FavoriteItem{{ID: "1", Type: models.MediaTypeMovie}}
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{{ID: "2", Type: models.MediaTypeMovie}}, nil
	}}
	store := newMemStore()
	store.getErr = errors.New("db locked")
	store.putErr = errors.New("db locked")
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, &fakeGames{}, &fakeBooks{}, store, Options{})

	out, err := svc.Recommend(context.Background(), "u")
	if err != nil {
		t.Fatalf("store failures must not surface: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected fresh result despite store failure, got %v", out)
	}
}

func TestRecommendNoDuplicatesAcrossSeeds(t *testing.T) {
	favorites := []models.FavoriteItem{
		{ID: "1", Type: models.MediaTypeMovie},
		{ID: "2", Type: models.MediaTypeMovie},
	}
	// Both seeds return an overlapping candidate.
	screen := &fakeScreen{fn: func(mediaType models.MediaType, id string) ([]models.MediaItem, error) {
		return []models.MediaItem{
			{ID: "shared", Type: models.MediaTypeMovie, Title: "From seed " + id},
			{ID: "own-" + id, Type: models.MediaTypeMovie},
		}, nil
	}}
	svc := NewService(&fakeFavorites{items: map[string][]models.FavoriteItem{"u": favorites}}, screen, &fakeGames{}, &fakeBooks{}, newMemStore(), Options{})

	out, err := svc.Recommend(context.Background(), "u")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	seen := make(map[string]bool)
	for _, it := range out {
		if seen[it.Key()] {
			t.Errorf("duplicate key in output: %s", it.Key())
		}
		seen[it.Key()] = true
	}
	if len(out) != 3 {
		t.Errorf("expected 3 unique items, got %d", len(out))
	}
	// Deterministic seed order: the shared candidate comes from seed 1.
	if out[0].Title != "From seed 1" {
		t.Errorf("expected first seed's copy kept, got %q", out[0].Title)
	}
}
