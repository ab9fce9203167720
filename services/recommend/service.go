// Package recommend aggregates "similar item" recommendations across the
// four catalogs for a user's favorites and serves them through a per-user
// TTL cache keyed to the exact favorites set.
package recommend

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sourcegraph/conc/pool"

	"medley/internal/database"
	"medley/models"
)

// fetchTimeout bounds one provider call so a stalled upstream cannot hold
// the whole aggregation.
const fetchTimeout = 12 * time.Second

// FavoritesLister provides the favorites snapshot seeds are drawn from.
type FavoritesLister interface {
	List(userID string) ([]models.FavoriteItem, error)
}

// ScreenFetcher serves similar movies and TV shows.
type ScreenFetcher interface {
	Similar(ctx context.Context, mediaType models.MediaType, id string) ([]models.MediaItem, error)
}

// GamesFetcher serves related games for a seed game.
type GamesFetcher interface {
	Similar(ctx context.Context, id string) ([]models.MediaItem, error)
}

// BooksFetcher serves related books for a seed favorite.
type BooksFetcher interface {
	Similar(ctx context.Context, seed models.FavoriteItem) ([]models.MediaItem, error)
}

// Store persists one recommendation result per user.
type Store interface {
	Get(userID string) (*models.RecCacheEntry, error)
	Put(userID string, entry models.RecCacheEntry) error
	Delete(userID string) error
}

// Options tunes the aggregation pipeline. Zero fields fall back to defaults.
type Options struct {
	TTL           time.Duration
	ScreenSeeds   int
	GameSeeds     int
	BookSeeds     int
	PerSeedLimit  int
	PerTypeLimit  int
	MaxConcurrent int
}

func (o *Options) applyDefaults() {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.ScreenSeeds <= 0 {
		o.ScreenSeeds = 6
	}
	if o.GameSeeds <= 0 {
		o.GameSeeds = 3
	}
	if o.BookSeeds <= 0 {
		o.BookSeeds = 3
	}
	if o.PerSeedLimit <= 0 {
		o.PerSeedLimit = 10
	}
	if o.PerTypeLimit <= 0 {
		o.PerTypeLimit = 20
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 6
	}
}

type Service struct {
	favorites FavoritesLister
	screen    ScreenFetcher
	games     GamesFetcher
	books     BooksFetcher
	store     Store
	opts      Options

	now func() time.Time
}

func NewService(favorites FavoritesLister, screen ScreenFetcher, games GamesFetcher, books BooksFetcher, store Store, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		favorites: favorites,
		screen:    screen,
		games:     games,
		books:     books,
		store:     store,
		opts:      opts,
		now:       time.Now,
	}
}

// Recommend returns the diversified similar-items list for the user's
// current favorites. An empty userID marks an anonymous caller: the default
// profile's favorites are used and the cache is bypassed entirely, since
// anonymous callers have no stable partition key.
func (s *Service) Recommend(ctx context.Context, userID string) ([]models.MediaItem, error) {
	anonymous := userID == ""
	favoritesOwner := userID
	if anonymous {
		favoritesOwner = models.DefaultUserID
	}

	favorites, err := s.favorites.List(favoritesOwner)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return []models.MediaItem{}, nil
	}

	hash := favoritesHash(favorites)

	if !anonymous {
		if cached := s.cachedResult(userID, hash); cached != nil {
			return cached, nil
		}
	}

	results := s.aggregate(ctx, favorites)

	if !anonymous {
		entry := models.RecCacheEntry{
			FavoritesHash: hash,
			Results:       results,
			UpdatedAt:     s.now().UTC(),
		}
		if err := s.store.Put(userID, entry); err != nil {
			log.Printf("[recommend] failed to cache results for user %s: %v", userID, err)
		}
	}

	return results, nil
}

// cachedResult returns a stored result when its hash matches the current
// favorites and the TTL has not elapsed. Any store failure degrades to a
// miss.
func (s *Service) cachedResult(userID, hash string) []models.MediaItem {
	entry, err := s.store.Get(userID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("[recommend] cache read failed for user %s: %v", userID, err)
		}
		return nil
	}
	if entry.FavoritesHash != hash {
		return nil
	}
	if s.now().Sub(entry.UpdatedAt) >= s.opts.TTL {
		return nil
	}
	return entry.Results
}

// aggregate fans out to the providers, one call per seed, and reduces the
// candidates through dedup and round-robin diversification. Each seed's
// failure is isolated to that seed contributing zero candidates.
func (s *Service) aggregate(ctx context.Context, favorites []models.FavoriteItem) []models.MediaItem {
	seeds := selectSeeds(favorites, s.opts.ScreenSeeds, s.opts.GameSeeds, s.opts.BookSeeds)

	// Candidate lists keep seed order (screen, then games, then books) so
	// first-seen dedup is deterministic regardless of fetch completion order.
	lists := make([][]models.MediaItem, seeds.size())

	p := pool.New().WithMaxGoroutines(s.opts.MaxConcurrent)
	slot := 0
	for _, seed := range seeds.screen {
		seed, idx := seed, slot
		slot++
		p.Go(func() {
			lists[idx] = s.fetchSeed(ctx, seed, func(ctx context.Context) ([]models.MediaItem, error) {
				return s.screen.Similar(ctx, seed.Type, seed.ID)
			})
		})
	}
	for _, seed := range seeds.games {
		seed, idx := seed, slot
		slot++
		p.Go(func() {
			lists[idx] = s.fetchSeed(ctx, seed, func(ctx context.Context) ([]models.MediaItem, error) {
				return s.games.Similar(ctx, seed.ID)
			})
		})
	}
	for _, seed := range seeds.books {
		seed, idx := seed, slot
		slot++
		p.Go(func() {
			lists[idx] = s.fetchSeed(ctx, seed, func(ctx context.Context) ([]models.MediaItem, error) {
				return s.books.Similar(ctx, seed)
			})
		})
	}
	p.Wait()

	merged := mergeDedup(lists)
	diversified := diversify(merged, s.opts.PerTypeLimit)

	if max := s.opts.PerTypeLimit * len(models.AllMediaTypes); len(diversified) > max {
		diversified = diversified[:max]
	}
	return diversified
}

// fetchSeed runs one provider call with a timeout and caps the candidates
// taken from it. A failure yields zero candidates, never an error.
func (s *Service) fetchSeed(ctx context.Context, seed models.FavoriteItem, fetch func(ctx context.Context) ([]models.MediaItem, error)) []models.MediaItem {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	items, err := fetch(fetchCtx)
	if err != nil {
		log.Printf("[recommend] seed %s yielded no candidates: %v", seed.Key(), err)
		return nil
	}
	if len(items) > s.opts.PerSeedLimit {
		items = items[:s.opts.PerSeedLimit]
	}
	return items
}

// InvalidateUser drops the user's cached recommendations. It is called from
// the favorites store on every mutation; failures are logged and swallowed
// since invalidation is advisory cleanup.
func (s *Service) InvalidateUser(userID string) {
	if userID == "" {
		return
	}
	if err := s.store.Delete(userID); err != nil {
		log.Printf("[recommend] failed to invalidate cache for user %s: %v", userID, err)
	}
}
