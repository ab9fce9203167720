// Package games talks to the game catalog provider. A seed game is looked up
// for its related ids, which are then fetched in one batched call.
package games

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"medley/internal/filecache"
	"medley/models"
)

type Service struct {
	client *gamesClient
	cache  *filecache.Cache
}

// NewService wires the provider client with an injected token cache so the
// bearer token survives client recreation on settings changes.
func NewService(apiKey, cacheDir string, ttlHours int, tokens *TokenCache) *Service {
	dir := filepath.Join(cacheDir, "games")
	return &Service{
		client: newGamesClient(apiKey, tokens, nil),
		cache:  filecache.NewOS(dir, time.Duration(ttlHours)*time.Hour),
	}
}

// UpdateAPIKey swaps credentials and drops cached responses.
func (s *Service) UpdateAPIKey(apiKey string) {
	s.client = newGamesClient(apiKey, s.client.tokens, s.client.httpc)
	s.client.tokens.Invalidate()
	if err := s.cache.Clear(); err != nil {
		log.Printf("[games] warning: failed to clear cache: %v", err)
	}
}

// Similar returns games related to the seed game. A seed with no related ids
// yields an empty list, not an error.
func (s *Service) Similar(ctx context.Context, id string) ([]models.MediaItem, error) {
	numID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("games: invalid id %q: %w", id, err)
	}

	key := filecache.Key("similar", id)
	var records []gameRecord
	if ok, _ := s.cache.Get(key, &records); !ok {
		seed, err := s.client.gameByID(ctx, numID)
		if err != nil {
			return nil, err
		}
		if len(seed.SimilarGames) == 0 {
			records = nil
		} else {
			records, err = s.client.gamesByIDs(ctx, seed.SimilarGames)
			if err != nil {
				return nil, err
			}
		}
		if err := s.cache.Set(key, records); err != nil {
			log.Printf("[games] failed to cache similar %s: %v", id, err)
		}
	}

	items := make([]models.MediaItem, 0, len(records))
	for _, rec := range records {
		items = append(items, normalizeGame(rec))
	}
	return items, nil
}

func normalizeGame(rec gameRecord) models.MediaItem {
	year := parseGameYear(rec.Released)
	title := rec.Name
	if title == "" {
		title = "Untitled"
	}
	return models.MediaItem{
		ID:        strconv.FormatInt(rec.ID, 10),
		Type:      models.MediaTypeGame,
		Title:     title,
		Year:      year,
		PosterURL: rec.BackgroundImage,
		Sublabel:  models.BuildSublabel(models.MediaTypeGame, year),
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (s *Service) SetHTTPClient(httpc *http.Client) {
	s.client.httpc = httpc
}

// ClearCache drops all cached provider responses.
func (s *Service) ClearCache() error {
	return s.cache.Clear()
}
