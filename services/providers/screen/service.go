// Package screen talks to the movie/TV catalog provider and normalizes its
// responses into the shared media item shape.
package screen

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

// ScreenGenre is one entry of the provider's genre mapping.
type ScreenGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Page is one normalized page of a catalog listing.
type Page struct {
	Items      []models.CatalogItem
	Page       int
	TotalPages int
}

// Service fetches movie and TV data. Raw provider pages are cached on disk;
// normalization happens on every call so shape changes never require a cache
// flush.
type Service struct {
	client *screenClient
	cache  *filecache.Cache
}

func NewService(apiKey, language, cacheDir string, ttlHours int) *Service {
	// Dedicated subdirectory so provider caches never collide.
	dir := filepath.Join(cacheDir, "screen")
	return &Service{
		client: newScreenClient(apiKey, language, nil),
		cache:  filecache.NewOS(dir, time.Duration(ttlHours)*time.Hour),
	}
}

// UpdateAPIKey swaps provider credentials and drops cached responses so fresh
// data is fetched with the new key.
func (s *Service) UpdateAPIKey(apiKey, language string) {
	s.client = newScreenClient(apiKey, language, s.client.httpc)
	if err := s.cache.Clear(); err != nil {
		log.Printf("[screen] warning: failed to clear cache: %v", err)
	}
}

// Similar returns items the provider considers similar to the given title.
// mediaType must be movie or tv.
func (s *Service) Similar(ctx context.Context, mediaType models.MediaType, id string) ([]models.MediaItem, error) {
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		return nil, fmt.Errorf("screen: unsupported media type %q", mediaType)
	}
	numID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("screen: invalid id %q: %w", id, err)
	}

	key := filecache.Key("similar", string(mediaType), id)
	var entries []screenListEntry
	if ok, _ := s.cache.Get(key, &entries); !ok {
		entries, err = s.client.similar(ctx, string(mediaType), numID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(key, entries); err != nil {
			log.Printf("[screen] failed to cache similar %s/%s: %v", mediaType, id, err)
		}
	}

	items := make([]models.MediaItem, 0, len(entries))
	for _, e := range entries {
		entryType := models.MediaType(classifyScreenEntry(e, string(mediaType)))
		year := parseScreenYear(e.ReleaseDate, e.FirstAirDate)
		title := pickScreenName(string(entryType), e.Name, e.Title)
		if title == "" {
			title = "Untitled"
		}
		items = append(items, models.MediaItem{
			ID:        strconv.FormatInt(e.ID, 10),
			Type:      entryType,
			Title:     title,
			Year:      year,
			PosterURL: buildScreenPosterURL(e.PosterPath),
			Sublabel:  models.BuildSublabel(entryType, year),
		})
	}
	return items, nil
}

// Discover returns one normalized page of the provider's discover listing.
// genres, when non-empty, restricts results to titles matching any listed
// genre.
func (s *Service) Discover(ctx context.Context, mediaType models.MediaType, page int, genres []int64) (Page, error) {
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		return Page{}, fmt.Errorf("screen: unsupported media type %q", mediaType)
	}
	if page < 1 {
		page = 1
	}

	keyParts := []string{"discover", string(mediaType), strconv.Itoa(page)}
	for _, g := range genres {
		keyParts = append(keyParts, strconv.FormatInt(g, 10))
	}
	key := filecache.Key(keyParts...)

	var payload screenListResponse
	if ok, _ := s.cache.Get(key, &payload); !ok {
		var err error
		payload, err = s.client.discover(ctx, string(mediaType), page, genres)
		if err != nil {
			return Page{}, err
		}
		if err := s.cache.Set(key, payload); err != nil {
			log.Printf("[screen] failed to cache discover page %d: %v", page, err)
		}
	}

	items := make([]models.CatalogItem, 0, len(payload.Results))
	for _, e := range payload.Results {
		entryType := mediaType
		switch e.MediaType {
		case "movie":
			entryType = models.MediaTypeMovie
		case "tv":
			entryType = models.MediaTypeTV
		}
		items = append(items, models.CatalogItem{
			ID:          string(entryType) + ":" + strconv.FormatInt(e.ID, 10),
			ProviderID:  e.ID,
			MediaType:   entryType,
			Title:       pickScreenName(string(entryType), e.Name, e.Title),
			Popularity:  e.Popularity,
			VoteAverage: e.VoteAverage,
			VoteCount:   e.VoteCount,
			GenreIDs:    e.GenreIDs,
			PosterPath:  buildScreenPosterURL(e.PosterPath),
		})
	}
	return Page{Items: items, Page: payload.Page, TotalPages: payload.TotalPages}, nil
}

// Genres returns the provider's genre mapping for a media type.
func (s *Service) Genres(ctx context.Context, mediaType models.MediaType) ([]ScreenGenre, error) {
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		return nil, fmt.Errorf("screen: unsupported media type %q", mediaType)
	}
	key := filecache.Key("genres", string(mediaType))
	var genres []ScreenGenre
	if ok, _ := s.cache.Get(key, &genres); ok {
		return genres, nil
	}
	genres, err := s.client.genreList(ctx, string(mediaType))
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, genres); err != nil {
		log.Printf("[screen] failed to cache genres for %s: %v", mediaType, err)
	}
	return genres, nil
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (s *Service) SetHTTPClient(httpc *http.Client) {
	s.client.httpc = httpc
}

// ClearCache drops all cached provider responses.
func (s *Service) ClearCache() error {
	return s.cache.Clear()
}
