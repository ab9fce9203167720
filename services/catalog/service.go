// Package catalog produces plain category listings, merging movie and TV
// discover pages into one filtered, deduplicated, totally-ordered list.
package catalog

import (
	"context"
	"log"

	"github.com/sourcegraph/conc/pool"

	"medley/models"
	"medley/services/providers/screen"
)

// ScreenLister provides raw discover pages from the movie/TV provider.
type ScreenLister interface {
	Discover(ctx context.Context, mediaType models.MediaType, page int, genres []int64) (screen.Page, error)
	Genres(ctx context.Context, mediaType models.MediaType) ([]screen.ScreenGenre, error)
}

// ListingParams selects what a listing contains and how it is ordered.
type ListingParams struct {
	Types    []models.MediaType // defaults to movie+tv
	GenreIDs []int64            // ANY-match filter; empty keeps all
	SortMode models.CatalogSortMode
	Pages    int // discover pages per type, defaults to 1
}

type Service struct {
	screen ScreenLister
}

func NewService(screenSvc ScreenLister) *Service {
	return &Service{screen: screenSvc}
}

// Listing fetches discover pages for each requested type, then runs the
// normalize/filter/dedupe/sort pipeline. A failed page fetch contributes no
// items; only an invalid sort mode is an error.
func (s *Service) Listing(ctx context.Context, params ListingParams) ([]models.CatalogItem, error) {
	// Validate the sort mode before any upstream call.
	if _, err := sortItems(nil, params.SortMode); err != nil {
		return nil, err
	}

	types := params.Types
	if len(types) == 0 {
		types = []models.MediaType{models.MediaTypeMovie, models.MediaTypeTV}
	}
	pages := params.Pages
	if pages < 1 {
		pages = 1
	}

	// One fetch per (type, page); results keep request order so dedup is
	// deterministic.
	type fetchKey struct {
		typeIdx int
		page    int
	}
	results := make([][]models.CatalogItem, len(types)*pages)

	p := pool.New().WithMaxGoroutines(4)
	for ti, mediaType := range types {
		for page := 1; page <= pages; page++ {
			key := fetchKey{typeIdx: ti, page: page}
			mediaType := mediaType
			p.Go(func() {
				res, err := s.screen.Discover(ctx, mediaType, key.page, params.GenreIDs)
				if err != nil {
					log.Printf("[catalog] discover %s page %d failed: %v", mediaType, key.page, err)
					return
				}
				results[key.typeIdx*pages+key.page-1] = res.Items
			})
		}
	}
	p.Wait()

	var merged []models.CatalogItem
	for _, list := range results {
		merged = append(merged, list...)
	}

	// The provider filters genres upstream, but merged cross-type results
	// are re-checked locally so the listing honors the selection even when
	// a provider ignores the parameter.
	filtered := filterByGenres(merged, params.GenreIDs)
	deduped := dedupe(filtered)
	return sortItems(deduped, params.SortMode)
}

// Genres returns the union of the providers' genre mappings for the
// requested types, first-seen wins on id collisions.
func (s *Service) Genres(ctx context.Context, types []models.MediaType) ([]screen.ScreenGenre, error) {
	if len(types) == 0 {
		types = []models.MediaType{models.MediaTypeMovie, models.MediaTypeTV}
	}
	seen := make(map[int64]struct{})
	var out []screen.ScreenGenre
	for _, mediaType := range types {
		genres, err := s.screen.Genres(ctx, mediaType)
		if err != nil {
			return nil, err
		}
		for _, g := range genres {
			if _, ok := seen[g.ID]; ok {
				continue
			}
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}
	}
	return out, nil
}
