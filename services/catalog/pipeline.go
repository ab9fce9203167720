package catalog

import (
	"errors"
	"sort"

	"medley/models"
)

// ErrUnknownSortMode is returned for sort modes outside the supported set.
// Handlers map it to a bad request.
var ErrUnknownSortMode = errors.New("unknown sort mode")

// minVotesTopRated is the vote-count floor for the top_rated order. Items
// below it are excluded entirely, whatever their rating.
const minVotesTopRated = 50

// filterByGenres keeps items whose genre list intersects the selection.
// ANY match is enough; an empty selection keeps everything.
func filterByGenres(items []models.CatalogItem, selected []int64) []models.CatalogItem {
	if len(selected) == 0 {
		return items
	}
	wanted := make(map[int64]struct{}, len(selected))
	for _, g := range selected {
		wanted[g] = struct{}{}
	}
	out := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		for _, g := range item.GenreIDs {
			if _, ok := wanted[g]; ok {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// dedupe removes repeated composite ids, keeping the first-seen item.
func dedupe(items []models.CatalogItem) []models.CatalogItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// sortItems orders items by the requested mode. Both orders are total: every
// tie is resolved down the comparison chain, ending at the composite id, so
// identical inputs always produce identical output.
func sortItems(items []models.CatalogItem, mode models.CatalogSortMode) ([]models.CatalogItem, error) {
	switch mode {
	case models.CatalogSortPopularity:
		out := make([]models.CatalogItem, len(items))
		copy(out, items)
		sort.Slice(out, func(i, j int) bool {
			if out[i].Popularity != out[j].Popularity {
				return out[i].Popularity > out[j].Popularity
			}
			if out[i].VoteAverage != out[j].VoteAverage {
				return out[i].VoteAverage > out[j].VoteAverage
			}
			return out[i].ID < out[j].ID
		})
		return out, nil

	case models.CatalogSortTopRated:
		out := make([]models.CatalogItem, 0, len(items))
		for _, item := range items {
			if item.VoteCount >= minVotesTopRated {
				out = append(out, item)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].VoteAverage != out[j].VoteAverage {
				return out[i].VoteAverage > out[j].VoteAverage
			}
			if out[i].VoteCount != out[j].VoteCount {
				return out[i].VoteCount > out[j].VoteCount
			}
			if out[i].Popularity != out[j].Popularity {
				return out[i].Popularity > out[j].Popularity
			}
			return out[i].ID < out[j].ID
		})
		return out, nil
	}
	return nil, ErrUnknownSortMode
}
