package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"medley/models"
	"medley/services/catalog"
	"medley/services/providers/screen"
)

type catalogService interface {
	Listing(ctx context.Context, params catalog.ListingParams) ([]models.CatalogItem, error)
	Genres(ctx context.Context, types []models.MediaType) ([]screen.ScreenGenre, error)
}

var _ catalogService = (*catalog.Service)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

// Listing serves a sorted, filtered category listing.
// Query parameters: types (csv of movie,tv), genres (csv of genre ids),
// sort (popularity|top_rated), pages.
func (h *CatalogHandler) Listing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	types, err := parseMediaTypes(q.Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	genres, err := parseGenreIDs(q.Get("genres"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sortMode := models.CatalogSortMode(strings.TrimSpace(q.Get("sort")))
	if sortMode == "" {
		sortMode = models.CatalogSortPopularity
	}

	pages := 1
	if raw := strings.TrimSpace(q.Get("pages")); raw != "" {
		pages, err = strconv.Atoi(raw)
		if err != nil || pages < 1 {
			http.Error(w, "invalid pages parameter", http.StatusBadRequest)
			return
		}
	}

	items, err := h.Service.Listing(r.Context(), catalog.ListingParams{
		Types:    types,
		GenreIDs: genres,
		SortMode: sortMode,
		Pages:    pages,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownSortMode) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.CatalogItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// Genres serves the merged genre mapping for the requested types.
func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	types, err := parseMediaTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	genres, err := h.Service.Genres(r.Context(), types)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if genres == nil {
		genres = []screen.ScreenGenre{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(genres)
}

func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func parseMediaTypes(raw string) ([]models.MediaType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var types []models.MediaType
	for _, part := range strings.Split(raw, ",") {
		t := models.MediaType(strings.ToLower(strings.TrimSpace(part)))
		if t != models.MediaTypeMovie && t != models.MediaTypeTV {
			return nil, errors.New("unsupported catalog type: " + string(t))
		}
		types = append(types, t)
	}
	return types, nil
}

func parseGenreIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, errors.New("invalid genre id: " + part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
