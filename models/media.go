package models

import (
	"strconv"
	"strings"
	"time"
)

// MediaType identifies which catalog an item belongs to.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
	MediaTypeGame  MediaType = "game"
	MediaTypeBook  MediaType = "book"
)

// AllMediaTypes is the fixed interleave order used when mixing catalogs.
var AllMediaTypes = []MediaType{MediaTypeMovie, MediaTypeTV, MediaTypeGame, MediaTypeBook}

// IsValid reports whether t is one of the four supported catalogs.
func (t MediaType) IsValid() bool {
	switch t {
	case MediaTypeMovie, MediaTypeTV, MediaTypeGame, MediaTypeBook:
		return true
	}
	return false
}

// MediaItem is the normalized unit shared by all four catalogs.
// Two items describe the same entity iff (Type, ID) match; IDs are only
// unique within a single provider namespace.
type MediaItem struct {
	ID        string    `json:"id"`
	Type      MediaType `json:"type"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"` // 0 = unknown
	PosterURL string    `json:"posterUrl,omitempty"`
	Sublabel  string    `json:"sublabel,omitempty"` // e.g. "MOVIE • 2024"
}

// Key returns the composite identity used for deduplication.
func (m MediaItem) Key() string {
	return string(m.Type) + ":" + m.ID
}

// BuildSublabel renders the card caption, e.g. "MOVIE • 2024". Year 0 is
// omitted.
func BuildSublabel(t MediaType, year int) string {
	label := strings.ToUpper(string(t))
	if year == 0 {
		return label
	}
	return label + " • " + strconv.Itoa(year)
}

// RecCacheEntry is a stored recommendation result for one favorites snapshot.
type RecCacheEntry struct {
	FavoritesHash string      `json:"favoritesHash"`
	Results       []MediaItem `json:"results"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
