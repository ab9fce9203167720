package models

// CatalogItem is the normalized output of the catalog listing pipeline.
// The composite ID ("type:providerId") is the dedup key, mirroring the
// (Type, ID) identity of MediaItem.
type CatalogItem struct {
	ID          string    `json:"id"`
	ProviderID  int64     `json:"providerId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	Popularity  float64   `json:"popularity"`
	VoteAverage float64   `json:"voteAverage"`
	VoteCount   int       `json:"voteCount"`
	GenreIDs    []int64   `json:"genreIds,omitempty"`
	PosterPath  string    `json:"posterPath,omitempty"`
}

// CatalogSortMode selects the total order applied to a catalog listing.
type CatalogSortMode string

const (
	CatalogSortPopularity CatalogSortMode = "popularity"
	CatalogSortTopRated   CatalogSortMode = "top_rated"
)
