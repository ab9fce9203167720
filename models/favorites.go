package models

import "time"

// FavoriteItem is a media entry saved by a user, used both for display and
// as a seed for similar-item recommendations.
type FavoriteItem struct {
	ID        string    `json:"id"`
	Type      MediaType `json:"type"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`
	// Provider hints carried from the catalog entry so the recommender can
	// query the right upstream without a second lookup.
	Author  string    `json:"author,omitempty"`  // books
	Subject string    `json:"subject,omitempty"` // books
	AddedAt time.Time `json:"addedAt"`
}

// FavoriteUpsert captures data required to insert or update a favorite.
type FavoriteUpsert struct {
	ID        string    `json:"id"`
	Type      MediaType `json:"type"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`
	Author    string    `json:"author,omitempty"`
	Subject   string    `json:"subject,omitempty"`
}

// Key returns a stable identifier combining media type and ID.
func (f FavoriteItem) Key() string {
	return string(f.Type) + ":" + f.ID
}

// Key returns a stable identifier combining media type and ID.
func (f FavoriteUpsert) Key() string {
	return string(f.Type) + ":" + f.ID
}
