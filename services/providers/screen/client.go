package screen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	screenBaseURL      = "https://api.themoviedb.org/3"
	screenImageBaseURL = "https://image.tmdb.org/t/p"
	// w500 is plenty for poster cards rendered at 200-300px.
	screenPosterSize = "w500"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("screen provider api key not configured")

type screenClient struct {
	apiKey   string
	language string
	httpc    *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newScreenClient(apiKey, language string, httpc *http.Client) *screenClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &screenClient{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond,
	}
}

func (c *screenClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// retryableStatusError marks responses worth retrying (429 and 5xx).
type retryableStatusError struct{ status string }

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("screen request failed: %s", e.status)
}

// doGET performs an HTTP GET with rate limiting and bounded retries.
func (c *screenClient) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if lang := strings.TrimSpace(c.language); lang != "" {
		query.Set("language", normalizeLanguage(lang))
	} else {
		query.Set("language", "en-US")
	}

	return retry.Do(
		func() error {
			c.throttleMu.Lock()
			since := time.Since(c.lastRequest)
			if since < c.minInterval {
				time.Sleep(c.minInterval - since)
			}
			c.lastRequest = time.Now()
			c.throttleMu.Unlock()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.URL.RawQuery = query.Encode()

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &retryableStatusError{status: resp.Status}
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("screen request failed: %s", resp.Status))
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[screen] request error (attempt %d/3): %v", n+1, err)
		}),
	)
}

type screenListResponse struct {
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
	Results      []screenListEntry `json:"results"`
}

type screenListEntry struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	MediaType    string  `json:"media_type"`
	PosterPath   string  `json:"poster_path"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int64 `json:"genre_ids"`
	FirstAirDate string  `json:"first_air_date"`
	ReleaseDate  string  `json:"release_date"`
}

// similar fetches the provider's similar list for one title.
func (c *screenClient) similar(ctx context.Context, mediaType string, id int64) ([]screenListEntry, error) {
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	endpoint, err := url.JoinPath(screenBaseURL, mediaType, strconv.FormatInt(id, 10), "similar")
	if err != nil {
		return nil, err
	}
	var payload screenListResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// discover fetches one page of the provider's discover listing.
func (c *screenClient) discover(ctx context.Context, mediaType string, page int, withGenres []int64) (screenListResponse, error) {
	if !c.isConfigured() {
		return screenListResponse{}, ErrNotConfigured
	}
	endpoint, err := url.JoinPath(screenBaseURL, "discover", mediaType)
	if err != nil {
		return screenListResponse{}, err
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if len(withGenres) > 0 {
		parts := make([]string, len(withGenres))
		for i, g := range withGenres {
			parts[i] = strconv.FormatInt(g, 10)
		}
		// Pipe means OR: any listed genre matches.
		q.Set("with_genres", strings.Join(parts, "|"))
	}
	var payload screenListResponse
	if err := c.doGET(ctx, endpoint, q, &payload); err != nil {
		return screenListResponse{}, err
	}
	return payload, nil
}

type screenGenreResponse struct {
	Genres []ScreenGenre `json:"genres"`
}

// genreList fetches the genre id/name mapping for a media type.
func (c *screenClient) genreList(ctx context.Context, mediaType string) ([]ScreenGenre, error) {
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	endpoint, err := url.JoinPath(screenBaseURL, "genre", mediaType, "list")
	if err != nil {
		return nil, err
	}
	var payload screenGenreResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

// classifyScreenEntry infers movie vs tv from the shape of a result: a
// movie-shaped title field wins, a show-shaped name field means tv. Entries
// carrying an explicit media_type keep it; anything unrecognizable falls back
// to the caller's type.
func classifyScreenEntry(e screenListEntry, fallback string) string {
	switch e.MediaType {
	case "movie", "tv":
		return e.MediaType
	}
	if e.Title != "" {
		return "movie"
	}
	if e.Name != "" {
		return "tv"
	}
	return fallback
}

// pickScreenName prefers the field matching the media type and falls back to
// whichever is present.
func pickScreenName(mediaType, seriesName, movieTitle string) string {
	if mediaType == "movie" && movieTitle != "" {
		return movieTitle
	}
	if seriesName != "" {
		return seriesName
	}
	if movieTitle != "" {
		return movieTitle
	}
	return ""
}

func parseScreenYear(movieDate, seriesDate string) int {
	date := movieDate
	if date == "" {
		date = seriesDate
	}
	if date == "" {
		return 0
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Year()
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

// buildScreenPosterURL resolves a relative poster path to a full image URL.
func buildScreenPosterURL(posterPath string) string {
	trimmed := strings.TrimSpace(posterPath)
	if trimmed == "" {
		return ""
	}
	fullPath := path.Join(screenPosterSize, strings.TrimPrefix(trimmed, "/"))
	return fmt.Sprintf("%s/%s", screenImageBaseURL, fullPath)
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(lang, "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:])
	}
	return "en-US"
}
