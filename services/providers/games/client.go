package games

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const gamesBaseURL = "https://api.rawg.io/api"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("games provider api key not configured")

type gamesClient struct {
	apiKey string
	httpc  *http.Client
	tokens *TokenCache

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newGamesClient(apiKey string, tokens *TokenCache, httpc *http.Client) *gamesClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if tokens == nil {
		tokens = NewTokenCache()
	}
	return &gamesClient{
		apiKey:      strings.TrimSpace(apiKey),
		httpc:       httpc,
		tokens:      tokens,
		minInterval: 250 * time.Millisecond, // games provider throttles hard
	}
}

func (c *gamesClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// login exchanges the API key for a short-lived bearer token.
func (c *gamesClient) login(ctx context.Context) (string, time.Time, error) {
	buf, _ := json.Marshal(map[string]string{"apikey": c.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gamesBaseURL+"/token", bytes.NewReader(buf))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("games login failed: %s", resp.Status)
	}
	var data struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", time.Time{}, err
	}
	expiresIn := data.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return data.Token, time.Now().Add(time.Duration(expiresIn) * time.Second), nil
}

type retryableStatusError struct{ status string }

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("games request failed: %s", e.status)
}

func (c *gamesClient) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
	return retry.Do(
		func() error {
			token, err := c.tokens.Token(ctx, c.login)
			if err != nil {
				return err
			}

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
			if query != nil {
				req.URL.RawQuery = query.Encode()
			}
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized {
				// Token may have been revoked upstream; refresh and retry.
				c.tokens.Invalidate()
				return &retryableStatusError{status: resp.Status}
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &retryableStatusError{status: resp.Status}
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("games request failed: %s", resp.Status))
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
			log.Printf("[games] request error (attempt %d/3): %v", n+1, err)
		}),
	)
}

type gameRecord struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Released        string  `json:"released"`
	BackgroundImage string  `json:"background_image"`
	SimilarGames    []int64 `json:"similar_games"`
}

// gameByID fetches one game, including its provider-side related game ids.
func (c *gamesClient) gameByID(ctx context.Context, id int64) (gameRecord, error) {
	if !c.isConfigured() {
		return gameRecord{}, ErrNotConfigured
	}
	endpoint, err := url.JoinPath(gamesBaseURL, "games", strconv.FormatInt(id, 10))
	if err != nil {
		return gameRecord{}, err
	}
	var rec gameRecord
	if err := c.doGET(ctx, endpoint, nil, &rec); err != nil {
		return gameRecord{}, err
	}
	return rec, nil
}

type gamesListResponse struct {
	Results []gameRecord `json:"results"`
}

// gamesByIDs fetches a batch of games in one call.
func (c *gamesClient) gamesByIDs(ctx context.Context, ids []int64) ([]gameRecord, error) {
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	if len(ids) == 0 {
		return nil, nil
	}
	endpoint, err := url.JoinPath(gamesBaseURL, "games")
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))
	var payload gamesListResponse
	if err := c.doGET(ctx, endpoint, q, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func parseGameYear(released string) int {
	if released == "" {
		return 0
	}
	if t, err := time.Parse("2006-01-02", released); err == nil {
		return t.Year()
	}
	if len(released) >= 4 {
		if y, err := strconv.Atoi(released[:4]); err == nil {
			return y
		}
	}
	return 0
}
