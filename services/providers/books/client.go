package books

import (
	"context"
	"encoding/json"
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

const (
	booksDefaultBaseURL = "https://openlibrary.org"
	booksCoverBaseURL   = "https://covers.openlibrary.org/b/id"
	booksCoverSize      = "M"
)

type booksClient struct {
	baseURL string
	httpc   *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newBooksClient(baseURL string, httpc *http.Client) *booksClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = booksDefaultBaseURL
	}
	return &booksClient{
		baseURL:     baseURL,
		httpc:       httpc,
		minInterval: 100 * time.Millisecond,
	}
}

type retryableStatusError struct{ status string }

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("books request failed: %s", e.status)
}

func (c *booksClient) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
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
			if query != nil {
				req.URL.RawQuery = query.Encode()
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &retryableStatusError{status: resp.Status}
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("books request failed: %s", resp.Status))
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
			log.Printf("[books] request error (attempt %d/3): %v", n+1, err)
		}),
	)
}

type bookWork struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Subjects []string `json:"subjects"`
	Authors  []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
	Covers []int64 `json:"covers"`
}

// bookByID fetches one work record.
func (c *booksClient) bookByID(ctx context.Context, id string) (bookWork, error) {
	endpoint := fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(id))
	var work bookWork
	if err := c.doGET(ctx, endpoint, nil, &work); err != nil {
		return bookWork{}, err
	}
	return work, nil
}

// authorNameByKey resolves an author key to a display name.
func (c *booksClient) authorNameByKey(ctx context.Context, key string) (string, error) {
	id := strings.TrimPrefix(strings.TrimSpace(key), "/authors/")
	endpoint := fmt.Sprintf("%s/authors/%s.json", c.baseURL, url.PathEscape(id))
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return "", err
	}
	return payload.Name, nil
}

type bookSearchResponse struct {
	Docs []bookSearchDoc `json:"docs"`
}

type bookSearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverID          int64    `json:"cover_i"`
	AuthorName       []string `json:"author_name"`
}

// searchByAuthor queries works by author name.
func (c *booksClient) searchByAuthor(ctx context.Context, author string, limit int) ([]bookSearchDoc, error) {
	q := url.Values{}
	q.Set("author", author)
	q.Set("limit", strconv.Itoa(limit))
	var payload bookSearchResponse
	if err := c.doGET(ctx, c.baseURL+"/search.json", q, &payload); err != nil {
		return nil, err
	}
	return payload.Docs, nil
}

type bookSubjectResponse struct {
	Works []struct {
		Key              string `json:"key"`
		Title            string `json:"title"`
		FirstPublishYear int    `json:"first_publish_year"`
		CoverID          int64  `json:"cover_id"`
	} `json:"works"`
}

// searchBySubject queries the subject listing.
func (c *booksClient) searchBySubject(ctx context.Context, subject string, limit int) ([]bookSearchDoc, error) {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(subject), " ", "_"))
	endpoint := fmt.Sprintf("%s/subjects/%s.json", c.baseURL, url.PathEscape(slug))
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var payload bookSubjectResponse
	if err := c.doGET(ctx, endpoint, q, &payload); err != nil {
		return nil, err
	}
	docs := make([]bookSearchDoc, 0, len(payload.Works))
	for _, w := range payload.Works {
		docs = append(docs, bookSearchDoc{
			Key:              w.Key,
			Title:            w.Title,
			FirstPublishYear: w.FirstPublishYear,
			CoverID:          w.CoverID,
		})
	}
	return docs, nil
}

// workIDFromKey strips the "/works/" prefix from a provider key.
func workIDFromKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "/works/")
}

// buildBookCoverURL resolves a cover id to a full image URL.
func buildBookCoverURL(coverID int64) string {
	if coverID <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/%d-%s.jpg", booksCoverBaseURL, coverID, booksCoverSize)
}
