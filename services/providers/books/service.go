// Package books talks to the book catalog provider. Related books come from
// author or subject searches since the provider has no direct similar call.
package books

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"medley/internal/filecache"
	"medley/models"
)

// booksSearchLimit bounds how many works one search pulls from upstream.
const booksSearchLimit = 20

type Service struct {
	client *booksClient
	cache  *filecache.Cache
}

func NewService(baseURL, cacheDir string, ttlHours int) *Service {
	dir := filepath.Join(cacheDir, "books")
	return &Service{
		client: newBooksClient(baseURL, nil),
		cache:  filecache.NewOS(dir, time.Duration(ttlHours)*time.Hour),
	}
}

// Similar returns books related to the seed favorite. The seed's author hint
// takes priority over its subject hint; when neither is known the work record
// is looked up to resolve one. A seed with no usable author or subject yields
// an empty list, not an error.
func (s *Service) Similar(ctx context.Context, seed models.FavoriteItem) ([]models.MediaItem, error) {
	author := seed.Author
	subject := seed.Subject

	if author == "" && subject == "" {
		work, err := s.client.bookByID(ctx, seed.ID)
		if err != nil {
			return nil, err
		}
		if len(work.Authors) > 0 {
			name, err := s.client.authorNameByKey(ctx, work.Authors[0].Author.Key)
			if err != nil {
				log.Printf("[books] failed to resolve author for %s: %v", seed.ID, err)
			} else {
				author = name
			}
		}
		if author == "" && len(work.Subjects) > 0 {
			subject = work.Subjects[0]
		}
	}

	switch {
	case author != "":
		return s.searchByAuthor(ctx, author)
	case subject != "":
		return s.searchBySubject(ctx, subject)
	default:
		return nil, nil
	}
}

// SearchByAuthor returns normalized works by the given author.
func (s *Service) SearchByAuthor(ctx context.Context, author string) ([]models.MediaItem, error) {
	return s.searchByAuthor(ctx, author)
}

// SearchBySubject returns normalized works under the given subject.
func (s *Service) SearchBySubject(ctx context.Context, subject string) ([]models.MediaItem, error) {
	return s.searchBySubject(ctx, subject)
}

func (s *Service) searchByAuthor(ctx context.Context, author string) ([]models.MediaItem, error) {
	key := filecache.Key("author", author)
	var docs []bookSearchDoc
	if ok, _ := s.cache.Get(key, &docs); !ok {
		var err error
		docs, err = s.client.searchByAuthor(ctx, author, booksSearchLimit)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(key, docs); err != nil {
			log.Printf("[books] failed to cache author search %q: %v", author, err)
		}
	}
	return normalizeDocs(docs), nil
}

func (s *Service) searchBySubject(ctx context.Context, subject string) ([]models.MediaItem, error) {
	key := filecache.Key("subject", subject)
	var docs []bookSearchDoc
	if ok, _ := s.cache.Get(key, &docs); !ok {
		var err error
		docs, err = s.client.searchBySubject(ctx, subject, booksSearchLimit)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(key, docs); err != nil {
			log.Printf("[books] failed to cache subject search %q: %v", subject, err)
		}
	}
	return normalizeDocs(docs), nil
}

func normalizeDocs(docs []bookSearchDoc) []models.MediaItem {
	items := make([]models.MediaItem, 0, len(docs))
	for _, d := range docs {
		id := workIDFromKey(d.Key)
		if id == "" {
			continue
		}
		title := d.Title
		if title == "" {
			title = "Untitled"
		}
		items = append(items, models.MediaItem{
			ID:        id,
			Type:      models.MediaTypeBook,
			Title:     title,
			Year:      d.FirstPublishYear,
			PosterURL: buildBookCoverURL(d.CoverID),
			Sublabel:  models.BuildSublabel(models.MediaTypeBook, d.FirstPublishYear),
		})
	}
	return items
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (s *Service) SetHTTPClient(httpc *http.Client) {
	s.client.httpc = httpc
}

// ClearCache drops all cached provider responses.
func (s *Service) ClearCache() error {
	return s.cache.Clear()
}
