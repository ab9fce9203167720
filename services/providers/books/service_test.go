package books

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/afero"

	"medley/internal/filecache"
	"medley/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestService(transport roundTripFunc) *Service {
	return &Service{
		client: newBooksClient("", &http.Client{Transport: transport}),
		cache:  filecache.New(afero.NewMemMapFs(), "cache", time.Hour),
	}
}

func TestSimilarPrefersAuthorHint(t *testing.T) {
	svc := newTestService(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/search.json" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("author"); got != "Frank Herbert" {
			t.Errorf("author = %q", got)
		}
		return jsonResponse(`{"docs":[
			{"key":"/works/OL893415W","title":"Dune Messiah","first_publish_year":1969,"cover_i":123},
			{"key":"/works/OL893416W","title":"Children of Dune","first_publish_year":1976}
		]}`), nil
	})

	seed := models.FavoriteItem{ID: "OL45883W", Type: models.MediaTypeBook, Author: "Frank Herbert", Subject: "Science Fiction"}
	items, err := svc.Similar(context.Background(), seed)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	first := items[0]
	if first.ID != "OL893415W" || first.Type != models.MediaTypeBook {
		t.Errorf("unexpected identity: %+v", first)
	}
	if first.Year != 1969 || first.PosterURL != "https://covers.openlibrary.org/b/id/123-M.jpg" {
		t.Errorf("unexpected year/cover: %+v", first)
	}
	if first.Sublabel != "BOOK • 1969" {
		t.Errorf("unexpected sublabel: %s", first.Sublabel)
	}
	if items[1].PosterURL != "" {
		t.Errorf("expected empty cover url, got %s", items[1].PosterURL)
	}
}

func TestSimilarFallsBackToSubject(t *testing.T) {
	svc := newTestService(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/subjects/science_fiction.json" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(`{"works":[{"key":"/works/OL1W","title":"Foundation","first_publish_year":1951,"cover_id":9}]}`), nil
	})

	seed := models.FavoriteItem{ID: "OL2W", Type: models.MediaTypeBook, Subject: "Science Fiction"}
	items, err := svc.Similar(context.Background(), seed)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Foundation" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestSimilarResolvesSeedWithoutHints(t *testing.T) {
	svc := newTestService(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/works/OL45883W.json":
			return jsonResponse(`{"key":"/works/OL45883W","title":"Dune","authors":[{"author":{"key":"/authors/OL79034A"}}]}`), nil
		case "/authors/OL79034A.json":
			return jsonResponse(`{"name":"Frank Herbert"}`), nil
		case "/search.json":
			if got := req.URL.Query().Get("author"); got != "Frank Herbert" {
				t.Errorf("author = %q", got)
			}
			return jsonResponse(`{"docs":[{"key":"/works/OL3W","title":"Dune Messiah"}]}`), nil
		}
		t.Errorf("unhandled request: %s", req.URL.Path)
		return jsonResponse(`{}`), nil
	})

	seed := models.FavoriteItem{ID: "OL45883W", Type: models.MediaTypeBook}
	items, err := svc.Similar(context.Background(), seed)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Dune Messiah" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestSimilarNoAuthorNoSubject(t *testing.T) {
	svc := newTestService(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/works/OL9W.json" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(`{"key":"/works/OL9W","title":"Anonymous Pamphlet"}`), nil
	})

	seed := models.FavoriteItem{ID: "OL9W", Type: models.MediaTypeBook}
	items, err := svc.Similar(context.Background(), seed)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected zero candidates, got %+v", items)
	}
}

func TestAuthorSearchCached(t *testing.T) {
	requests := 0
	svc := newTestService(func(req *http.Request) (*http.Response, error) {
		requests++
		return jsonResponse(`{"docs":[{"key":"/works/OL1W","title":"Hyperion"}]}`), nil
	})

	for i := 0; i < 2; i++ {
		if _, err := svc.SearchByAuthor(context.Background(), "Dan Simmons"); err != nil {
			t.Fatalf("search call %d: %v", i+1, err)
		}
	}
	if requests != 1 {
		t.Errorf("expected 1 upstream request, got %d", requests)
	}
}
