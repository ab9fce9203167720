package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medley/handlers"
	"medley/models"
	"medley/services/favorites"
	"medley/services/users"

	"github.com/gorilla/mux"
)

func TestFavoritesAddAndList(t *testing.T) {
	dir := t.TempDir()
	svc, err := favorites.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create favorites service: %v", err)
	}

	userSvc, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}

	userID := models.DefaultUserID
	h := handlers.NewFavoritesHandler(svc, userSvc)

	body := models.FavoriteUpsert{
		ID:    "603",
		Type:  models.MediaTypeMovie,
		Title: "The Matrix",
		Year:  1999,
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/users/"+userID+"/favorites", bytes.NewReader(payload))
	req = mux.SetURLVars(req, map[string]string{"userID": userID})
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	reqList := httptest.NewRequest(http.MethodGet, "/api/users/"+userID+"/favorites", nil)
	reqList = mux.SetURLVars(reqList, map[string]string{"userID": userID})
	recList := httptest.NewRecorder()
	h.List(recList, reqList)

	if recList.Code != http.StatusOK {
		t.Fatalf("expected list status 200, got %d", recList.Code)
	}

	var items []models.FavoriteItem
	if err := json.Unmarshal(recList.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "The Matrix" || items[0].Type != models.MediaTypeMovie {
		t.Fatalf("unexpected item returned: %+v", items[0])
	}
}

func TestFavoritesAddRejectsBadType(t *testing.T) {
	dir := t.TempDir()
	svc, err := favorites.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create favorites service: %v", err)
	}
	userSvc, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	h := handlers.NewFavoritesHandler(svc, userSvc)

	payload := []byte(`{"id":"1","type":"podcast","title":"Nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/"+models.DefaultUserID+"/favorites", bytes.NewReader(payload))
	req = mux.SetURLVars(req, map[string]string{"userID": models.DefaultUserID})
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestFavoritesUnknownUser(t *testing.T) {
	dir := t.TempDir()
	svc, err := favorites.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create favorites service: %v", err)
	}
	userSvc, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	h := handlers.NewFavoritesHandler(svc, userSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/ghost/favorites", nil)
	req = mux.SetURLVars(req, map[string]string{"userID": "ghost"})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestFavoritesRemove(t *testing.T) {
	dir := t.TempDir()
	svc, err := favorites.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create favorites service: %v", err)
	}
	userSvc, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	userID := models.DefaultUserID
	h := handlers.NewFavoritesHandler(svc, userSvc)

	if _, err := svc.AddOrUpdate(userID, models.FavoriteUpsert{ID: "dune", Type: models.MediaTypeBook, Title: "Dune"}); err != nil {
		t.Fatalf("failed to seed favorites: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/users/"+userID+"/favorites/book/dune", nil)
	req = mux.SetURLVars(req, map[string]string{"userID": userID, "mediaType": "book", "id": "dune"})
	rec := httptest.NewRecorder()
	h.Remove(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	reqAgain := httptest.NewRequest(http.MethodDelete, "/api/users/"+userID+"/favorites/book/dune", nil)
	reqAgain = mux.SetURLVars(reqAgain, map[string]string{"userID": userID, "mediaType": "book", "id": "dune"})
	recAgain := httptest.NewRecorder()
	h.Remove(recAgain, reqAgain)

	if recAgain.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on second delete, got %d", recAgain.Code)
	}
}
