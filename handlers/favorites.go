package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"medley/models"
	"medley/services/favorites"

	"github.com/gorilla/mux"
)

type favoritesService interface {
	List(userID string) ([]models.FavoriteItem, error)
	AddOrUpdate(userID string, input models.FavoriteUpsert) (models.FavoriteItem, error)
	Remove(userID string, mediaType models.MediaType, id string) (bool, error)
}

var _ favoritesService = (*favorites.Service)(nil)

type userDirectory interface {
	Exists(id string) bool
}

type FavoritesHandler struct {
	Service favoritesService
	Users   userDirectory
}

func NewFavoritesHandler(service favoritesService, users userDirectory) *FavoritesHandler {
	return &FavoritesHandler{Service: service, Users: users}
}

func (h *FavoritesHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	vars := mux.Vars(r)
	id := strings.TrimSpace(vars["userID"])
	if id == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}
	if h.Users != nil && !h.Users.Exists(id) {
		http.Error(w, "user not found", http.StatusNotFound)
		return "", false
	}
	return id, true
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	items, err := h.Service.List(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body models.FavoriteUpsert
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.Service.AddOrUpdate(userID, body)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, favorites.ErrIDRequired),
			errors.Is(err, favorites.ErrMediaTypeRequired),
			errors.Is(err, favorites.ErrMediaTypeInvalid):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	mediaType := strings.TrimSpace(vars["mediaType"])
	id := strings.TrimSpace(vars["id"])
	if mediaType == "" || id == "" {
		http.Error(w, "media type and id are required", http.StatusBadRequest)
		return
	}

	removed, err := h.Service.Remove(userID, models.MediaType(mediaType), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, favorites.ErrIdentifierRequired) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if !removed {
		http.Error(w, "favorite not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
