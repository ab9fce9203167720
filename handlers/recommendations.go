package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"medley/models"
	"medley/services/recommend"

	"github.com/gorilla/mux"
)

type recommendService interface {
	Recommend(ctx context.Context, userID string) ([]models.MediaItem, error)
}

var _ recommendService = (*recommend.Service)(nil)

type RecommendationsHandler struct {
	Service recommendService
	Users   userDirectory
}

func NewRecommendationsHandler(service recommendService, users userDirectory) *RecommendationsHandler {
	return &RecommendationsHandler{Service: service, Users: users}
}

// ForUser serves recommendations for a known profile. The profile partition
// enables the TTL cache.
func (h *RecommendationsHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := strings.TrimSpace(vars["userID"])
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}
	if h.Users != nil && !h.Users.Exists(userID) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	h.respond(w, r, userID)
}

// Anonymous serves recommendations without a profile; results are always
// computed fresh.
func (h *RecommendationsHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "")
}

func (h *RecommendationsHandler) respond(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.Service.Recommend(r.Context(), userID)
	if err != nil {
		// The aggregation isolates per-seed failures; reaching here means
		// something outside those boundaries broke. Still return a valid
		// empty list shape.
		log.Printf("[recommendations] aggregation failed for user %q: %v", userID, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode([]models.MediaItem{})
		return
	}
	if items == nil {
		items = []models.MediaItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *RecommendationsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
