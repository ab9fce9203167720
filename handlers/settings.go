package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"medley/config"
)

type providerReloader interface {
	UpdateAPIKey(apiKey, language string)
	ClearCache() error
}

type gamesReloader interface {
	UpdateAPIKey(apiKey string)
	ClearCache() error
}

type cacheClearer interface {
	ClearCache() error
}

type SettingsHandler struct {
	Manager       *config.Manager
	ScreenService providerReloader
	GamesService  gamesReloader
	BooksService  cacheClearer
}

func NewSettingsHandler(manager *config.Manager) *SettingsHandler {
	return &SettingsHandler{Manager: manager}
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Manager.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Manager.Save(settings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.reloadServices(settings)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// reloadServices pushes updated provider credentials into the running
// services so a restart is not needed after a settings change.
func (h *SettingsHandler) reloadServices(s config.Settings) {
	if h.ScreenService != nil {
		h.ScreenService.UpdateAPIKey(s.Providers.ScreenAPIKey, s.Providers.Language)
		log.Printf("[settings] reloaded screen provider credentials")
	}
	if h.GamesService != nil {
		h.GamesService.UpdateAPIKey(s.Providers.GamesAPIKey)
		log.Printf("[settings] reloaded games provider credentials")
	}
}

// ClearProviderCache drops every provider's on-disk response cache.
func (h *SettingsHandler) ClearProviderCache(w http.ResponseWriter, r *http.Request) {
	clearers := []struct {
		name  string
		cache cacheClearer
	}{
		{"screen", h.ScreenService},
		{"games", h.GamesService},
		{"books", h.BooksService},
	}

	for _, c := range clearers {
		if c.cache == nil {
			continue
		}
		if err := c.cache.ClearCache(); err != nil {
			log.Printf("[settings] failed to clear %s cache: %v", c.name, err)
			http.Error(w, "failed to clear "+c.name+" cache", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func (h *SettingsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
