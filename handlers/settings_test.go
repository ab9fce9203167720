package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"medley/config"
	"medley/handlers"
)

type stubScreenReloader struct {
	apiKey   string
	language string
	cleared  bool
}

func (s *stubScreenReloader) UpdateAPIKey(apiKey, language string) {
	s.apiKey = apiKey
	s.language = language
}

func (s *stubScreenReloader) ClearCache() error {
	s.cleared = true
	return nil
}

type stubGamesReloader struct {
	apiKey  string
	cleared bool
}

func (s *stubGamesReloader) UpdateAPIKey(apiKey string) { s.apiKey = apiKey }

func (s *stubGamesReloader) ClearCache() error {
	s.cleared = true
	return nil
}

func TestSettingsGetReturnsDefaults(t *testing.T) {
	manager := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	h := handlers.NewSettingsHandler(manager)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	h.GetSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var settings config.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("failed to decode settings: %v", err)
	}
	if settings.Server.Port == 0 {
		t.Fatalf("expected default port backfilled, got %+v", settings.Server)
	}
}

func TestSettingsUpdateReloadsProviders(t *testing.T) {
	manager := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	screenStub := &stubScreenReloader{}
	gamesStub := &stubGamesReloader{}
	h := handlers.NewSettingsHandler(manager)
	h.ScreenService = screenStub
	h.GamesService = gamesStub

	settings, err := manager.Load()
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}
	settings.Providers.ScreenAPIKey = "new-screen-key"
	settings.Providers.Language = "de-DE"
	settings.Providers.GamesAPIKey = "new-games-key"

	payload, _ := json.Marshal(settings)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if screenStub.apiKey != "new-screen-key" || screenStub.language != "de-DE" {
		t.Errorf("screen provider not reloaded: %+v", screenStub)
	}
	if gamesStub.apiKey != "new-games-key" {
		t.Errorf("games provider not reloaded: %+v", gamesStub)
	}

	saved, err := manager.Load()
	if err != nil {
		t.Fatalf("failed to reload saved settings: %v", err)
	}
	if saved.Providers.ScreenAPIKey != "new-screen-key" {
		t.Errorf("settings not persisted: %+v", saved.Providers)
	}
}

func TestSettingsClearProviderCache(t *testing.T) {
	manager := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	screenStub := &stubScreenReloader{}
	gamesStub := &stubGamesReloader{}
	h := handlers.NewSettingsHandler(manager)
	h.ScreenService = screenStub
	h.GamesService = gamesStub

	req := httptest.NewRequest(http.MethodPost, "/api/settings/cache/clear", nil)
	rec := httptest.NewRecorder()
	h.ClearProviderCache(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !screenStub.cleared || !gamesStub.cleared {
		t.Errorf("expected both provider caches cleared: screen=%v games=%v", screenStub.cleared, gamesStub.cleared)
	}
}
