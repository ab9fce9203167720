package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server    ServerSettings    `json:"server"`
	Providers ProviderSettings  `json:"providers"`
	Cache     CacheSettings     `json:"cache"`
	Database  DatabaseSettings  `json:"database"`
	Recommend RecommendSettings `json:"recommend"`
	Log       LogConfig         `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ProviderSettings holds upstream catalog credentials and endpoints.
type ProviderSettings struct {
	ScreenAPIKey string `json:"screenApiKey"` // movies + TV
	Language     string `json:"language"`
	GamesAPIKey  string `json:"gamesApiKey"`
	BooksBaseURL string `json:"booksBaseUrl"` // empty = provider default
}

type CacheSettings struct {
	Directory        string `json:"directory"`
	ProviderTTLHours int    `json:"providerTtlHours"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

// RecommendSettings tunes the similar-items aggregation pipeline.
type RecommendSettings struct {
	TTLMinutes    int `json:"ttlMinutes"`    // cached result freshness window
	ScreenSeeds   int `json:"screenSeeds"`   // movie+TV favorites used as seeds
	GameSeeds     int `json:"gameSeeds"`     // game favorites used as seeds
	BookSeeds     int `json:"bookSeeds"`     // book favorites used as seeds
	PerSeedLimit  int `json:"perSeedLimit"`  // candidates kept per seed
	PerTypeLimit  int `json:"perTypeLimit"`  // items per media type after merge
	MaxConcurrent int `json:"maxConcurrent"` // parallel provider fetches
}

// LogConfig controls file logging and rotation.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`    // megabytes
	MaxBackups int    `json:"maxBackups"` // number of old files to keep
	MaxAge     int    `json:"maxAge"`     // days
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server:    ServerSettings{Host: "0.0.0.0", Port: 7878},
		Providers: ProviderSettings{ScreenAPIKey: "", Language: "en", GamesAPIKey: "", BooksBaseURL: ""},
		Cache:     CacheSettings{Directory: "cache", ProviderTTLHours: 24},
		Database:  DatabaseSettings{Path: "cache/medley.db"},
		Recommend: RecommendSettings{
			TTLMinutes:    5,
			ScreenSeeds:   6,
			GameSeeds:     3,
			BookSeeds:     3,
			PerSeedLimit:  10,
			PerTypeLimit:  20,
			MaxConcurrent: 6,
		},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	dec := json.NewDecoder(f)
	if err := dec.Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for newly introduced settings when config predates them
	if strings.TrimSpace(s.Providers.Language) == "" {
		s.Providers.Language = "en"
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = "cache"
	}
	if s.Cache.ProviderTTLHours == 0 {
		s.Cache.ProviderTTLHours = 24
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = "cache/medley.db"
	}
	if s.Recommend.TTLMinutes == 0 {
		s.Recommend.TTLMinutes = 5
	}
	if s.Recommend.ScreenSeeds == 0 {
		s.Recommend.ScreenSeeds = 6
	}
	if s.Recommend.GameSeeds == 0 {
		s.Recommend.GameSeeds = 3
	}
	if s.Recommend.BookSeeds == 0 {
		s.Recommend.BookSeeds = 3
	}
	if s.Recommend.PerSeedLimit == 0 {
		s.Recommend.PerSeedLimit = 10
	}
	if s.Recommend.PerTypeLimit == 0 {
		s.Recommend.PerTypeLimit = 20
	}
	if s.Recommend.MaxConcurrent == 0 {
		s.Recommend.MaxConcurrent = 6
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "cache/logs/backend.log"
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = "info"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 50
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 7
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
