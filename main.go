package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"medley/api"
	"medley/config"
	"medley/handlers"
	"medley/internal/database"
	"medley/services/catalog"
	"medley/services/favorites"
	"medley/services/providers/books"
	"medley/services/providers/games"
	"medley/services/providers/screen"
	"medley/services/recommend"
	"medley/services/users"
	"medley/utils"

	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 medley Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("MEDLEY_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Open the database and run migrations
	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Provider services
	screenService := screen.NewService(settings.Providers.ScreenAPIKey, settings.Providers.Language, settings.Cache.Directory, settings.Cache.ProviderTTLHours)
	gamesService := games.NewService(settings.Providers.GamesAPIKey, settings.Cache.Directory, settings.Cache.ProviderTTLHours, games.NewTokenCache())
	booksService := books.NewService(settings.Providers.BooksBaseURL, settings.Cache.Directory, settings.Cache.ProviderTTLHours)

	// Profile-scoped services
	usersService, err := users.NewService(settings.Cache.Directory)
	if err != nil {
		log.Fatalf("failed to init users service: %v", err)
	}
	favoritesService, err := favorites.NewService(settings.Cache.Directory)
	if err != nil {
		log.Fatalf("failed to init favorites service: %v", err)
	}

	// Recommendation aggregation over the provider fan-out
	recommendService := recommend.NewService(favoritesService, screenService, gamesService, booksService, db.RecCache, recommend.Options{
		TTL:           time.Duration(settings.Recommend.TTLMinutes) * time.Minute,
		ScreenSeeds:   settings.Recommend.ScreenSeeds,
		GameSeeds:     settings.Recommend.GameSeeds,
		BookSeeds:     settings.Recommend.BookSeeds,
		PerSeedLimit:  settings.Recommend.PerSeedLimit,
		PerTypeLimit:  settings.Recommend.PerTypeLimit,
		MaxConcurrent: settings.Recommend.MaxConcurrent,
	})
	// Favorites mutations drop the cached recommendations for that profile.
	favoritesService.SetInvalidator(recommendService)

	catalogService := catalog.NewService(screenService)

	// Handlers
	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	settingsHandler.ScreenService = screenService
	settingsHandler.GamesService = gamesService
	settingsHandler.BooksService = booksService
	usersHandler := handlers.NewUsersHandler(usersService)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesService, usersService)
	recommendationsHandler := handlers.NewRecommendationsHandler(recommendService, usersService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	r := utils.NewRouter()
	api.Register(r, settingsHandler, usersHandler, favoritesHandler, recommendationsHandler, catalogHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
