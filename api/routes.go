package api

import (
	"encoding/json"
	"net/http"

	"medley/handlers"

	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	settingsHandler *handlers.SettingsHandler,
	usersHandler *handlers.UsersHandler,
	favoritesHandler *handlers.FavoritesHandler,
	recommendationsHandler *handlers.RecommendationsHandler,
	catalogHandler *handlers.CatalogHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Settings
	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings", settingsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/settings/cache/clear", settingsHandler.ClearProviderCache).Methods(http.MethodPost)
	api.HandleFunc("/settings/cache/clear", settingsHandler.Options).Methods(http.MethodOptions)

	// Profiles
	api.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users", usersHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}", usersHandler.Rename).Methods(http.MethodPatch)
	api.HandleFunc("/users/{userID}", usersHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/color", usersHandler.SetColor).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/color", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/pin", usersHandler.SetPin).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/pin", usersHandler.ClearPin).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/pin", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/pin/verify", usersHandler.VerifyPin).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/pin/verify", usersHandler.Options).Methods(http.MethodOptions)

	// Favorites
	api.HandleFunc("/users/{userID}/favorites", favoritesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/favorites", favoritesHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/favorites", favoritesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/favorites/{mediaType}/{id}", favoritesHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/favorites/{mediaType}/{id}", favoritesHandler.Options).Methods(http.MethodOptions)

	// Recommendations
	api.HandleFunc("/users/{userID}/recommendations", recommendationsHandler.ForUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/recommendations", recommendationsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/recommendations", recommendationsHandler.Anonymous).Methods(http.MethodGet)
	api.HandleFunc("/recommendations", recommendationsHandler.Options).Methods(http.MethodOptions)

	// Catalog
	api.HandleFunc("/catalog", catalogHandler.Listing).Methods(http.MethodGet)
	api.HandleFunc("/catalog", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/genres", catalogHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/catalog/genres", catalogHandler.Options).Methods(http.MethodOptions)

	// Health
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	api.HandleFunc("/health", handleOptions).Methods(http.MethodOptions)
}
