package utils

import "github.com/gorilla/mux"

// NewRouter constructs the application's mux router. Trailing slashes are
// treated as distinct paths, matching the frontend's request shapes.
func NewRouter() *mux.Router {
	return mux.NewRouter()
}
