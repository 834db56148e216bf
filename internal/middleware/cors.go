package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS allows the patient and hospital front-ends to call the API from the browser.
// Credentials travel as bearer tokens, never cookies, so a wildcard origin stays usable.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	if slices.Contains(origins, "*") {
		slog.Warn("CORS allows any origin")
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:      origins,
		AllowedMethods:      []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:      []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:      []string{"X-Request-ID"},
		MaxAge:              600,
		AllowCredentials:    false,
		AllowPrivateNetwork: false,
	})

	return handler.Handler
}
