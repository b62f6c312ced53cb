package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// localFrontends are allowed when no origins are configured.
var localFrontends = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS lets the storefront and back-office SPAs call the API with bearer
// tokens and read the request id and replay marker headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = localFrontends
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
