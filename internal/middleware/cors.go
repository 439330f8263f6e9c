package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows browser callers from origins. Credentials are never allowed:
// tokens travel in the Authorization header, not in cookies.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{"Retry-After", requestIDHeader},
		MaxAge:           600,
		AllowCredentials: false,
	})

	return handler.Handler
}
