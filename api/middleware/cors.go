package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware allowing the configured storefront origins. The
// session header is both accepted and exposed so browsers can keep it.
func CORS(origins []string, sessionHeader string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", requestIDHeader, sessionHeader},
		ExposedHeaders:   []string{requestIDHeader, sessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
