package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local storefront dev server
	"http://localhost:5173", // vite preview
}

// CORS returns middleware that applies the API's allowed origin policy.
// Extra origins come from configuration so deploy targets can add their
// storefront domains without a code change.
func CORS(extraOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(defaultCORSOrigins)+len(extraOrigins))
	origins = append(origins, defaultCORSOrigins...)
	origins = append(origins, extraOrigins...)

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Total-Count", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
