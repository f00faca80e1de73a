package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/cloudprice/internal/config"
)

// exposedHeaders lets browser clients read the aggregation status headers.
var exposedHeaders = []string{"X-Cache", "X-Providers-Failed", "X-Request-Id", "X-Trace-Id"}

// CORS creates a middleware that handles Cross-Origin Resource Sharing (CORS)
// using the github.com/rs/cors library.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
