package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// corsPreflightMaxAge is how long, in seconds, browsers may cache a preflight.
const corsPreflightMaxAge = 300

// CORS allows the back-office origins in origins, falling back to the local
// dev frontend. Blank entries are ignored. A literal "*" disables
// credentials, since browsers refuse credentialed wildcard responses.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	wildcard := false
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
			continue
		case "*":
			wildcard = true
		}
		allowed = append(allowed, origin)
	}
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:3000"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", idempotencyHeader, requestIDHeader, "Last-Event-ID", "X-Requested-With"},
		// Idempotent-Replayed lets the till tell a replay from a fresh submit.
		ExposedHeaders:   []string{requestIDHeader, replayedHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           corsPreflightMaxAge,
	})
}
