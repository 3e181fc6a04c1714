package middleware

import (
	"net/http"

	"github.com/angelmondragon/registro-bienes-backend/api/responses"
)

// DebugDetails lets error responses carry internal causes. Mounted only in dev.
func DebugDetails(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(responses.WithDebugDetails(r.Context())))
		})
	}
}
