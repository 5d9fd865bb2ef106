package middleware

import (
	"net/http"
	"strings"

	"event-seating/pkg/utils"
)

// Session copies the x-session-id header into the request context. Requests
// without the header pass through; handlers fall back to the body field.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(utils.SessionHeader))
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := utils.SetSessionContext(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
