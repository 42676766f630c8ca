package auth

import (
	"net/http"
	"strings"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
)

// RequireAdmin gates a route subtree behind a valid admin bearer token.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Validate(r.Context(), bearerToken(r)) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "A valid admin token is required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
