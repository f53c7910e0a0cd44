package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const realm = "KPI Dashboard Admin"

// BasicAuth guards roster administration. Empty credentials lock the routes entirely.
func BasicAuth(username, password string) func(http.Handler) http.Handler {
	if username == "" || password == "" {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Add("WWW-Authenticate", `Basic realm="`+realm+`"`)
				w.WriteHeader(http.StatusUnauthorized)
			})
		}
	}
	return middleware.BasicAuth(realm, map[string]string{username: password})
}
