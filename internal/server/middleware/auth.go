// Package middleware contains HTTP middleware for the control plane.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireOperatorAuth ensures the request carries the operator bearer
// token. An empty token disables inbound auth entirely.
func RequireOperatorAuth(operatorToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if operatorToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(operatorToken)) != 1 {
				http.Error(w, "Invalid authorization token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
