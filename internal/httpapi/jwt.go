package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// jwtAuth guards the node-admin routes with a Bearer token signed under
// the shared secret; like the original, it only checks the signature is
// valid, not any particular claim.
func jwtAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, http.StatusUnauthorized, "a JWT bearer token is required")
				return
			}
			token := strings.TrimPrefix(header, prefix)
			_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid JWT token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
