package adminapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// tokenAuth validates a static service bearer token signed with
// jwtSecret, the same HS256 validate-then-proceed shape as the teacher's
// auth/token.go ValidateToken, repurposed from a per-user session token
// to a single operator/automation credential (SPEC_FULL.md §6: "no
// user/session model, just a static service credential").
type tokenAuth struct {
	secret []byte
}

func newTokenAuth(secret string) *tokenAuth {
	return &tokenAuth{secret: []byte(secret)}
}

// require wraps next so it only runs for requests bearing a valid token.
// When no secret is configured, every request is rejected — there is no
// "auth disabled" mode for an operator-facing control surface.
func (a *tokenAuth) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			http.Error(w, "admin api: no signing secret configured", http.StatusServiceUnavailable)
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
