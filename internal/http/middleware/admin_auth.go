package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/wolfman30/vetchat/internal/http/response"
)

type adminContextKey struct{}

// IsAdmin reports whether the request passed AdminToken.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(adminContextKey{}).(bool)
	return ok
}

// AdminToken enforces a static bearer secret for admin endpoints. An empty
// secret rejects every request.
func AdminToken(secret string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				response.Error(w, http.StatusUnauthorized, "admin access disabled")
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Unauthorized: No token provided")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				response.Error(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminContextKey{}, true)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}
