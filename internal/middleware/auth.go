package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"datagate/internal/domain"
)

// Authenticate resolves the caller identity. A valid bearer token yields the
// token's identity; no token at all yields the anonymous identity, which the
// policy layer then judges. A token that is present but invalid is rejected
// with 401 rather than downgraded to anonymous.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "authorization header must be a bearer token")
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")
			identity, err := validator.Validate(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAuthenticated rejects anonymous callers. Mounted in front of the
// admin routes so catalogue mutation always has an attributable subject.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id.Subject == "" || id.Type == domain.SubjectAnonymous {
			writeUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
