package auth

import (
	"net/http"

	"github.com/propstack/buyer-intake/pkg/logging"
)

// Middleware rejects requests without a valid session cookie and stashes the
// user id on the request context for downstream handlers.
func Middleware(sessions *Sessions, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}
			userID, err := sessions.Verify(cookie.Value)
			if err != nil {
				logger.Debug("rejected session token", "error", err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}`))
}
