package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/chorecal/internal/auth"
)

const (
	authRealm        = `Basic realm="chorecal", charset="UTF-8"`
	maxAuthFailures  = 10
	authFailureReset = 15 * time.Minute
)

// BasicAuthConfig holds the single shared login. An empty Username disables
// authentication.
type BasicAuthConfig struct {
	Username     string
	PasswordHash string
	// Skip lists exact paths served without credentials.
	Skip []string
}

func (c BasicAuthConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// BasicAuth checks HTTP Basic credentials against a bcrypt hash. Clients that
// fail too often are throttled by limiter, keyed on their IP.
func BasicAuth(cfg BasicAuthConfig, limiter *RateLimiter) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.Skip))
	for _, p := range cfg.Skip {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := "auth:" + RealIP(r)
			if limiter != nil && limiter.Exceeded(key, maxAuthFailures) {
				tooManyRequests(w, authFailureReset)
				return
			}

			u, p, ok := r.BasicAuth()
			if !ok || !checkCredentials(cfg, u, p) {
				if limiter != nil {
					limiter.Allow(key, maxAuthFailures, authFailureReset)
				}
				w.Header().Set("WWW-Authenticate", authRealm)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := auth.WithPrincipal(r.Context(), auth.Principal{Username: u, RemoteIP: RealIP(r)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func checkCredentials(cfg BasicAuthConfig, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passOK := bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}
