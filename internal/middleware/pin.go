package middleware

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// PINHeader carries the parent PIN on parent-only requests.
const PINHeader = "X-Parent-PIN"

// RequirePIN lets a request through only when check accepts the PIN header.
// Wrong PINs spend a token from failures, keyed by clientIP (RemoteIP when
// nil); a client with none left is refused before its PIN is even looked at.
func RequirePIN(check func(pin string) bool, failures *RateLimiter, clientIP func(*http.Request) string, logger *slog.Logger) func(http.Handler) http.Handler {
	if clientIP == nil {
		clientIP = RemoteIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if failures != nil && failures.Blocked(ip) {
				writeError(w, http.StatusTooManyRequests, "too many wrong PINs, try again later")
				return
			}
			if !check(r.Header.Get(PINHeader)) {
				if failures != nil {
					failures.Allow(ip)
				}
				logger.Warn("wrong parent PIN", "remote", ip, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "wrong PIN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
