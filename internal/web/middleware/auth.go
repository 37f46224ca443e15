package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// TokenParam is the query parameter carrying the shared secret.
const TokenParam = "token"

// TokenAuth returns middleware that validates the token query parameter
// against the configured tokens. Empty tokens are ignored, so a server with
// no tokens configured rejects every request. Rejections are written by
// reject.
func TokenAuth(reject http.HandlerFunc, tokens ...string) func(http.Handler) http.Handler {
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			valid = append(valid, t)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get(TokenParam)
			if token == "" || !isValidToken(token, valid) {
				slog.Warn("auth: rejected token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"missing", token == "",
				)
				reject(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidToken checks the token against every configured value with a
// constant-time comparison, so timing does not reveal which one matched.
func isValidToken(token string, valid []string) bool {
	ok := 0
	for _, v := range valid {
		ok |= subtle.ConstantTimeCompare([]byte(token), []byte(v))
	}
	return ok == 1
}
