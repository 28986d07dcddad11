// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/signalbot/internal/api/response"
	"github.com/newthinker/signalbot/internal/core"
)

var (
	errMissingKey = errors.New("missing API key")
	errInvalidKey = errors.New("invalid API key")
)

// APIKeyAuth returns middleware that requires apiKey in the X-API-Key
// header or as an Authorization bearer token. An empty apiKey disables
// authentication.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := requestKey(r)
			if provided == "" {
				response.Error(w, http.StatusUnauthorized, core.WrapError(core.ErrUnauthorized, errMissingKey))
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.Error(w, http.StatusUnauthorized, core.WrapError(core.ErrUnauthorized, errInvalidKey))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
