package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/materialvault/materialvault/pkg/materialvault"
)

// AdminOnly returns middleware that requires a bearer token on mutating
// routes. An empty token disables the check, which is the development
// default.
func AdminOnly(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			provided := strings.TrimPrefix(auth, "Bearer ")
			if provided == auth || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusForCode maps a result-record error code onto an HTTP status
func statusForCode(code string) int {
	switch code {
	case materialvault.CodeNotFound:
		return http.StatusNotFound
	case materialvault.CodeNameConflict, materialvault.CodeNotPending, materialvault.CodeNotRejected:
		return http.StatusConflict
	case materialvault.CodeNameOfficialEmpty, materialvault.CodeInvalidPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
