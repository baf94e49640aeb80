package middleware

import (
	"net/http"
	"strings"

	"expense-tracker-server/src/util"
)

// ReadOnlyModeMiddleware rejects expense mutations while the service runs in
// read-only mode. Reads and the identity endpoints stay available.
func ReadOnlyModeMiddleware(readOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !readOnly || r.Method == http.MethodGet || r.Method == http.MethodOptions || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/auth/") {
				next.ServeHTTP(w, r)
				return
			}
			util.WriteError(w, http.StatusServiceUnavailable, "Read-only mode: expense changes are disabled", nil)
		})
	}
}
