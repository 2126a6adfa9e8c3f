package middleware

import (
	"net/http"
)

// CORS returns middleware that enables cross-origin requests from any origin.
// External automation platforms and the dashboard call this API from browser
// and server contexts alike, so the surface is intentionally open; auth is
// carried in the Authorization header, never in cookies.
// OPTIONS preflight requests are answered with 204 and never reach handlers.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
