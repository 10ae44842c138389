// Package middleware provides HTTP middleware for the MCP HTTP transport.
package middleware

import (
	"net/http"
	"slices"
)

// CORS returns middleware that validates the Origin header and sets CORS
// headers for browser-based MCP clients. A request carrying an Origin outside
// allowedOrigins is answered with 403; requests without an Origin (non-browser
// clients) pass through. The MCP session headers must be both allowed and
// exposed, or the client cannot resume its session.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			explicit := slices.Contains(allowedOrigins, origin)
			if !wildcard && !explicit {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
			w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
			w.Header().Add("Vary", "Origin")
			// Only allow credentials for explicit origins, not wildcard matches.
			// Setting Allow-Credentials with a wildcard-echoed origin enables CSRF.
			if explicit {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
