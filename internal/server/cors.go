package server

import (
	"net/http"
	"slices"
	"strings"
)

// apply sets the CORS headers for an allowed Origin. Preflights also get the
// allowed methods and the requested headers echoed back.
func (c CORSOptions) apply(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(c.AllowedOrigins) == 0 {
		return
	}
	h := w.Header()
	switch {
	case slices.Contains(c.AllowedOrigins, "*"):
		h.Set("Access-Control-Allow-Origin", "*")
	case slices.Contains(c.AllowedOrigins, origin):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	default:
		return
	}
	if r.Method != http.MethodOptions {
		return
	}
	if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
	h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
}

// wantsGraphiQL is true for browser navigations: an HTML Accept and no query.
func wantsGraphiQL(r *http.Request) bool {
	if r.URL.Query().Get("query") != "" {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "text/html") || part == "*/*" {
			return true
		}
	}
	return false
}
