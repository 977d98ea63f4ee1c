package control

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// sameMachineOrigin reports whether a request may drive the control API.
// Non-browser clients send no Origin. Browsers always do, so a page served
// from anywhere but this machine or the desktop shell is refused.
func sameMachineOrigin(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
		return false
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme == "wails" {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// rejectCrossOrigin stops browser pages on other sites from issuing commands
// with simple requests that skip CORS preflight.
func (s *Server) rejectCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameMachineOrigin(r) {
			s.logger.Warn("rejected cross-origin control request",
				"origin", r.Header.Get("Origin"),
				"path", r.URL.Path,
			)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "cross-origin request refused"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
