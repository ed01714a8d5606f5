package gateway

import (
	"net/http"
	"net/url"
)

// allowedOrigins derives the CORS/websocket-origin allowlist from the
// configured frontend URL. A wildcard disables origin checking entirely;
// otherwise the configured origin plus a localhost override are allowed, so
// a developer running the frontend locally against a deployed coordinator
// is never blocked.
func allowedOrigins(frontendURL string) []string {
	if frontendURL == "" || frontendURL == "*" {
		return nil
	}
	return []string{frontendURL, "http://localhost:3000"}
}

// checkOrigin builds a websocket.Upgrader.CheckOrigin function from an
// allowlist. A nil allowlist allows everything.
func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return validateOrigin(r.Header.Get("Origin"), origins)
	}
}

// validateOrigin reports whether origin matches one of the allowed origins
// by scheme and host, the same comparison a browser's same-origin policy
// uses. A request with no Origin header (non-browser clients) is allowed
// through unconditionally.
func validateOrigin(origin string, allowed []string) bool {
	if allowed == nil {
		return true
	}
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		allowedURL, err := url.Parse(a)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return true
		}
	}
	return false
}
