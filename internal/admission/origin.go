package admission

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
)

// OriginGate denies browser connections from foreign origins. It allows empty
// origins (non-browser clients), the app's own origin (derived from appURL) and,
// in development, localhost origins.
type OriginGate struct {
	appOrigin     string
	isDevelopment bool
}

func NewOriginGate(appURL string, isDevelopment bool) *OriginGate {
	return &OriginGate{appOrigin: extractOrigin(appURL), isDevelopment: isDevelopment}
}

func (g *OriginGate) Decide(_ context.Context, r *http.Request) (Decision, error) {
	if g.Allowed(r.Header.Get("Origin")) {
		return Allow, nil
	}
	slog.Warn("WebSocket origin rejected", "origin", r.Header.Get("Origin"), "remote_addr", r.RemoteAddr)
	return Denied, nil
}

func (g *OriginGate) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	if g.appOrigin != "" && origin == g.appOrigin {
		return true
	}
	return g.isDevelopment && isLocalhostOrigin(origin)
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
