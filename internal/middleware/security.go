package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SecurityConfig tunes SecurityHeaders.
type SecurityConfig struct {
	// HSTSMaxAge is advertised on TLS responses. Zero disables HSTS.
	HSTSMaxAge time.Duration
	// TrustForwardedProto treats X-Forwarded-Proto: https as TLS, for deployments behind a terminating proxy.
	TrustForwardedProto bool
}

// staticSecurityHeaders apply to every response. The API carries card data and
// payment state, so nothing may be cached, framed, embedded cross-origin or sniffed.
var staticSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Cache-Control", "no-store, max-age=0"},
	{"Pragma", "no-cache"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Permissions-Policy", "payment=(), camera=(), microphone=(), geolocation=()"},
}

// SecurityHeaders hardens API responses.
func SecurityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(cfg.HSTSMaxAge/time.Second), 10) + "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range staticSecurityHeaders {
				h.Set(kv[0], kv[1])
			}
			if hsts != "" && isTLS(r, cfg.TrustForwardedProto) {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isTLS(r *http.Request, trustForwarded bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustForwarded && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
