package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig lists the response headers set on every reply. Empty values
// are skipped.
type HeadersConfig struct {
	CSP               string
	FrameOptions      string
	ContentTypeOpts   string
	ReferrerPolicy    string
	PermissionsPolicy string
	CacheControl      string
	CrossOrigin       string

	// HSTS is only sent over TLS.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
}

// DefaultHeadersConfig suits a JSON API serving financial records: nothing
// may be framed, sniffed, embedded or cached.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ContentTypeOpts:       "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CacheControl:          "no-store",
		CrossOrigin:           "same-origin",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		HSTSPreload:           true,
	}
}

// HeadersMiddleware applies a fixed header set to every response.
type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, kv := range [][2]string{
		{"Content-Security-Policy", config.CSP},
		{"X-Frame-Options", config.FrameOptions},
		{"X-Content-Type-Options", config.ContentTypeOpts},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Permissions-Policy", config.PermissionsPolicy},
		{"Cache-Control", config.CacheControl},
		{"Cross-Origin-Opener-Policy", config.CrossOrigin},
		{"Cross-Origin-Resource-Policy", config.CrossOrigin},
	} {
		if kv[1] != "" {
			h.static = append(h.static, kv)
		}
	}

	if config.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
		if config.HSTSPreload {
			h.hsts += "; preload"
		}
	}
	return h
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range h.static {
			headers.Set(kv[0], kv[1])
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
