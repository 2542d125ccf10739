// Package security holds the HTTP hardening middleware: response headers,
// client address resolution behind proxies and scanner detection.
package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	applog "fintrack/internal/log"
)

const (
	maxURLLength   = 2048
	maxProxyHops   = 5
	reasonPath     = "scan_path"
	reasonQuery    = "scan_query"
	reasonAgent    = "scanner_agent"
	reasonMethod   = "unusual_method"
	reasonLongURL  = "url_too_long"
	reasonHopCount = "proxy_chain"
)

// Scanner fragments never appear in ledger routes, whose only dynamic parts
// are DD-MM-YYYY dates.
var (
	scanFragments = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		".php", "etc/passwd", "cmd.exe", "<script", "javascript:",
		"union select", "eval(",
	}
	scannerAgents  = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}
	unusualMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags requests that look like scans rather than ledger traffic
// and resolves the client address used for rate limiting.
type Detector struct {
	suspicious int64
	invalidIP  int64

	mu      sync.RWMutex
	proxies []*net.IPNet
}

// NewDetector trusts loopback and RFC 1918 peers as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.proxies = append(d.proxies, network)
	d.mu.Unlock()
	return nil
}

// Inspect returns the first rule the request trips, or "" when it looks
// like normal API traffic.
func (d *Detector) Inspect(r *http.Request) string {
	if unusualMethods[r.Method] {
		return reasonMethod
	}
	if containsAny(strings.ToLower(r.URL.Path), scanFragments) {
		return reasonPath
	}
	if containsAny(strings.ToLower(r.URL.RawQuery), scanFragments) {
		return reasonQuery
	}
	if containsAny(strings.ToLower(r.UserAgent()), scannerAgents) {
		return reasonAgent
	}
	if len(r.URL.String()) > maxURLLength {
		return reasonLongURL
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxProxyHops {
		return reasonHopCount
	}
	return ""
}

func containsAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the peer address, or the first forwarded address
// when the peer is a trusted proxy. Unparseable forwarded values are counted
// and ignored.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	peerIP := net.ParseIP(peer)
	if peerIP == nil || !d.isTrustedProxy(peerIP) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
		atomic.AddInt64(&d.invalidIP, 1)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.proxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIP),
	}
}

// Middleware logs and counts suspicious requests. Nothing is blocked here;
// abusive writers hit the rate limiter instead.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Inspect(r); reason != "" {
			atomic.AddInt64(&d.suspicious, 1)
			slog.WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldComponent, applog.ComponentSecurity,
				"reason", reason,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
