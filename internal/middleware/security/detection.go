package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	applog "skillchisel/internal/log"
)

const maxURLLength = 2048

// DetectionMetrics counts what the detector has flagged.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// rule flags a request when one of its needles occurs in the lowercased
// part of the request the rule looks at.
type rule struct {
	reason  string
	part    func(r *http.Request) string
	needles []string
}

func lowerPath(r *http.Request) string  { return strings.ToLower(r.URL.Path) }
func lowerQuery(r *http.Request) string { return strings.ToLower(r.URL.RawQuery) }
func lowerAgent(r *http.Request) string { return strings.ToLower(r.UserAgent()) }

var (
	probeNeedles = []string{
		"../", "..\\", ".env", ".git", ".ssh", "etc/passwd", "cmd.exe",
		"wp-admin", "wp-login", "phpmyadmin", ".php",
	}
	injectionNeedles = []string{
		"<script", "%3cscript", "javascript:", "eval(", "union select", "union+select",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}

	detectionRules = []rule{
		{reason: "path_probe", part: lowerPath, needles: probeNeedles},
		{reason: "path_injection", part: lowerPath, needles: injectionNeedles},
		{reason: "query_probe", part: lowerQuery, needles: probeNeedles},
		{reason: "query_injection", part: lowerQuery, needles: injectionNeedles},
		{reason: "scanner_agent", part: lowerAgent, needles: scannerAgents},
	}
)

// Detector flags requests that look like probes or scanners and resolves
// the client address behind trusted proxies.
type Detector struct {
	metrics DetectionMetrics
	logger  *applog.Logger

	mu             sync.RWMutex
	trustedProxies []*net.IPNet
}

// NewDetector trusts loopback and the private ranges as proxies.
func NewDetector(logger *applog.Logger) *Detector {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	d := &Detector{logger: logger.WithComponent(applog.ComponentSecurity)}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// classify returns why r looks suspicious, or "" when it does not.
func classify(r *http.Request) string {
	for _, rl := range detectionRules {
		value := rl.part(r)
		if value == "" {
			continue
		}
		for _, needle := range rl.needles {
			if strings.Contains(value, needle) {
				return rl.reason
			}
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", http.MethodConnect:
		return "unusual_method"
	}
	if len(r.URL.String()) > maxURLLength {
		return "long_url"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding_chain"
	}
	return ""
}

// DetectSuspiciousRequest reports whether r matches a detection rule and
// counts it if so.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if classify(r) == "" {
		return false
	}
	atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
	return true
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy and the forwarded value parses.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}

	ip := net.ParseIP(peer)
	if ip == nil {
		atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
		return peer
	}
	if !d.trusted(ip) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (d *Detector) trusted(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		InvalidIPAttempts:  atomic.LoadInt64(&d.metrics.InvalidIPAttempts),
	}
}

// AddTrustedProxy trusts forwarding headers from peers inside cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
	}
	d.mu.Lock()
	d.trustedProxies = append(d.trustedProxies, network)
	d.mu.Unlock()
	return nil
}

// Middleware logs suspicious requests and lets them through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := classify(r); reason != "" {
			atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
			d.logger.WarnContext(r.Context(), "Suspicious request detected",
				"reason", reason,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
