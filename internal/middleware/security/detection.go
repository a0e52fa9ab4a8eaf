package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"trainingclub/internal/cache"
	clublog "trainingclub/internal/log"
)

const (
	flagMemory  = 10 * time.Minute
	flagClients = 1024
)

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like scans. Flags are remembered per client for
// flagMemory so repeat scanners stand out in the logs.
type Detector struct {
	suspicious     int64
	trustedProxies []*net.IPNet

	mu      sync.Mutex
	flagged *cache.LRU[int]
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	return &Detector{
		flagged: cache.NewLRU[int](flagClients, flagMemory),
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	".git", "etc/passwd", "<script", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb"}

// DetectSuspiciousRequest reports whether r matches a known probe pattern.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	suspicious := len(target) > 2048
	for _, p := range suspiciousPatterns {
		if strings.Contains(target, p) {
			suspicious = true
			break
		}
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range scannerAgents {
		if strings.Contains(ua, agent) {
			suspicious = true
			break
		}
	}

	if r.Method == "TRACE" || r.Method == "TRACK" {
		suspicious = true
	}

	if suspicious {
		atomic.AddInt64(&d.suspicious, 1)
	}
	return suspicious
}

// Middleware logs suspicious requests and lets them through; routing and
// auth reject them on their own.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			ip := d.ExtractClientIP(r)
			fields := clublog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, "", r.Header.Get("User-Agent"), "").
				WithClientIP(ip)
			fields["recent_flags"] = d.flag(ip)
			clublog.FromContext(r.Context()).WithComponent(clublog.ComponentSecurity).
				WarnContext(r.Context(), "Suspicious request", fields.ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the caller's address, honouring X-Forwarded-For
// and X-Real-IP only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// flag counts one more suspicious request from ip and returns the count
// within flagMemory.
func (d *Detector) flag(ip string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, _ := d.flagged.Get(ip)
	n++
	d.flagged.Set(ip, n)
	return n
}

// RecentFlags returns how many suspicious requests ip made within
// flagMemory.
func (d *Detector) RecentFlags(ip string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, _ := d.flagged.Get(ip)
	return n
}

// SuspiciousCount returns how many requests were flagged.
func (d *Detector) SuspiciousCount() int64 {
	return atomic.LoadInt64(&d.suspicious)
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
