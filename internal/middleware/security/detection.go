package security

import (
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"budget/internal/log"
)

// Threat names what a request looked like. The zero value means clean.
type Threat string

const (
	ThreatNone            Threat = ""
	ThreatTraversal       Threat = "path_traversal"
	ThreatDotfile         Threat = "dotfile_probe"
	ThreatInjection       Threat = "injection"
	ThreatScanner         Threat = "scanner"
	ThreatMethod          Threat = "unsupported_method"
	ThreatOversizedImport Threat = "oversized_import"
	ThreatMalformedImport Threat = "malformed_import"
	ThreatLoginLockout    Threat = "login_lockout"
)

// Blocking reports whether requests with this threat are refused rather than
// logged and served.
func (t Threat) Blocking() bool {
	return t == ThreatOversizedImport || t == ThreatLoginLockout
}

// DetectorConfig describes the routes that get extra scrutiny.
type DetectorConfig struct {
	ImportPath       string
	MaxImportBytes   int64
	LoginPath        string
	MaxLoginFailures int
	LoginWindow      time.Duration
}

// DefaultDetectorConfig locks a client out of /login after five failures in
// fifteen minutes and caps CSV uploads at 10 MB.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ImportPath:       "/import",
		MaxImportBytes:   10 << 20,
		LoginPath:        "/login",
		MaxLoginFailures: 5,
		LoginWindow:      15 * time.Minute,
	}
}

// DetectionMetrics is a snapshot of detector counters.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	LoginLockouts      int64
	LockedClients      int
}

// Detector flags probes against the app and tracks failed sign-ins per client.
type Detector struct {
	cfg            DetectorConfig
	trustedProxies []*net.IPNet
	now            func() time.Time

	suspicious atomic.Int64
	invalidIP  atomic.Int64
	lockouts   atomic.Int64

	mu       sync.Mutex
	failures map[string][]time.Time
}

func NewDetector(cfg DetectorConfig) *Detector {
	def := DefaultDetectorConfig()
	if cfg.MaxLoginFailures <= 0 {
		cfg.MaxLoginFailures = def.MaxLoginFailures
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = def.LoginWindow
	}
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = def.MaxImportBytes
	}
	return &Detector{
		cfg: cfg,
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
		now:      time.Now,
		failures: make(map[string][]time.Time),
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

var (
	traversalMarkers = []string{"../", "..\\", "%2e%2e", "etc/passwd"}
	injectionMarkers = []string{"<script", "javascript:", "union select", "' or '1'='1", "sleep("}
	scannerAgents    = []string{"sqlmap", "nikto", "nmap", "gobuster", "dirbuster", "masscan", "zgrab"}
)

// Inspect classifies r. Only the first matching threat is reported.
func (d *Detector) Inspect(r *http.Request) Threat {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if decoded, err := url.QueryUnescape(query); err == nil {
		query += " " + decoded
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions:
	default:
		return ThreatMethod
	}
	if containsAny(path, traversalMarkers) || containsAny(query, traversalMarkers) {
		return ThreatTraversal
	}
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, ".") {
			return ThreatDotfile
		}
	}
	if containsAny(query, injectionMarkers) {
		return ThreatInjection
	}
	if containsAny(strings.ToLower(r.UserAgent()), scannerAgents) {
		return ThreatScanner
	}

	if r.Method != http.MethodPost {
		return ThreatNone
	}
	switch r.URL.Path {
	case d.cfg.ImportPath:
		if r.ContentLength > d.cfg.MaxImportBytes {
			return ThreatOversizedImport
		}
		if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "multipart/form-data" {
			return ThreatMalformedImport
		}
	case d.cfg.LoginPath:
		if d.LockedOut(d.ExtractClientIP(r)) {
			return ThreatLoginLockout
		}
	}
	return ThreatNone
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// RecordLoginFailure notes a rejected password from ip and reports whether
// the client is now locked out.
func (d *Detector) RecordLoginFailure(ip string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	recent := d.recentLocked(ip)
	recent = append(recent, d.now())
	d.failures[ip] = recent
	if len(recent) == d.cfg.MaxLoginFailures {
		d.lockouts.Add(1)
	}
	return len(recent) >= d.cfg.MaxLoginFailures
}

// ClearLoginFailures forgets ip's failures after a successful sign-in.
func (d *Detector) ClearLoginFailures(ip string) {
	d.mu.Lock()
	delete(d.failures, ip)
	d.mu.Unlock()
}

func (d *Detector) LockedOut(ip string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.recentLocked(ip)) >= d.cfg.MaxLoginFailures
}

// recentLocked drops failures older than the window. d.mu must be held.
func (d *Detector) recentLocked(ip string) []time.Time {
	cutoff := d.now().Add(-d.cfg.LoginWindow)
	all := d.failures[ip]
	i := 0
	for i < len(all) && !all[i].After(cutoff) {
		i++
	}
	if i == len(all) {
		delete(d.failures, ip)
		return nil
	}
	return all[i:]
}

// ExtractClientIP returns the caller's address. Forwarding headers are only
// honoured when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	peer := net.ParseIP(directIP)
	if peer == nil || !d.trusted(peer) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(client) != nil {
			return client
		}
		d.invalidIP.Add(1)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		d.invalidIP.Add(1)
	}
	return directIP
}

func (d *Detector) trusted(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current detector counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.Lock()
	locked := 0
	for ip := range d.failures {
		if len(d.recentLocked(ip)) >= d.cfg.MaxLoginFailures {
			locked++
		}
	}
	d.mu.Unlock()
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
		LoginLockouts:      d.lockouts.Load(),
		LockedClients:      locked,
	}
}

// Middleware logs flagged requests. Blocking threats go to onBlocked; the
// rest are still served.
func (d *Detector) Middleware(onBlocked func(http.ResponseWriter, *http.Request, Threat)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			threat := d.Inspect(r)
			if threat == ThreatNone {
				next.ServeHTTP(w, r)
				return
			}
			d.suspicious.Add(1)
			ctx := r.Context()
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldThreat, string(threat),
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
			if threat.Blocking() && onBlocked != nil {
				onBlocked(w, r, threat)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
