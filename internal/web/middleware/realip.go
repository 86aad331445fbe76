package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP rewrites r.RemoteAddr to the client IP carried in
// X-Real-IP or X-Forwarded-For, but only when the connection itself
// comes from one of the trusted proxy networks. Requests from
// anywhere else keep their socket address, so untrusted clients
// cannot spoof an IP to dodge rate limiting or pollute logs.
//
// Entries may be CIDRs ("10.0.0.0/8") or single addresses
// ("127.0.0.1"). Invalid entries are logged and skipped.
func TrustedRealIP(trustedProxies []string) func(http.Handler) http.Handler {
	trusted := parseTrustedNets(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := hostIP(r.RemoteAddr)
			if peerIsTrusted(peer, trusted) {
				if ip := forwardedClientIP(r); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseTrustedNets resolves the configured proxy list into networks,
// widening bare IPs to /32 or /128.
func parseTrustedNets(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			slog.Warn("realip: skipping invalid trusted proxy entry", "entry", entry)
			continue
		}
		mask := net.CIDRMask(128, 128)
		if ip.To4() != nil {
			mask = net.CIDRMask(32, 32)
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: mask})
	}
	return nets
}

// forwardedClientIP returns the client IP asserted by proxy headers,
// or nil when neither header holds a parseable address. X-Real-IP
// wins over X-Forwarded-For; only the first hop of a forwarded chain
// is considered.
func forwardedClientIP(r *http.Request) net.IP {
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		if ip := net.ParseIP(rip); ip != nil {
			return ip
		}
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return nil
	}
	first := xff
	if idx := strings.Index(xff, ","); idx >= 0 {
		first = xff[:idx]
	}
	return net.ParseIP(strings.TrimSpace(first))
}

// hostIP parses the IP out of a host:port string or plain address.
func hostIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func peerIsTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
