package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig holds the proxies whose forwarding headers are trusted
type IPConfig struct {
	TrustedProxies []netip.Prefix
}

// ParseTrustedProxies parses CIDR ranges, skipping invalid entries.
// A bare address is treated as a single-host prefix.
func ParseTrustedProxies(cidrs []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(raw); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

// ClientIP returns the address of the caller.
// X-Forwarded-For and X-Real-IP are only honored when the direct peer is a
// trusted proxy, otherwise any client could pick the address the throttle
// and the captcha verifier see.
func ClientIP(r *http.Request, config *IPConfig) string {
	peer := remoteAddr(r)

	if config == nil || !isTrusted(peer, config.TrustedProxies) {
		return peer
	}

	// First valid entry is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(part)); err == nil {
				return addr.String()
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.String()
		}
	}

	return peer
}

// remoteAddr strips the port from RemoteAddr
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
