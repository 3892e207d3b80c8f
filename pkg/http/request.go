package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies

	prefixes []netip.Prefix
}

// NewIPConfig parses the trusted proxy ranges once. Invalid entries are
// returned so the caller can log them; they never match.
func NewIPConfig(trustedProxies []string) (*IPConfig, []string) {
	cfg := &IPConfig{TrustedProxies: trustedProxies}
	var invalid []string
	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			invalid = append(invalid, cidr)
			continue
		}
		cfg.prefixes = append(cfg.prefixes, prefix.Masked())
	}
	return cfg, invalid
}

// ExtractClientIP extracts the client address used to key attempts and blocks.
// X-Forwarded-For and X-Real-IP are honoured only when the socket peer is a
// trusted proxy, so a direct client cannot pick its own address.
//
// Flow:
// 1. If request is from trusted proxy, check X-Forwarded-For header
// 2. If request is from trusted proxy, check X-Real-IP header
// 3. Fall back to RemoteAddr
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config != nil && config.isTrustedProxy(remoteIP) {
		// Take the first valid entry of X-Forwarded-For
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, ip := range strings.Split(xff, ",") {
				if addr, ok := parseAddr(strings.TrimSpace(ip)); ok {
					return addr
				}
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if addr, ok := parseAddr(strings.TrimSpace(xri)); ok {
				return addr
			}
		}
	}

	return remoteIP
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if addr, ok := parseAddr(host); ok {
		return addr
	}
	return host
}

// parseAddr validates ip and renders IPv4-mapped IPv6 as plain IPv4, so one
// client always maps to one key
func parseAddr(ip string) (string, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func (c *IPConfig) isTrustedProxy(ip string) bool {
	prefixes := c.prefixes
	if prefixes == nil && len(c.TrustedProxies) > 0 {
		parsed, _ := NewIPConfig(c.TrustedProxies)
		prefixes = parsed.prefixes
	}
	if len(prefixes) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
