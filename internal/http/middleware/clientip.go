package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc resolves the address used to key per-client rate limits.
type ClientIPFunc func(r *http.Request) string

// ClientIP returns the connection's peer address and ignores forwarding headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TrustedClientIP honours X-Forwarded-For only when the peer is one of the
// trusted proxies. Hops are walked right to left and the first address not
// owned by a trusted proxy is the client.
func TrustedClientIP(trusted []netip.Prefix) ClientIPFunc {
	if len(trusted) == 0 {
		return ClientIP
	}
	isTrusted := func(raw string) bool {
		addr, err := netip.ParseAddr(raw)
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
	return func(r *http.Request) string {
		peer := ClientIP(r)
		if !isTrusted(peer) {
			return peer
		}
		hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if _, err := netip.ParseAddr(hop); err != nil {
				return peer
			}
			if !isTrusted(hop) {
				return hop
			}
		}
		return peer
	}
}
