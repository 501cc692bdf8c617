package preview

import (
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
)

const maxRedirects = 5

// ErrBlockedAddress is returned when a target or redirect points at a
// non-public address.
var ErrBlockedAddress = errors.New("preview: address not allowed")

// AddressPolicy reports whether the proxy may connect to addr.
type AddressPolicy func(addr netip.Addr) bool

// Shared and "this network" ranges that IsGlobalUnicast still accepts.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
}

// PublicOnly allows globally routable unicast addresses only: no loopback,
// private, link-local (including 169.254.169.254), multicast or CGNAT.
func PublicOnly(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// checkHost rejects localhost names and IP literals the policy refuses.
// Names that resolve to refused addresses are caught at dial time.
func (p *Proxy) checkHost(host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return ErrBlockedAddress
	}
	if addr, err := netip.ParseAddr(host); err == nil && !p.allow(addr) {
		return ErrBlockedAddress
	}
	return nil
}

// dialControl runs after DNS resolution, so it sees the address actually
// dialled.
func (p *Proxy) dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return ErrBlockedAddress
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !p.allow(addr) {
		return ErrBlockedAddress
	}
	return nil
}

func (p *Proxy) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("preview: too many redirects")
	}
	if _, ok := ParseTarget(req.URL.String()); !ok {
		return ErrBlockedAddress
	}
	return p.checkHost(req.URL.Hostname())
}
