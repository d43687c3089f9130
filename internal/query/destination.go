package query

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/jackpal/gateway"
)

// GatewayKeyword as a destination stands for the default gateway.
const GatewayKeyword = "gateway"

// ErrNotIPv4 is returned for destinations that are not IPv4 addresses.
var ErrNotIPv4 = errors.New("only IPv4 destinations are supported")

// Resolver and gateway discovery.
// Variables for mocking in tests.
var (
	lookupNetIP     = net.DefaultResolver.LookupNetIP
	discoverGateway = gateway.DiscoverGateway
)

// ResolveDestination turns a command line destination into an IPv4 address.
// It accepts an IPv4 literal, the gateway keyword or a host name, of which
// the first IPv4 address is used.
func ResolveDestination(ctx context.Context, s string) (netip.Addr, error) {
	if strings.EqualFold(s, GatewayKeyword) {
		ip, err := discoverGateway()
		if err != nil {
			return netip.Addr{}, fmt.Errorf("failed to discover default gateway: %w", err)
		}
		addr, ok := netip.AddrFromSlice(ip)
		if !ok || !addr.Unmap().Is4() {
			return netip.Addr{}, fmt.Errorf("default gateway %v: %w", ip, ErrNotIPv4)
		}
		return addr.Unmap(), nil
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		if addr = addr.Unmap(); !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%s: %w", s, ErrNotIPv4)
		}
		return addr, nil
	}

	addrs, err := lookupNetIP(ctx, "ip4", s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to resolve %s: %w", s, err)
	}
	for _, a := range addrs {
		if a = a.Unmap(); a.Is4() {
			return a, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%s has no IPv4 address: %w", s, ErrNotIPv4)
}
