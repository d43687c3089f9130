//go:build linux

package route

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket/routing"
)

// newRouter reads the kernel routing table.
// Variable for mocking in tests.
var newRouter = routing.New

// get retrieves the most specific route for a given IPv4 address.
func get(ip netip.Addr) (Route, error) {
	router, err := newRouter()
	if err != nil {
		return Route{}, fmt.Errorf("failed to read routing table: %w", err)
	}

	intf, gw, src, err := router.Route(ip.AsSlice())
	if err != nil {
		return Route{}, fmt.Errorf("no matching route found for %s: %w", ip, err)
	}
	if intf == nil {
		return Route{}, fmt.Errorf("no interface for route to %s", ip)
	}
	// Skip down interfaces
	if intf.Flags&net.FlagUp == 0 {
		return Route{}, fmt.Errorf("interface %s is down", intf.Name)
	}

	r := Route{Destination: ip, Interface: intf}
	if a, ok := netip.AddrFromSlice(gw); ok {
		r.Gateway = a.Unmap()
	}
	if a, ok := netip.AddrFromSlice(src); ok {
		r.Source = a.Unmap()
	}
	return r, nil
}
