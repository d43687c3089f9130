package route

import (
	"fmt"
	"net"
	"net/netip"
)

// Route represents a network route with its destination, gateway, source address, and the associated network interface.
type Route struct {
	Destination netip.Addr
	Gateway     netip.Addr
	Source      netip.Addr
	Interface   *net.Interface
}

// Get retrieves the route the kernel would use for ip, the longest prefix
// match in its forwarding table.
func Get(ip netip.Addr) (Route, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return Route{}, fmt.Errorf("%s is not an IPv4 address", ip)
	}
	// Use platform-specific implementation to fetch the route
	return get(ip)
}
