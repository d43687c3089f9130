//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package route

import (
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/net/route"
)

// fetchRIBMessages retrieves the IPv4 routing information base (RIB) messages from the kernel.
// Variable for mocking in tests.
var fetchRIBMessages = func() ([]route.Message, error) {
	r, err := route.FetchRIB(syscall.AF_INET, route.RIBTypeRoute, 0)
	if err != nil {
		return nil, err
	}
	m, err := route.ParseRIB(route.RIBTypeRoute, r)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// interfaceByIndex is a variable for mocking in tests.
var interfaceByIndex = net.InterfaceByIndex

// getMostSpecificRoute finds the most specific route for a given IP address from the routing messages.
func getMostSpecificRoute(ip netip.Addr, msgs []route.Message) (Route, error) {
	mostSpecific := Route{}
	mostSpecificMaskLength := 0
	routeFound := false

	for _, msg := range msgs {
		rm, ok := msg.(*route.RouteMessage)
		if !ok || len(rm.Addrs) < 3 {
			continue
		}

		if rm.Flags&syscall.RTF_UP == 0 {
			// Skip down routes
			continue
		}

		destination, ok := rm.Addrs[0].(*route.Inet4Addr)
		if !ok {
			continue
		}
		a := netip.AddrFrom4(destination.IP)

		// Support routes without a gateway (i.e., directly connected)
		g := netip.Addr{}
		if gateway, ok := rm.Addrs[1].(*route.Inet4Addr); ok {
			g = netip.AddrFrom4(gateway.IP)
		}
		s := netip.Addr{}
		if len(rm.Addrs) > 5 {
			if source, ok := rm.Addrs[5].(*route.Inet4Addr); ok {
				s = netip.AddrFrom4(source.IP)
			}
		}

		bitLen := 32
		if rm.Flags&syscall.RTF_HOST == 0 {
			mask, ok := rm.Addrs[2].(*route.Inet4Addr)
			if !ok {
				// Skip routes without a mask
				continue
			}
			bitLen, _ = net.IPv4Mask(mask.IP[0], mask.IP[1], mask.IP[2], mask.IP[3]).Size()
		}

		// Check if the destination subnet contains the IP
		if !netip.PrefixFrom(a, bitLen).Contains(ip) {
			continue
		}
		if bitLen > mostSpecificMaskLength || (bitLen == mostSpecificMaskLength && !routeFound) {
			intf, err := interfaceByIndex(rm.Index)
			if err != nil {
				return Route{}, err
			}
			mostSpecific = Route{
				Destination: ip,
				Gateway:     g,
				Source:      s,
				Interface:   intf,
			}
			routeFound = true
			mostSpecificMaskLength = bitLen
		}
	}

	if !routeFound {
		return Route{}, fmt.Errorf("no matching route found for %s", ip)
	}
	return mostSpecific, nil
}

// get retrieves the most specific route for a given IPv4 address.
// It fetches the routing information base (RIB) messages and finds the route with the longest prefix match.
func get(ip netip.Addr) (Route, error) {
	msgs, err := fetchRIBMessages()
	if err != nil {
		return Route{}, err
	}
	return getMostSpecificRoute(ip, msgs)
}
