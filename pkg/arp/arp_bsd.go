//go:build darwin || dragonfly || netbsd || openbsd

package arp

import (
	"net"
	"syscall"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// fetchRIBMessages returns the IPv4 routing table, which holds the ARP cache
// as link-layer host entries.
// Variable for mocking in tests.
var fetchRIBMessages = func() ([]route.Message, error) {
	rib, err := route.FetchRIB(syscall.AF_INET, route.RIBTypeRoute, 0)
	if err != nil {
		return nil, err
	}
	return route.ParseRIB(route.RIBTypeRoute, rib)
}

// isARPEntryMatch returns the hardware address of m if it is a resolved
// ARP entry for ip.
func isARPEntryMatch(m *route.RouteMessage, ip net.IP, ifIndex int) (net.HardwareAddr, bool) {
	if m.Flags&unix.RTF_LLINFO == 0 || len(m.Addrs) <= unix.RTAX_GATEWAY {
		return nil, false
	}
	if ifIndex > 0 && m.Index != ifIndex {
		return nil, false
	}
	dst, ok := m.Addrs[unix.RTAX_DST].(*route.Inet4Addr)
	if !ok || !net.IP(dst.IP[:]).Equal(ip) {
		return nil, false
	}
	link, ok := m.Addrs[unix.RTAX_GATEWAY].(*route.LinkAddr)
	if !ok || len(link.Addr) == 0 {
		return nil, false
	}
	return net.HardwareAddr(link.Addr), true
}

func checkARPTable(ip net.IP, ifIndex int) (net.HardwareAddr, error) {
	msgs, err := fetchRIBMessages()
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if m, ok := msg.(*route.RouteMessage); ok {
			if mac, ok := isARPEntryMatch(m, ip, ifIndex); ok {
				return mac, nil
			}
		}
	}
	return nil, ErrNotFound
}
