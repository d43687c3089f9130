//go:build linux

package arp

import (
	"net"

	"github.com/jsimonetti/rtnetlink/rtnl"
	"golang.org/x/sys/unix"
)

// getARPTable returns the IPv4 neighbours of an interface, or of all
// interfaces for index 0.
// Variable for mocking in tests.
var getARPTable = func(ifIndex int) ([]*rtnl.Neigh, error) {
	c, err := rtnl.Dial(nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var iface *net.Interface
	if ifIndex > 0 {
		iface = &net.Interface{Index: ifIndex}
	}
	return c.Neighbours(iface, unix.AF_INET)
}

// isARPEntryMatch checks if the given neighbour resolves ip. Incomplete
// entries carry no hardware address and never match.
func isARPEntryMatch(entry *rtnl.Neigh, ip net.IP) bool {
	return entry != nil && entry.IP.Equal(ip) && len(entry.HwAddr) > 0
}

// Check if IP is in the kernel ARP table for the provided interface
func checkARPTable(ip net.IP, ifIndex int) (net.HardwareAddr, error) {
	r, err := getARPTable(ifIndex)
	if err != nil {
		return nil, err
	}

	for _, n := range r {
		if isARPEntryMatch(n, ip) {
			return n.HwAddr, nil
		}
	}
	return nil, ErrNotFound
}
