// Package arp reads link-layer addresses from the kernel's neighbour table.
// It never sends packets: an address the kernel has not resolved is reported
// as not found.
package arp

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// ErrNotFound is returned when the neighbour table has no usable entry.
var ErrNotFound = errors.New("no ARP entry found")

// Lookup returns the hardware address cached for ip on the interface with
// the given index. An index of 0 searches every interface.
func Lookup(ip netip.Addr, ifIndex int) (net.HardwareAddr, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return nil, fmt.Errorf("%s is not an IPv4 address", ip)
	}
	return checkARPTable(net.IP(ip.AsSlice()), ifIndex)
}
