// Package iface enumerates the host's network interfaces and the IPv4 address
// and index each one carries.
package iface

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"slices"
)

// Kind is a coarse classification of an interface's link type.
type Kind string

const (
	KindEthernet     Kind = "ethernet"
	KindLoopback     Kind = "loopback"
	KindPointToPoint Kind = "point-to-point"
	KindTunnel       Kind = "tunnel"
)

// Descriptor is a read-only view of one network interface.
type Descriptor struct {
	Name  string
	Index uint32
	// Addr is the first IPv4 address assigned to the interface, or the zero
	// Addr if it has none.
	Addr netip.Addr
	Kind Kind
	Up   bool
}

// Directory lists the interfaces routes are searched for.
type Directory interface {
	Interfaces() ([]Descriptor, error)
}

// listInterfaces returns the system's interfaces.
// Variable for mocking in tests.
var listInterfaces = net.Interfaces

// System reads interfaces from the running host.
type System struct{}

func (System) Interfaces() ([]Descriptor, error) {
	ifs, err := listInterfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	descs := make([]Descriptor, 0, len(ifs))
	for i := range ifs {
		descs = append(descs, Describe(&ifs[i]))
	}
	return descs, nil
}

// Describe builds the Descriptor for iface. An interface whose addresses
// cannot be read is still described, without an address.
func Describe(iface *net.Interface) Descriptor {
	d := Descriptor{
		Name:  iface.Name,
		Index: uint32(iface.Index),
		Kind:  Classify(iface),
		Up:    iface.Flags&net.FlagUp != 0,
	}
	addrs, err := iface.Addrs()
	if err != nil {
		slog.Debug("Failed to read interface addresses", "interface", iface.Name, "error", err)
		return d
	}
	d.Addr = FirstIPv4(addrs)
	return d
}

// FirstIPv4 returns the first IPv4 address in addrs.
func FirstIPv4(addrs []net.Addr) netip.Addr {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok && addr.Unmap().Is4() {
			return addr.Unmap()
		}
	}
	return netip.Addr{}
}

// Classify returns the link type of iface from its flags and hardware address.
func Classify(iface *net.Interface) Kind {
	switch {
	case iface == nil:
		return KindTunnel
	case iface.Flags&net.FlagLoopback != 0:
		return KindLoopback
	case iface.Flags&net.FlagPointToPoint != 0:
		return KindPointToPoint
	case IsEthernetInterface(iface):
		return KindEthernet
	default:
		return KindTunnel
	}
}

// IsEthernetInterface determines if an interface uses Ethernet (Layer 2) framing.
// Returns false for tunnel/VPN interfaces that use raw IP packets.
//
// This function uses multiple heuristics:
// 1. Point-to-point interfaces (IFF_POINTOPOINT flag) don't use Ethernet framing
// 2. Interfaces without hardware addresses are typically not Ethernet
func IsEthernetInterface(iface *net.Interface) bool {
	if iface == nil {
		return false
	}

	// Point-to-point interfaces (VPNs, PPP, etc.) don't use Ethernet framing
	if iface.Flags&net.FlagPointToPoint != 0 {
		return false
	}

	// Loopback interfaces don't use Ethernet framing
	if iface.Flags&net.FlagLoopback != 0 {
		return false
	}

	// Most tunnel interfaces don't have MAC addresses
	return len(iface.HardwareAddr) != 0
}

// Select returns the descriptors named in names, in the order of descs. An
// empty names selects everything.
func Select(descs []Descriptor, names []string) ([]Descriptor, error) {
	if len(names) == 0 {
		return descs, nil
	}
	var selected []Descriptor
	for _, d := range descs {
		if slices.Contains(names, d.Name) {
			selected = append(selected, d)
		}
	}
	for _, name := range names {
		if !slices.ContainsFunc(selected, func(d Descriptor) bool { return d.Name == name }) {
			return nil, fmt.Errorf("no such interface: %s", name)
		}
	}
	return selected, nil
}
