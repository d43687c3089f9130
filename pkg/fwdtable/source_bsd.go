//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package fwdtable

import (
	"log/slog"
	"net/netip"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// fetchRIBMessages retrieves the IPv4 routing information base from the kernel.
// Variable for mocking in tests.
var fetchRIBMessages = func() ([]route.Message, error) {
	rib, err := route.FetchRIB(unix.AF_INET, route.RIBTypeRoute, 0)
	if err != nil {
		return nil, err
	}
	return route.ParseRIB(route.RIBTypeRoute, rib)
}

// ribSource presents the routing socket dump through the probe/fetch
// contract. Each call takes a fresh dump.
type ribSource struct{}

// DefaultSource returns the forwarding table primitive of the running system.
func DefaultSource() Source {
	return ribSource{}
}

func (ribSource) ReadTable(buf []byte, size *uint32) Status {
	msgs, err := fetchRIBMessages()
	if err != nil {
		slog.Debug("RIB fetch failed", "error", err)
		return statusFromError(err)
	}
	return copyTable(Encode(entriesFromRIB(msgs), IPv4ForwardLayout), buf, size)
}

func entriesFromRIB(msgs []route.Message) []Entry {
	var entries []Entry
	for _, msg := range msgs {
		rm, ok := msg.(*route.RouteMessage)
		if !ok || rm.Flags&unix.RTF_UP == 0 || len(rm.Addrs) <= unix.RTAX_NETMASK {
			// Skip down routes and messages without a netmask slot
			continue
		}
		dst, ok := rm.Addrs[unix.RTAX_DST].(*route.Inet4Addr)
		if !ok {
			continue
		}

		e := Entry{
			Destination: netip.AddrFrom4(dst.IP),
			Mask:        netip.IPv4Unspecified(),
			NextHop:     netip.IPv4Unspecified(),
			IfIndex:     uint32(rm.Index),
			Type:        RouteTypeDirect,
			Proto:       ProtoLocal,
		}
		if rm.Flags&unix.RTF_HOST != 0 {
			e.Mask = prefixMask(32)
		} else if mask, ok := rm.Addrs[unix.RTAX_NETMASK].(*route.Inet4Addr); ok {
			e.Mask = netip.AddrFrom4(mask.IP)
		}
		// Directly connected routes carry a link address as gateway
		if gw, ok := rm.Addrs[unix.RTAX_GATEWAY].(*route.Inet4Addr); ok && rm.Flags&unix.RTF_GATEWAY != 0 {
			e.NextHop = netip.AddrFrom4(gw.IP)
			e.Type = RouteTypeIndirect
		}
		if rm.Flags&unix.RTF_STATIC != 0 {
			e.Proto = ProtoNetMgmt
		}
		entries = append(entries, e)
	}
	return entries
}
