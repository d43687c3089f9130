//go:build linux

package fwdtable

import (
	"log/slog"
	"net/netip"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// fetchRouteMessages dumps every routing table the kernel holds.
// Variable for mocking in tests.
var fetchRouteMessages = func() ([]rtnetlink.RouteMessage, error) {
	c, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	return c.Route.List()
}

// netlinkSource presents the kernel's IPv4 routes through the probe/fetch
// contract. Each call takes a fresh dump, so the table can grow between the
// size probe and the fetch just as it can on other systems.
type netlinkSource struct{}

// DefaultSource returns the forwarding table primitive of the running system.
func DefaultSource() Source {
	return netlinkSource{}
}

func (netlinkSource) ReadTable(buf []byte, size *uint32) Status {
	msgs, err := fetchRouteMessages()
	if err != nil {
		slog.Debug("Route dump failed", "error", err)
		return statusFromError(err)
	}
	return copyTable(Encode(entriesFromRouteMessages(msgs), IPv4ForwardLayout), buf, size)
}

// entriesFromRouteMessages converts IPv4 routes that leave through an
// interface. Blackhole and unreachable routes have no interface and are
// skipped.
func entriesFromRouteMessages(msgs []rtnetlink.RouteMessage) []Entry {
	var entries []Entry
	for _, m := range msgs {
		if m.Family != unix.AF_INET || m.Attributes.OutIface == 0 {
			continue
		}

		e := Entry{
			Destination: netip.IPv4Unspecified(),
			Mask:        prefixMask(int(m.DstLength)),
			Policy:      uint32(m.Tos),
			NextHop:     netip.IPv4Unspecified(),
			IfIndex:     m.Attributes.OutIface,
			Type:        RouteTypeDirect,
			Proto:       protoFromNetlink(m.Protocol),
			Metric:      [5]uint32{m.Attributes.Priority},
		}
		if dst, ok := netip.AddrFromSlice(m.Attributes.Dst); ok && dst.Unmap().Is4() {
			e.Destination = dst.Unmap()
		}
		if gw, ok := netip.AddrFromSlice(m.Attributes.Gateway); ok && gw.Unmap().Is4() {
			e.NextHop = gw.Unmap()
			e.Type = RouteTypeIndirect
		}
		entries = append(entries, e)
	}
	return entries
}

func protoFromNetlink(p uint8) uint32 {
	switch p {
	case unix.RTPROT_KERNEL:
		return ProtoLocal
	case unix.RTPROT_BOOT, unix.RTPROT_STATIC, unix.RTPROT_DHCP:
		return ProtoNetMgmt
	default:
		return ProtoOther
	}
}
