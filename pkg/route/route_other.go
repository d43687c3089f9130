//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package route

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/tkjaer/ifroute/pkg/fwdtable"
)

// loadTable reads the forwarding table.
// Variable for mocking in tests.
var loadTable = func() (fwdtable.Snapshot, error) {
	return fwdtable.Load(context.Background(), fwdtable.DefaultSource())
}

// interfaceByIndex is a variable for mocking in tests.
var interfaceByIndex = net.InterfaceByIndex

// mostSpecificEntry picks the longest prefix containing ip, preferring the
// lower metric between equal prefixes.
func mostSpecificEntry(ip netip.Addr, entries []fwdtable.Entry) (fwdtable.Entry, bool) {
	var best fwdtable.Entry
	bestBits := -1
	for _, e := range entries {
		p := e.Prefix()
		if !p.IsValid() || !p.Contains(ip) {
			continue
		}
		if p.Bits() > bestBits || (p.Bits() == bestBits && e.Metric[0] < best.Metric[0]) {
			best, bestBits = e, p.Bits()
		}
	}
	return best, bestBits >= 0
}

// get retrieves the most specific route for a given IPv4 address from the
// decoded forwarding table.
func get(ip netip.Addr) (Route, error) {
	snap, err := loadTable()
	if err != nil {
		return Route{}, fmt.Errorf("failed to read forwarding table: %w", err)
	}
	e, ok := mostSpecificEntry(ip, snap.Entries)
	if !ok {
		return Route{}, fmt.Errorf("no matching route found for %s", ip)
	}
	intf, err := interfaceByIndex(int(e.IfIndex))
	if err != nil {
		return Route{}, fmt.Errorf("failed to get interface by index %d: %w", e.IfIndex, err)
	}
	r := Route{Destination: ip, Interface: intf}
	if e.Type == fwdtable.RouteTypeIndirect {
		r.Gateway = e.NextHop
	}
	return r, nil
}
