package fwdtable

import "net/netip"

// Filter returns the entries whose destination is exactly dst and whose
// outgoing interface is ifIndex, in input order. The mask is not consulted:
// a network route containing dst does not match.
func Filter(entries []Entry, dst netip.Addr, ifIndex uint32) []Entry {
	dst = dst.Unmap()
	var matches []Entry
	for _, e := range entries {
		if e.IfIndex == ifIndex && e.Destination == dst {
			matches = append(matches, e)
		}
	}
	return matches
}
