// Package fwdtable reads the host's IPv4 forwarding table through the
// operating system's two-phase probe/fetch primitive, decodes the fixed-size
// records it returns and filters them by destination and interface index.
package fwdtable

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// Route types, as reported in Entry.Type.
const (
	RouteTypeOther    uint32 = 1
	RouteTypeInvalid  uint32 = 2
	RouteTypeDirect   uint32 = 3
	RouteTypeIndirect uint32 = 4
)

// Routing protocols, as reported in Entry.Proto.
const (
	ProtoOther   uint32 = 1
	ProtoLocal   uint32 = 2
	ProtoNetMgmt uint32 = 3
)

var (
	// ErrRoutingTableUnavailable is matched by every error returned when the
	// OS refuses or fails to hand out its forwarding table.
	ErrRoutingTableUnavailable = errors.New("routing table unavailable")

	// ErrMalformedTable is returned when a table's declared size or record
	// count does not fit the buffer holding it.
	ErrMalformedTable = errors.New("malformed routing table")
)

// Status is the raw status code returned by a Source.
type Status uint32

const (
	StatusOK                 Status = 0
	StatusGenFailure         Status = 31
	StatusNotSupported       Status = 50
	StatusInsufficientBuffer Status = 122
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusGenFailure:
		return "general failure"
	case StatusNotSupported:
		return "not supported"
	case StatusInsufficientBuffer:
		return "insufficient buffer"
	default:
		return fmt.Sprintf("status %d", uint32(s))
	}
}

// UnavailableError carries the status a Source returned when the table could
// not be read. Op is "probe" for the size query and "fetch" for the copy.
type UnavailableError struct {
	Op   string
	Code Status
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%v: %s failed: %v (code %d)", ErrRoutingTableUnavailable, e.Op, e.Code, uint32(e.Code))
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrRoutingTableUnavailable
}

// Entry is one decoded forwarding table record.
type Entry struct {
	Destination netip.Addr
	Mask        netip.Addr
	Policy      uint32
	NextHop     netip.Addr
	IfIndex     uint32
	Type        uint32
	Proto       uint32
	Age         uint32
	NextHopAS   uint32
	Metric      [5]uint32
}

// Prefix returns the destination network described by Destination and Mask.
// It returns an invalid prefix if the mask is not contiguous.
func (e Entry) Prefix() netip.Prefix {
	if !e.Mask.Is4() {
		return netip.Prefix{}
	}
	m := e.Mask.As4()
	ones, bits := net.IPv4Mask(m[0], m[1], m[2], m[3]).Size()
	if bits == 0 {
		return netip.Prefix{}
	}
	return netip.PrefixFrom(e.Destination, ones)
}

// TypeName returns a short name for the entry's route type.
func (e Entry) TypeName() string {
	switch e.Type {
	case RouteTypeOther:
		return "other"
	case RouteTypeInvalid:
		return "invalid"
	case RouteTypeDirect:
		return "direct"
	case RouteTypeIndirect:
		return "indirect"
	default:
		return fmt.Sprintf("type %d", e.Type)
	}
}

// ProtoName returns a short name for the protocol that installed the entry.
func (e Entry) ProtoName() string {
	switch e.Proto {
	case ProtoOther:
		return "other"
	case ProtoLocal:
		return "local"
	case ProtoNetMgmt:
		return "static"
	default:
		return fmt.Sprintf("proto %d", e.Proto)
	}
}

// Snapshot is the decoded state of the forwarding table at one point in time.
type Snapshot struct {
	Entries []Entry
	TakenAt time.Time
}

// Count returns the number of decoded entries.
func (s Snapshot) Count() int {
	return len(s.Entries)
}

// Source is the operating system's forwarding table primitive.
//
// ReadTable copies the table into buf. When buf is too small it stores the
// required size in *size and returns StatusInsufficientBuffer, which is not a
// failure. On StatusOK *size holds the number of bytes written. Any other
// status is an OS failure code.
type Source interface {
	ReadTable(buf []byte, size *uint32) Status
}

// copyTable implements the ReadTable contract for sources that assemble the
// table in memory.
func copyTable(table []byte, buf []byte, size *uint32) Status {
	*size = uint32(len(table))
	if len(buf) < len(table) {
		return StatusInsufficientBuffer
	}
	copy(buf, table)
	return StatusOK
}

// prefixMask returns the IPv4 netmask for a prefix length.
func prefixMask(bits int) netip.Addr {
	var m uint32
	switch {
	case bits >= 32:
		m = ^uint32(0)
	case bits > 0:
		m = ^uint32(0) << (32 - bits)
	}
	return netip.AddrFrom4([4]byte{byte(m >> 24), byte(m >> 16), byte(m >> 8), byte(m)})
}
