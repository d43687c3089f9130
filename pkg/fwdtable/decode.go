package fwdtable

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Layout describes how records are laid out in a table buffer: a count of
// HeaderSize bytes (the first four hold the count) followed by RowSize bytes
// per record.
type Layout struct {
	HeaderSize int
	RowSize    int
}

// IPv4ForwardLayout is the layout of the OS IPv4 forwarding table.
var IPv4ForwardLayout = Layout{HeaderSize: 4, RowSize: rowFieldsSize}

// Field offsets within a record. Every field is a native-endian 32-bit word;
// addresses are stored in network byte order.
const (
	offDestination = 0
	offMask        = 4
	offPolicy      = 8
	offNextHop     = 12
	offIfIndex     = 16
	offType        = 20
	offProto       = 24
	offAge         = 28
	offNextHopAS   = 32
	offMetric      = 36

	rowFieldsSize = 56
)

func (l Layout) validate() error {
	if l.HeaderSize < 4 || l.RowSize < rowFieldsSize {
		return fmt.Errorf("%w: layout header %d / row %d is smaller than the record fields", ErrMalformedTable, l.HeaderSize, l.RowSize)
	}
	return nil
}

// Decode reads the record count from the start of buf and decodes that many
// records in table order. It fails with ErrMalformedTable rather than decode
// part of a table whose count overruns buf.
func Decode(buf []byte, l Layout) ([]Entry, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	if len(buf) < l.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrMalformedTable, len(buf), l.HeaderSize)
	}

	count := binary.NativeEndian.Uint32(buf)
	need := uint64(l.HeaderSize) + uint64(count)*uint64(l.RowSize)
	if need > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: %d records need %d bytes, buffer holds %d", ErrMalformedTable, count, need, len(buf))
	}

	entries := make([]Entry, count)
	for i := range entries {
		off := l.HeaderSize + i*l.RowSize
		entries[i] = decodeEntry(buf[off : off+l.RowSize])
	}
	return entries, nil
}

func decodeEntry(row []byte) Entry {
	e := Entry{
		Destination: addrAt(row, offDestination),
		Mask:        addrAt(row, offMask),
		Policy:      binary.NativeEndian.Uint32(row[offPolicy:]),
		NextHop:     addrAt(row, offNextHop),
		IfIndex:     binary.NativeEndian.Uint32(row[offIfIndex:]),
		Type:        binary.NativeEndian.Uint32(row[offType:]),
		Proto:       binary.NativeEndian.Uint32(row[offProto:]),
		Age:         binary.NativeEndian.Uint32(row[offAge:]),
		NextHopAS:   binary.NativeEndian.Uint32(row[offNextHopAS:]),
	}
	for i := range e.Metric {
		e.Metric[i] = binary.NativeEndian.Uint32(row[offMetric+4*i:])
	}
	return e
}

func addrAt(row []byte, off int) netip.Addr {
	return netip.AddrFrom4([4]byte(row[off : off+4]))
}

// Encode lays entries out as a table buffer. Invalid or non-IPv4 addresses
// are written as 0.0.0.0.
func Encode(entries []Entry, l Layout) []byte {
	buf := make([]byte, l.HeaderSize+len(entries)*l.RowSize)
	binary.NativeEndian.PutUint32(buf, uint32(len(entries)))
	for i, e := range entries {
		off := l.HeaderSize + i*l.RowSize
		encodeEntry(buf[off:off+l.RowSize], e)
	}
	return buf
}

func encodeEntry(row []byte, e Entry) {
	putAddr(row[offDestination:], e.Destination)
	putAddr(row[offMask:], e.Mask)
	binary.NativeEndian.PutUint32(row[offPolicy:], e.Policy)
	putAddr(row[offNextHop:], e.NextHop)
	binary.NativeEndian.PutUint32(row[offIfIndex:], e.IfIndex)
	binary.NativeEndian.PutUint32(row[offType:], e.Type)
	binary.NativeEndian.PutUint32(row[offProto:], e.Proto)
	binary.NativeEndian.PutUint32(row[offAge:], e.Age)
	binary.NativeEndian.PutUint32(row[offNextHopAS:], e.NextHopAS)
	for i, m := range e.Metric {
		binary.NativeEndian.PutUint32(row[offMetric+4*i:], m)
	}
}

func putAddr(b []byte, a netip.Addr) {
	a = a.Unmap()
	if !a.Is4() {
		return
	}
	a4 := a.As4()
	copy(b, a4[:])
}
