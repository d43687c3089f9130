//go:build windows

package fwdtable

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modiphlpapi           = windows.NewLazySystemDLL("iphlpapi.dll")
	procGetIpForwardTable = modiphlpapi.NewProc("GetIpForwardTable")
)

// iphlpSource calls GetIpForwardTable, whose MIB_IPFORWARDTABLE output is
// the IPv4ForwardLayout table verbatim.
type iphlpSource struct{}

// DefaultSource returns the forwarding table primitive of the running system.
func DefaultSource() Source {
	return iphlpSource{}
}

func (iphlpSource) ReadTable(buf []byte, size *uint32) Status {
	if err := procGetIpForwardTable.Find(); err != nil {
		return StatusNotSupported
	}

	// pdwSize is the buffer size on input and the table size on output
	*size = uint32(len(buf))
	var r uintptr
	if len(buf) == 0 {
		r, _, _ = procGetIpForwardTable.Call(0, uintptr(unsafe.Pointer(size)), 0)
	} else {
		r, _, _ = procGetIpForwardTable.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(size)), 0)
	}
	return Status(r)
}
