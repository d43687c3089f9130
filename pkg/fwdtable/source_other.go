//go:build !linux && !windows && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package fwdtable

type unsupportedSource struct{}

// DefaultSource returns a source that reports StatusNotSupported; this
// platform has no forwarding table primitive.
func DefaultSource() Source {
	return unsupportedSource{}
}

func (unsupportedSource) ReadTable([]byte, *uint32) Status {
	return StatusNotSupported
}
