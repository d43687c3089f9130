//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package fwdtable

import (
	"errors"

	"golang.org/x/sys/unix"
)

// statusFromError maps a failed kernel call to the errno it carries.
func statusFromError(err error) Status {
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 {
		return Status(errno)
	}
	return StatusGenFailure
}
