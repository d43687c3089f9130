//go:build !linux && !darwin && !dragonfly && !netbsd && !openbsd

package arp

import (
	"errors"
	"fmt"
	"net"
)

func checkARPTable(_ net.IP, _ int) (net.HardwareAddr, error) {
	return nil, fmt.Errorf("neighbour table: %w", errors.ErrUnsupported)
}
