package shared

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"slices"
	"strings"
	"time"
)

// Interface status values
const (
	StatusFound  = "found"
	StatusAbsent = "absent"
	StatusFailed = "failed"
)

// RouteRun is one forwarding table entry matching the destination
type RouteRun struct {
	Destination string `json:"destination"`            // Destination address of the entry
	Prefix      string `json:"prefix"`                 // Destination network (empty if the mask is not contiguous)
	NextHop     string `json:"next_hop"`               // Next hop address, 0.0.0.0 when directly connected
	NextHopPTR  string `json:"next_hop_ptr,omitempty"` // PTR record for the next hop
	NextHopMAC  string `json:"next_hop_mac,omitempty"` // Cached hardware address of the next hop
	IfIndex     uint32 `json:"if_index"`               // Outgoing interface index
	Type        string `json:"type"`                   // direct, indirect, other or invalid
	Proto       string `json:"proto"`                  // Protocol that installed the route
	Age         uint32 `json:"age"`                    // Seconds since the route was installed
	Metric      uint32 `json:"metric"`                 // Primary route metric
}

// InterfaceRun is the outcome of the search on one interface
type InterfaceRun struct {
	Name      string      `json:"name"`
	Index     uint32      `json:"index"`
	Address   string      `json:"address"`             // First IPv4 address (empty if none)
	Kind      string      `json:"kind"`                // ethernet, loopback, point-to-point or tunnel
	Up        bool        `json:"up"`                  // Whether the interface is administratively up
	Status    string      `json:"status"`              // found, absent or failed
	Error     string      `json:"error,omitempty"`     // Why the table could not be searched
	Preferred bool        `json:"preferred,omitempty"` // Whether the kernel prefers this interface
	RouteHash string      `json:"route_hash"`          // Hash of the matching routes
	Routes    []*RouteRun `json:"routes"`              // Matching routes in table order
}

// ReportRun is the result of one query across all selected interfaces
type ReportRun struct {
	Destination string          `json:"destination"` // Resolved destination address
	Query       string          `json:"query"`       // Destination as given on the command line
	Iteration   uint            `json:"iteration"`   // Which query (0, 1, 2, ...)
	Found       int             `json:"found"`       // Interfaces with a matching route
	Failed      int             `json:"failed"`      // Interfaces whose table could not be read
	Interfaces  []*InterfaceRun `json:"interfaces"`  // Sorted by interface index
	Timestamp   time.Time       `json:"timestamp"`
	Elapsed     int64           `json:"elapsed_us"` // Query duration in microseconds
}

// Key identifies the route independently of its table position
func (r *RouteRun) Key() string {
	return fmt.Sprintf("%s>%s@%d", r.Destination, r.NextHop, r.IfIndex)
}

// calculateHash computes a hash of the given parts using the specified algorithm
func calculateHash(parts []string, algorithm string) string {
	if len(parts) == 0 {
		switch algorithm {
		case "sha256":
			return "0000000000000000000000000000000000000000000000000000000000000000"
		default:
			return "00000000"
		}
	}

	var b strings.Builder
	for _, p := range parts {
		if p != "" {
			b.WriteString(p)
			b.WriteString("|")
		}
	}

	switch algorithm {
	case "sha256":
		hash := sha256.Sum256([]byte(b.String()))
		return hex.EncodeToString(hash[:])
	default:
		// Default to CRC32
		return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(b.String())))
	}
}

// CalculateRouteHash computes a hash of a set of routes. The result does not
// depend on the order the routes were listed in.
func CalculateRouteHash(routes []*RouteRun, algorithm string) string {
	keys := make([]string, 0, len(routes))
	for _, r := range routes {
		if r != nil {
			keys = append(keys, r.Key())
		}
	}
	slices.Sort(keys)
	return calculateHash(keys, algorithm)
}
