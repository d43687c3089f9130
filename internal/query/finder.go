// Package query searches the forwarding table for routes to one destination
// on every selected interface at once.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/tkjaer/ifroute/pkg/arp"
	"github.com/tkjaer/ifroute/pkg/fwdtable"
	"github.com/tkjaer/ifroute/pkg/iface"
	"github.com/tkjaer/ifroute/pkg/ptr"
	"github.com/tkjaer/ifroute/pkg/route"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single interface's table fetch.
const DefaultTimeout = 5 * time.Second

// Kernel preferred route and neighbour lookups.
// Variables for mocking in tests.
var (
	routeGet       = route.Get
	neighborLookup = arp.Lookup
)

// Finder runs one table search per interface concurrently.
type Finder struct {
	source    fwdtable.Source
	parallel  int
	timeout   time.Duration
	metrics   *Metrics
	preferred bool
	ptr       *ptr.PtrManager
	neighbors bool
	tableOpts []fwdtable.Option
}

// Option configures a Finder.
type Option func(*Finder)

// WithParallel bounds the number of concurrent table fetches. Zero or less
// runs every interface at once.
func WithParallel(n int) Option {
	return func(f *Finder) { f.parallel = n }
}

// WithTimeout sets the per-interface fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Finder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMetrics records fetch durations and failures in m.
func WithMetrics(m *Metrics) Option {
	return func(f *Finder) { f.metrics = m }
}

// WithPreferredRoute marks the interface the kernel would send traffic for
// the destination through.
func WithPreferredRoute() Option {
	return func(f *Finder) { f.preferred = true }
}

// WithPTR resolves the next hops of found routes through pm.
func WithPTR(pm *ptr.PtrManager) Option {
	return func(f *Finder) { f.ptr = pm }
}

// WithNeighbors adds the hardware address the kernel has cached for each
// found route's next hop.
func WithNeighbors() Option {
	return func(f *Finder) { f.neighbors = true }
}

// WithTableOptions passes opts to every table load.
func WithTableOptions(opts ...fwdtable.Option) Option {
	return func(f *Finder) { f.tableOpts = append(f.tableOpts, opts...) }
}

// NewFinder returns a Finder reading tables from src.
func NewFinder(src fwdtable.Source, opts ...Option) *Finder {
	f := &Finder{
		source:  src,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindRoutes searches for routes to dst on each of ifaces. Every interface
// gets its own table snapshot and exactly one Result; a failure on one
// interface does not affect the others. FindRoutes returns when all searches
// have finished.
func (f *Finder) FindRoutes(ctx context.Context, dst netip.Addr, ifaces []iface.Descriptor) Report {
	started := time.Now()
	dst = dst.Unmap()

	var preferred uint32
	if f.preferred {
		preferred = f.preferredIndex(dst)
	}

	results := make([]Result, len(ifaces))
	g := new(errgroup.Group)
	if f.parallel > 0 {
		g.SetLimit(f.parallel)
	}
	for i, d := range ifaces {
		g.Go(func() error {
			results[i] = f.search(ctx, dst, d)
			results[i].Preferred = preferred != 0 && d.Index == preferred
			return nil
		})
	}
	// Searches record their errors in their result
	_ = g.Wait()

	report := Report{
		Destination: dst,
		Results:     make(map[string]Result, len(results)),
		Started:     started,
	}
	for _, r := range results {
		report.Results[r.Interface.Name] = r
	}
	report.Names = f.resolveNextHops(results)
	if f.neighbors {
		report.HwAddrs = resolveNeighbors(results)
	}
	report.Elapsed = time.Since(started)
	return report
}

func (f *Finder) search(ctx context.Context, dst netip.Addr, d iface.Descriptor) Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	snap, err := fwdtable.Load(ctx, f.source, f.tableOpts...)
	f.metrics.observeFetch(time.Since(start), snap.Count(), err)
	if err != nil {
		slog.Debug("Failed to read forwarding table", "interface", d.Name, "index", d.Index, "error", err)
		return Result{Interface: d, Err: err}
	}

	routes := fwdtable.Filter(snap.Entries, dst, d.Index)
	slog.Debug("Searched forwarding table",
		"interface", d.Name,
		"index", d.Index,
		"entries", snap.Count(),
		"matches", len(routes),
	)
	return Result{Interface: d, Routes: routes, TableSize: snap.Count()}
}

func (f *Finder) preferredIndex(dst netip.Addr) uint32 {
	r, err := routeGet(dst)
	if err != nil || r.Interface == nil {
		slog.Debug("Failed to look up preferred route", "destination", dst, "error", err)
		return 0
	}
	return uint32(r.Interface.Index)
}

// resolveNextHops looks up PTR names for the gateways of found routes.
func (f *Finder) resolveNextHops(results []Result) map[string]string {
	if f.ptr == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, r := range results {
		for _, e := range r.Routes {
			if e.NextHop.IsValid() && !e.NextHop.IsUnspecified() {
				seen[e.NextHop.String()] = true
			}
		}
	}

	var g errgroup.Group
	for ip := range seen {
		g.Go(func() error {
			f.ptr.RequestPTR(ip)
			return nil
		})
	}
	_ = g.Wait()

	names := make(map[string]string, len(seen))
	for ip := range seen {
		if name, ok := f.ptr.GetPTR(ip); ok {
			names[ip] = name
		}
	}
	return names
}

// neighborKey identifies a neighbour table lookup.
func neighborKey(ip netip.Addr, ifIndex uint32) string {
	return fmt.Sprintf("%s%%%d", ip, ifIndex)
}

// neighbor returns the address traffic for e is handed to on the link: the
// gateway, or the destination itself for a directly connected route.
func neighbor(e fwdtable.Entry) netip.Addr {
	if e.NextHop.IsValid() && !e.NextHop.IsUnspecified() {
		return e.NextHop
	}
	return e.Destination
}

// resolveNeighbors reads the cached hardware address of every found
// route's neighbour.
func resolveNeighbors(results []Result) map[string]string {
	addrs := make(map[string]string)
	for _, r := range results {
		for _, e := range r.Routes {
			ip := neighbor(e)
			key := neighborKey(ip, e.IfIndex)
			if _, done := addrs[key]; done {
				continue
			}
			mac, err := neighborLookup(ip, int(e.IfIndex))
			if err != nil {
				slog.Debug("No neighbour entry", "address", ip, "index", e.IfIndex, "error", err)
				addrs[key] = ""
				continue
			}
			addrs[key] = mac.String()
		}
	}
	return addrs
}
