package query

import (
	"cmp"
	"net/netip"
	"slices"
	"time"

	"github.com/tkjaer/ifroute/internal/shared"
	"github.com/tkjaer/ifroute/pkg/fwdtable"
	"github.com/tkjaer/ifroute/pkg/iface"
)

// Result is the outcome of the search on one interface. Err is set when the
// forwarding table could not be read, which is distinct from finding no
// matching route.
type Result struct {
	Interface iface.Descriptor
	Routes    []fwdtable.Entry
	Err       error
	Preferred bool
	TableSize int
}

// Found reports whether at least one matching route was found.
func (r Result) Found() bool {
	return r.Err == nil && len(r.Routes) > 0
}

// Failed reports whether the table could not be searched.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Report holds one Result per queried interface, keyed by interface name.
type Report struct {
	Destination netip.Addr
	Query       string
	Iteration   uint
	Results     map[string]Result
	Names       map[string]string // next hop address -> PTR name
	HwAddrs     map[string]string // neighbour address%index -> hardware address
	Started     time.Time
	Elapsed     time.Duration
}

// Sorted returns the results ordered by interface index.
func (r Report) Sorted() []Result {
	results := make([]Result, 0, len(r.Results))
	for _, res := range r.Results {
		results = append(results, res)
	}
	slices.SortFunc(results, func(a, b Result) int {
		return cmp.Or(
			cmp.Compare(a.Interface.Index, b.Interface.Index),
			cmp.Compare(a.Interface.Name, b.Interface.Name),
		)
	})
	return results
}

// AllFailed reports whether there were interfaces to search and none of
// their tables could be read.
func (r Report) AllFailed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Failed() {
			return false
		}
	}
	return true
}

// Run converts the report into its serialisable form, hashing each
// interface's routes with algorithm.
func (r Report) Run(algorithm string) *shared.ReportRun {
	run := &shared.ReportRun{
		Destination: r.Destination.String(),
		Query:       r.Query,
		Iteration:   r.Iteration,
		Interfaces:  make([]*shared.InterfaceRun, 0, len(r.Results)),
		Timestamp:   r.Started,
		Elapsed:     r.Elapsed.Microseconds(),
	}
	for _, res := range r.Sorted() {
		ir := &shared.InterfaceRun{
			Name:      res.Interface.Name,
			Index:     res.Interface.Index,
			Kind:      string(res.Interface.Kind),
			Up:        res.Interface.Up,
			Preferred: res.Preferred,
			Routes:    make([]*shared.RouteRun, 0, len(res.Routes)),
		}
		if res.Interface.Addr.IsValid() {
			ir.Address = res.Interface.Addr.String()
		}
		switch {
		case res.Failed():
			ir.Status = shared.StatusFailed
			ir.Error = res.Err.Error()
			run.Failed++
		case res.Found():
			ir.Status = shared.StatusFound
			run.Found++
		default:
			ir.Status = shared.StatusAbsent
		}
		for _, e := range res.Routes {
			ir.Routes = append(ir.Routes, r.routeRun(e))
		}
		ir.RouteHash = shared.CalculateRouteHash(ir.Routes, algorithm)
		run.Interfaces = append(run.Interfaces, ir)
	}
	return run
}

func (r Report) routeRun(e fwdtable.Entry) *shared.RouteRun {
	rr := &shared.RouteRun{
		Destination: e.Destination.String(),
		NextHop:     e.NextHop.String(),
		NextHopPTR:  r.Names[e.NextHop.String()],
		NextHopMAC:  r.HwAddrs[neighborKey(neighbor(e), e.IfIndex)],
		IfIndex:     e.IfIndex,
		Type:        e.TypeName(),
		Proto:       e.ProtoName(),
		Age:         e.Age,
		Metric:      e.Metric[0],
	}
	if p := e.Prefix(); p.IsValid() {
		rr.Prefix = p.String()
	}
	return rr
}
