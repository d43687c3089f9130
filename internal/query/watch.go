package query

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/tkjaer/ifroute/internal/shared"
	"github.com/tkjaer/ifroute/pkg/iface"
)

// resolveDestination is replaced in tests.
var resolveDestination = ResolveDestination

// Watcher repeats a query at a fixed interval and hands every report to Emit.
type Watcher struct {
	Finder        *Finder
	Directory     iface.Directory
	Interfaces    []string // restrict to these names, empty = all
	Query         string   // destination as given by the user
	Interval      time.Duration
	Count         uint // stop after this many queries, 0 = until ctx ends
	HashAlgorithm string
	Metrics       *Metrics
	Emit          func(*shared.ReportRun) error

	dst        netip.Addr
	lastHashes map[string]string
}

// Run queries once, or repeatedly when Interval is set, until Count queries
// have been made or ctx ends. It returns the last complete report.
func (w *Watcher) Run(ctx context.Context) (Report, error) {
	var last Report
	for i := uint(0); ; i++ {
		report, err := w.once(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted mid-query, the report is incomplete
				return last, nil
			}
			return last, err
		}
		last = report

		if w.Interval <= 0 || (w.Count > 0 && i+1 >= w.Count) {
			return last, nil
		}
		select {
		case <-ctx.Done():
			return last, nil
		case <-time.After(w.Interval):
		}
	}
}

func (w *Watcher) once(ctx context.Context, iteration uint) (Report, error) {
	dst, err := resolveDestination(ctx, w.Query)
	switch {
	case err != nil && !w.dst.IsValid():
		return Report{}, err
	case err != nil:
		slog.Warn("Failed to resolve destination, reusing previous address", "query", w.Query, "address", w.dst, "error", err)
	case dst != w.dst && w.dst.IsValid():
		slog.Info("Destination address changed", "query", w.Query, "old", w.dst, "new", dst)
		w.dst = dst
	default:
		w.dst = dst
	}

	descs, err := w.Directory.Interfaces()
	if err != nil {
		return Report{}, err
	}
	descs, err = iface.Select(descs, w.Interfaces)
	if err != nil {
		return Report{}, err
	}

	report := w.Finder.FindRoutes(ctx, w.dst, descs)
	report.Query = w.Query
	report.Iteration = iteration
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	run := report.Run(w.HashAlgorithm)
	w.logChanges(run)
	w.Metrics.ObserveRun(run)
	if w.Emit != nil {
		if err := w.Emit(run); err != nil {
			return report, fmt.Errorf("failed to write report: %w", err)
		}
	}
	return report, nil
}

func (w *Watcher) logChanges(run *shared.ReportRun) {
	if w.lastHashes == nil {
		w.lastHashes = make(map[string]string)
	}
	for _, ir := range run.Interfaces {
		if ir.Status == shared.StatusFailed {
			continue
		}
		if last, ok := w.lastHashes[ir.Name]; ok && last != ir.RouteHash {
			slog.Info("Routes changed", "interface", ir.Name, "destination", run.Destination, "routes", len(ir.Routes))
		}
		w.lastHashes[ir.Name] = ir.RouteHash
	}
}
