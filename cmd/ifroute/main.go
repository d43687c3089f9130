package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tkjaer/ifroute/internal/config"
	"github.com/tkjaer/ifroute/internal/output"
	"github.com/tkjaer/ifroute/internal/query"
	"github.com/tkjaer/ifroute/pkg/fwdtable"
	"github.com/tkjaer/ifroute/pkg/iface"
	"github.com/tkjaer/ifroute/pkg/ptr"
	"golang.org/x/term"
)

// Exit codes
const (
	exitOK        = 0
	exitError     = 1
	exitAllFailed = 2
)

// Interfaces are re-enumerated at most this often in watch mode.
const interfaceCacheTTL = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	args, err := config.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	// Setup logging
	logFile, err := config.SetupLogging(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		return exitError
	}
	if logFile != nil {
		defer logFile.Close()
	}

	slog.Debug("Starting route search",
		"destination", args.Destination,
		"interfaces", args.Interfaces,
		"parallel", args.Parallel,
		"watch", args.Watch,
	)

	om, err := newOutputManager(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		return exitError
	}
	defer om.Close()

	var metrics *query.Metrics
	if args.MetricsAddr != "" {
		metrics = query.NewMetrics()
		srv := serveMetrics(args.MetricsAddr, metrics)
		defer srv.Close()
	}

	w := &query.Watcher{
		Finder:        query.NewFinder(fwdtable.DefaultSource(), finderOptions(args, metrics)...),
		Directory:     newDirectory(args),
		Interfaces:    args.Interfaces,
		Query:         args.Destination,
		Interval:      args.Watch,
		Count:         args.Count,
		HashAlgorithm: args.HashAlgorithm,
		Metrics:       metrics,
		Emit:          om.WriteReport,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	type result struct {
		report query.Report
		err    error
	}

	// Run in a goroutine so we can handle signals
	done := make(chan result, 1)
	go func() {
		report, err := w.Run(ctx)
		done <- result{report, err}
	}()

	// Wait for either completion or interrupt
	var res result
	select {
	case res = <-done:
	case <-sigChan:
		slog.Debug("Received interrupt signal, stopping...")
		cancel()
		// Wait for Run() to finish the current query
		res = <-done
	}

	if res.err != nil {
		slog.Error("Route search failed", "error", res.err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", res.err)
		return exitError
	}
	if res.report.AllFailed() {
		slog.Debug("Forwarding table could not be read on any interface")
		return exitAllFailed
	}

	slog.Debug("Route search completed", "elapsed", res.report.Elapsed)
	return exitOK
}

func finderOptions(args config.Args, metrics *query.Metrics) []query.Option {
	opts := []query.Option{
		query.WithParallel(int(args.Parallel)),
		query.WithTimeout(args.Timeout),
		query.WithMetrics(metrics),
	}
	if args.Preferred {
		opts = append(opts, query.WithPreferredRoute())
	}
	if args.Neighbors {
		opts = append(opts, query.WithNeighbors())
	}
	if !args.NoResolve {
		opts = append(opts, query.WithPTR(ptr.NewPtrManager(ptr.DefaultTTL)))
	}
	return opts
}

func newDirectory(args config.Args) iface.Directory {
	var dir iface.Directory = iface.System{}
	if args.Watch > 0 {
		dir = iface.NewCached(dir, interfaceCacheTTL)
	}
	return dir
}

func newOutputManager(args config.Args) (*output.OutputManager, error) {
	om := &output.OutputManager{}

	switch args.OutputFormat() {
	case config.FormatJSON:
		jsonOut, err := output.NewJSONOutput("")
		if err != nil {
			return nil, err
		}
		om.Register(jsonOut)
	default:
		om.Register(output.NewTextOutput(os.Stdout, args.MatchesOnly, terminalWidth()))
	}

	if args.JSONFile != "" {
		fileOut, err := output.NewJSONOutput(args.JSONFile)
		if err != nil {
			om.Close()
			return nil, err
		}
		om.Register(fileOut)
	}
	return om, nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func serveMetrics(addr string, metrics *query.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
