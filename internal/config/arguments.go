package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tkjaer/ifroute/internal/version"
	"golang.org/x/term"
)

// DefaultDestination is queried when no destination is given.
const DefaultDestination = "127.0.0.1"

// Report formats accepted by --format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Args holds the parsed command line.
type Args struct {
	Destination string
	Interfaces  []string // restrict the query to these interface names
	Parallel    uint     // concurrent table fetches, 0 = one per interface
	Timeout     time.Duration
	NoResolve   bool
	Preferred   bool // mark the interface the kernel would use
	Neighbors   bool // show cached next hop hardware addresses

	// Watch mode
	Watch       time.Duration // interval between queries, 0 = query once
	Count       uint          // number of queries in watch mode, 0 = until interrupted
	MetricsAddr string        // serve Prometheus metrics on this address

	// Output
	Format      string // auto, text or json
	JSONFile    string // also write JSON reports to this file
	MatchesOnly bool   // hide interfaces without a matching route

	// Route set hashing
	HashAlgorithm string // hash algorithm: crc32, sha256

	// Logging
	Log      string // log file path, empty means stderr
	LogLevel string // log level: debug, info, warn, error
}

// isTerminal reports whether stdout is a terminal. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ParseArgs parses os.Args into Args and validates the combination.
func ParseArgs() (Args, error) {
	var args Args
	var showVersion bool

	// Set custom usage message
	flag.Usage = func() {
		println("ifroute - per-interface route inspection")
		println()
		println("Reports, for every network interface, whether the IPv4 forwarding table")
		println("holds a route to DESTINATION leaving through that interface.")
		println()
		println("Usage:")
		println("  ifroute [OPTIONS] [DESTINATION]")
		println()
		println("Examples:")
		println("  ifroute                               # Routes to 127.0.0.1 on every interface")
		println("  ifroute 192.0.2.1                     # Routes to 192.0.2.1")
		println("  ifroute -i eth0 -i eth1 gateway       # Default gateway on eth0 and eth1")
		println("  ifroute -w 5s --metrics-addr :9469 10.0.0.1")
		println()
		println("Options:")
		flag.PrintDefaults()
		println()
		println("Documentation: https://github.com/tkjaer/ifroute")
		println("Report issues: https://github.com/tkjaer/ifroute/issues")
	}

	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.StringArrayVarP(&args.Interfaces, "interface", "i", nil, "Only query this interface (repeatable)")
	flag.UintVarP(&args.Parallel, "parallel", "P", 0, "Maximum concurrent table fetches (0 = one per interface)")
	flag.DurationVarP(&args.Timeout, "timeout", "t", 5*time.Second, "Per-interface table fetch timeout")
	flag.BoolVarP(&args.NoResolve, "no-resolve", "n", false, "Do not resolve next hops to hostnames")
	flag.BoolVar(&args.Preferred, "preferred", false, "Mark the interface the kernel prefers for the destination")
	flag.BoolVar(&args.Neighbors, "neighbors", false, "Show the cached hardware address of each next hop")
	flag.DurationVarP(&args.Watch, "watch", "w", 0, "Repeat the query at this interval (0 = once)")
	flag.UintVarP(&args.Count, "count", "c", 0, "Number of queries in watch mode (0 = until interrupted)")
	flag.StringVar(&args.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address in watch mode")
	flag.StringVarP(&args.Format, "format", "f", FormatAuto, "Report format: auto, text or json")
	flag.StringVarP(&args.JSONFile, "json-file", "j", "", "Also write JSON reports to file")
	flag.BoolVarP(&args.MatchesOnly, "matches-only", "m", false, "Only show interfaces with a matching route")
	flag.StringVar(&args.HashAlgorithm, "hash-algorithm", "crc32", "Route set hash algorithm: crc32 or sha256")
	flag.StringVarP(&args.Log, "log", "l", "", "Diagnostic log file (empty = stderr)")
	flag.StringVar(&args.LogLevel, "log-level", "error", "Log level: debug, info, warn, error")
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		return args, err
	}

	// Handle version flag
	if showVersion {
		fmt.Println(version.FullVersion())
		os.Exit(0)
	}

	args.Destination = flag.Arg(0)
	if args.Destination == "" {
		args.Destination = DefaultDestination
	}

	switch {
	case flag.NArg() > 1:
		return args, errors.New("only one destination may be given")
	case args.Format != FormatAuto && args.Format != FormatText && args.Format != FormatJSON:
		return args, errors.New("format must be one of 'auto', 'text' or 'json'")
	case args.HashAlgorithm != "crc32" && args.HashAlgorithm != "sha256":
		return args, errors.New("hash algorithm must be either 'crc32' or 'sha256'")
	case args.Timeout <= 0:
		return args, errors.New("timeout must be greater than zero")
	case args.Watch < 0:
		return args, errors.New("watch interval must not be negative")
	case args.Count > 0 && args.Watch == 0:
		return args, errors.New("--count requires --watch")
	case args.MetricsAddr != "" && args.Watch == 0:
		return args, errors.New("--metrics-addr requires --watch")
	case !validLogLevel(args.LogLevel):
		return args, errors.New("log level must be one of debug, info, warn or error")
	}

	return args, nil
}

// OutputFormat resolves --format auto to text on a terminal and JSON
// otherwise.
func (a Args) OutputFormat() string {
	if a.Format != FormatAuto && a.Format != "" {
		return a.Format
	}
	if isTerminal() {
		return FormatText
	}
	return FormatJSON
}
