package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
)

func parseWith(t *testing.T, argv ...string) (Args, error) {
	t.Helper()
	// Reset flag package for each test
	flag.CommandLine = flag.NewFlagSet("test", flag.ContinueOnError)

	oldArgs := os.Args
	os.Args = append([]string{"cmd"}, argv...)
	t.Cleanup(func() { os.Args = oldArgs })

	return ParseArgs()
}

func TestArgs_OutputFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		terminal bool
		want     string
	}{
		{"text forced", FormatText, false, FormatText},
		{"json forced", FormatJSON, true, FormatJSON},
		{"auto on terminal", FormatAuto, true, FormatText},
		{"auto when piped", FormatAuto, false, FormatJSON},
		{"unset when piped", "", false, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := isTerminal
			isTerminal = func() bool { return tt.terminal }
			defer func() { isTerminal = orig }()

			if got := (Args{Format: tt.format}).OutputFormat(); got != tt.want {
				t.Errorf("OutputFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_parseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLogLevel(tt.level); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestParseArgs_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "two destinations",
			args:    []string{"192.0.2.1", "192.0.2.2"},
			wantErr: "only one destination may be given",
		},
		{
			name:    "invalid format",
			args:    []string{"--format", "yaml"},
			wantErr: "format must be one of 'auto', 'text' or 'json'",
		},
		{
			name:    "invalid hash algorithm",
			args:    []string{"--hash-algorithm", "md5"},
			wantErr: "hash algorithm must be either 'crc32' or 'sha256'",
		},
		{
			name:    "zero timeout",
			args:    []string{"--timeout", "0s"},
			wantErr: "timeout must be greater than zero",
		},
		{
			name:    "negative watch interval",
			args:    []string{"--watch", "-1s"},
			wantErr: "watch interval must not be negative",
		},
		{
			name:    "count without watch",
			args:    []string{"--count", "3"},
			wantErr: "--count requires --watch",
		},
		{
			name:    "metrics without watch",
			args:    []string{"--metrics-addr", ":9469"},
			wantErr: "--metrics-addr requires --watch",
		},
		{
			name:    "invalid log level",
			args:    []string{"--log-level", "trace"},
			wantErr: "log level must be one of debug, info, warn or error",
		},
		{
			name: "valid minimal config",
			args: []string{},
		},
		{
			name: "valid with destination",
			args: []string{"192.0.2.1"},
		},
		{
			name: "valid watch with count and metrics",
			args: []string{"-w", "2s", "-c", "5", "--metrics-addr", "127.0.0.1:9469", "gateway"},
		},
		{
			name: "valid sha256 hash",
			args: []string{"--hash-algorithm", "sha256", "192.0.2.1"},
		},
		{
			name: "valid json with interfaces",
			args: []string{"-f", "json", "-i", "eth0", "-i", "eth1", "example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseWith(t, tt.args...)

			if tt.wantErr != "" {
				if err == nil {
					t.Errorf("ParseArgs() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("ParseArgs() error = %v, want %v", err.Error(), tt.wantErr)
				}
			} else {
				if err != nil {
					t.Errorf("ParseArgs() unexpected error: %v", err)
				}
				// Verify destination was set
				if args.Destination == "" {
					t.Error("ParseArgs() destination should be set for valid args")
				}
			}
		})
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	if _, err := parseWith(t, "--hops", "3"); err == nil {
		t.Error("ParseArgs() expected error for unknown flag")
	}
}

func TestParseArgs_Defaults(t *testing.T) {
	args, err := parseWith(t)
	if err != nil {
		t.Fatalf("ParseArgs() unexpected error: %v", err)
	}

	// Check defaults
	if args.Destination != DefaultDestination {
		t.Errorf("Destination = %v, want %v", args.Destination, DefaultDestination)
	}
	if args.Timeout != 5*time.Second {
		t.Errorf("Default timeout = %v, want 5s", args.Timeout)
	}
	if args.Parallel != 0 {
		t.Errorf("Default parallel = %v, want 0 (one per interface)", args.Parallel)
	}
	if args.Watch != 0 || args.Count != 0 {
		t.Errorf("Default watch = %v count = %v, want 0 and 0", args.Watch, args.Count)
	}
	if args.Format != FormatAuto {
		t.Errorf("Default format = %v, want auto", args.Format)
	}
	if args.MatchesOnly {
		t.Error("MatchesOnly should be false by default")
	}
	if len(args.Interfaces) != 0 {
		t.Errorf("Default interfaces = %v, want none", args.Interfaces)
	}
	if args.HashAlgorithm != "crc32" {
		t.Errorf("Default hash algorithm = %v, want crc32", args.HashAlgorithm)
	}
	if args.LogLevel != "error" {
		t.Errorf("Default log level = %v, want error", args.LogLevel)
	}
}

func TestParseArgs_Interfaces(t *testing.T) {
	args, err := parseWith(t, "-i", "eth0", "--interface", "wlan0", "192.0.2.1")
	if err != nil {
		t.Fatalf("ParseArgs() unexpected error: %v", err)
	}
	if want := []string{"eth0", "wlan0"}; !slices.Equal(args.Interfaces, want) {
		t.Errorf("Interfaces = %v, want %v", args.Interfaces, want)
	}
	if args.Destination != "192.0.2.1" {
		t.Errorf("Destination = %v, want 192.0.2.1", args.Destination)
	}
}

func TestSetupLogging_File(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	path := filepath.Join(t.TempDir(), "ifroute.log")
	f, err := SetupLogging(Args{Format: FormatText, Log: path, LogLevel: "info"})
	if err != nil {
		t.Fatalf("SetupLogging() error = %v", err)
	}
	if f == nil {
		t.Fatal("SetupLogging() returned no file for --log")
	}

	slog.Info("hello")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
