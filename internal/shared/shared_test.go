package shared

import (
	"encoding/json"
	"testing"
)

func Test_calculateHash(t *testing.T) {
	tests := []struct {
		name      string
		parts     []string
		algorithm string
		want      string
	}{
		{
			name:      "empty parts sha256",
			parts:     []string{},
			algorithm: "sha256",
			want:      "0000000000000000000000000000000000000000000000000000000000000000",
		},
		{
			name:      "empty parts crc32",
			parts:     []string{},
			algorithm: "crc32",
			want:      "00000000",
		},
		{
			name:      "single part sha256",
			parts:     []string{"192.0.2.1"},
			algorithm: "sha256",
			want:      "1533777cbe5eb51a9de765ea723f093bb753862f1a1e9245124dc5ce21eee04f",
		},
		{
			name:      "single part crc32",
			parts:     []string{"192.0.2.1"},
			algorithm: "crc32",
			want:      "33d71695",
		},
		{
			name:      "multiple parts crc32",
			parts:     []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"},
			algorithm: "crc32",
			want:      "845425ea",
		},
		{
			name:      "parts with empty string",
			parts:     []string{"192.0.2.1", "", "192.0.2.3"},
			algorithm: "crc32",
			want:      "6ceacc8b",
		},
		{
			name:      "unknown algorithm defaults to crc32",
			parts:     []string{"192.0.2.1"},
			algorithm: "unknown",
			want:      "33d71695",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateHash(tt.parts, tt.algorithm)
			if got != tt.want {
				t.Errorf("calculateHash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateRouteHash(t *testing.T) {
	direct := &RouteRun{Destination: "127.0.0.1", NextHop: "0.0.0.0", IfIndex: 5}
	viaGateway := &RouteRun{Destination: "127.0.0.1", NextHop: "192.0.2.1", IfIndex: 5}

	tests := []struct {
		name      string
		routes    []*RouteRun
		algorithm string
		want      string
	}{
		{
			name:      "nil routes",
			routes:    nil,
			algorithm: "crc32",
			want:      "00000000",
		},
		{
			name:      "empty routes sha256",
			routes:    []*RouteRun{},
			algorithm: "sha256",
			want:      "0000000000000000000000000000000000000000000000000000000000000000",
		},
		{
			name:      "single route",
			routes:    []*RouteRun{direct},
			algorithm: "crc32",
			want:      "96f1981f",
		},
		{
			name:      "two routes",
			routes:    []*RouteRun{direct, viaGateway},
			algorithm: "crc32",
			want:      "a482dcfa",
		},
		{
			name:      "order does not matter",
			routes:    []*RouteRun{viaGateway, direct},
			algorithm: "crc32",
			want:      "a482dcfa",
		},
		{
			name:      "two routes sha256",
			routes:    []*RouteRun{direct, viaGateway},
			algorithm: "sha256",
			want:      "b63c47271a876b59239ed80d343f0e34c7f512f0e6ebb00bf00206820116f8e7",
		},
		{
			name:      "nil route in slice",
			routes:    []*RouteRun{direct, nil},
			algorithm: "crc32",
			want:      "96f1981f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRouteHash(tt.routes, tt.algorithm)
			if got != tt.want {
				t.Errorf("CalculateRouteHash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouteRun_Key(t *testing.T) {
	r := &RouteRun{Destination: "127.0.0.1", NextHop: "0.0.0.0", IfIndex: 5, Metric: 10}
	if got, want := r.Key(), "127.0.0.1>0.0.0.0@5"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestReportRun_ElapsedField(t *testing.T) {
	data, err := json.Marshal(&ReportRun{Elapsed: 1500})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v, ok := fields["elapsed_us"]; !ok || v != float64(1500) {
		t.Errorf("elapsed_us = %v (present %v), want 1500", v, ok)
	}
}
