package iface

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"
)

func TestIsEthernetInterface(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

	tests := []struct {
		name     string
		iface    *net.Interface
		expected bool
	}{
		{
			name:     "nil interface",
			iface:    nil,
			expected: false,
		},
		{
			name:     "interface without hardware address",
			iface:    &net.Interface{Name: "tun0"},
			expected: false,
		},
		{
			name:     "point-to-point interface with MAC",
			iface:    &net.Interface{Name: "utun1", HardwareAddr: mac, Flags: net.FlagPointToPoint},
			expected: false,
		},
		{
			name:     "loopback",
			iface:    &net.Interface{Name: "lo", Flags: net.FlagLoopback},
			expected: false,
		},
		{
			name:     "ethernet interface with MAC",
			iface:    &net.Interface{Name: "eth0", HardwareAddr: mac},
			expected: true,
		},
		{
			name:     "wifi interface with MAC",
			iface:    &net.Interface{Name: "wlan0", HardwareAddr: mac},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsEthernetInterface(tt.iface)
			if result != tt.expected {
				t.Errorf("IsEthernetInterface() = %v, want %v for interface %v",
					result, tt.expected, tt.iface)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

	tests := []struct {
		name  string
		iface *net.Interface
		want  Kind
	}{
		{"nil", nil, KindTunnel},
		{"loopback", &net.Interface{Flags: net.FlagLoopback | net.FlagUp}, KindLoopback},
		{"ppp", &net.Interface{Flags: net.FlagPointToPoint}, KindPointToPoint},
		{"ethernet", &net.Interface{HardwareAddr: mac}, KindEthernet},
		{"wireguard", &net.Interface{Name: "wg0"}, KindTunnel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.iface); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		name  string
		addrs []net.Addr
		want  netip.Addr
	}{
		{
			name:  "no addresses",
			addrs: nil,
			want:  netip.Addr{},
		},
		{
			name: "IPv6 only",
			addrs: []net.Addr{
				&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
			},
			want: netip.Addr{},
		},
		{
			name: "IPv6 before IPv4",
			addrs: []net.Addr{
				&net.IPNet{IP: net.ParseIP("2001:db8::10"), Mask: net.CIDRMask(64, 128)},
				&net.IPNet{IP: net.ParseIP("192.0.2.10"), Mask: net.CIDRMask(24, 32)},
				&net.IPNet{IP: net.ParseIP("192.0.2.11"), Mask: net.CIDRMask(24, 32)},
			},
			want: netip.MustParseAddr("192.0.2.10"),
		},
		{
			name:  "IPAddr",
			addrs: []net.Addr{&net.IPAddr{IP: net.IPv4(127, 0, 0, 1)}},
			want:  netip.MustParseAddr("127.0.0.1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstIPv4(tt.addrs); got != tt.want {
				t.Errorf("FirstIPv4() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSystem_Interfaces(t *testing.T) {
	orig := listInterfaces
	defer func() { listInterfaces = orig }()

	listInterfaces = func() ([]net.Interface, error) {
		return nil, errors.New("netlink unavailable")
	}
	if _, err := (System{}).Interfaces(); err == nil {
		t.Error("Interfaces() expected error when listing fails")
	}

	listInterfaces = orig
	descs, err := (System{}).Interfaces()
	if err != nil {
		t.Skipf("cannot list interfaces: %v", err)
	}
	for _, d := range descs {
		if d.Name == "" {
			t.Errorf("descriptor without name: %+v", d)
		}
		if d.Addr.IsValid() && !d.Addr.Is4() {
			t.Errorf("descriptor %s has non-IPv4 address %v", d.Name, d.Addr)
		}
	}
}

func TestSelect(t *testing.T) {
	descs := []Descriptor{
		{Name: "lo", Index: 1},
		{Name: "eth0", Index: 2},
		{Name: "wg0", Index: 5},
	}

	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr bool
	}{
		{"all", nil, []string{"lo", "eth0", "wg0"}, false},
		{"subset keeps directory order", []string{"wg0", "lo"}, []string{"lo", "wg0"}, false},
		{"unknown interface", []string{"eth1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(descs, tt.names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Select() returned %d interfaces, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Name != tt.want[i] {
					t.Errorf("Select()[%d] = %s, want %s", i, d.Name, tt.want[i])
				}
			}
		})
	}
}

// countingDirectory counts how often it is asked for interfaces.
type countingDirectory struct {
	calls int
	err   error
}

func (d *countingDirectory) Interfaces() ([]Descriptor, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return []Descriptor{{Name: "eth0", Index: 2}}, nil
}

func TestCached(t *testing.T) {
	t.Run("reuses results within ttl", func(t *testing.T) {
		dir := &countingDirectory{}
		c := NewCached(dir, time.Hour)
		for i := 0; i < 3; i++ {
			descs, err := c.Interfaces()
			if err != nil || len(descs) != 1 {
				t.Fatalf("Interfaces() = %v, %v", descs, err)
			}
		}
		if dir.calls != 1 {
			t.Errorf("underlying directory called %d times, want 1", dir.calls)
		}
	})

	t.Run("refreshes after ttl", func(t *testing.T) {
		dir := &countingDirectory{}
		c := NewCached(dir, 10*time.Millisecond)
		if _, err := c.Interfaces(); err != nil {
			t.Fatal(err)
		}
		time.Sleep(30 * time.Millisecond)
		if _, err := c.Interfaces(); err != nil {
			t.Fatal(err)
		}
		if dir.calls != 2 {
			t.Errorf("underlying directory called %d times, want 2", dir.calls)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		dir := &countingDirectory{err: errors.New("boom")}
		c := NewCached(dir, time.Hour)
		c.Interfaces()
		c.Interfaces()
		if dir.calls != 2 {
			t.Errorf("underlying directory called %d times, want 2", dir.calls)
		}
	})
}
