package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantSerial string
		wantIP     string
		wantPort   int
		wantFamily string
	}{
		{
			name: "valid appliance with IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "Maevex-MX062151.local.",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")},
				Text:     []string{"model=Maevex 6152", "family=SV2Dec", "fw=2.08.01"},
			},
			wantSerial: "MX062151",
			wantIP:     "192.168.1.20",
			wantPort:   443,
			wantFamily: "SV2Dec",
		},
		{
			name: "valid appliance without trailing dot",
			entry: &zeroconf.ServiceEntry{
				HostName: "Maevex-MX123456.local",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantSerial: "MX123456",
			wantIP:     "10.0.0.5",
			wantPort:   443,
		},
		{
			name: "no port defaults to 443",
			entry: &zeroconf.ServiceEntry{
				HostName: "Maevex-MX1.local",
				Port:     0,
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantSerial: "MX1",
			wantIP:     "172.16.0.1",
			wantPort:   443,
		},
		{
			name: "IPv6 only appliance",
			entry: &zeroconf.ServiceEntry{
				HostName: "Maevex-MX2.local",
				Port:     443,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantSerial: "MX2",
			wantIP:     "fe80::1",
			wantPort:   443,
		},
		{
			name: "prefers IPv4 when both present",
			entry: &zeroconf.ServiceEntry{
				HostName: "Maevex-MX3.local",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantSerial: "MX3",
			wantIP:     "192.168.1.50",
			wantPort:   443,
		},
		{
			name: "non-Maevex device (wrong hostname pattern)",
			entry: &zeroconf.ServiceEntry{
				HostName: "someotherdevice.local",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "empty hostname",
			entry: &zeroconf.ServiceEntry{
				HostName: "",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "Maevex-MX4.local",
				Port:     443,
				AddrIPv4: []net.IP{},
				AddrIPv6: []net.IP{},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}

			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil device")
			}
			if device.Serial != tt.wantSerial {
				t.Errorf("device.Serial = %v, want %v", device.Serial, tt.wantSerial)
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}
			if device.Family != tt.wantFamily {
				t.Errorf("device.Family = %v, want %v", device.Family, tt.wantFamily)
			}
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		HostName: "Maevex-MX062151.local",
		Port:     443,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")},
		Text:     []string{"model=Maevex 6152", "fw=2.08.01", "recording", "family=SV2"},
	}

	device := scanner.parseServiceEntry(entry)
	if device == nil {
		t.Fatal("parseServiceEntry() = nil, want device")
	}

	expectedMetadata := map[string]string{
		"model":     "Maevex 6152",
		"fw":        "2.08.01",
		"recording": "", // Key without value
		"family":    "SV2",
	}

	if len(device.Metadata) != len(expectedMetadata) {
		t.Errorf("device.Metadata has %d entries, want %d", len(device.Metadata), len(expectedMetadata))
	}
	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := device.Metadata[key]; !ok {
			t.Errorf("device.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("device.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestSerialPattern(t *testing.T) {
	tests := []struct {
		hostname    string
		shouldMatch bool
		serial      string
	}{
		{"Maevex-MX062151.local", true, "MX062151"},
		{"Maevex-MX062151.local.", true, "MX062151"},
		{"Maevex-123456.local", true, "123456"},
		{"maevex-MX062151.local", false, ""}, // lowercase prefix
		{"Maevex-.local", false, ""},         // no serial
		{"somedevice.local", false, ""},      // wrong prefix
		{"Maevex-MX062151", false, ""},       // missing .local
		{"", false, ""},                      // empty
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			matches := serialPattern.FindStringSubmatch(tt.hostname)

			if tt.shouldMatch {
				if matches == nil || len(matches) < 2 {
					t.Errorf("serialPattern did not match %q", tt.hostname)
				} else if matches[1] != tt.serial {
					t.Errorf("serialPattern matched %q with serial %q, want %q", tt.hostname, matches[1], tt.serial)
				}
			} else {
				if matches != nil {
					t.Errorf("serialPattern matched %q, want no match", tt.hostname)
				}
			}
		})
	}
}
