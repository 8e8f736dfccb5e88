package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Device represents a discovered Maevex appliance on the network
type Device struct {
	// Serial is the appliance serial number (e.g., "MX062151")
	Serial string

	// Hostname is the mDNS hostname (e.g., "Maevex-MX062151.local")
	Hostname string

	// IP is the IP address (IPv4 preferred, IPv6 fallback)
	IP string

	// Port is the management port (typically 443)
	Port int

	// Family is the device family from the TXT record ("Maevex1",
	// "SV2", "SV2Dec"), empty when the appliance did not advertise one
	Family string

	// Metadata contains additional mDNS TXT record data
	// Common fields: "model=Maevex 6152", "fw=2.08.01"
	Metadata map[string]string

	// DiscoveredAt is when the appliance was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the appliance
func (d *Device) String() string {
	return fmt.Sprintf("Maevex appliance %s (%s) at %s:%d", d.Serial, d.Hostname, d.IP, d.Port)
}

// Host returns the canonical host literal for the appliance, bracketing
// IPv6 addresses so the value is usable in URLs and maevexctl requests.
func (d *Device) Host() string {
	if strings.Contains(d.IP, ":") {
		return "[" + d.IP + "]"
	}
	return d.IP
}

// BaseURL returns the HTTPS management base URL for the appliance
func (d *Device) BaseURL() string {
	return fmt.Sprintf("https://%s:%d", d.Host(), d.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
