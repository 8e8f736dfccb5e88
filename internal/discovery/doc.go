// Package discovery provides mDNS-based discovery of Maevex appliances.
//
// Appliances advertise a "_maevex-mgmt._tcp" service on the local network
// with a hostname of the form "Maevex-<serial>.local" and TXT records
// describing the model, device family, and firmware version.
//
// # Usage Example
//
//	// Discover appliances with 10-second timeout
//	devices, err := discovery.ScanForDevices(10 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, device := range devices {
//	    fmt.Printf("Found: %s at %s (Family: %s)\n",
//	        device.Hostname, device.Host(), device.Family)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Appliances must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// This package is safe for concurrent use.
package discovery
