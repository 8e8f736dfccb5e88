package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for appliances and application
// preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by canonical host literal
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents user-defined metadata for a single appliance.
// This is keyed by the appliance's canonical host in the Registry.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	URN      string    `yaml:"urn,omitempty"`       // Last known device family
	Serial   string    `yaml:"serial,omitempty"`    // Appliance serial number
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoverTimeout int        `yaml:"discover_timeout"`       // mDNS scan timeout in seconds
	AwaitTimeout    int        `yaml:"await_timeout"`          // discovery-poll bound in seconds
	RateLimit       int64      `yaml:"rate_limit,omitempty"`   // download rate cap in bytes/s (0 = built-in default)
	OutputDir       string     `yaml:"output_dir,omitempty"`   // default download directory
	DefaultAuth     *AuthPrefs `yaml:"default_auth,omitempty"` // Default authentication preferences
}

// AuthPrefs represents default authentication preferences.
// Passwords are never stored; they are always part of the request.
type AuthPrefs struct {
	Username string `yaml:"username"`
}

// defaultPreferences returns the built-in preference values
func defaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout: 10,
		AwaitTimeout:    120,
		OutputDir:       ".",
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

// GetDevice retrieves appliance metadata by host.
// Returns nil if the appliance doesn't exist in the registry.
func (r *Registry) GetDevice(host string) *Device {
	return r.Devices[host]
}

// EnsureDevice ensures an appliance entry exists in the registry and
// returns it (existing or newly created).
func (r *Registry) EnsureDevice(host string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[host]; exists {
		return device
	}

	device := &Device{}
	r.Devices[host] = device
	return device
}

// UpdateDeviceLastSeen records a successful contact with an appliance.
func (r *Registry) UpdateDeviceLastSeen(host, urn, serial string) {
	device := r.EnsureDevice(host)
	device.LastSeen = time.Now()
	if urn != "" {
		device.URN = urn
	}
	if serial != "" {
		device.Serial = serial
	}
}
