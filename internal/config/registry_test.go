package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "maevexctl") {
		t.Errorf("GetConfigDir() = %v, should contain 'maevexctl'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestNewRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	if r.Version != 1 {
		t.Errorf("Version = %d, want 1", r.Version)
	}
	if r.Preferences == nil {
		t.Fatal("Preferences is nil")
	}
	if r.Preferences.DiscoverTimeout != 10 {
		t.Errorf("DiscoverTimeout = %d, want 10", r.Preferences.DiscoverTimeout)
	}
	if r.Preferences.AwaitTimeout != 120 {
		t.Errorf("AwaitTimeout = %d, want 120", r.Preferences.AwaitTimeout)
	}
	if r.Preferences.OutputDir != "." {
		t.Errorf("OutputDir = %q, want %q", r.Preferences.OutputDir, ".")
	}
}

func TestEnsureDevice(t *testing.T) {
	r := NewRegistry()

	dev := r.EnsureDevice("192.168.1.20")
	if dev == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	dev.Nickname = "Lobby Encoder"

	// Second call must return the same entry
	again := r.EnsureDevice("192.168.1.20")
	if again.Nickname != "Lobby Encoder" {
		t.Errorf("EnsureDevice() returned a fresh entry, nickname = %q", again.Nickname)
	}

	if r.GetDevice("10.0.0.1") != nil {
		t.Error("GetDevice() for unknown host should return nil")
	}
}

func TestUpdateDeviceLastSeen(t *testing.T) {
	r := NewRegistry()
	before := time.Now()

	r.UpdateDeviceLastSeen("192.168.1.20", "SV2Dec", "MX123456")

	dev := r.GetDevice("192.168.1.20")
	if dev == nil {
		t.Fatal("device not created")
	}
	if dev.URN != "SV2Dec" || dev.Serial != "MX123456" {
		t.Errorf("device = %+v", dev)
	}
	if dev.LastSeen.Before(before) {
		t.Error("LastSeen not updated")
	}

	// Empty fields must not clobber existing values
	r.UpdateDeviceLastSeen("192.168.1.20", "", "")
	if dev.URN != "SV2Dec" || dev.Serial != "MX123456" {
		t.Errorf("empty update clobbered fields: %+v", dev)
	}
}

// TestRegistryRoundTrip tests YAML serialization of the registry shape
func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Preferences.RateLimit = 1 << 20
	r.Preferences.OutputDir = "/srv/recordings"
	r.UpdateDeviceLastSeen("[fe80::1]", "SV2", "MX9")
	r.EnsureDevice("[fe80::1]").Nickname = "Rack Decoder"

	data, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}

	var back Registry
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if back.Preferences.RateLimit != 1<<20 {
		t.Errorf("RateLimit = %d", back.Preferences.RateLimit)
	}
	dev := back.GetDevice("[fe80::1]")
	if dev == nil || dev.Nickname != "Rack Decoder" || dev.URN != "SV2" {
		t.Errorf("device did not round-trip: %+v", dev)
	}
}

// TestLoadRegistryFromFile tests parsing a config file on disk
func TestLoadRegistryFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	if runtime.GOOS != "linux" {
		t.Skip("XDG override only applies on linux")
	}

	configDir := filepath.Join(tmpDir, "maevexctl")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatal(err)
	}

	content := `version: 1
devices:
  192.168.1.20:
    nickname: Lobby Encoder
    urn: Maevex1
preferences:
  discover_timeout: 5
  await_timeout: 60
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	r, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}

	if r.Preferences.DiscoverTimeout != 5 || r.Preferences.AwaitTimeout != 60 {
		t.Errorf("preferences = %+v", r.Preferences)
	}
	dev := r.GetDevice("192.168.1.20")
	if dev == nil || dev.Nickname != "Lobby Encoder" {
		t.Errorf("device = %+v", dev)
	}
}
