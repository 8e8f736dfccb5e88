package maevex

import (
	"fmt"
	"time"
)

// DeviceInfo is the identity block returned by GET /api/v1/info.
type DeviceInfo struct {
	// Serial is the appliance serial number
	Serial string `json:"serial"`

	// Model is the appliance model name (e.g., "Maevex 6152")
	Model string `json:"model"`

	// Firmware is the running firmware version
	Firmware string `json:"firmware"`

	// Family is the device family URN literal reported by the appliance
	// ("Maevex1", "SV2", "SV2Dec")
	Family string `json:"family"`

	// Capabilities describes what the appliance can do
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities describes the feature set an appliance reports.
type Capabilities struct {
	Encoder      bool `json:"encoder"`
	Decoder      bool `json:"decoder"`
	LocalStorage bool `json:"localStorage"`
}

// Settings is the mutable appliance configuration.
//
// Callers must not hand a Settings value they received from a shared
// snapshot directly to ApplySettings; Clone it first and edit the copy.
type Settings struct {
	// FriendlyName is the operator-visible appliance name
	FriendlyName string `json:"friendlyName"`

	// Channels configures the encode/decode channels
	Channels []ChannelSettings `json:"channels"`

	// RecordingEnabled controls local-storage recording
	RecordingEnabled bool `json:"recordingEnabled"`

	// NTPServer is the appliance's time source
	NTPServer string `json:"ntpServer,omitempty"`
}

// ChannelSettings configures one encode or decode channel.
type ChannelSettings struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SourceURI string `json:"sourceUri,omitempty"`
	Bitrate   int    `json:"bitrate,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// Clone returns a deep copy of the settings.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	out := *s
	if s.Channels != nil {
		out.Channels = make([]ChannelSettings, len(s.Channels))
		copy(out.Channels, s.Channels)
	}
	return &out
}

// MarkMap is the appliance's record-mark structure: named marks pointing
// into recorded streams. The client treats the mark payloads as opaque;
// the map must accompany every settings apply so the appliance can keep
// marks consistent with the configuration it accepts.
type MarkMap struct {
	Marks map[string]Mark `json:"marks"`
}

// Mark is a single record mark.
type Mark struct {
	Stream string    `json:"stream"`
	Offset int64     `json:"offset"`
	Label  string    `json:"label,omitempty"`
	At     time.Time `json:"at"`
}

// Clone returns a deep copy of the mark map.
func (m *MarkMap) Clone() *MarkMap {
	if m == nil {
		return nil
	}
	out := &MarkMap{}
	if m.Marks != nil {
		out.Marks = make(map[string]Mark, len(m.Marks))
		for k, v := range m.Marks {
			out.Marks[k] = v
		}
	}
	return out
}

// LocalFile describes one file in the appliance's local storage, as
// returned by GET /api/v1/storage/files.
type LocalFile struct {
	// Name is the file name within the appliance's storage
	Name string `json:"name"`

	// SourceURI is the appliance-local URI the file is served from
	SourceURI string `json:"sourceUri"`

	// Size is the expected size in bytes
	Size int64 `json:"size"`

	// Completed reports whether the recording has finished writing.
	// Incomplete files cannot be downloaded.
	Completed bool `json:"completed"`
}

// State is one coherent snapshot of a device's mutable state: info,
// settings and mark map fetched together. The monitor republishes State
// values; everything inside is owned by the snapshot and must be cloned
// before mutation.
type State struct {
	Info     DeviceInfo `json:"info"`
	Settings *Settings  `json:"settings"`
	MarkMap  *MarkMap   `json:"markMap"`
}

// ApplyStatus is the appliance's verdict on a settings apply.
type ApplyStatus int

const (
	// ApplyOK means the appliance accepted and activated the settings
	ApplyOK ApplyStatus = 0

	// ApplyRejected means the settings failed appliance-side validation
	ApplyRejected ApplyStatus = 1

	// ApplyBusy means the appliance is mid-operation and refused the apply
	ApplyBusy ApplyStatus = 2

	// ApplyConflict means the mark map was stale relative to the
	// appliance's current recording state
	ApplyConflict ApplyStatus = 3
)

// String returns a human-readable name for the apply status
func (s ApplyStatus) String() string {
	switch s {
	case ApplyOK:
		return "ok"
	case ApplyRejected:
		return "rejected"
	case ApplyBusy:
		return "busy"
	case ApplyConflict:
		return "conflict"
	default:
		return fmt.Sprintf("ApplyStatus(%d)", int(s))
	}
}

// ApplyResult is the full response to a settings apply: the status code
// plus a fresh snapshot of the device state after the apply.
type ApplyResult struct {
	Status ApplyStatus `json:"status"`
	State  *State      `json:"state,omitempty"`
}
