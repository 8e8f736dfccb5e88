package maevex

import (
	"testing"
	"time"
)

// TestSettingsClone tests that cloned settings share no mutable state
func TestSettingsClone(t *testing.T) {
	original := &Settings{
		FriendlyName:     "Lobby Encoder",
		RecordingEnabled: true,
		Channels: []ChannelSettings{
			{ID: 0, Name: "main", Bitrate: 8000, Enabled: true},
			{ID: 1, Name: "proxy", Bitrate: 1500, Enabled: false},
		},
	}

	clone := original.Clone()

	if clone == original {
		t.Fatal("Clone() returned the same pointer")
	}
	if clone.FriendlyName != original.FriendlyName {
		t.Errorf("FriendlyName = %q, want %q", clone.FriendlyName, original.FriendlyName)
	}

	// Mutating the clone must not touch the original
	clone.FriendlyName = "Renamed"
	clone.Channels[0].Bitrate = 1

	if original.FriendlyName != "Lobby Encoder" {
		t.Error("mutating clone changed original friendly name")
	}
	if original.Channels[0].Bitrate != 8000 {
		t.Error("mutating clone changed original channel slice")
	}
}

// TestSettingsCloneNil tests nil-safety
func TestSettingsCloneNil(t *testing.T) {
	var s *Settings
	if s.Clone() != nil {
		t.Error("nil Settings Clone() should return nil")
	}
}

// TestMarkMapClone tests deep copy of the mark map
func TestMarkMapClone(t *testing.T) {
	original := &MarkMap{
		Marks: map[string]Mark{
			"intro": {Stream: "ch0", Offset: 1024, Label: "Intro", At: time.Now()},
		},
	}

	clone := original.Clone()

	if clone == original {
		t.Fatal("Clone() returned the same pointer")
	}

	clone.Marks["intro"] = Mark{Stream: "ch0", Offset: 9999}
	clone.Marks["outro"] = Mark{Stream: "ch0", Offset: 2048}

	if original.Marks["intro"].Offset != 1024 {
		t.Error("mutating clone changed original mark")
	}
	if len(original.Marks) != 1 {
		t.Errorf("original has %d marks after clone mutation, want 1", len(original.Marks))
	}
}

// TestMarkMapCloneNil tests nil-safety
func TestMarkMapCloneNil(t *testing.T) {
	var m *MarkMap
	if m.Clone() != nil {
		t.Error("nil MarkMap Clone() should return nil")
	}
}

// TestApplyStatusString tests the status code names
func TestApplyStatusString(t *testing.T) {
	tests := []struct {
		status ApplyStatus
		want   string
	}{
		{ApplyOK, "ok"},
		{ApplyRejected, "rejected"},
		{ApplyBusy, "busy"},
		{ApplyConflict, "conflict"},
		{ApplyStatus(42), "ApplyStatus(42)"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("ApplyStatus(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}
