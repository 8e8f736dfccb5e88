package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mxtools/maevexctl/internal/maevex"
	"github.com/mxtools/maevexctl/internal/request"
)

// fakeProber is a scriptable in-memory device client
type fakeProber struct {
	mu         sync.Mutex
	info       maevex.DeviceInfo
	state      *maevex.State
	infoErr    error
	infoFails  int // fail this many Info calls before succeeding
	username   string
	password   string
	infoCalls  int
	stateCalls int
}

func (f *fakeProber) Info(ctx context.Context) (*maevex.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if f.infoFails > 0 {
		f.infoFails--
		return nil, errors.New("appliance not answering yet")
	}
	info := f.info
	return &info, nil
}

func (f *fakeProber) State(ctx context.Context) (*maevex.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	if f.state == nil {
		return nil, maevex.NewAuthError("authentication failed")
	}
	return f.state, nil
}

func (f *fakeProber) SetAuth(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.username = username
	f.password = password
}

func (f *fakeProber) Events(ctx context.Context) (<-chan maevex.Event, error) {
	return nil, errors.New("no event stream in tests")
}

func (f *fakeProber) setInfo(info maevex.DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = info
}

func (f *fakeProber) auth() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username, f.password
}

func newTestMonitor(probers map[string]*fakeProber) *Monitor {
	return New(func(host string) Prober {
		if p, ok := probers[host]; ok {
			return p
		}
		return &fakeProber{infoErr: errors.New("no route to host")}
	})
}

// TestAddRegistersReachableDevice tests the happy registration path
func TestAddRegistersReachableDevice(t *testing.T) {
	prober := &fakeProber{
		info: maevex.DeviceInfo{
			Serial:       "MX1",
			Family:       "SV2Dec",
			Capabilities: maevex.Capabilities{Decoder: true, LocalStorage: true},
		},
	}
	m := newTestMonitor(map[string]*fakeProber{"10.0.0.5": prober})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNSV2Dec, "10.0.0.5"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	snaps := m.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].URI != "10.0.0.5" || snaps[0].URN != request.URNSV2Dec {
		t.Errorf("snapshot = %+v", snaps[0])
	}
	if !snaps[0].Capabilities.Decoder {
		t.Error("decoder capability lost in snapshot")
	}
}

// TestAddFailsWithinBound tests that an unreachable device is not added
func TestAddFailsWithinBound(t *testing.T) {
	m := newTestMonitor(nil)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := m.Add(ctx, request.URNSV2, "10.0.0.99")
	if err == nil {
		t.Fatal("Add() expected failure for unreachable device")
	}
	if len(m.Snapshots()) != 0 {
		t.Error("failed Add must leave nothing tracked")
	}
}

// TestAddRetriesUntilReachable tests that Add keeps probing inside its bound
func TestAddRetriesUntilReachable(t *testing.T) {
	prober := &fakeProber{
		info:      maevex.DeviceInfo{Serial: "MX2", Family: "SV2"},
		infoFails: 2,
	}
	m := newTestMonitor(map[string]*fakeProber{"10.0.0.6": prober})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNSV2, "10.0.0.6"); err != nil {
		t.Fatalf("Add() error = %v, want success after retries", err)
	}
	if prober.infoCalls < 3 {
		t.Errorf("infoCalls = %d, want at least 3", prober.infoCalls)
	}
}

// TestAwaitReturnsDiscoveredDevice tests the 100ms discovery poll
func TestAwaitReturnsDiscoveredDevice(t *testing.T) {
	prober := &fakeProber{info: maevex.DeviceInfo{Serial: "MX1"}}
	m := newTestMonitor(map[string]*fakeProber{"10.0.0.5": prober})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNMaevex1, "10.0.0.5"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	snap, err := m.Await(ctx, "10.0.0.5")
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if snap.Context == nil {
		t.Fatal("Await() returned snapshot with nil context")
	}
	if snap.Context.Info.Serial != "MX1" {
		t.Errorf("Serial = %q, want MX1", snap.Context.Info.Serial)
	}
}

// TestAwaitHonorsContextBound tests that Await gives up when the caller's
// bound expires instead of blocking forever
func TestAwaitHonorsContextBound(t *testing.T) {
	m := newTestMonitor(nil)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Await(ctx, "10.0.0.42")
	if err == nil {
		t.Fatal("Await() expected timeout for untracked device")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Await() blocked %v past its bound", elapsed)
	}
}

// TestSetCredentialsIsPerDevice tests credential scoping
func TestSetCredentialsIsPerDevice(t *testing.T) {
	proberA := &fakeProber{info: maevex.DeviceInfo{Serial: "A"}}
	proberB := &fakeProber{info: maevex.DeviceInfo{Serial: "B"}}
	m := newTestMonitor(map[string]*fakeProber{
		"10.0.0.1": proberA,
		"10.0.0.2": proberB,
	})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNSV2, "10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(ctx, request.URNSV2Dec, "10.0.0.2"); err != nil {
		t.Fatal(err)
	}

	if err := m.SetCredentials("10.0.0.2", "admin", "secret"); err != nil {
		t.Fatalf("SetCredentials() error = %v", err)
	}

	if user, pass := proberB.auth(); user != "admin" || pass != "secret" {
		t.Errorf("device B credentials = %q/%q", user, pass)
	}
	if user, pass := proberA.auth(); user != "" || pass != "" {
		t.Errorf("device A credentials leaked: %q/%q", user, pass)
	}

	if err := m.SetCredentials("10.0.0.99", "x", "y"); err == nil {
		t.Error("SetCredentials() on untracked device should fail")
	}
}

// TestRefreshStoresFullState tests the authenticated context refresh
func TestRefreshStoresFullState(t *testing.T) {
	prober := &fakeProber{
		info: maevex.DeviceInfo{Serial: "MX1"},
		state: &maevex.State{
			Info:     maevex.DeviceInfo{Serial: "MX1", Capabilities: maevex.Capabilities{Decoder: true}},
			Settings: &maevex.Settings{FriendlyName: "Studio Decoder"},
			MarkMap:  &maevex.MarkMap{Marks: map[string]maevex.Mark{}},
		},
	}
	m := newTestMonitor(map[string]*fakeProber{"10.0.0.5": prober})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNSV2Dec, "10.0.0.5"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetCredentials("10.0.0.5", "admin", "secret"); err != nil {
		t.Fatal(err)
	}

	state, err := m.Refresh(ctx, "10.0.0.5")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if state.Settings == nil || state.Settings.FriendlyName != "Studio Decoder" {
		t.Errorf("state.Settings = %+v", state.Settings)
	}

	snap, err := m.Await(ctx, "10.0.0.5")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Context.Settings == nil {
		t.Error("Refresh did not update the stored snapshot context")
	}
}

// TestRefreshDoesNotMutateHandedOutState tests that a background refresh
// swaps in a fresh device context instead of writing into one a caller
// already holds
func TestRefreshDoesNotMutateHandedOutState(t *testing.T) {
	prober := &fakeProber{info: maevex.DeviceInfo{Serial: "MX1", Firmware: "1.0"}}
	m := newTestMonitor(map[string]*fakeProber{"10.0.0.5": prober})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNSV2, "10.0.0.5"); err != nil {
		t.Fatal(err)
	}

	snap, err := m.Await(ctx, "10.0.0.5")
	if err != nil {
		t.Fatal(err)
	}
	held := snap.Context

	prober.setInfo(maevex.DeviceInfo{Serial: "MX1", Firmware: "2.0"})
	m.refreshOnce(ctx, "10.0.0.5")

	if held.Info.Firmware != "1.0" {
		t.Errorf("held state changed under the caller: Firmware = %q", held.Info.Firmware)
	}

	snaps := m.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].Context == held {
		t.Error("refresh reused the handed-out state instead of swapping in a fresh one")
	}
	if snaps[0].Context.Info.Firmware != "2.0" {
		t.Errorf("refreshed Firmware = %q, want 2.0", snaps[0].Context.Info.Firmware)
	}
}

// TestCloseIsIdempotent tests teardown
func TestCloseIsIdempotent(t *testing.T) {
	prober := &fakeProber{info: maevex.DeviceInfo{Serial: "MX1"}}
	m := newTestMonitor(map[string]*fakeProber{"10.0.0.5": prober})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Add(ctx, request.URNSV2, "10.0.0.5"); err != nil {
		t.Fatal(err)
	}

	m.Close()
	m.Close() // second close must not panic

	if len(m.Snapshots()) != 0 {
		t.Error("Close() should drop all tracked devices")
	}

	if err := m.Add(ctx, request.URNSV2, "10.0.0.5"); err == nil {
		t.Error("Add() after Close() should fail")
	}
}
