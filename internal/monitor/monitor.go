package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mxtools/maevexctl/internal/logging"
	"github.com/mxtools/maevexctl/internal/maevex"
	"github.com/mxtools/maevexctl/internal/request"
)

const (
	// AwaitPollInterval is how often Await re-checks the snapshot table
	AwaitPollInterval = 100 * time.Millisecond

	// refreshInterval is how often the background watcher re-probes a
	// tracked appliance
	refreshInterval = 2 * time.Second
)

// Prober is the slice of the device client the monitor needs to keep a
// snapshot fresh. *maevex.Client satisfies it.
type Prober interface {
	Info(ctx context.Context) (*maevex.DeviceInfo, error)
	State(ctx context.Context) (*maevex.State, error)
	SetAuth(username, password string)
	Events(ctx context.Context) (<-chan maevex.Event, error)
}

// ProberFactory builds the prober for one appliance host
type ProberFactory func(host string) Prober

// Snapshot is the monitor's current view of one tracked appliance.
// Context is nil until the appliance has answered at least one probe;
// Context.Settings and Context.MarkMap stay nil until credentials are
// installed for the device.
type Snapshot struct {
	URI          string
	URN          request.URN
	Capabilities maevex.Capabilities
	Context      *maevex.State
	LastSeen     time.Time
}

type tracked struct {
	snapshot      Snapshot
	prober        Prober
	authenticated bool
	cancel        context.CancelFunc
}

// Monitor tracks registered appliances and keeps their snapshots fresh.
type Monitor struct {
	mu      sync.RWMutex
	devices map[string]*tracked
	factory ProberFactory

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Monitor. factory may be nil, in which case the standard
// HTTPS client is used for every appliance.
func New(factory ProberFactory) *Monitor {
	if factory == nil {
		factory = func(host string) Prober { return maevex.NewClient(host) }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		devices: make(map[string]*tracked),
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers the appliance at uri under the given family URN. The
// appliance must answer an identity probe within the caller's context
// bound or the registration fails; a failed Add leaves nothing tracked.
// Adding an already-tracked uri is a no-op.
func (m *Monitor) Add(ctx context.Context, urn request.URN, uri string) error {
	m.mu.Lock()
	if _, exists := m.devices[uri]; exists {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	prober := m.factory(uri)

	// Registration probe: keep trying until the appliance answers or the
	// caller's bound expires. The identity endpoint needs no credentials.
	var info *maevex.DeviceInfo
	for {
		var err error
		info, err = prober.Info(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("device %s was not added: %w", uri, err)
		}
		select {
		case <-time.After(AwaitPollInterval):
		case <-ctx.Done():
			return fmt.Errorf("device %s was not added: %w", uri, err)
		}
	}

	watchCtx, watchCancel := context.WithCancel(m.ctx)
	dev := &tracked{
		snapshot: Snapshot{
			URI:          uri,
			URN:          urn,
			Capabilities: info.Capabilities,
			Context:      &maevex.State{Info: *info},
			LastSeen:     time.Now(),
		},
		prober: prober,
		cancel: watchCancel,
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		watchCancel()
		return fmt.Errorf("monitor is closed")
	}
	m.devices[uri] = dev
	m.mu.Unlock()

	logging.LogMonitorState(uri, "added")

	m.wg.Add(1)
	go m.watch(watchCtx, uri)

	return nil
}

// Snapshots returns the current view of every tracked appliance
func (m *Monitor) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.devices))
	for _, dev := range m.devices {
		out = append(out, dev.snapshot)
	}
	return out
}

// Await blocks until the appliance at uri has a non-nil context snapshot,
// re-checking every 100ms. The caller's context bounds the wait.
func (m *Monitor) Await(ctx context.Context, uri string) (Snapshot, error) {
	ticker := time.NewTicker(AwaitPollInterval)
	defer ticker.Stop()

	for {
		for _, snap := range m.Snapshots() {
			if snap.URI == uri && snap.Context != nil {
				return snap, nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return Snapshot{}, fmt.Errorf("device %s was not discovered: %w", uri, ctx.Err())
		}
	}
}

// SetCredentials installs credentials for one tracked appliance. The
// scope is per-device: other tracked appliances are unaffected. The
// background watcher switches to full state refreshes and opens the
// event stream once credentials are in place.
func (m *Monitor) SetCredentials(uri, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, ok := m.devices[uri]
	if !ok {
		return fmt.Errorf("device %s is not tracked", uri)
	}
	dev.prober.SetAuth(username, password)
	dev.authenticated = true
	return nil
}

// Refresh fetches a full authenticated state snapshot for uri, stores it
// as the device's context, and returns it.
func (m *Monitor) Refresh(ctx context.Context, uri string) (*maevex.State, error) {
	m.mu.RLock()
	dev, ok := m.devices[uri]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device %s is not tracked", uri)
	}

	state, err := dev.prober.State(ctx)
	if err != nil {
		return nil, err
	}

	m.setContext(uri, state)
	return state, nil
}

// Close releases all watch resources. Idempotent; always safe to defer.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.wg.Wait()

		m.mu.Lock()
		for uri, dev := range m.devices {
			dev.cancel()
			delete(m.devices, uri)
		}
		m.mu.Unlock()
	})
}

// watch keeps one appliance's snapshot fresh until the monitor closes
func (m *Monitor) watch(ctx context.Context, uri string) {
	defer m.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	var events <-chan maevex.Event

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				// Stream dropped; fall back to polling and retry the
				// subscription on the next tick
				events = nil
				continue
			}
			if ev.Type == maevex.EventStateChanged && ev.State != nil {
				m.setContext(uri, ev.State)
			}

		case <-ticker.C:
			m.refreshOnce(ctx, uri)

			if events == nil && m.isAuthenticated(uri) {
				ch, err := m.openEvents(ctx, uri)
				if err != nil {
					logging.Debug("Event stream unavailable, polling only",
						zap.String("host", uri),
						zap.Error(err),
					)
					continue
				}
				events = ch
			}
		}
	}
}

// refreshOnce performs one background probe: full state when the device
// is authenticated, identity-only otherwise.
func (m *Monitor) refreshOnce(ctx context.Context, uri string) {
	m.mu.RLock()
	dev, ok := m.devices[uri]
	if !ok {
		m.mu.RUnlock()
		return
	}
	prober := dev.prober
	authenticated := dev.authenticated
	m.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, refreshInterval)
	defer cancel()

	if authenticated {
		state, err := prober.State(probeCtx)
		if err != nil {
			return
		}
		m.setContext(uri, state)
		return
	}

	info, err := prober.Info(probeCtx)
	if err != nil {
		return
	}
	m.mu.Lock()
	if dev, ok := m.devices[uri]; ok {
		// States handed out through Await/Snapshots are never mutated;
		// a refresh always swaps in a fresh one.
		fresh := &maevex.State{Info: *info}
		if dev.snapshot.Context != nil {
			fresh.Settings = dev.snapshot.Context.Settings
			fresh.MarkMap = dev.snapshot.Context.MarkMap
		}
		dev.snapshot.Context = fresh
		dev.snapshot.Capabilities = info.Capabilities
		dev.snapshot.LastSeen = time.Now()
	}
	m.mu.Unlock()
}

func (m *Monitor) openEvents(ctx context.Context, uri string) (<-chan maevex.Event, error) {
	m.mu.RLock()
	dev, ok := m.devices[uri]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device %s is not tracked", uri)
	}
	return dev.prober.Events(ctx)
}

func (m *Monitor) isAuthenticated(uri string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dev, ok := m.devices[uri]
	return ok && dev.authenticated
}

func (m *Monitor) setContext(uri string, state *maevex.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dev, ok := m.devices[uri]; ok {
		dev.snapshot.Context = state
		dev.snapshot.Capabilities = state.Info.Capabilities
		dev.snapshot.LastSeen = time.Now()
	}
}
