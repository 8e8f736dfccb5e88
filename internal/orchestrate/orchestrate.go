package orchestrate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mxtools/maevexctl/internal/logging"
	"github.com/mxtools/maevexctl/internal/maevex"
	"github.com/mxtools/maevexctl/internal/monitor"
	"github.com/mxtools/maevexctl/internal/request"
	"github.com/mxtools/maevexctl/internal/ui"
)

const (
	// DefaultAddTimeout bounds the device registration step
	DefaultAddTimeout = 30 * time.Second

	// DefaultAwaitTimeout bounds the discovery wait when the caller's
	// context carries no deadline of its own
	DefaultAwaitTimeout = 120 * time.Second

	// friendlyNameSuffix is appended to the device's friendly name by
	// the delete operation's settings change
	friendlyNameSuffix = " - modified"
)

// DeviceMonitor is the slice of the monitor the sequence drives.
// *monitor.Monitor satisfies it.
type DeviceMonitor interface {
	Add(ctx context.Context, urn request.URN, uri string) error
	Await(ctx context.Context, uri string) (monitor.Snapshot, error)
	SetCredentials(uri, username, password string) error
	Refresh(ctx context.Context, uri string) (*maevex.State, error)
	Close()
}

// DeviceOps is the slice of the device client the operations use.
// *maevex.Client satisfies it.
type DeviceOps interface {
	SetAuth(username, password string)
	ListLocalFiles(ctx context.Context) ([]maevex.LocalFile, error)
	DownloadLocalFile(ctx context.Context, spec maevex.DownloadSpec, onProgress maevex.ProgressFunc) (*maevex.DownloadResult, error)
	DeleteAllLocalFiles(ctx context.Context) error
	ApplySettings(ctx context.Context, marks *maevex.MarkMap, settings *maevex.Settings) (*maevex.ApplyResult, error)
}

// OpsFactory builds the operations client for one appliance host
type OpsFactory func(host string) DeviceOps

// Options configures one run of the sequence
type Options struct {
	Monitor      DeviceMonitor // required
	Ops          OpsFactory    // nil means the standard HTTPS client
	AddTimeout   time.Duration // zero means DefaultAddTimeout
	AwaitTimeout time.Duration // zero means DefaultAwaitTimeout
	RateLimit    int64         // download byte-rate cap; zero means the client default
	OnStep       ui.StepCallback
	OnProgress   maevex.ProgressFunc
}

// Outcome reports what the sequence did
type Outcome struct {
	Snapshot     monitor.Snapshot
	Download     *maevex.DownloadResult
	Deleted      bool
	ApplyStatus  maevex.ApplyStatus
	FriendlyName string
	Warnings     []string
}

// Details returns the outcome as display key-value pairs
func (o *Outcome) Details() map[string]string {
	details := map[string]string{
		"Device": o.Snapshot.URI,
		"Serial": o.Snapshot.Context.Info.Serial,
	}
	if o.Download != nil {
		details["File"] = o.Download.Path
		details["Size"] = fmt.Sprintf("%d bytes", o.Download.BytesWritten)
	}
	if o.Deleted {
		details["Local storage"] = "cleared"
	}
	if o.FriendlyName != "" {
		details["Friendly name"] = o.FriendlyName
	}
	return details
}

// StepNames returns the display names for the sequence's steps under the
// given operation, in execution order.
func StepNames(op request.Op) []string {
	names := []string{
		"Register device",
		"Wait for discovery",
		"Install credentials",
		"Snapshot device state",
	}
	switch op {
	case request.OpDelete:
		names = append(names, "Delete local recordings", "Apply settings")
	default:
		names = append(names, "Download recording")
	}
	return names
}

// Run executes the full sequence for one validated request. The monitor
// is closed before Run returns, whatever the outcome.
func Run(ctx context.Context, req *request.Request, opts Options) (*Outcome, error) {
	if opts.Monitor == nil {
		return nil, fmt.Errorf("no device monitor configured")
	}
	defer opts.Monitor.Close()

	ops := opts.Ops
	if ops == nil {
		ops = func(host string) DeviceOps { return maevex.NewClient(host) }
	}

	addTimeout := opts.AddTimeout
	if addTimeout <= 0 {
		addTimeout = DefaultAddTimeout
	}
	awaitTimeout := opts.AwaitTimeout
	if awaitTimeout <= 0 {
		awaitTimeout = DefaultAwaitTimeout
	}

	seq := &sequence{
		req:     req,
		monitor: opts.Monitor,
		ops:     ops(req.URI),
		opts:    opts,
		outcome: &Outcome{},
	}

	// Step 1: registration, bounded on its own
	seq.start(1, "")
	addCtx, cancel := context.WithTimeout(ctx, addTimeout)
	err := seq.monitor.Add(addCtx, req.URN, req.URI)
	cancel()
	if err != nil {
		// Monitor.Add already identifies the device in its error.
		seq.fail(1, err.Error())
		return nil, err
	}
	seq.complete(1, "")

	// Step 2: discovery wait, bounded by the caller or the default
	seq.start(2, "")
	awaitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancelAwait context.CancelFunc
		awaitCtx, cancelAwait = context.WithTimeout(ctx, awaitTimeout)
		defer cancelAwait()
	}
	snap, err := seq.monitor.Await(awaitCtx, req.URI)
	if err != nil {
		seq.fail(2, err.Error())
		return nil, err
	}
	seq.outcome.Snapshot = snap
	seq.complete(2, snap.Context.Info.Serial)

	// Step 3: credentials, scoped to this device
	seq.start(3, "")
	if req.URN.IsDecoder() != snap.Capabilities.Decoder {
		warning := fmt.Sprintf("device %s capabilities do not match URN %s", req.URI, req.URN)
		seq.outcome.Warnings = append(seq.outcome.Warnings, warning)
		logging.Warn("Capability mismatch",
			zap.String("host", req.URI),
			zap.String("urn", string(req.URN)),
			zap.Bool("decoder", snap.Capabilities.Decoder),
		)
	}
	if err := seq.monitor.SetCredentials(req.URI, req.Username, req.Password); err != nil {
		seq.fail(3, err.Error())
		return nil, err
	}
	seq.ops.SetAuth(req.Username, req.Password)
	seq.complete(3, "")

	// Step 4: authenticated snapshot, cloned before any local edit
	seq.start(4, "")
	state, err := seq.monitor.Refresh(ctx, req.URI)
	if err != nil {
		seq.fail(4, err.Error())
		return nil, err
	}
	seq.outcome.Snapshot.Context = state
	settings := state.Settings.Clone()
	marks := state.MarkMap.Clone()
	seq.complete(4, "")

	// Step 5: the requested operation
	switch req.Op {
	case request.OpDelete:
		err = seq.runDelete(ctx, marks, settings)
	default:
		err = seq.runDownload(ctx)
	}
	if err != nil {
		return nil, err
	}

	return seq.outcome, nil
}

type sequence struct {
	req     *request.Request
	monitor DeviceMonitor
	ops     DeviceOps
	opts    Options
	outcome *Outcome
}

// runDownload fetches one completed recording from the appliance's local
// storage. With no explicit file the first completed recording is taken.
func (s *sequence) runDownload(ctx context.Context) error {
	step := len(StepNames(request.OpDownload))

	s.start(step, "")
	files, err := s.ops.ListLocalFiles(ctx)
	if err != nil {
		s.fail(step, err.Error())
		return err
	}

	file, err := selectFile(files, s.req.File)
	if err != nil {
		s.fail(step, err.Error())
		return err
	}

	destDir := s.req.OutputDir
	if destDir == "" {
		destDir = "."
	}

	result, err := s.ops.DownloadLocalFile(ctx, maevex.DownloadSpec{
		File:      file,
		DestDir:   destDir,
		RateLimit: s.opts.RateLimit,
	}, s.opts.OnProgress)
	if err != nil {
		s.fail(step, err.Error())
		return err
	}

	s.outcome.Download = result
	s.complete(step, fmt.Sprintf("%d bytes", result.BytesWritten))
	return nil
}

// runDelete clears the appliance's local storage, then applies a
// friendly-name change using the cloned settings and mark map. A non-OK
// apply status is a reported outcome, not an error.
func (s *sequence) runDelete(ctx context.Context, marks *maevex.MarkMap, settings *maevex.Settings) error {
	names := StepNames(request.OpDelete)
	deleteStep := len(names) - 1
	applyStep := len(names)

	s.start(deleteStep, "")
	if err := s.ops.DeleteAllLocalFiles(ctx); err != nil {
		s.fail(deleteStep, err.Error())
		return err
	}
	s.outcome.Deleted = true
	s.complete(deleteStep, "")

	s.start(applyStep, "")
	if settings == nil {
		settings = &maevex.Settings{}
	}
	settings.FriendlyName += friendlyNameSuffix

	result, err := s.ops.ApplySettings(ctx, marks, settings)
	if err != nil {
		s.fail(applyStep, err.Error())
		return err
	}

	s.outcome.ApplyStatus = result.Status
	if result.Status != maevex.ApplyOK {
		warning := fmt.Sprintf("settings were not applied: %s", result.Status)
		s.outcome.Warnings = append(s.outcome.Warnings, warning)
		s.complete(applyStep, result.Status.String())
		return nil
	}

	// Re-read the name from the fresh context returned by the apply
	if result.State != nil && result.State.Settings != nil {
		s.outcome.FriendlyName = result.State.Settings.FriendlyName
		s.outcome.Snapshot.Context = result.State
	}
	s.complete(applyStep, s.outcome.FriendlyName)
	return nil
}

// selectFile picks the recording to download: the named file when given,
// otherwise the first completed one.
func selectFile(files []maevex.LocalFile, name string) (maevex.LocalFile, error) {
	if name != "" {
		for _, f := range files {
			if f.Name == name {
				return f, nil
			}
		}
		return maevex.LocalFile{}, maevex.NewValidationError(
			fmt.Sprintf("no local recording named %q", name))
	}
	for _, f := range files {
		if f.Completed {
			return f, nil
		}
	}
	return maevex.LocalFile{}, maevex.NewValidationError(
		"device has no completed recordings")
}

func (s *sequence) start(step int, message string) {
	s.notify(step, ui.StepRunning, message)
}

func (s *sequence) complete(step int, message string) {
	s.notify(step, ui.StepComplete, message)
}

func (s *sequence) fail(step int, message string) {
	s.notify(step, ui.StepFailed, message)
}

func (s *sequence) notify(step int, status ui.StepStatus, message string) {
	if s.opts.OnStep != nil {
		s.opts.OnStep(step, "", status, message)
	}
}
