package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/capability"
	"github.com/dshills/tickscript/internal/config"
	"github.com/dshills/tickscript/internal/event"
	"github.com/dshills/tickscript/internal/logging"
	"github.com/dshills/tickscript/internal/notify"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(n notify.Notification)
}

// Option configures instances.
type Option func(*options)

type options struct {
	manifest    *capability.Manifest
	store       config.Store
	notifier    Notifier
	onTrip      func(*Instance)
	logger      *logging.Logger
	surface     capability.Surface
	now         func() time.Time
	threshold   int
	window      time.Duration
	callTimeout time.Duration
}

func defaultOptions() options {
	return options{
		manifest:  capability.Empty(),
		store:     config.NewMemoryStore(),
		logger:    logging.NullLogger,
		now:       time.Now,
		threshold: DefaultBreakerThreshold,
		window:    DefaultBreakerWindow,
	}
}

// WithManifest sets the capabilities injected at every Load.
func WithManifest(m *capability.Manifest) Option {
	return func(o *options) {
		if m != nil {
			o.manifest = m
		}
	}
}

// WithStore sets where autoload flags and the selection are persisted.
func WithStore(s config.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithNotifier sets the receiver of breaker-trip notifications.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithTripHook sets a function called after a tripped breaker has
// unloaded the instance.
func WithTripHook(fn func(*Instance)) Option {
	return func(o *options) {
		o.onTrip = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSurface sets the UI surface scripts draw on.
func WithSurface(s capability.Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithClock replaces time.Now for breaker timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBreaker sets the breaker threshold and window.
func WithBreaker(threshold int, window time.Duration) Option {
	return func(o *options) {
		o.threshold = threshold
		o.window = window
	}
}

// WithCallTimeout bounds each guest call. Zero disables the timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		o.callTimeout = d
	}
}

// Stats contains per-instance counters.
type Stats struct {
	Loads      int
	LoadErrors int
	Unloads    int
	Dispatched int
	Errors     int
	Trips      int
}

// Instance is one script file and, while loaded, its sandbox. Instances are
// not safe for concurrent use; the registry drives them from one goroutine.
type Instance struct {
	path     string
	filename string
	metadata Metadata
	contents string
	eol      string

	state   State
	sandbox *scriptlua.State
	breaker *Breaker
	lastErr error
	stats   Stats

	opts   options
	logger *logging.Logger
}

// NewInstance creates an unloaded instance for the file at path. Nothing is
// read until LoadContents or Load.
func NewInstance(path string, opts ...Option) *Instance {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	filename := filepath.Base(path)
	return &Instance{
		path:     path,
		filename: filename,
		breaker:  NewBreaker(o.threshold, o.window),
		opts:     o,
		logger:   o.logger.WithComponent("script").WithField("file", filename),
	}
}

// Filename returns the base name, which is the instance's identity.
func (i *Instance) Filename() string { return i.filename }

// Path returns the full file path.
func (i *Instance) Path() string { return i.path }

// DisplayName returns the metadata name, or the filename when unset.
func (i *Instance) DisplayName() string {
	if i.metadata.Name != "" {
		return i.metadata.Name
	}
	return i.filename
}

// Metadata returns the script metadata.
func (i *Instance) Metadata() Metadata { return i.metadata }

// SetMetadata replaces the metadata. It is persisted by SaveContents.
func (i *Instance) SetMetadata(m Metadata) { i.metadata = m }

// Contents returns the script body without the header line.
func (i *Instance) Contents() string { return i.contents }

// SetContents replaces the body. A loaded sandbox keeps running the body it
// was loaded with until the next Load.
func (i *Instance) SetContents(body string) { i.contents = body }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// Loaded reports whether the instance is loaded.
func (i *Instance) Loaded() bool { return i.state == StateLoaded }

// LastError returns the most recent load or runtime error.
func (i *Instance) LastError() error { return i.lastErr }

// Stats returns the instance counters.
func (i *Instance) Stats() Stats { return i.stats }

// Breaker returns the error breaker.
func (i *Instance) Breaker() *Breaker { return i.breaker }

// LoadContents reads the file, splitting off the metadata header. It does
// not touch a running sandbox.
func (i *Instance) LoadContents() error {
	data, err := os.ReadFile(i.path)
	if err != nil {
		return &FileIOError{Op: "read", Path: i.path, Err: err}
	}
	text := string(data)
	meta, body, _ := SplitSource(text)
	i.metadata = meta
	i.contents = body
	i.eol = lineEnding(text)
	return nil
}

// SaveContents writes the body back, prefixed with the header when the
// metadata is valid. The header keeps the line terminator the file was read
// with. It does nothing when the body is empty.
func (i *Instance) SaveContents() error {
	if i.contents == "" {
		return nil
	}
	if err := os.WriteFile(i.path, []byte(joinSource(i.metadata, i.contents, i.eol)), 0o644); err != nil {
		return &FileIOError{Op: "write", Path: i.path, Err: err}
	}
	return nil
}

// Load builds a fresh sandbox, injects the manifest, runs the body and then
// onLoad. Any failure closes the new sandbox and leaves the instance
// Unloaded. On success the breaker history is cleared and the script is
// marked for autoload.
func (i *Instance) Load(ctx context.Context) error {
	if i.state == StateLoaded {
		return ErrAlreadyLoaded
	}

	if i.contents == "" {
		if err := i.LoadContents(); err != nil {
			return i.loadFailed(err)
		}
	}
	if err := i.SaveContents(); err != nil {
		return i.loadFailed(err)
	}

	scope := capability.Scope{
		Script:  i.DisplayName(),
		Logger:  i.opts.logger,
		Surface: i.opts.surface,
	}
	console := capability.NewConsole(scope)

	sandbox, err := scriptlua.NewState(
		scriptlua.WithChunkName(i.filename),
		scriptlua.WithCallTimeout(i.opts.callTimeout),
		scriptlua.WithPrint(console.Print),
	)
	if err != nil {
		return i.loadFailed(&CompileError{Script: i.filename, Phase: PhaseSandbox, Err: err})
	}

	if err := i.opts.manifest.Inject(sandbox, scope); err != nil {
		sandbox.Close()
		return i.loadFailed(&CompileError{Script: i.filename, Phase: PhaseInject, Err: err})
	}

	if err := sandbox.DoString(ctx, i.contents); err != nil {
		sandbox.Close()
		phase := PhaseExecute
		if errors.Is(err, scriptlua.ErrSyntax) {
			phase = PhaseCompile
		}
		return i.loadFailed(&CompileError{Script: i.filename, Phase: phase, Err: err})
	}

	if sandbox.HasFunction(event.OnLoad.Name()) {
		if err := guardedCall(ctx, sandbox, event.OnLoad.Name()); err != nil {
			sandbox.Close()
			return i.loadFailed(&CompileError{Script: i.filename, Phase: PhaseOnLoad, Err: err})
		}
	}

	i.sandbox = sandbox
	i.state = StateLoaded
	i.breaker.Reset()
	i.lastErr = nil
	i.stats.Loads++

	if err := i.opts.store.SetAutoload(i.filename, true); err != nil {
		i.logger.Warn("persist autoload: %v", err)
	}
	i.logger.Info("loaded %s", i.DisplayName())
	return nil
}

func (i *Instance) loadFailed(err error) error {
	i.lastErr = err
	i.stats.LoadErrors++
	return err
}

// Unload runs onUnload best-effort, then closes and drops the sandbox.
// Unloading an unloaded instance only updates the autoload flag. With
// disableAutoload the script will not load on the next discovery.
func (i *Instance) Unload(disableAutoload bool) {
	if i.state == StateLoaded {
		if i.sandbox.HasFunction(event.OnUnload.Name()) {
			if err := guardedCall(context.Background(), i.sandbox, event.OnUnload.Name()); err != nil {
				i.logger.Warn("onUnload failed: %v", err)
			}
		}
		i.sandbox.Close()
		i.sandbox = nil
		i.state = StateUnloaded
		i.stats.Unloads++
		i.logger.Info("unloaded %s", i.DisplayName())
	}

	if disableAutoload {
		if err := i.opts.store.SetAutoload(i.filename, false); err != nil {
			i.logger.Warn("persist autoload: %v", err)
		}
	}
}

// Reload unloads the instance, re-reads the file and loads it again. It is
// the only way edits on disk reach a running script.
func (i *Instance) Reload(ctx context.Context) error {
	i.Unload(false)
	if err := i.LoadContents(); err != nil {
		return i.loadFailed(err)
	}
	return i.Load(ctx)
}

// Dispatch delivers an event. Arguments that do not match the schema are
// rejected with *event.MismatchError before any guest code runs. Unloaded
// instances and scripts without a handler ignore the event. A guest error
// is logged and counted by the breaker; Dispatch still returns nil, and a
// tripped breaker unloads the script and notifies the user.
func (i *Instance) Dispatch(schema *event.Schema, args event.Args) error {
	return i.DispatchContext(context.Background(), schema, args)
}

// DispatchContext is Dispatch with a caller context for the guest call.
func (i *Instance) DispatchContext(ctx context.Context, schema *event.Schema, args event.Args) error {
	if err := schema.Validate(args); err != nil {
		return err
	}
	if i.state != StateLoaded {
		return nil
	}
	name := schema.Name()
	if !i.sandbox.HasFunction(name) {
		return nil
	}

	var callArgs []lua.LValue
	if schema.Arity() > 0 {
		callArgs = append(callArgs, i.sandbox.Bridge().ArgsTable(schema.ArgNames(), args))
	}

	i.stats.Dispatched++
	if err := guardedCall(ctx, i.sandbox, name, callArgs...); err != nil {
		i.recordRuntimeError(&RuntimeError{Script: i.DisplayName(), Event: name, Err: err})
	}
	return nil
}

// guardedCall calls a guest function and turns an interpreter panic into an
// error, so it is rolled back or counted like any other guest failure.
func guardedCall(ctx context.Context, sandbox *scriptlua.State, name string, args ...lua.LValue) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", event.ErrHandlerPanic, r)
		}
	}()
	_, err = sandbox.Call(ctx, name, args...)
	return err
}

func (i *Instance) recordRuntimeError(rerr *RuntimeError) {
	i.lastErr = rerr
	i.stats.Errors++
	i.logger.WithField("script", rerr.Script).WithField("event", rerr.Event).
		Error("handler failed: %v", rerr.Err)

	if !i.breaker.Record(i.opts.now()) {
		return
	}

	i.stats.Trips++
	i.logger.Warn("%d errors within %s; unloading %s",
		i.breaker.Threshold(), i.breaker.Window(), i.DisplayName())
	i.Unload(false)

	if i.opts.notifier != nil {
		i.opts.notifier.Notify(notify.ScriptDisabled(i.DisplayName(), i.breaker.Threshold(), i.breaker.Window()))
	}
	if i.opts.onTrip != nil {
		i.opts.onTrip(i)
	}
}
