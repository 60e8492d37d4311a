package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dshills/tickscript/internal/config"
	"github.com/dshills/tickscript/internal/event"
	"github.com/dshills/tickscript/internal/logging"
)

// ChangeSource reports file changes in the script directory. The watcher
// implements it; Drain is called at the start of every Update.
type ChangeSource interface {
	Drain() (changed []string, resync bool)
	Close() error
}

// EventType identifies a registry lifecycle event.
type EventType int

const (
	// EventAdded is emitted when a file joins the registry.
	EventAdded EventType = iota
	// EventRemoved is emitted when a file leaves the registry.
	EventRemoved
	// EventLoaded is emitted after a successful Load.
	EventLoaded
	// EventUnloaded is emitted after an explicit Unload.
	EventUnloaded
	// EventLoadFailed is emitted when Load returns an error.
	EventLoadFailed
	// EventTripped is emitted when a breaker unloads a script.
	EventTripped
	// EventSelected is emitted when the selected script changes.
	EventSelected
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventLoaded:
		return "loaded"
	case EventUnloaded:
		return "unloaded"
	case EventLoadFailed:
		return "load_failed"
	case EventTripped:
		return "tripped"
	case EventSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Event describes a registry lifecycle change.
type Event struct {
	Type   EventType
	Script string
	Error  error
}

// EventHandler observes registry events. Handlers run on the tick
// goroutine and must not call back into the Registry. Panics are recovered.
type EventHandler func(Event)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithChangeSource attaches the directory watcher.
func WithChangeSource(src ChangeSource) RegistryOption {
	return func(r *Registry) {
		r.changes = src
	}
}

// WithInstanceOptions sets options applied to every instance.
func WithInstanceOptions(opts ...Option) RegistryOption {
	return func(r *Registry) {
		r.instanceOpts = append(r.instanceOpts, opts...)
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBus sets the event bus used by Dispatch.
func WithBus(b *event.Bus) RegistryOption {
	return func(r *Registry) {
		if b != nil {
			r.bus = b
		}
	}
}

// Registry owns the script instances of one directory and keeps them in
// sync with the files on disk. A Registry is driven from a single
// goroutine; only the ChangeSource runs concurrently.
type Registry struct {
	loader  *Loader
	store   config.Store
	changes ChangeSource
	bus     *event.Bus
	logger  *logging.Logger

	instanceOpts []Option

	instances map[string]*Instance
	order     []string
	selected  string
	handlers  []EventHandler
	closed    bool
}

// NewRegistry creates a registry for the loader's directory. Nothing is
// read until the first Resync or Update.
func NewRegistry(loader *Loader, store config.Store, opts ...RegistryOption) *Registry {
	if store == nil {
		store = config.NewMemoryStore()
	}
	r := &Registry{
		loader:    loader,
		store:     store,
		logger:    logging.NullLogger,
		instances: make(map[string]*Instance),
		selected:  store.Selected(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = event.NewBus(event.WithLogger(r.logger.WithComponent("events")))
	}

	r.instanceOpts = append(r.instanceOpts,
		WithStore(store),
		WithTripHook(func(inst *Instance) {
			r.emit(Event{Type: EventTripped, Script: inst.Filename()})
		}),
	)
	return r
}

// Subscribe registers an event handler and returns a function removing it.
func (r *Registry) Subscribe(h EventHandler) func() {
	r.handlers = append(r.handlers, h)
	idx := len(r.handlers) - 1
	return func() {
		if idx < len(r.handlers) {
			r.handlers[idx] = nil
		}
	}
}

// emit calls every handler, recovering panics.
func (r *Registry) emit(ev Event) {
	for _, h := range r.handlers {
		if h == nil {
			continue
		}
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("registry event handler panicked: %v", p)
				}
			}()
			h(ev)
		}()
	}
}

// Resync reconciles the registry with the directory: new files become
// Unloaded instances (loaded when their autoload flag is set), vanished
// files are unloaded and dropped, files present in both are untouched.
func (r *Registry) Resync(ctx context.Context) error {
	if r.closed {
		return ErrRegistryClosed
	}

	onDisk, err := r.loader.Discover()
	if err != nil {
		return err
	}
	disk := make(map[string]bool, len(onDisk))
	for _, name := range onDisk {
		disk[name] = true
	}

	for _, name := range append([]string(nil), r.order...) {
		if disk[name] {
			continue
		}
		inst := r.instances[name]
		inst.Unload(false)
		r.remove(name)
		r.logger.Info("removed %s", name)
		r.emit(Event{Type: EventRemoved, Script: name})
	}

	for _, name := range onDisk {
		if _, held := r.instances[name]; held {
			continue
		}
		inst := r.add(name)
		if err := inst.LoadContents(); err != nil {
			r.logger.Warn("read %s: %v", name, err)
		}
		r.emit(Event{Type: EventAdded, Script: name})

		if r.store.Autoload(name) {
			r.load(ctx, inst)
		}
	}
	return nil
}

// Update runs one tick of housekeeping: re-read files whose contents
// changed, resync when the listing changed, and keep the selection valid.
// Content changes never reach a loaded sandbox; only Reload does that.
func (r *Registry) Update(ctx context.Context) error {
	if r.closed {
		return ErrRegistryClosed
	}

	if r.changes != nil {
		changed, resync := r.changes.Drain()
		for _, name := range changed {
			inst, ok := r.instances[name]
			if !ok {
				continue
			}
			if err := inst.LoadContents(); err != nil {
				r.logger.Warn("read %s: %v", name, err)
			}
		}
		if resync {
			if err := r.Resync(ctx); err != nil {
				r.logger.Error("resync: %v", err)
			}
		}
	}

	r.fixSelection()
	return nil
}

// Dispatch delivers an event to every loaded instance in filename order.
func (r *Registry) Dispatch(schema *event.Schema, args event.Args) error {
	if r.closed {
		return ErrRegistryClosed
	}
	loaded := r.Loaded()
	targets := make([]event.Target, len(loaded))
	for i, inst := range loaded {
		targets[i] = inst
	}
	return r.bus.Dispatch(schema, args, targets)
}

// Create writes a new script with a metadata header and one empty handler
// per event, adds it Unloaded and selects it.
func (r *Registry) Create(filename string, meta Metadata, events []*event.Schema) (*Instance, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if err := r.loader.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if _, held := r.instances[filename]; held {
		return nil, fmt.Errorf("%w: %s", ErrScriptExists, filename)
	}

	path := r.loader.Path(filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrScriptExists, filename)
		}
		return nil, &FileIOError{Op: "create", Path: path, Err: err}
	}
	_, werr := f.WriteString(JoinSource(meta, NewSource(events)))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return nil, &FileIOError{Op: "write", Path: path, Err: werr}
	}

	inst := r.add(filename)
	if err := inst.LoadContents(); err != nil {
		return nil, err
	}
	r.emit(Event{Type: EventAdded, Script: filename})
	r.setSelected(filename)
	return inst, nil
}

// Delete unloads a script, disables its autoload flag, drops it and
// removes its file.
func (r *Registry) Delete(filename string) error {
	inst, ok := r.instances[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, filename)
	}
	inst.Unload(true)
	r.remove(filename)
	r.emit(Event{Type: EventRemoved, Script: filename})

	if err := os.Remove(inst.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &FileIOError{Op: "remove", Path: inst.Path(), Err: err}
	}
	r.fixSelection()
	return nil
}

// Get returns the instance for filename.
func (r *Registry) Get(filename string) (*Instance, bool) {
	inst, ok := r.instances[filename]
	return inst, ok
}

// List returns all instances sorted by filename.
func (r *Registry) List() []*Instance {
	out := make([]*Instance, len(r.order))
	for i, name := range r.order {
		out[i] = r.instances[name]
	}
	return out
}

// Names returns all filenames, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of instances.
func (r *Registry) Len() int {
	return len(r.order)
}

// Loaded returns the loaded instances sorted by filename.
func (r *Registry) Loaded() []*Instance {
	out := make([]*Instance, 0, len(r.order))
	for _, name := range r.order {
		if inst := r.instances[name]; inst.Loaded() {
			out = append(out, inst)
		}
	}
	return out
}

// Selected returns the selected instance, if any.
func (r *Registry) Selected() (*Instance, bool) {
	inst, ok := r.instances[r.selected]
	return inst, ok
}

// SelectedName returns the selected filename, or "".
func (r *Registry) SelectedName() string {
	return r.selected
}

// Select makes filename the selected script.
func (r *Registry) Select(filename string) error {
	if _, ok := r.instances[filename]; !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, filename)
	}
	r.setSelected(filename)
	return nil
}

// Load loads the named script.
func (r *Registry) Load(ctx context.Context, filename string) error {
	inst, ok := r.instances[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, filename)
	}
	return r.load(ctx, inst)
}

// Unload unloads the named script; disableAutoload also clears its flag.
func (r *Registry) Unload(filename string, disableAutoload bool) error {
	inst, ok := r.instances[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, filename)
	}
	wasLoaded := inst.Loaded()
	inst.Unload(disableAutoload)
	if wasLoaded {
		r.emit(Event{Type: EventUnloaded, Script: filename})
	}
	return nil
}

// Reload unloads the named script, re-reads its file and loads it.
func (r *Registry) Reload(ctx context.Context, filename string) error {
	inst, ok := r.instances[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, filename)
	}
	if err := inst.Reload(ctx); err != nil {
		r.logger.Error("reload %s: %v", filename, err)
		r.emit(Event{Type: EventLoadFailed, Script: filename, Error: err})
		return err
	}
	r.emit(Event{Type: EventLoaded, Script: filename})
	return nil
}

// Bus returns the event bus used by Dispatch.
func (r *Registry) Bus() *event.Bus {
	return r.bus
}

// Store returns the persisted state store.
func (r *Registry) Store() config.Store {
	return r.store
}

// Loader returns the directory loader.
func (r *Registry) Loader() *Loader {
	return r.loader
}

// Close stops the change source, unloads every instance and empties the
// registry. Autoload flags are kept so the same scripts load next time.
// Close is idempotent.
func (r *Registry) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.changes != nil {
		if err := r.changes.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}
	if err := ctx.Err(); err != nil {
		r.logger.Warn("close: %v; unloading scripts anyway", err)
	}
	for _, name := range r.order {
		r.instances[name].Unload(false)
	}
	r.instances = make(map[string]*Instance)
	r.order = nil
	r.handlers = nil
	return errors.Join(errs...)
}

func (r *Registry) load(ctx context.Context, inst *Instance) error {
	if err := inst.Load(ctx); err != nil {
		r.logger.Error("load %s: %v", inst.Filename(), err)
		r.emit(Event{Type: EventLoadFailed, Script: inst.Filename(), Error: err})
		return err
	}
	r.emit(Event{Type: EventLoaded, Script: inst.Filename()})
	return nil
}

func (r *Registry) add(filename string) *Instance {
	inst := NewInstance(r.loader.Path(filename), r.instanceOpts...)
	r.instances[filename] = inst
	idx := sort.SearchStrings(r.order, filename)
	r.order = append(r.order, "")
	copy(r.order[idx+1:], r.order[idx:])
	r.order[idx] = filename
	return inst
}

func (r *Registry) remove(filename string) {
	delete(r.instances, filename)
	idx := sort.SearchStrings(r.order, filename)
	if idx < len(r.order) && r.order[idx] == filename {
		r.order = append(r.order[:idx], r.order[idx+1:]...)
	}
}

// fixSelection falls back to the first script when the selected one is
// gone, or to nothing when the registry is empty.
func (r *Registry) fixSelection() {
	if _, ok := r.instances[r.selected]; ok {
		return
	}
	next := ""
	if len(r.order) > 0 {
		next = r.order[0]
	}
	r.setSelected(next)
}

func (r *Registry) setSelected(filename string) {
	if r.selected == filename && r.store.Selected() == filename {
		return
	}
	r.selected = filename
	if err := r.store.SetSelected(filename); err != nil {
		r.logger.Warn("persist selection: %v", err)
	}
	r.emit(Event{Type: EventSelected, Script: filename})
}
