package host

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/dshills/tickscript/internal/config"
	"github.com/dshills/tickscript/internal/event"
	"github.com/dshills/tickscript/internal/logging"
	"github.com/dshills/tickscript/internal/notify"
	"github.com/dshills/tickscript/internal/script"
	"github.com/dshills/tickscript/internal/watcher"
)

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStore replaces the state file store.
func WithStore(s config.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithSinks replaces the notification sinks.
func WithSinks(sinks ...notify.Sink) Option {
	return func(a *App) {
		a.sinks = sinks
		a.sinksSet = true
	}
}

// WithClock replaces time.Now for the script clock and breakers.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithoutWatcher disables the directory watcher. Changes on disk are then
// only seen by explicit Resync calls.
func WithoutWatcher() Option {
	return func(a *App) {
		a.noWatch = true
	}
}

// WithFrameHandler receives every completed frame.
func WithFrameHandler(fn func(Frame)) Option {
	return func(a *App) {
		a.onFrame = fn
	}
}

// App is the headless reference host. It owns the registry and feeds it
// input, update and draw events once per tick.
type App struct {
	settings *config.Settings
	logger   *logging.Logger
	now      func() time.Time

	store    config.Store
	watcher  *watcher.DirWatcher
	registry *script.Registry
	queue    *notify.Queue
	sinks    []notify.Sink
	sinksSet bool
	noWatch  bool
	onFrame  func(Frame)

	keys    *KeyState
	chat    *Chat
	clock   *Clock
	surface *TextSurface
	metrics *Metrics

	started atomic.Bool
	running atomic.Bool
}

// New builds an App from settings. The script directory is created if it
// does not exist. No script is read until Start.
func New(settings *config.Settings, opts ...Option) (*App, error) {
	if settings == nil {
		settings = config.Default()
	}
	a := &App{
		settings: settings,
		logger:   logging.NullLogger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.now == nil {
		a.now = time.Now
	}

	if err := a.bootstrap(); err != nil {
		if a.watcher != nil {
			a.watcher.Close()
		}
		return nil, err
	}
	return a, nil
}

// bootstrap builds the components in dependency order.
func (a *App) bootstrap() error {
	s := a.settings
	if err := os.MkdirAll(s.Scripts.Dir, 0o755); err != nil {
		return &InitError{Component: "scripts dir", Err: err}
	}

	// 1. Persisted state
	if a.store == nil {
		store, err := config.OpenFileStore(s.StatePath())
		if err != nil {
			return &InitError{Component: "state store", Err: err}
		}
		a.store = store
	}

	// 2. Capabilities
	a.keys = NewKeyState()
	a.chat = NewChat()
	a.clock = NewClock(a.now)
	a.surface = NewTextSurface(s.Host.SurfaceWidth)
	a.metrics = NewMetrics()

	// 3. Notifications
	a.queue = notify.NewQueue(s.Notify.QueueLimit)
	if !a.sinksSet {
		a.sinks = []notify.Sink{notify.LogSink{Logger: a.logger}}
		if s.Notify.Desktop && notify.Available() {
			a.sinks = append(a.sinks, notify.NewDesktop(""))
		}
	}

	// 4. Watcher
	regOpts := []script.RegistryOption{
		script.WithRegistryLogger(a.logger.WithComponent("registry")),
		script.WithBus(event.NewBus(
			event.WithLogger(a.logger.WithComponent("events")),
			event.WithPanicHandler(func(*event.PanicError) { a.metrics.RecordPanic() }),
		)),
		script.WithInstanceOptions(
			script.WithManifest(Manifest(a.clock, a.chat, a.keys)),
			script.WithNotifier(a.queue),
			script.WithLogger(a.logger),
			script.WithSurface(a.surface),
			script.WithClock(a.now),
			script.WithBreaker(s.Breaker.Threshold, s.Breaker.Window.Std()),
			script.WithCallTimeout(s.Scripts.CallTimeout.Std()),
		),
	}
	if !a.noWatch {
		w, err := watcher.New(s.Scripts.Dir,
			watcher.WithExtension(s.Scripts.Extension),
			watcher.WithDebounce(s.Scripts.Debounce.Std()),
			watcher.WithLogger(a.logger.WithComponent("watcher")),
		)
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		a.watcher = w
		regOpts = append(regOpts, script.WithChangeSource(w))
	}

	// 5. Registry
	loader := script.NewLoader(s.Scripts.Dir, s.Scripts.Extension)
	a.registry = script.NewRegistry(loader, a.store, regOpts...)
	return nil
}

// Registry returns the script registry.
func (a *App) Registry() *script.Registry { return a.registry }

// Keys returns the key state.
func (a *App) Keys() *KeyState { return a.keys }

// Chat returns the chat channel.
func (a *App) Chat() *Chat { return a.chat }

// Surface returns the text surface.
func (a *App) Surface() *TextSurface { return a.surface }

// Metrics returns tick metrics.
func (a *App) Metrics() *Metrics { return a.metrics }

// Notifications returns the pending notification queue.
func (a *App) Notifications() *notify.Queue { return a.queue }

// Start discovers the scripts and loads the ones flagged for autoload.
func (a *App) Start(ctx context.Context) error {
	if err := a.registry.Resync(ctx); err != nil {
		return err
	}
	a.started.Store(true)
	a.logger.Info("discovered %d scripts, %d loaded",
		a.registry.Len(), len(a.registry.Loaded()))
	return nil
}

// Tick runs one host frame: file changes, key-ups, chat, onUpdate, a draw
// frame around onDraw, then notification delivery.
func (a *App) Tick(ctx context.Context) error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	begin := time.Now()
	defer func() {
		a.metrics.RecordTick(time.Since(begin), a.settings.Host.TickInterval.Std())
	}()

	if err := a.registry.Update(ctx); err != nil {
		return err
	}

	for _, key := range a.keys.KeyUps() {
		a.dispatch(event.OnKeyUp, event.KeyArgs(key))
	}
	for _, msg := range a.chat.Drain() {
		schema := event.OnChatMessageUnhandled
		if msg.Handled() {
			schema = event.OnChatMessageHandled
		}
		a.dispatch(schema, msg.Args())
	}

	a.dispatch(event.OnUpdate, nil)

	a.surface.BeginFrame()
	a.dispatch(event.OnDraw, nil)
	frame := a.surface.EndFrame()
	if a.onFrame != nil {
		a.onFrame(frame)
	}

	a.flushNotifications()
	return nil
}

func (a *App) dispatch(schema *event.Schema, args event.Args) {
	if err := a.registry.Dispatch(schema, args); err != nil {
		a.logger.Error("dispatch %s: %v", schema.Name(), err)
	}
}

func (a *App) flushNotifications() {
	items := a.queue.Drain()
	if len(items) == 0 {
		return
	}
	if err := notify.Deliver(items, a.sinks...); err != nil {
		a.logger.Warn("deliver notifications: %v", err)
	}
}

// Run starts the host and ticks at the configured interval until ctx is
// done. Cancellation is a normal exit.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	if !a.started.Load() {
		if err := a.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(a.settings.Host.TickInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.Tick(ctx); err != nil {
				if errors.Is(err, script.ErrRegistryClosed) {
					return nil
				}
				a.logger.Error("tick: %v", err)
			}
		}
	}
}

// Close unloads every script, stops the watcher and delivers any pending
// notifications.
func (a *App) Close(ctx context.Context) error {
	err := a.registry.Close(ctx)
	a.flushNotifications()
	return err
}
