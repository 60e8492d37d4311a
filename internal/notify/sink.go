package notify

import (
	"errors"
	"os"
	"runtime"

	"github.com/gen2brain/beeep"

	"github.com/dshills/tickscript/internal/logging"
)

// Sink presents notifications to the user.
type Sink interface {
	Send(n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n Notification) error

// Send calls f.
func (f SinkFunc) Send(n Notification) error {
	return f(n)
}

// Deliver sends every notification to every sink and joins the errors.
// A failing sink does not stop delivery to the others.
func Deliver(items []Notification, sinks ...Sink) error {
	var errs []error
	for _, n := range items {
		for _, s := range sinks {
			if err := s.Send(n); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LogSink writes notifications to a logger at a matching level.
type LogSink struct {
	Logger *logging.Logger
}

// Send logs n.
func (s LogSink) Send(n Notification) error {
	l := s.Logger
	if l == nil {
		l = logging.NullLogger
	}
	l = l.WithComponent("notify").WithField("id", n.ID.String())
	if n.Source != "" {
		l = l.WithField("script", n.Source)
	}
	switch n.Level {
	case LevelError:
		l.Error("%s", n.String())
	case LevelWarn:
		l.Warn("%s", n.String())
	default:
		l.Info("%s", n.String())
	}
	return nil
}

// Desktop shows notifications with the platform notifier.
type Desktop struct {
	// Icon is an optional icon path.
	Icon string

	// notify is swapped in tests.
	notify func(title, body, icon string) error
}

// NewDesktop creates a desktop sink.
func NewDesktop(icon string) *Desktop {
	return &Desktop{Icon: icon, notify: beeepNotify}
}

func beeepNotify(title, body, icon string) error {
	return beeep.Notify(title, body, icon)
}

// Available reports whether a desktop session is present. Headless Linux
// without DISPLAY or WAYLAND_DISPLAY has nowhere to show notifications.
func Available() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Send shows n. It is a no-op for empty bodies and headless sessions.
func (d *Desktop) Send(n Notification) error {
	if n.Body == "" || !Available() {
		return nil
	}
	fn := d.notify
	if fn == nil {
		fn = beeepNotify
	}
	return fn(n.Title, n.Body, d.Icon)
}
