package event

import (
	"sync/atomic"

	"github.com/dshills/tickscript/internal/logging"
)

// Target receives dispatched events. Script instances implement Target.
type Target interface {
	// DisplayName identifies the target in logs.
	DisplayName() string

	// Dispatch delivers one event. Args have already been validated.
	Dispatch(schema *Schema, args Args) error
}

// Bus delivers events to an ordered list of targets in the caller's
// goroutine. A failing or panicking target never stops delivery to the
// targets after it.
type Bus struct {
	logger  *logging.Logger
	onPanic PanicHandler

	// Stats
	dispatched atomic.Uint64
	delivered  atomic.Uint64
	failures   atomic.Uint64
	panics     atomic.Uint64
	rejected   atomic.Uint64
}

// Stats contains Bus counters.
type Stats struct {
	// Dispatched is the number of Dispatch calls that passed validation.
	Dispatched uint64

	// Delivered is the number of target calls that returned without error.
	Delivered uint64

	// Failures is the number of target calls that returned an error.
	Failures uint64

	// Panics is the number of target calls that panicked.
	Panics uint64

	// Rejected is the number of Dispatch calls refused by validation.
	Rejected uint64
}

// NewBus creates a Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: logging.NullLogger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dispatch validates args against schema and then delivers the event to
// each target in order. Validation failure returns a *MismatchError before
// any target runs. Otherwise Dispatch returns nil: target errors and panics
// are logged with the target's display name and the event name.
func (b *Bus) Dispatch(schema *Schema, args Args, targets []Target) error {
	if err := schema.Validate(args); err != nil {
		b.rejected.Add(1)
		return err
	}
	b.dispatched.Add(1)

	for _, t := range targets {
		b.deliver(schema, args, t)
	}
	return nil
}

func (b *Bus) deliver(schema *Schema, args Args, t Target) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			perr := &PanicError{Target: t.DisplayName(), Event: schema.Name(), Value: r}
			b.logger.WithField("script", perr.Target).WithField("event", perr.Event).
				Error("event target panicked: %v", r)
			if b.onPanic != nil {
				b.onPanic(perr)
			}
		}
	}()

	if err := t.Dispatch(schema, args); err != nil {
		b.failures.Add(1)
		b.logger.WithField("script", t.DisplayName()).WithField("event", schema.Name()).
			Error("event target failed: %v", err)
		return
	}
	b.delivered.Add(1)
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Dispatched: b.dispatched.Load(),
		Delivered:  b.delivered.Load(),
		Failures:   b.failures.Load(),
		Panics:     b.panics.Load(),
		Rejected:   b.rejected.Load(),
	}
}
