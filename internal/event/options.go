package event

import "github.com/dshills/tickscript/internal/logging"

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report target failures.
func WithLogger(l *logging.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPanicHandler sets a callback invoked after a target panic was recovered.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(b *Bus) {
		b.onPanic = h
	}
}

// PanicHandler receives recovered target panics.
type PanicHandler func(err *PanicError)
