package script

import (
	"strings"

	"github.com/dshills/tickscript/internal/event"
)

// NewSource returns the body of a new script with one empty handler per
// event, in the order given.
func NewSource(events []*event.Schema) string {
	var b strings.Builder
	for n, s := range events {
		if n > 0 {
			b.WriteString("\n")
		}
		if s.Arity() > 0 {
			b.WriteString("-- args: " + strings.Join(s.ArgNames(), ", ") + "\n")
			b.WriteString("function " + s.Name() + "(args)\n")
		} else {
			b.WriteString("function " + s.Name() + "()\n")
		}
		b.WriteString("end\n")
	}
	if b.Len() == 0 {
		return "-- new script\n"
	}
	return b.String()
}
