package event

import (
	"reflect"
	"sort"
)

// Arg declares one named, typed event argument.
type Arg struct {
	Name string
	Type reflect.Type
}

// ArgOf declares an argument of type T.
func ArgOf[T any](name string) Arg {
	return Arg{Name: name, Type: TypeOf[T]()}
}

// Args holds the named argument values of one dispatch.
type Args map[string]any

// Schema is the immutable declaration of a host event: its name and its
// ordered argument list. Schemas are created once and shared by pointer.
type Schema struct {
	name string
	args []Arg
}

// NewSchema declares an event. It panics on an empty name, a duplicate
// argument name, or a nil argument type; schemas are program constants.
func NewSchema(name string, args ...Arg) *Schema {
	if name == "" {
		panic("event: empty schema name")
	}
	seen := make(map[string]struct{}, len(args))
	for _, a := range args {
		if a.Name == "" || a.Type == nil {
			panic("event: invalid argument in schema " + name)
		}
		if _, dup := seen[a.Name]; dup {
			panic("event: duplicate argument " + a.Name + " in schema " + name)
		}
		seen[a.Name] = struct{}{}
	}
	return &Schema{name: name, args: append([]Arg(nil), args...)}
}

// Name returns the event name. Guests implement a global function of
// this name to receive the event.
func (s *Schema) Name() string {
	return s.name
}

// Args returns a copy of the ordered argument declarations.
func (s *Schema) Args() []Arg {
	return append([]Arg(nil), s.args...)
}

// ArgNames returns the ordered argument names.
func (s *Schema) ArgNames() []string {
	names := make([]string, len(s.args))
	for i, a := range s.args {
		names[i] = a.Name
	}
	return names
}

// Arity returns the number of declared arguments.
func (s *Schema) Arity() int {
	return len(s.args)
}

// String returns the event name.
func (s *Schema) String() string {
	return s.name
}

// Validate checks that args has exactly the declared names and that every
// value's dynamic type is identical to the declared type. It returns a
// *MismatchError on any difference.
func (s *Schema) Validate(args Args) error {
	var merr MismatchError
	for _, a := range s.args {
		v, ok := args[a.Name]
		if !ok {
			merr.Missing = append(merr.Missing, a.Name)
			continue
		}
		got := reflect.TypeOf(v)
		if got != a.Type {
			merr.WrongType = append(merr.WrongType, TypeMismatch{Name: a.Name, Want: a.Type, Got: got})
		}
	}
	if len(args) > len(s.args)-len(merr.Missing) {
		for name := range args {
			if !s.has(name) {
				merr.Unexpected = append(merr.Unexpected, name)
			}
		}
		sort.Strings(merr.Unexpected)
	}
	if len(merr.Missing) == 0 && len(merr.Unexpected) == 0 && len(merr.WrongType) == 0 {
		return nil
	}
	merr.Event = s.name
	return &merr
}

func (s *Schema) has(name string) bool {
	for _, a := range s.args {
		if a.Name == name {
			return true
		}
	}
	return false
}
