package enum

import "fmt"

// Direction tells which way a failed coercion was going.
type Direction int

const (
	// Parse converts a wire name into a Go value (arguments, input fields).
	Parse Direction = iota
	// Serialize converts a Go value into a wire name (field results).
	Serialize
)

func (d Direction) String() string {
	if d == Serialize {
		return "serialize"
	}
	return "parse"
}

// CoercionError reports a wire name or value that is not a member of the
// enum. It is always scoped to the field being resolved.
type CoercionError struct {
	Enum      string
	Direction Direction
	Name      string
	Value     any
}

func (e *CoercionError) Error() string {
	if e.Direction == Parse {
		return fmt.Sprintf("enum %q has no member %q", e.Enum, e.Name)
	}
	return fmt.Sprintf("enum %q has no value %#v", e.Enum, e.Value)
}
