// Package enum maps GraphQL enum members (wire names) to the Go values they
// stand for and back.
//
// A Definition is built once with explicit lookup tables in both directions.
// Membership is decided by map lookup only, so members whose value is a zero
// value ("" or 0) behave exactly like any other member.
package enum

import (
	"fmt"
	"reflect"
)

// Value is one member of an enum definition.
type Value struct {
	// Name is the wire name used in queries and responses.
	Name string
	// Value is the Go value handed to resolvers. It must be comparable.
	Value any

	Description       string
	DeprecationReason string
}

// Member is shorthand for a Value without documentation.
func Member(name string, value any) Value {
	return Value{Name: name, Value: value}
}

// Definition is an immutable enum definition.
type Definition struct {
	name        string
	description string
	values      []Value
	byName      map[string]int
	byValue     map[any]int
}

// New builds a definition. Names and values must each be unique and values
// must be comparable.
func New(name string, values ...Value) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("enum name is required")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("enum %q must declare at least one value", name)
	}
	d := &Definition{
		name:    name,
		values:  append([]Value(nil), values...),
		byName:  make(map[string]int, len(values)),
		byValue: make(map[any]int, len(values)),
	}
	for i, v := range values {
		if v.Name == "" {
			return nil, fmt.Errorf("enum %q: value %d has no name", name, i)
		}
		if _, dup := d.byName[v.Name]; dup {
			return nil, fmt.Errorf("enum %q: duplicate name %q", name, v.Name)
		}
		if v.Value == nil {
			return nil, fmt.Errorf("enum %q: %s has a nil value", name, v.Name)
		}
		if !reflect.TypeOf(v.Value).Comparable() {
			return nil, fmt.Errorf("enum %q: %s has non-comparable value of type %T", name, v.Name, v.Value)
		}
		if prev, dup := d.byValue[v.Value]; dup {
			return nil, fmt.Errorf("enum %q: %s and %s share the value %#v", name, values[prev].Name, v.Name, v.Value)
		}
		d.byName[v.Name] = i
		d.byValue[v.Value] = i
	}
	return d, nil
}

// MustNew is like New but panics on an invalid definition. It is meant for
// package level variables.
func MustNew(name string, values ...Value) *Definition {
	d, err := New(name, values...)
	if err != nil {
		panic(err)
	}
	return d
}

// WithDescription returns a copy of d carrying the description.
func (d *Definition) WithDescription(description string) *Definition {
	c := *d
	c.description = description
	return &c
}

func (d *Definition) Name() string        { return d.name }
func (d *Definition) Description() string { return d.description }

// Values returns the members in declaration order.
func (d *Definition) Values() []Value {
	return append([]Value(nil), d.values...)
}

// HasName reports whether name is a wire name of d.
func (d *Definition) HasName(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// ToWire returns the wire name of value.
func (d *Definition) ToWire(value any) (string, error) {
	if value != nil && reflect.TypeOf(value).Comparable() {
		if i, ok := d.byValue[value]; ok {
			return d.values[i].Name, nil
		}
	}
	return "", &CoercionError{Enum: d.name, Direction: Serialize, Value: value}
}

// FromWire returns the Go value for the wire name.
func (d *Definition) FromWire(name string) (any, error) {
	if i, ok := d.byName[name]; ok {
		return d.values[i].Value, nil
	}
	return nil, &CoercionError{Enum: d.name, Direction: Parse, Name: name}
}
