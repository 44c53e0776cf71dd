package enum

import (
	"fmt"
	"reflect"

	schema "github.com/hanpama/permgraph/internal/schema"
)

// Coercer applies enum definitions structurally along a schema type
// reference: Non-Null is unwrapped, null passes through untouched, lists are
// mapped element by element and input objects field by field.
//
// A Coercer is read-only after construction and safe for concurrent use.
type Coercer struct {
	schema *schema.Schema
	enums  map[string]*Definition
}

// NewCoercer returns a coercer for the enums of s. Input object types are
// looked up in s; s may be nil when only enums and lists are involved.
func NewCoercer(s *schema.Schema, defs ...*Definition) *Coercer {
	c := &Coercer{schema: s, enums: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		c.enums[d.Name()] = d
	}
	return c
}

// Definition returns the enum registered under name, or nil.
func (c *Coercer) Definition(name string) *Definition {
	return c.enums[name]
}

// Input converts a wire value of type t into the Go values resolvers see.
func (c *Coercer) Input(t *schema.TypeRef, v any) (any, error) {
	if t == nil {
		return v, nil
	}
	if t.Kind == schema.TypeRefKindNonNull {
		return c.Input(t.OfType, v)
	}
	if v == nil {
		return nil, nil
	}
	switch t.Kind {
	case schema.TypeRefKindList:
		items, ok := v.([]any)
		if !ok {
			// Input coercion of a single item into a list of one.
			item, err := c.Input(t.OfType, v)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := c.Input(t.OfType, item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case schema.TypeRefKindNamed:
		if def := c.enums[t.Named]; def != nil {
			return parseMember(def, v)
		}
		if typ := c.schema.Lookup(t.Named); typ != nil && typ.Kind == schema.TypeKindInputObject {
			return c.inputObject(typ, v)
		}
	}
	return v, nil
}

func parseMember(def *Definition, v any) (any, error) {
	switch name := v.(type) {
	case string:
		return def.FromWire(name)
	case schema.EnumLiteral:
		return def.FromWire(string(name))
	}
	return nil, &CoercionError{Enum: def.Name(), Direction: Parse, Name: fmt.Sprint(v)}
}

// inputObject coerces each declared field. Omitted fields take their default
// when one is declared and stay absent otherwise.
func (c *Coercer) inputObject(typ *schema.Type, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected input object %s, got %T", typ.Name, v)
	}
	out := make(map[string]any, len(typ.InputFields))
	for _, f := range typ.InputFields {
		raw, present := m[f.Name]
		if !present {
			if f.DefaultValue == nil {
				continue
			}
			raw = f.DefaultValue
		}
		cv, err := c.Input(f.Type, raw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = cv
	}
	return out, nil
}

// Output converts a resolver result of type t into its wire form. Only the
// enum leaves change; a value whose type contains no enum is returned as is.
func (c *Coercer) Output(t *schema.TypeRef, v any) (any, error) {
	if t == nil || isNil(v) {
		return nil, nil
	}
	def := c.enums[t.GetNamedType()]
	if def == nil {
		return v, nil
	}
	return serialize(def, t, v)
}

func serialize(def *Definition, t *schema.TypeRef, v any) (any, error) {
	if t.Kind == schema.TypeRefKindNonNull {
		return serialize(def, t.OfType, v)
	}
	if isNil(v) {
		return nil, nil
	}
	if t.Kind != schema.TypeRefKindList {
		return def.ToWire(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		// Not a list; completion reports the shape mismatch.
		return v, nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		cv, err := serialize(def, t.OfType, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
