package resolver

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// accessor reads one field from values of one Go type.
type accessor func(v reflect.Value) (any, error)

type accessorKey struct {
	t    reflect.Type
	name string
}

var accessors sync.Map // accessorKey -> accessor (nil when absent)

// resolveFromSource is the resolver of fields without a bound function.
func resolveFromSource(_ context.Context, source any, name string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[name], nil
	}
	v := reflect.ValueOf(source)
	get := lookupAccessor(v.Type(), name)
	if get == nil {
		return nil, fmt.Errorf("%T has no field or method for %q", source, name)
	}
	return get(v)
}

func lookupAccessor(t reflect.Type, name string) accessor {
	key := accessorKey{t, name}
	if a, ok := accessors.Load(key); ok {
		return a.(accessor)
	}
	a := buildAccessor(t, name)
	accessors.Store(key, a)
	return a
}

func buildAccessor(t reflect.Type, name string) accessor {
	if m, ok := findMethod(t, name); ok {
		return methodAccessor(m)
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Map && base.Key().Kind() == reflect.String {
		return func(v reflect.Value) (any, error) {
			v, ok := deref(v)
			if !ok {
				return nil, nil
			}
			e := v.MapIndex(reflect.ValueOf(name).Convert(base.Key()))
			if !e.IsValid() {
				return nil, nil
			}
			return e.Interface(), nil
		}
	}
	if base.Kind() != reflect.Struct {
		return nil
	}
	idx, ok := findField(base, name)
	if !ok {
		return nil
	}
	return func(v reflect.Value) (any, error) {
		v, ok := deref(v)
		if !ok {
			return nil, nil
		}
		f, err := v.FieldByIndexErr(idx)
		if err != nil {
			// nil embedded pointer
			return nil, nil
		}
		return f.Interface(), nil
	}
}

// findField prefers a `graphql` tag match over a case-insensitive name match.
func findField(t reflect.Type, name string) ([]int, bool) {
	var byName []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("graphql"), ","); tag != "" {
			if tag == name {
				return f.Index, true
			}
			continue
		}
		if byName == nil && strings.EqualFold(f.Name, name) {
			byName = f.Index
		}
	}
	return byName, byName != nil
}

// findMethod finds an exported method without arguments returning a value,
// optionally followed by an error.
func findMethod(t reflect.Type, name string) (reflect.Method, bool) {
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		mt := m.Type
		if mt.NumIn() != 1 {
			continue
		}
		switch {
		case mt.NumOut() == 1:
			return m, true
		case mt.NumOut() == 2 && mt.Out(1) == errorType:
			return m, true
		}
	}
	return reflect.Method{}, false
}

func methodAccessor(m reflect.Method) accessor {
	return func(v reflect.Value) (any, error) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, nil
		}
		out := m.Func.Call([]reflect.Value{v})
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
}

func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, true
}
