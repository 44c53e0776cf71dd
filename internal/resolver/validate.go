package resolver

import (
	"reflect"

	enum "github.com/hanpama/permgraph/internal/enum"
	schema "github.com/hanpama/permgraph/internal/schema"
)

type typeClass int

const (
	classUnknown typeClass = iota
	classScalar
	classEnum
	classInput
	classObject
	classInterface
	classUnion
)

func (r *Registry) classOf(name string) typeClass {
	if builtinScalars[name] {
		return classScalar
	}
	switch r.defs[name].(type) {
	case *enum.Definition:
		return classEnum
	case *Input:
		return classInput
	case *Object, rootMarker:
		return classObject
	case *Interface:
		return classInterface
	case *Union:
		return classUnion
	}
	return classUnknown
}

func (r *Registry) validate() {
	if len(r.roots[queryRoot]) == 0 {
		r.fail("schema must define at least one query field")
	}
	goTypes := map[reflect.Type]string{}
	for _, name := range r.order {
		switch def := r.defs[name].(type) {
		case *Object:
			r.validateFields(name, def.Fields, false)
			r.validateImplements(name, def.Interfaces, def.Fields)
			if def.GoType != nil {
				t := reflect.TypeOf(def.GoType)
				if prev, dup := goTypes[t]; dup {
					r.fail("Go type %s is bound to both %s and %s", t, prev, name)
				}
				goTypes[t] = name
			}
		case *Interface:
			r.validateFields(name, def.Fields, false)
			r.validateImplements(name, def.Interfaces, def.Fields)
		case *Union:
			if len(def.Types) == 0 {
				r.fail("union %s must have at least one member", name)
			}
			for _, m := range def.Types {
				if r.classOf(m) != classObject {
					r.fail("union %s: member %s is not an object type", name, m)
				}
			}
		case *Input:
			if len(def.Fields) == 0 {
				r.fail("input %s must define at least one field", name)
			}
			seen := map[string]bool{}
			for _, f := range def.Fields {
				if seen[f.Name] {
					r.fail("input field %s.%s is defined twice", name, f.Name)
				}
				seen[f.Name] = true
				r.validateArgument("input field "+name+"."+f.Name, f)
			}
		case rootMarker:
			r.validateFields(name, r.roots[name], name == subscriptionRoot)
		}
	}
}

func (r *Registry) validateFields(object string, fields []*Field, subscription bool) {
	if len(fields) == 0 {
		r.fail("type %s must define at least one field", object)
	}
	seen := map[string]bool{}
	for i, f := range fields {
		if f == nil {
			r.fail("type %s: field %d is nil", object, i)
			continue
		}
		if f.Name == "" {
			r.fail("type %s: field %d has no name", object, i)
			continue
		}
		where := object + "." + f.Name
		if seen[f.Name] {
			r.fail("field %s is defined twice", where)
		}
		seen[f.Name] = true

		if f.Type == nil {
			r.fail("field %s has no type", where)
		} else {
			switch r.classOf(f.Type.GetNamedType()) {
			case classUnknown:
				r.fail("field %s: unknown type %s", where, f.Type.GetNamedType())
			case classInput:
				r.fail("field %s: %s is an input type", where, f.Type.GetNamedType())
			}
		}
		if f.Resolve != nil && f.ResolveBatch != nil {
			r.fail("field %s sets both Resolve and ResolveBatch", where)
		}
		switch {
		case subscription && f.Subscribe == nil:
			r.fail("subscription field %s has no Subscribe function", where)
		case !subscription && f.Subscribe != nil:
			r.fail("field %s: only subscription fields can subscribe", where)
		case !subscription && f.RecheckPermissionsPerEvent:
			r.fail("field %s: RecheckPermissionsPerEvent only applies to subscription fields", where)
		}
		for j, p := range f.Permissions {
			if p == nil {
				r.fail("field %s: permission %d is nil", where, j)
			}
		}
		args := map[string]bool{}
		for _, a := range f.Args {
			if args[a.Name] {
				r.fail("argument %s(%s) is defined twice", where, a.Name)
			}
			args[a.Name] = true
			r.validateArgument("argument "+where+"("+a.Name+")", a)
		}
	}
}

func (r *Registry) validateArgument(where string, a Argument) {
	if a.Name == "" {
		r.fail("%s has no name", where)
		return
	}
	if a.Type == nil {
		r.fail("%s has no type", where)
		return
	}
	named := a.Type.GetNamedType()
	switch r.classOf(named) {
	case classUnknown:
		r.fail("%s: unknown type %s", where, named)
		return
	case classObject, classInterface, classUnion:
		r.fail("%s: %s is not an input type", where, named)
		return
	}
	if a.Default != nil {
		if !r.validDefault(a.Type, a.Default) {
			r.fail("%s: default %#v is not a valid %s", where, a.Default, a.Type)
		}
	}
}

// validDefault checks the enum members and input object fields of a
// wire-form default. Built-in scalars are left to the schema validator.
func (r *Registry) validDefault(t *schema.TypeRef, v any) bool {
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		return v != nil && r.validDefault(t.OfType, v)
	case schema.TypeRefKindList:
		items, ok := v.([]any)
		if !ok {
			return r.validDefault(t.OfType, v)
		}
		for _, item := range items {
			if item != nil && !r.validDefault(t.OfType, item) {
				return false
			}
		}
		return true
	}
	switch def := r.defs[t.Named].(type) {
	case *enum.Definition:
		name, ok := v.(string)
		return ok && def.HasName(name)
	case *Input:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for k, fv := range m {
			var field *Argument
			for i := range def.Fields {
				if def.Fields[i].Name == k {
					field = &def.Fields[i]
				}
			}
			if field == nil || (fv != nil && !r.validDefault(field.Type, fv)) {
				return false
			}
		}
	}
	return true
}

func (r *Registry) validateImplements(name string, interfaces []string, fields []*Field) {
	for _, iname := range interfaces {
		iface, ok := r.defs[iname].(*Interface)
		if !ok {
			r.fail("type %s: %s is not an interface", name, iname)
			continue
		}
		for _, want := range iface.Fields {
			if want == nil {
				continue
			}
			found := false
			for _, f := range fields {
				if f != nil && f.Name == want.Name {
					found = true
					break
				}
			}
			if !found {
				r.fail("type %s does not implement %s.%s", name, iname, want.Name)
			}
		}
	}
}
