package resolver

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"

	enum "github.com/hanpama/permgraph/internal/enum"
	executor "github.com/hanpama/permgraph/internal/executor"
	permission "github.com/hanpama/permgraph/internal/permission"
	schema "github.com/hanpama/permgraph/internal/schema"
)

const (
	queryRoot        = "Query"
	mutationRoot     = "Mutation"
	subscriptionRoot = "Subscription"
)

var builtinScalars = map[string]bool{"Int": true, "Float": true, "String": true, "Boolean": true, "ID": true}

// Registry collects type descriptors until Build. It is not safe for
// concurrent use and refuses registration once built.
type Registry struct {
	description string
	order       []string
	defs        map[string]any
	roots       map[string][]*Field
	errs        *multierror.Error
	built       bool
}

func NewRegistry() *Registry {
	return &Registry{defs: map[string]any{}, roots: map[string][]*Field{}}
}

// Describe sets the schema description.
func (r *Registry) Describe(description string) *Registry {
	r.mustBeOpen()
	r.description = description
	return r
}

func (r *Registry) Object(o *Object) *Registry       { r.declare(o.Name, o); return r }
func (r *Registry) Interface(i *Interface) *Registry { r.declare(i.Name, i); return r }
func (r *Registry) Union(u *Union) *Registry         { r.declare(u.Name, u); return r }
func (r *Registry) Input(in *Input) *Registry        { r.declare(in.Name, in); return r }
func (r *Registry) Enum(def *enum.Definition) *Registry {
	r.declare(def.Name(), def)
	return r
}

// Query adds fields to the Query root type.
func (r *Registry) Query(fields ...*Field) *Registry { return r.root(queryRoot, fields) }

// Mutation adds fields to the Mutation root type.
func (r *Registry) Mutation(fields ...*Field) *Registry { return r.root(mutationRoot, fields) }

// Subscription adds fields to the Subscription root type. Each of them needs
// a Subscribe function.
func (r *Registry) Subscription(fields ...*Field) *Registry {
	return r.root(subscriptionRoot, fields)
}

func (r *Registry) root(name string, fields []*Field) *Registry {
	r.mustBeOpen()
	if _, ok := r.roots[name]; !ok {
		r.declare(name, rootMarker{})
	}
	r.roots[name] = append(r.roots[name], fields...)
	return r
}

// rootMarker reserves a root type name in defs.
type rootMarker struct{}

func (r *Registry) declare(name string, def any) {
	r.mustBeOpen()
	switch {
	case name == "":
		r.fail("a type without a name was registered")
		return
	case builtinScalars[name]:
		r.fail("type %s shadows a built-in scalar", name)
		return
	}
	if _, dup := r.defs[name]; dup {
		r.fail("type %s is registered twice", name)
		return
	}
	r.defs[name] = def
	r.order = append(r.order, name)
}

func (r *Registry) mustBeOpen() {
	if r.built {
		panic("resolver: registry is already built")
	}
}

func (r *Registry) fail(format string, args ...any) {
	r.errs = multierror.Append(r.errs, fmt.Errorf(format, args...))
}

// Bundle is the frozen result of a registry: the schema and the runtime
// resolving it.
type Bundle struct {
	Schema  *schema.Schema
	Runtime *Runtime
}

// Executor returns an executor for the bundle.
func (b *Bundle) Executor() *executor.Executor {
	return executor.NewExecutor(b.Runtime, b.Schema)
}

// Build validates every registered descriptor and builds the bundle. All
// problems are reported together as a *multierror.Error.
func (r *Registry) Build(opts ...Option) (*Bundle, error) {
	r.mustBeOpen()
	var o options
	for _, f := range opts {
		f(&o)
	}

	r.validate()
	if err := r.errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	sch := schema.NewSchema(r.description)
	var enums []*enum.Definition
	goTypes := map[reflect.Type]string{}
	for _, name := range r.order {
		switch def := r.defs[name].(type) {
		case *enum.Definition:
			enums = append(enums, def)
			sch.AddType(enumType(def))
		case *Input:
			t := schema.NewType(def.Name, schema.TypeKindInputObject, def.Description).SetOneOf(def.OneOf)
			for _, f := range def.Fields {
				t.AddInputField(r.inputValue(f))
			}
			sch.AddType(t)
		case *Object:
			t := schema.NewType(def.Name, schema.TypeKindObject, def.Description)
			for _, i := range def.Interfaces {
				t.AddInterface(i)
				r.addPossibleType(sch, i, def.Name)
			}
			for _, f := range def.Fields {
				t.AddField(r.outputField(f))
			}
			sch.AddType(t)
			if def.GoType != nil {
				goTypes[reflect.TypeOf(def.GoType)] = def.Name
			}
		case *Interface:
			t := r.interfaceType(sch, def.Name)
			t.Description = def.Description
			for _, i := range def.Interfaces {
				t.AddInterface(i)
			}
			for _, f := range def.Fields {
				t.AddField(r.outputField(f))
			}
		case *Union:
			t := schema.NewType(def.Name, schema.TypeKindUnion, def.Description)
			for _, m := range def.Types {
				t.AddPossibleType(m)
			}
			sch.AddType(t)
		case rootMarker:
			t := schema.NewType(name, schema.TypeKindObject, "")
			for _, f := range r.roots[name] {
				t.AddField(r.outputField(f))
			}
			sch.AddType(t)
			switch name {
			case mutationRoot:
				sch.SetMutationType(name)
			case subscriptionRoot:
				sch.SetSubscriptionType(name)
			}
		}
	}

	if _, err := validator.LoadSchema(validator.Prelude, &ast.Source{Name: "permgraph", Input: schema.Render(sch)}); err != nil {
		return nil, multierror.Append(nil, fmt.Errorf("invalid schema: %w", err))
	}

	fr := &FieldResolver{coercer: enum.NewCoercer(sch, enums...), fields: map[fieldKey]*binding{}}
	bind := func(object string, fields []*Field) {
		for _, f := range fields {
			fr.fields[fieldKey{object, f.Name}] = &binding{object: object, field: f, gate: permission.NewGate(f.Permissions...)}
		}
	}
	for _, name := range r.order {
		switch def := r.defs[name].(type) {
		case *Object:
			bind(name, def.Fields)
		case rootMarker:
			bind(name, r.roots[name])
		}
	}

	r.built = true
	return &Bundle{
		Schema: sch,
		Runtime: &Runtime{
			resolver:       fr,
			schema:         sch,
			goTypes:        goTypes,
			maxConcurrency: o.maxConcurrency,
		},
	}, nil
}

// interfaceType returns the interface type named name, creating it when an
// implementing object was built first.
func (r *Registry) interfaceType(sch *schema.Schema, name string) *schema.Type {
	if t := sch.Lookup(name); t != nil {
		return t
	}
	t := schema.NewType(name, schema.TypeKindInterface, "")
	sch.AddType(t)
	return t
}

func (r *Registry) addPossibleType(sch *schema.Schema, iface, object string) {
	r.interfaceType(sch, iface).AddPossibleType(object)
}

func enumType(def *enum.Definition) *schema.Type {
	t := schema.NewType(def.Name(), schema.TypeKindEnum, def.Description())
	for _, v := range def.Values() {
		ev := schema.NewEnumValue(v.Name, v.Description)
		if v.DeprecationReason != "" {
			ev.Deprecate(v.DeprecationReason)
		}
		t.AddEnumValue(ev)
	}
	return t
}

func (r *Registry) outputField(f *Field) *schema.Field {
	sf := schema.NewField(f.Name, f.Description, f.Type).SetAsync(f.Async || f.ResolveBatch != nil)
	for _, a := range f.Args {
		sf.AddArgument(r.inputValue(a))
	}
	if f.DeprecationReason != "" {
		sf.Deprecate(f.DeprecationReason)
	}
	return sf
}

func (r *Registry) inputValue(a Argument) *schema.InputValue {
	iv := schema.NewInputValue(a.Name, a.Description, a.Type)
	if a.Default != nil {
		iv.SetDefault(r.literal(a.Type, a.Default))
	}
	if a.DeprecationReason != "" {
		iv.Deprecate(a.DeprecationReason)
	}
	return iv
}

// literal converts a wire-form default into its schema form, where enum
// members are schema.EnumLiteral.
func (r *Registry) literal(t *schema.TypeRef, v any) any {
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		return r.literal(t.OfType, v)
	case schema.TypeRefKindList:
		items, ok := v.([]any)
		if !ok {
			return r.literal(t.OfType, v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = r.literal(t.OfType, item)
		}
		return out
	}
	switch def := r.defs[t.Named].(type) {
	case *enum.Definition:
		if s, ok := v.(string); ok {
			return schema.EnumLiteral(s)
		}
	case *Input:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, fv := range m {
			out[k] = fv
			for _, f := range def.Fields {
				if f.Name == k {
					out[k] = r.literal(f.Type, fv)
				}
			}
		}
		return out
	}
	return v
}
