// Package resolver binds Go functions to GraphQL fields and runs them behind
// enum coercion and permission checks.
//
// Descriptors (Object, Field, Input, ...) are registered on a Registry and
// frozen by Registry.Build into a Bundle: the schema plus a Runtime the
// executor drives. Every field resolution follows the same steps:
//
//	cancelled? -> coerce arguments -> permission gate -> invoke -> coerce result
//
// A failure at any step becomes a *FieldError for that field alone.
package resolver

import (
	"context"

	permission "github.com/hanpama/permgraph/internal/permission"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Func resolves a field. source is the parent value (the root value for root
// fields) and args hold the coerced arguments: enum arguments carry the Go
// values of their members.
type Func func(ctx context.Context, source any, args map[string]any) (any, error)

// Request is one field instance handed to a BatchFunc.
type Request struct {
	Source any
	Args   map[string]any
}

// Result answers one Request.
type Result struct {
	Value any
	Err   error
}

// BatchFunc resolves every instance of a field at one execution depth with a
// single call. It must return one Result per Request, in order.
type BatchFunc func(ctx context.Context, reqs []Request) []Result

// SubscribeFunc opens the event stream of a subscription field. Each value
// received from the channel is the field value for one event; a value that is
// an error becomes that event's field error. The function owns the channel and
// must close it once ctx is done.
type SubscribeFunc func(ctx context.Context, source any, args map[string]any) (<-chan any, error)

// Field describes an output field.
type Field struct {
	Name        string
	Description string
	Type        *schema.TypeRef
	Args        []Argument

	// Resolve computes the field. When both Resolve and ResolveBatch are nil
	// the value is read from the source: a map key, a struct field tagged
	// `graphql:"name"` or named like the field, or a method without
	// arguments.
	Resolve      Func
	ResolveBatch BatchFunc
	Subscribe    SubscribeFunc

	// Permissions run in order before the field is resolved.
	Permissions []permission.Check
	// RecheckPermissionsPerEvent makes a subscription field run its
	// permissions again before every event instead of only at set-up.
	RecheckPermissionsPerEvent bool

	// Async resolves the field concurrently with the other async fields of
	// the same depth. Mutation root fields still run one after another.
	// Fields with ResolveBatch are always async.
	Async bool

	DeprecationReason string
}

// Argument describes a field argument or an input object field. Default is
// given in wire form: enum members by name, input objects as maps.
type Argument struct {
	Name              string
	Description       string
	Type              *schema.TypeRef
	Default           any
	DeprecationReason string
}

// Object describes an object type.
type Object struct {
	Name        string
	Description string
	Interfaces  []string
	Fields      []*Field

	// GoType, when set, is a value of the Go type backing this object. It
	// lets interfaces and unions resolve values of that type to Name.
	GoType any
}

// Interface describes an interface type. Resolvers of its fields live on the
// implementing objects.
type Interface struct {
	Name        string
	Description string
	Interfaces  []string
	Fields      []*Field
}

// Union describes a union of object types.
type Union struct {
	Name        string
	Description string
	Types       []string
}

// Input describes an input object type.
type Input struct {
	Name        string
	Description string
	Fields      []Argument
	OneOf       bool
}

// TypeNamer lets a value name its concrete object type when it is returned
// for an interface or union field.
type TypeNamer interface {
	GraphQLTypeName() string
}
