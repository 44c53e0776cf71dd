package executor

import (
	"context"
)

// Runtime defines the host integration surface for field resolution, batching,
// abstract type resolution, and leaf-value serialization used by the Executor.
//
// General contract
//   - The Executor performs a breadth-first execution. At each depth it drains all
//     synchronous fields first via ResolveSync, then calls BatchResolveAsync ONCE
//     with all async tasks collected at that depth. The next depth does not begin
//     until BatchResolveAsync returns and those results are completed.
//   - ResolveSync is never invoked for fields marked async, and BatchResolveAsync
//     is only invoked when there is at least one live async field at the current
//     depth.
//   - Errors returned from any method are converted into located GraphQL errors.
//     An error implementing `Extensions() map[string]any` keeps its extensions.
//     If the field's return type is Non-Null, the null is propagated up to the
//     nearest nullable ancestor.
//   - Implementations must be safe for concurrent use by different operations and
//     must not mutate source or args values.
//
// Object/field identifiers
//   - objectType is the GraphQL type name (e.g. "User"), field the field name on
//     that type (e.g. "email"), path the response path of the field.
//   - source is the parent object value (the root value for root fields).
//   - args holds the field arguments coerced against the schema: built-in scalars
//     are Go values, enum members are still wire names, defaults are applied.
//
// Cancellation
//   - Once ctx is done the Executor stops handing out async work: queued tasks get
//     ctx.Err() as their error and are never passed to BatchResolveAsync.
//     Implementations should still observe ctx for work already started.
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, path Path, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	//
	// Requirements:
	// - Return len(results) == len(tasks).
	// - results[i] corresponds to tasks[i].
	// - Return independent errors per element without failing the whole batch.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType determines the concrete object type name for a value of an
	// interface or union type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value. Enums serialize to their member name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// SubscriptionRuntime is a Runtime that can open event streams for
// subscription root fields.
type SubscriptionRuntime interface {
	Runtime

	// Subscribe sets up the event stream of a subscription root field. An error
	// aborts the subscription before any event is produced. Each received item
	// is the raw value of the root field for one event; an item that is an
	// error is reported as that event's field error. The stream must be closed
	// by the runtime when it ends or ctx is done.
	Subscribe(ctx context.Context, objectType string, field string, path Path, source any, args map[string]any) (<-chan any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Path is the response path of the field.
	Path Path
	// Source is the parent object value.
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}
