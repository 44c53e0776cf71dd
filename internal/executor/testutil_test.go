package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// ignoreCallPath drops Call.Path from comparisons that only assert routing.
var ignoreCallPath = cmpopts.IgnoreFields(Call{}, "Path")

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	if query != nil {
		sch.SetQueryType(query.Name)
		sch.AddType(query)
	}
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

func field(name string, t *schema.TypeRef) *schema.Field {
	return schema.NewField(name, "", t)
}

func asyncField(name string, t *schema.TypeRef) *schema.Field {
	return schema.NewField(name, "", t).SetAsync(true)
}

var (
	str = schema.NamedType("String")
	num = schema.NamedType("Int")
)

func named(name string) *schema.TypeRef         { return schema.NamedType(name) }
func nonNull(t *schema.TypeRef) *schema.TypeRef { return schema.NonNullType(t) }
func listOf(t *schema.TypeRef) *schema.TypeRef  { return schema.ListType(t) }

// execute runs query with no variables or root value.
func execute(t *testing.T, rt Runtime, sch *schema.Schema, query string) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, query), "", nil, nil)
}

func requireResult(t *testing.T, want, got *ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func requireCalls(t *testing.T, want, got []Call, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// success is a result carrying data and no errors.
func success(data map[string]any) *ExecutionResult {
	return &ExecutionResult{Data: data, Errors: []GraphQLError{}}
}

func syncCall(obj, fld string, source any, args map[string]any) Call {
	if args == nil {
		args = map[string]any{}
	}
	return Call{Kind: CallKindSync, ObjectType: obj, Field: fld, Source: source, Args: args}
}

func asyncCall(batch int, obj, fld string, source any) Call {
	return Call{Kind: CallKindAsync, ObjectType: obj, Field: fld, Source: source, Args: map[string]any{}, BatchID: batch}
}
