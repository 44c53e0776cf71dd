package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	enum "github.com/hanpama/permgraph/internal/enum"
	executor "github.com/hanpama/permgraph/internal/executor"
	language "github.com/hanpama/permgraph/internal/language"
	permission "github.com/hanpama/permgraph/internal/permission"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// flavourEnum has falsy member values on purpose.
var flavourEnum = enum.MustNew("IceCreamFlavour",
	enum.Member("VANILLA", ""),
	enum.Member("STRAWBERRY", 0),
	enum.Member("CHOCOLATE", "chocolate"),
)

func named(name string) *schema.TypeRef { return schema.NamedType(name) }

func nonNull(t *schema.TypeRef) *schema.TypeRef { return schema.NonNullType(t) }

func list(t *schema.TypeRef) *schema.TypeRef { return schema.ListType(t) }

func value(v any) Func {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

// isAuthenticated never implements HasPermission.
type isAuthenticated struct{ permission.Base }

func denyAll(message string) permission.Check {
	return permission.New(message, func(context.Context, any, map[string]any) (bool, error) { return false, nil })
}

func allowAll(message string) permission.Check {
	return permission.New(message, func(context.Context, any, map[string]any) (bool, error) { return true, nil })
}

func mustBuild(t *testing.T, reg *Registry, opts ...Option) *Bundle {
	t.Helper()
	b, err := reg.Build(opts...)
	require.NoError(t, err)
	return b
}

func run(t *testing.T, b *Bundle, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	return runCtx(t, context.Background(), b, query, vars)
}

func runCtx(t *testing.T, ctx context.Context, b *Bundle, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return b.Executor().ExecuteRequest(ctx, doc, "", vars, nil)
}

func forbidden(message string, path ...any) executor.GraphQLError {
	return executor.GraphQLError{
		Message:    message,
		Path:       toPath(path),
		Extensions: map[string]any{"code": "FORBIDDEN"},
	}
}

func toPath(elems []any) executor.Path {
	p := make(executor.Path, len(elems))
	for i, e := range elems {
		p[i] = e
	}
	return p
}
