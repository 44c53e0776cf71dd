package resolver

import (
	"context"

	executor "github.com/hanpama/permgraph/internal/executor"
)

// FieldContext identifies the field being resolved. Resolvers and permission
// checks find it in their context.
type FieldContext struct {
	ObjectType string
	Field      string
	Path       executor.Path
}

type fieldContextKey struct{}

// FieldContextFrom returns the field context stored in ctx.
func FieldContextFrom(ctx context.Context) (*FieldContext, bool) {
	fc, ok := ctx.Value(fieldContextKey{}).(*FieldContext)
	return fc, ok
}

func withFieldContext(ctx context.Context, fc *FieldContext) context.Context {
	return context.WithValue(ctx, fieldContextKey{}, fc)
}
