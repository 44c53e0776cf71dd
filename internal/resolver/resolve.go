package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	enum "github.com/hanpama/permgraph/internal/enum"
	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	executor "github.com/hanpama/permgraph/internal/executor"
	log "github.com/hanpama/permgraph/internal/log"
	permission "github.com/hanpama/permgraph/internal/permission"
)

// FieldResolver resolves single fields of a built registry. It holds no
// mutable state.
type FieldResolver struct {
	coercer *enum.Coercer
	fields  map[fieldKey]*binding
}

type fieldKey struct {
	object string
	field  string
}

// binding is a field bound to its parent type, with its gate prebuilt.
type binding struct {
	object string
	field  *Field
	gate   *permission.Gate
}

func (b *binding) fieldContext(path executor.Path) *FieldContext {
	return &FieldContext{ObjectType: b.object, Field: b.field.Name, Path: path}
}

func (r *FieldResolver) lookup(objectType, field string, path executor.Path) (*binding, error) {
	b := r.fields[fieldKey{objectType, field}]
	if b == nil {
		return nil, &FieldError{
			Kind:    KindResolution,
			Message: fmt.Sprintf("no resolver is registered for %s.%s", objectType, field),
			Path:    path,
		}
	}
	return b, nil
}

// Resolve produces the value of objectType.field for source. rawArgs are the
// arguments as the executor coerced them (enum members still by name).
func (r *FieldResolver) Resolve(ctx context.Context, objectType, field string, path executor.Path, source any, rawArgs map[string]any) (any, error) {
	b, err := r.lookup(objectType, field, path)
	if err != nil {
		return nil, err
	}
	ctx, args, err := r.prepare(ctx, b, path, source, rawArgs)
	if err != nil {
		return nil, err
	}
	v, err := r.invoke(ctx, b, source, args)
	return r.complete(ctx, b, path, v, err)
}

// prepare runs every step before invocation: the cancellation check,
// argument coercion and the permission gate. The returned context carries the
// field context and logger values.
func (r *FieldResolver) prepare(ctx context.Context, b *binding, path executor.Path, source any, rawArgs map[string]any) (context.Context, map[string]any, error) {
	fc := b.fieldContext(path)
	ctx = withFieldContext(ctx, fc)
	logger := log.FromContext(ctx).WithValues("object", b.object, "field", b.field.Name, "path", pathSlice(path))
	ctx = log.WithLogger(ctx, logger)

	if err := ctx.Err(); err != nil {
		logger.V(2).Info("field cancelled before resolution")
		return ctx, nil, &FieldError{Kind: KindCancelled, Message: err.Error(), Path: path, Err: err}
	}

	args, err := r.coerceArgs(b, rawArgs)
	if err != nil {
		fe := fault(err, path)
		r.reportFault(ctx, logger, b, fe)
		return ctx, nil, fe
	}
	logger.V(2).Info("field arguments coerced")

	if err := r.gate(ctx, logger, b, path, source, args); err != nil {
		return ctx, nil, err
	}
	logger.V(2).Info("field permitted", "checks", b.gate.Len())
	return ctx, args, nil
}

// coerceArgs maps every declared argument through the enum coercer. Omitted
// arguments take their default; optional arguments without one stay absent.
func (r *FieldResolver) coerceArgs(b *binding, rawArgs map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(b.field.Args))
	for _, a := range b.field.Args {
		raw, ok := rawArgs[a.Name]
		if !ok {
			if a.Default == nil {
				continue
			}
			raw = a.Default
		}
		v, err := r.coercer.Input(a.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		args[a.Name] = v
	}
	return args, nil
}

func (r *FieldResolver) gate(ctx context.Context, logger logr.Logger, b *binding, path executor.Path, source any, args map[string]any) error {
	denial, err := b.gate.Check(ctx, source, args)
	if denial != nil {
		logger.V(1).Info("field denied", "check", fmt.Sprintf("%T", denial.Check), "reason", denial.Message)
		fe := &FieldError{Kind: KindPermissionDenied, Message: denial.Message, Path: path, Err: denial}
		r.reportDenial(ctx, b, fe)
		return fe
	}
	if err == nil {
		return nil
	}
	fe := &FieldError{Kind: KindPermissionEvaluation, Message: err.Error(), Path: path, Err: err}
	var ee *permission.EvaluationError
	if errors.As(err, &ee) {
		if ee.Missing() {
			fe.Kind = KindMissingImplementation
			logger.Error(err, "permission check has no HasPermission", "check", fmt.Sprintf("%T", ee.Check))
		} else {
			logger.Error(ee.Err, "permission check failed", "check", fmt.Sprintf("%T", ee.Check))
		}
	}
	r.reportDenial(ctx, b, fe)
	return fe
}

// invoke calls the bound function, or reads the field from source.
func (r *FieldResolver) invoke(ctx context.Context, b *binding, source any, args map[string]any) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("resolver panicked: %v", p)
		}
	}()
	if b.field.Resolve != nil {
		return b.field.Resolve(ctx, source, args)
	}
	return resolveFromSource(ctx, source, b.field.Name)
}

// complete turns an invocation outcome into the field value: errors are
// wrapped, values go through output coercion.
func (r *FieldResolver) complete(ctx context.Context, b *binding, path executor.Path, v any, err error) (any, error) {
	logger := log.FromContext(ctx)
	if err != nil {
		fe := fault(err, path)
		r.reportFault(ctx, logger, b, fe)
		return nil, fe
	}
	out, err := r.coercer.Output(b.field.Type, v)
	if err != nil {
		fe := fault(err, path)
		r.reportFault(ctx, logger, b, fe)
		return nil, fe
	}
	logger.V(2).Info("field resolved")
	return out, nil
}

func (r *FieldResolver) reportDenial(ctx context.Context, b *binding, fe *FieldError) {
	eventbus.Publish(ctx, events.FieldDenied{
		ObjectType: b.object,
		Field:      b.field.Name,
		Path:       pathSlice(fe.Path),
		Kind:       fe.Kind.String(),
		Message:    fe.Message,
	})
}

func (r *FieldResolver) reportFault(ctx context.Context, logger logr.Logger, b *binding, fe *FieldError) {
	logger.V(1).Info("field failed", "kind", fe.Kind.String(), "error", fe.Message)
	eventbus.Publish(ctx, events.FieldFault{
		ObjectType: b.object,
		Field:      b.field.Name,
		Path:       pathSlice(fe.Path),
		Kind:       fe.Kind.String(),
		Err:        fe,
	})
}

func pathSlice(p executor.Path) []any {
	out := make([]any, len(p))
	for i, e := range p {
		out[i] = e
	}
	return out
}
