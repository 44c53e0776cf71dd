package resolver

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"golang.org/x/sync/errgroup"

	enum "github.com/hanpama/permgraph/internal/enum"
	executor "github.com/hanpama/permgraph/internal/executor"
	log "github.com/hanpama/permgraph/internal/log"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Runtime implements executor.SubscriptionRuntime on top of a FieldResolver.
//
//   - Every field, bound or not, goes through FieldResolver, so permissions and
//     enum coercion apply to plain source fields too.
//   - BatchResolveAsync groups tasks by (objectType, field). Groups of a field
//     with ResolveBatch make one call; other tasks run on their own goroutine.
//     Results keep task order and fail independently.
//   - Enum leaves arrive already coerced to wire names; SerializeLeafValue only
//     checks membership.
type Runtime struct {
	resolver       *FieldResolver
	schema         *schema.Schema
	goTypes        map[reflect.Type]string
	maxConcurrency int
}

var _ executor.SubscriptionRuntime = (*Runtime)(nil)

// Resolver returns the field resolver behind r.
func (r *Runtime) Resolver() *FieldResolver { return r.resolver }

// ResolveSync resolves one field immediately.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, path executor.Path, source any, args map[string]any) (any, error) {
	return r.resolver.Resolve(ctx, objectType, field, path, source, args)
}

// BatchResolveAsync resolves the async fields of one depth concurrently.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	type group struct {
		key  fieldKey
		idxs []int
	}
	groups := []group{}
	idxByKey := map[fieldKey]int{}
	for i, t := range tasks {
		k := fieldKey{t.ObjectType, t.Field}
		if gi, ok := idxByKey[k]; ok {
			groups[gi].idxs = append(groups[gi].idxs, i)
		} else {
			idxByKey[k] = len(groups)
			groups = append(groups, group{key: k, idxs: []int{i}})
		}
	}

	g := new(errgroup.Group)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for _, gr := range groups {
		b := r.resolver.fields[gr.key]
		if b != nil && b.field.ResolveBatch != nil {
			g.Go(func() error {
				r.runBatch(ctx, b, tasks, gr.idxs, results)
				return nil
			})
			continue
		}
		for _, i := range gr.idxs {
			g.Go(func() error {
				t := tasks[i]
				v, err := r.resolver.Resolve(ctx, t.ObjectType, t.Field, t.Path, t.Source, t.Args)
				results[i] = executor.AsyncResolveResult{Value: v, Error: err}
				return nil
			})
		}
	}
	_ = g.Wait()
	return results
}

// runBatch resolves one group with a single ResolveBatch call. Tasks that are
// cancelled, fail coercion or are denied never reach the batch function.
func (r *Runtime) runBatch(ctx context.Context, b *binding, tasks []executor.AsyncResolveTask, idxs []int, results []executor.AsyncResolveResult) {
	reqs := make([]Request, 0, len(idxs))
	included := make([]int, 0, len(idxs))
	ctxs := make(map[int]context.Context, len(idxs))
	for _, i := range idxs {
		t := tasks[i]
		fctx, args, err := r.resolver.prepare(ctx, b, t.Path, t.Source, t.Args)
		if err != nil {
			results[i] = executor.AsyncResolveResult{Error: err}
			continue
		}
		ctxs[i] = fctx
		reqs = append(reqs, Request{Source: t.Source, Args: args})
		included = append(included, i)
	}
	if len(reqs) == 0 {
		return
	}

	log.FromContext(ctx).V(2).Info("resolving field batch", "object", b.object, "field", b.field.Name, "size", len(reqs))
	out, err := callBatch(ctx, b.field.ResolveBatch, reqs)
	if err == nil && len(out) != len(reqs) {
		err = fmt.Errorf("batch resolver for %s.%s returned %d results for %d requests", b.object, b.field.Name, len(out), len(reqs))
	}
	for k, i := range included {
		var v any
		var verr error
		if err != nil {
			verr = err
		} else {
			v, verr = out[k].Value, out[k].Err
		}
		v, verr = r.resolver.complete(ctxs[i], b, tasks[i].Path, v, verr)
		results[i] = executor.AsyncResolveResult{Value: v, Error: verr}
	}
}

func callBatch(ctx context.Context, fn BatchFunc, reqs []Request) (out []Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("resolver panicked: %v", p)
		}
	}()
	return fn(ctx, reqs), nil
}

// ResolveType names the object type of a value returned for an interface or
// union field.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	switch v := value.(type) {
	case TypeNamer:
		return v.GraphQLTypeName(), nil
	case map[string]any:
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	}
	if value != nil {
		t := reflect.TypeOf(value)
		for {
			if name, ok := r.goTypes[t]; ok {
				return name, nil
			}
			if t.Kind() != reflect.Pointer {
				break
			}
			t = t.Elem()
		}
	}
	return "", fmt.Errorf("cannot resolve the object type of %s from %T", abstractType, value)
}

// SerializeLeafValue converts scalars to JSON-safe values. Enum values must
// already be member names.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if def := r.resolver.coercer.Definition(typeName); def != nil {
		if name, ok := value.(string); ok && def.HasName(name) {
			return name, nil
		}
		return nil, &enum.CoercionError{Enum: typeName, Direction: enum.Serialize, Value: value}
	}
	switch typeName {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String":
		return serializeString(value)
	case "Boolean":
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
		return nil, fmt.Errorf("Boolean cannot represent %v (%T)", value, value)
	case "ID":
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.String:
			return rv.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10), nil
		}
		return nil, fmt.Errorf("ID cannot represent %v (%T)", value, value)
	}
	return value, nil
}

func serializeInt(value any) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
		}
		return int(n), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := rv.Uint()
		if n > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
		}
		return int(n), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", f)
		}
		return int(f), nil
	}
	return nil, fmt.Errorf("Int cannot represent %v (%T)", value, value)
}

func serializeFloat(value any) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("Float cannot represent %v (%T)", value, value)
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, fmt.Errorf("String cannot represent %v (%T)", value, value)
}
