package executor

import (
	"context"
	"errors"
	"sync"
)

// MockResolver resolves one field value for MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// MockStream opens the event stream of a subscription root field.
type MockStream func(ctx context.Context, source any, args map[string]any) (<-chan any, error)

func NewMockValueResolver(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

func NewMockErrorResolver(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// Kinds of recorded calls.
const (
	CallKindSync      = "sync"
	CallKindAsync     = "async"
	CallKindSubscribe = "subscribe"
)

// Call records one field handed to MockRuntime. Async calls made by the
// same BatchResolveAsync share a BatchID, counted from 1; sync calls have 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Path       string
	Source     any
	Args       map[string]any
	BatchID    int
}

// MockRuntime is a Runtime driven by per-field resolvers keyed
// "ObjectType.field". It logs every call for later inspection. A field
// without a resolver resolves to null.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	streams   map[string]MockStream
	calls     []Call
	batches   int

	resolveType func(value any) (string, error)
	serialize   func(typeName string, value any) (any, error)
}

func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{
		resolvers: make(map[string]MockResolver, len(resolvers)),
		streams:   make(map[string]MockStream),
	}
	for k, r := range resolvers {
		m.resolvers[k] = r
	}
	return m
}

func (m *MockRuntime) SetResolver(objectType, field string, r MockResolver) {
	m.mu.Lock()
	m.resolvers[objectType+"."+field] = r
	m.mu.Unlock()
}

func (m *MockRuntime) SetStream(objectType, field string, s MockStream) {
	m.mu.Lock()
	m.streams[objectType+"."+field] = s
	m.mu.Unlock()
}

// SetTypeResolver overrides abstract type resolution. By default a
// map[string]any value names its type under "__typename".
func (m *MockRuntime) SetTypeResolver(f func(value any) (string, error)) {
	m.mu.Lock()
	m.resolveType = f
	m.mu.Unlock()
}

// SetSerializer overrides leaf serialization, which is the identity by default.
func (m *MockRuntime) SetSerializer(f func(typeName string, value any) (any, error)) {
	m.mu.Lock()
	m.serialize = f
	m.mu.Unlock()
}

func (m *MockRuntime) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

func (m *MockRuntime) resolver(objectType, field string) MockResolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolvers[objectType+"."+field]
}

func (m *MockRuntime) ResolveSync(ctx context.Context, objectType, field string, path Path, source any, args map[string]any) (any, error) {
	m.record(Call{Kind: CallKindSync, ObjectType: objectType, Field: field, Path: pathToString(path), Source: source, Args: args})
	if r := m.resolver(objectType, field); r != nil {
		return r(ctx, source, args)
	}
	return nil, nil
}

// BatchResolveAsync answers the tasks grouped by field, groups in order of
// first appearance, and logs them in that order.
func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	if len(tasks) == 0 {
		return nil
	}
	m.mu.Lock()
	m.batches++
	batchID := m.batches
	m.mu.Unlock()

	var order []string
	groups := make(map[string][]int)
	for i, t := range tasks {
		key := t.ObjectType + "." + t.Field
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	results := make([]AsyncResolveResult, len(tasks))
	for _, key := range order {
		for _, i := range groups[key] {
			t := tasks[i]
			if r := m.resolver(t.ObjectType, t.Field); r != nil {
				v, err := r(ctx, t.Source, t.Args)
				results[i] = AsyncResolveResult{Value: v, Error: err}
			}
			m.record(Call{
				Kind:       CallKindAsync,
				ObjectType: t.ObjectType,
				Field:      t.Field,
				Path:       pathToString(t.Path),
				Source:     t.Source,
				Args:       t.Args,
				BatchID:    batchID,
			})
		}
	}
	return results
}

func (m *MockRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	m.mu.Lock()
	f := m.resolveType
	m.mu.Unlock()
	if f != nil {
		return f(value)
	}
	if obj, ok := value.(map[string]any); ok {
		if name, ok := obj["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", errors.New("cannot resolve type of " + abstractType)
}

func (m *MockRuntime) Subscribe(ctx context.Context, objectType, field string, path Path, source any, args map[string]any) (<-chan any, error) {
	m.record(Call{Kind: CallKindSubscribe, ObjectType: objectType, Field: field, Path: pathToString(path), Source: source, Args: args})
	m.mu.Lock()
	s := m.streams[objectType+"."+field]
	m.mu.Unlock()
	if s == nil {
		return nil, errors.New("no stream registered for " + objectType + "." + field)
	}
	return s(ctx, source, args)
}

func (m *MockRuntime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	m.mu.Lock()
	f := m.serialize
	m.mu.Unlock()
	if f == nil {
		return value, nil
	}
	return f(typeName, value)
}

// GetCalls returns a copy of the call log.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Reset clears the call log and batch counter. Resolvers stay registered.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.batches = 0
	m.mu.Unlock()
}
