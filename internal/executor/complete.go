package executor

import (
	"fmt"
	"reflect"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// pendingAsync stands in for an async field until its batch completes.
type pendingAsync struct{}

// executeSelectionSet expands sync fields in place and queues async ones.
// A nil return means a Non-Null field of the object came back null.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	out := make(map[string]any)
	for _, cf := range collectFields(state, objectType, selectionSet).orderedFields() {
		name := cf.ResponseName
		fieldPath := appendPath(path, name)
		value := executeField(state, objectType, objectValue, cf.Fields, fieldPath)

		if cf.Fields[0].Name == "__typename" {
			out[name] = value
			continue
		}
		def := getFieldDefinition(objectType, cf.Fields[0].Name)
		if def == nil {
			continue
		}
		if isNullish(value) {
			if schema.IsNonNull(def.Type) && len(path) > 0 {
				state.markNullified(path)
				return nil
			}
			value = nil
		}
		out[name] = value
	}
	return out
}

// executeFieldsSerially runs mutation root fields one at a time. Each field,
// including every async batch beneath it, completes before the next starts.
func executeFieldsSerially(state *executionState, rootType *schema.Type, selectionSet language.SelectionSet, rootValue any) map[string]any {
	data := make(map[string]any)
	for _, cf := range collectFields(state, rootType, selectionSet).orderedFields() {
		name := cf.Fields[0].Name
		value := executeField(state, rootType, rootValue, cf.Fields, Path{cf.ResponseName})
		if name != "__typename" && getFieldDefinition(rootType, name) == nil {
			continue
		}
		if isNullish(value) {
			value = nil
		}
		data[cf.ResponseName] = value
		drainAsyncTasks(state, data)
	}
	return data
}

func executeField(state *executionState, objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	name := fields[0].Name
	if name == "__typename" {
		return objectType.Name
	}
	def := getFieldDefinition(objectType, name)
	if def == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", name, objectType.Name), path)
		return nil
	}

	before := len(state.errors)
	args := coerceArgumentValues(def, fields[0].Arguments, state.variableValues, state, path)
	if len(state.errors) > before {
		return nil
	}
	if def.Async {
		enqueueAsync(state, objectType.Name, def, fields, objectValue, args, path)
		return pendingAsync{}
	}
	resolved := resolveSyncField(state, objectType.Name, name, objectValue, args, path)
	return completeValue(state, def.Type, fields, resolved, path)
}

func resolveSyncField(state *executionState, objectType, field string, source any, args map[string]any, path Path) any {
	if err := state.context.Err(); err != nil {
		state.addFieldError(err, path)
		return nil
	}
	value, err := state.runtime.ResolveSync(state.context, objectType, field, path, source, args)
	if err != nil {
		state.addFieldError(err, path)
		return nil
	}
	return value
}

// completeValue shapes a resolved value according to fieldType.
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	state.recordNullability(path, fieldType)

	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		completed := completeValue(state, schema.Unwrap(fieldType), fields, result, path)
		if isNullish(completed) {
			return nil
		}
		return completed
	}
	if isNullish(result) {
		return nil
	}
	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	named := schema.GetNamedType(fieldType)
	t := state.schema.Types[named]
	if t == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", named), path)
		return nil
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		v, err := state.runtime.SerializeLeafValue(state.context, named, result)
		if err != nil {
			state.addFieldError(err, path)
			return nil
		}
		return v
	case schema.TypeKindObject:
		return executeSelectionSet(state, t, mergeSelectionSets(fields), result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, named, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", t.Kind), path)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	items, ok := result.([]any)
	if !ok {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	out := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, inner, fields, item, appendPath(path, i))
		if isNullish(v) {
			if schema.IsNonNull(inner) {
				state.markNullified(path)
				return nil
			}
			v = nil
		}
		out[i] = v
	}
	return out
}

func completeAbstractValue(state *executionState, abstractType string, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractType, result)
	if err != nil {
		state.addFieldError(err, path)
		return nil
	}
	t := state.schema.Types[typeName]
	if t == nil || t.Kind != schema.TypeKindObject {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType, typeName), path)
		return nil
	}
	return executeSelectionSet(state, t, mergeSelectionSets(fields), result, path)
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish is true for nil and for typed nil pointers, maps, slices,
// funcs, chans and interfaces.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
