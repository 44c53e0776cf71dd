package executor

import (
	"fmt"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// asyncTask is an async field waiting for the next batch.
type asyncTask struct {
	task      AsyncResolveTask
	fieldType *schema.TypeRef
	fields    []*language.Field
}

func enqueueAsync(state *executionState, objectType string, def *schema.Field, fields []*language.Field, source any, args map[string]any, path Path) {
	state.recordNullability(path, def.Type)
	state.pending = append(state.pending, asyncTask{
		task: AsyncResolveTask{
			ObjectType: objectType,
			Field:      def.Name,
			Path:       path,
			Source:     source,
			Args:       args,
		},
		fieldType: def.Type,
		fields:    fields,
	})
}

// drainAsyncTasks runs one batch per depth until no async work is left.
func drainAsyncTasks(state *executionState, data map[string]any) {
	for len(state.pending) > 0 {
		tasks, results := flushAsyncTasks(state)
		for i, res := range results {
			completeAsyncField(state, tasks[i], res, data)
		}
	}
}

// flushAsyncTasks hands the live tasks of the current depth to the runtime.
// Tasks under a nullified position are dropped first, and the runtime is
// not called for an empty batch. A done context fails the rest without
// calling the runtime.
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	live := make([]asyncTask, 0, len(state.pending))
	for _, at := range state.pending {
		if !state.isNullified(at.task.Path) {
			live = append(live, at)
		}
	}
	state.pending = nil
	if len(live) == 0 {
		return nil, nil
	}

	if err := state.context.Err(); err != nil {
		return live, failAll(len(live), err)
	}

	batch := make([]AsyncResolveTask, len(live))
	for i, at := range live {
		batch[i] = at.task
	}
	results := state.runtime.BatchResolveAsync(state.context, batch)
	if len(results) != len(batch) {
		return live, failAll(len(batch), fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(batch)))
	}
	return live, results
}

func failAll(n int, err error) []AsyncResolveResult {
	results := make([]AsyncResolveResult, n)
	for i := range results {
		results[i] = AsyncResolveResult{Error: err}
	}
	return results
}

// completeAsyncField writes one batch result into data. A null in a Non-Null
// position nulls the nearest nullable ancestor instead.
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, data map[string]any) {
	path := at.task.Path
	if state.isNullified(path) {
		return
	}

	var value any
	if res.Error != nil {
		state.addFieldError(res.Error, path)
	} else {
		value = completeValue(state, at.fieldType, at.fields, res.Value, path)
	}

	if !isNullish(value) {
		setValueAtPath(data, path, value)
		return
	}
	if !schema.IsNonNull(at.fieldType) {
		setValueAtPath(data, path, nil)
		return
	}
	target := state.nullTarget(path)
	setValueAtPath(data, target, nil)
	state.markNullified(target)
}
