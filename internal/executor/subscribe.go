package executor

import (
	"context"
	"fmt"
	"time"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Subscribe executes a subscription operation.
//
// Set-up happens synchronously: operation selection, variable and argument
// coercion and the runtime's Subscribe call (where field permissions are
// evaluated). Any failure there is returned as a result with a nil stream.
// Otherwise each source event is completed against the root field's
// selection set and delivered as its own ExecutionResult. The returned
// channel is closed when the source stream ends or ctx is done.
func (e *Executor) Subscribe(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) (<-chan *ExecutionResult, *ExecutionResult) {
	operation := getOperation(document, operationName)
	if operation == nil {
		return nil, &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	}
	if operation.Operation != language.Subscription {
		return nil, &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("expected a subscription operation, got %s", operation.Operation)}}}
	}
	srt, ok := e.runtime.(SubscriptionRuntime)
	if !ok {
		return nil, &ExecutionResult{Errors: []GraphQLError{{Message: "runtime does not support subscriptions"}}}
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return nil, &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	rootType, errRes := e.rootType(operation)
	if errRes != nil {
		return nil, errRes
	}

	state := newExecutionState(ctx, e, document, coercedVariableValues)
	grouped := collectFields(state, rootType, operation.SelectionSet).orderedFields()
	if len(grouped) != 1 {
		return nil, &ExecutionResult{Errors: []GraphQLError{{Message: "subscription must select exactly one top level field"}}}
	}
	root := grouped[0]
	fieldDef := getFieldDefinition(rootType, root.Fields[0].Name)
	if fieldDef == nil {
		return nil, &ExecutionResult{Errors: []GraphQLError{{
			Message: fmt.Sprintf("Cannot query field '%s' on type '%s'", root.Fields[0].Name, rootType.Name),
			Path:    Path{root.ResponseName},
		}}}
	}

	path := Path{root.ResponseName}
	args := coerceArgumentValues(fieldDef, root.Fields[0].Arguments, state.variableValues, state, path)
	if len(state.errors) > 0 {
		return nil, &ExecutionResult{Errors: state.errors}
	}

	stream, err := srt.Subscribe(ctx, rootType.Name, fieldDef.Name, path, initialValue, args)
	if err != nil {
		state.addFieldError(err, path)
		return nil, &ExecutionResult{Errors: state.errors}
	}

	sub := &subscription{
		exec:      e,
		document:  document,
		variables: coercedVariableValues,
		fieldDef:  fieldDef,
		field:     root,
		path:      path,
	}
	out := make(chan *ExecutionResult)
	go sub.run(ctx, stream, out)
	return out, nil
}

type subscription struct {
	exec      *Executor
	document  *language.QueryDocument
	variables map[string]any
	fieldDef  *schema.Field
	field     collectedField
	path      Path
}

func (s *subscription) run(ctx context.Context, stream <-chan any, out chan<- *ExecutionResult) {
	defer close(out)
	start := time.Now()
	delivered := 0
	eventbus.Publish(ctx, events.SubscriptionStart{Field: s.fieldDef.Name})
	defer func() {
		eventbus.Publish(ctx, events.SubscriptionFinish{
			Field:    s.fieldDef.Name,
			Events:   delivered,
			Err:      ctx.Err(),
			Duration: time.Since(start),
		})
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			res := s.complete(ctx, ev)
			select {
			case out <- res:
				delivered++
			case <-ctx.Done():
				return
			}
		}
	}
}

// complete maps one source event to a response, the way a query would
// complete the root field with ev as its resolved value.
func (s *subscription) complete(ctx context.Context, ev any) *ExecutionResult {
	state := newExecutionState(ctx, s.exec, s.document, s.variables)
	responseRoot := make(map[string]any)
	name := s.field.ResponseName

	if err, isErr := ev.(error); isErr {
		state.addFieldError(err, s.path)
		responseRoot[name] = nil
		return &ExecutionResult{Data: responseRoot, Errors: state.errors}
	}

	completed := completeValue(state, s.fieldDef.Type, s.field.Fields, ev, s.path)
	if isNullish(completed) {
		responseRoot[name] = nil
	} else {
		responseRoot[name] = completed
	}
	drainAsyncTasks(state, responseRoot)
	return &ExecutionResult{Data: responseRoot, Errors: state.errors}
}
