package executor

import (
	"context"
	"fmt"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Executor runs operations of one schema against a Runtime.
type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// ExecuteRequest executes a query or mutation. Subscriptions are refused
// here and must go through Subscribe.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		return requestError("operation not found")
	}
	if operation.Operation == language.Subscription {
		return requestError("subscription operations must be executed with Subscribe")
	}

	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return requestError(err.Error())
	}
	rootType, errRes := e.rootType(operation)
	if errRes != nil {
		return errRes
	}

	state := newExecutionState(ctx, e, document, variables)
	var data map[string]any
	if operation.Operation == language.Mutation {
		data = executeFieldsSerially(state, rootType, operation.SelectionSet, initialValue)
	} else {
		data = executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
		drainAsyncTasks(state, data)
	}

	return &ExecutionResult{Data: data, Errors: state.errors}
}

func requestError(msg string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: msg}}}
}

func (e *Executor) rootType(operation *language.OperationDefinition) (*schema.Type, *ExecutionResult) {
	var t *schema.Type
	switch operation.Operation {
	case language.Query:
		t = e.schema.GetQueryType()
	case language.Mutation:
		t = e.schema.GetMutationType()
	case language.Subscription:
		t = e.schema.GetSubscriptionType()
	default:
		return nil, requestError(fmt.Sprintf("unsupported operation type: %s", operation.Operation))
	}
	if t == nil {
		return nil, requestError(fmt.Sprintf("root type not found for %s operation", operation.Operation))
	}
	return t, nil
}

// getOperation picks the named operation, or the only one when name is empty.
func getOperation(document *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

// executionState is the per-operation bookkeeping shared by every depth.
type executionState struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	errors         []GraphQLError

	// pending holds the async fields of the depth being expanded.
	pending []asyncTask
	// nonNull records, per response position, whether its type is Non-Null.
	nonNull map[string]bool
	// nullified holds response positions already replaced by null.
	nullified map[string]struct{}
}

func newExecutionState(ctx context.Context, e *Executor, document *language.QueryDocument, variableValues map[string]any) *executionState {
	return &executionState{
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: variableValues,
		context:        ctx,
		errors:         []GraphQLError{},
		nonNull:        make(map[string]bool),
		nullified:      make(map[string]struct{}),
	}
}

func (state *executionState) addError(message string, path Path) {
	state.errors = append(state.errors, GraphQLError{Message: message, Path: path})
}

// addFieldError records a runtime error, keeping any extensions it carries.
func (state *executionState) addFieldError(err error, path Path) {
	state.errors = append(state.errors, locatedError(err, path))
}

func (state *executionState) hasErrorAtPath(path Path) bool {
	key := pathToString(path)
	for _, err := range state.errors {
		if len(err.Path) == len(path) && pathToString(err.Path) == key {
			return true
		}
	}
	return false
}

func (state *executionState) recordNullability(path Path, t *schema.TypeRef) {
	key := pathToString(path)
	if schema.IsNonNull(t) {
		state.nonNull[key] = true
	} else if _, seen := state.nonNull[key]; !seen {
		state.nonNull[key] = false
	}
}

func (state *executionState) markNullified(path Path) {
	if len(path) > 0 {
		state.nullified[pathToString(path)] = struct{}{}
	}
}

// isNullified reports whether path or one of its ancestors was nulled.
func (state *executionState) isNullified(path Path) bool {
	if len(state.nullified) == 0 {
		return false
	}
	for i := 1; i <= len(path); i++ {
		if _, ok := state.nullified[pathToString(path[:i])]; ok {
			return true
		}
	}
	return false
}

// nullTarget walks up from a Non-Null position that turned out null to the
// nearest position allowed to hold null. Top level fields stop the walk.
func (state *executionState) nullTarget(path Path) Path {
	for len(path) > 1 && state.nonNull[pathToString(path)] {
		path = path[:len(path)-1]
	}
	return path
}
