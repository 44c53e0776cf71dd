package executor

import (
	"fmt"
	"strconv"
	"strings"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// coerceVariableValues checks the provided variables against the operation's
// definitions, filling in defaults. Any failure rejects the whole request.
func coerceVariableValues(sch *schema.Schema, operation *language.OperationDefinition, provided map[string]any) (map[string]any, error) {
	in := inputCoercer{sch}
	out := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name, typ := def.Variable, def.Type
		value, ok := lookupVariable(provided, name)
		switch {
		case ok:
		case def.DefaultValue != nil:
			value = literalValue(def.DefaultValue)
		case typ.NonNull:
			return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, typ)
		default:
			continue
		}
		if value == nil && typ.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, typ)
		}
		coerced, err := in.coerce(value, typeRefFromAST(typ))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, typ, err)
		}
		out[name] = coerced
	}
	return out, nil
}

// coerceArgumentValues builds the argument map handed to a resolver. Problems
// are recorded as field errors at path; callers compare the error count to
// tell whether the field can still be resolved.
func coerceArgumentValues(def *schema.Field, arguments language.ArgumentList, variables map[string]any, state *executionState, path Path) map[string]any {
	in := inputCoercer{state.schema}
	out := make(map[string]any, len(def.Arguments))
	given := make(map[string]bool, len(arguments))
	for _, arg := range arguments {
		argDef := def.Argument(arg.Name)
		if argDef == nil || unsetVariable(arg.Value, variables) {
			continue
		}
		given[arg.Name] = true
		v, err := in.coerce(valueFromASTWithVars(arg.Value, variables), argDef.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument '%s' cannot be coerced: %v", arg.Name, err), path)
			continue
		}
		out[arg.Name] = v
	}

	for _, argDef := range def.Arguments {
		if given[argDef.Name] {
			continue
		}
		switch {
		case argDef.DefaultValue != nil:
			v, err := in.coerce(argDef.DefaultValue, argDef.Type)
			if err != nil {
				state.addError(fmt.Sprintf("argument '%s' has an invalid default: %v", argDef.Name, err), path)
				continue
			}
			out[argDef.Name] = v
		case schema.IsNonNull(argDef.Type):
			state.addError(fmt.Sprintf("argument '%s' of required type was not provided", argDef.Name), path)
		}
	}
	return out
}

// valueFromASTWithVars resolves a literal, substituting variables at any
// depth. An object field bound to an unset variable is left out so that the
// input field's default can apply; arguments are handled the same way.
func valueFromASTWithVars(value *language.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		v, _ := lookupVariable(variables, value.Raw)
		return v
	case language.ListValue:
		items := make([]any, len(value.Children))
		for i, child := range value.Children {
			items[i] = valueFromASTWithVars(child.Value, variables)
		}
		return items
	case language.ObjectValue:
		fields := make(map[string]any, len(value.Children))
		for _, child := range value.Children {
			if unsetVariable(child.Value, variables) {
				continue
			}
			fields[child.Name] = valueFromASTWithVars(child.Value, variables)
		}
		return fields
	}
	return literalValue(value)
}

// unsetVariable is true for a variable reference the request gave no value.
func unsetVariable(value *language.Value, variables map[string]any) bool {
	if value == nil || value.Kind != language.Variable {
		return false
	}
	_, set := lookupVariable(variables, value.Raw)
	return !set
}

func lookupVariable(variables map[string]any, name string) (any, bool) {
	if v, ok := variables[name]; ok {
		return v, true
	}
	v, ok := variables[strings.TrimPrefix(name, "$")]
	return v, ok
}

// literalValue converts a constant literal. Enum members become their names.
func literalValue(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		if n, err := strconv.Atoi(value.Raw); err == nil {
			return n
		}
		// Too large for int: keep the magnitude so Int coercion rejects it
		// while Float still accepts it.
		f, _ := strconv.ParseFloat(value.Raw, 64)
		return f
	case language.FloatValue:
		f, _ := strconv.ParseFloat(value.Raw, 64)
		return f
	case language.BooleanValue:
		return value.Raw == "true"
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.ListValue:
		items := make([]any, len(value.Children))
		for i, child := range value.Children {
			items[i] = literalValue(child.Value)
		}
		return items
	case language.ObjectValue:
		fields := make(map[string]any, len(value.Children))
		for _, child := range value.Children {
			fields[child.Name] = literalValue(child.Value)
		}
		return fields
	}
	return nil
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	switch {
	case t == nil:
		return nil
	case t.NonNull:
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	case t.NamedType != "":
		return schema.NamedType(t.NamedType)
	case t.Elem != nil:
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}
