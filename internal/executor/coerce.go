package executor

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	schema "github.com/hanpama/permgraph/internal/schema"
)

// inputCoercer validates input values against schema types. Enum members are
// kept as wire names; mapping them to internal values is left to the runtime.
type inputCoercer struct {
	sch *schema.Schema
}

var errNullForNonNull = errors.New("cannot provide null for non-null type")

func (c inputCoercer) coerce(value any, t *schema.TypeRef) (any, error) {
	if schema.IsNonNull(t) {
		if value == nil {
			return nil, errNullForNonNull
		}
		return c.coerce(value, schema.Unwrap(t))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(t) {
		return c.list(value, schema.Unwrap(t))
	}

	name := schema.GetNamedType(t)
	if scalar, ok := builtinScalars[name]; ok {
		return scalar(value)
	}
	switch typ := c.sch.Lookup(name); {
	case typ == nil:
		// Unknown names pass through for the runtime to interpret.
		return value, nil
	case typ.Kind == schema.TypeKindEnum:
		return enumMember(typ, value)
	case typ.Kind == schema.TypeKindInputObject:
		return c.inputObject(typ, value)
	default:
		return value, nil
	}
}

// list coerces each item; a lone value is treated as a list of one.
func (c inputCoercer) list(value any, item *schema.TypeRef) (any, error) {
	items, ok := value.([]any)
	if !ok {
		items = []any{value}
	}
	out := make([]any, len(items))
	for i, v := range items {
		cv, err := c.coerce(v, item)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func (c inputCoercer) inputObject(typ *schema.Type, value any) (any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to input object %s", value, value, typ.Name)
	}
	for name := range fields {
		if typ.InputFieldByName(name) == nil {
			return nil, fmt.Errorf("unknown field '%s' on input %s", name, typ.Name)
		}
	}

	out := make(map[string]any, len(typ.InputFields))
	for _, f := range typ.InputFields {
		raw, present := fields[f.Name]
		switch {
		case present:
		case f.DefaultValue != nil:
			raw = f.DefaultValue
		case schema.IsNonNull(f.Type):
			return nil, fmt.Errorf("required field '%s' of input %s was not provided", f.Name, typ.Name)
		default:
			continue
		}
		v, err := c.coerce(raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of input %s: %v", f.Name, typ.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func enumMember(typ *schema.Type, value any) (any, error) {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case schema.EnumLiteral:
		name = string(v)
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, typ.Name)
	}
	if !typ.HasEnumValue(name) {
		return nil, fmt.Errorf("value %q does not exist in enum %s", name, typ.Name)
	}
	return name, nil
}

// builtinScalars are strict: strings never become numbers and numbers never
// become strings, except that ID accepts integers. JSON numbers arrive as
// float64 and must be integral to become an Int. Int is 32-bit.
var builtinScalars = map[string]func(any) (any, error){
	"Int":     coerceInt,
	"Float":   coerceFloat,
	"String":  coerceString,
	"Boolean": coerceBoolean,
	"ID":      coerceID,
}

func cannotCoerce(value any, to string) error {
	return fmt.Errorf("cannot coerce %v (%T) to %s", value, value, to)
}

func coerceInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float32:
		if f := float64(v); f == math.Trunc(f) && inInt32(f) {
			return int(f), nil
		}
		return nil, cannotCoerce(value, "int")
	case float64:
		if v == math.Trunc(v) && inInt32(v) {
			return int(v), nil
		}
		return nil, cannotCoerce(value, "int")
	default:
		return nil, cannotCoerce(value, "int")
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, cannotCoerce(value, "int")
	}
	return int(n), nil
}

// inInt32 reports whether f fits the 32-bit range of GraphQL Int.
func inInt32(f float64) bool { return f >= math.MinInt32 && f <= math.MaxInt32 }

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, cannotCoerce(value, "float")
}

func coerceString(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return nil, cannotCoerce(value, "string")
}

func coerceBoolean(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return nil, cannotCoerce(value, "boolean")
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, cannotCoerce(value, "ID")
}
