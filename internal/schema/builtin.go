package schema

// builtinScalars are shared by every schema built with NewSchema.
var builtinScalars = []*Type{
	{Name: "String", Kind: TypeKindScalar, Description: "UTF-8 character sequences."},
	{Name: "Int", Kind: TypeKindScalar, Description: "Signed 32-bit whole numbers."},
	{Name: "Float", Kind: TypeKindScalar, Description: "Signed double-precision fractional values."},
	{Name: "Boolean", Kind: TypeKindScalar, Description: "`true` or `false`."},
	{Name: "ID", Kind: TypeKindScalar, Description: "A unique identifier, serialized as a String."},
}

var (
	includeDirective = conditionDirective("include", "Includes the selection only when `if` is true.")
	skipDirective    = conditionDirective("skip", "Skips the selection when `if` is true.")
)

func conditionDirective(name, description string) *Directive {
	return &Directive{
		Name:        name,
		Description: description,
		Arguments:   []*InputValue{{Name: "if", Type: NonNullType(NamedType("Boolean"))}},
		Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	}
}

// IsBuiltin reports whether t is one of the specified scalar types.
func IsBuiltin(t *Type) bool {
	for _, b := range builtinScalars {
		if t == b {
			return true
		}
	}
	return false
}
