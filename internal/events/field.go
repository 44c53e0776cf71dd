package events

// FieldDenied is emitted when a field is not resolved because of its
// permission checks. Kind is "denied", "missing_implementation" or
// "evaluation_error".
type FieldDenied struct {
	ObjectType string
	Field      string
	Path       []any
	Kind       string
	Message    string
}

// FieldFault is emitted when argument coercion, the bound resolver or
// result coercion fails.
type FieldFault struct {
	ObjectType string
	Field      string
	Path       []any
	Kind       string
	Err        error
}
