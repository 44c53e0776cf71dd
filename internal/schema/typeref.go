package schema

// TypeRef is a possibly wrapped reference to a named type. Wrappers carry
// the wrapped reference in OfType; only named references set Named.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }
func ListType(of *TypeRef) *TypeRef  { return &TypeRef{Kind: TypeRefKindList, OfType: of} }
func NonNullType(of *TypeRef) *TypeRef {
	return &TypeRef{Kind: TypeRefKindNonNull, OfType: of}
}

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList is true for [T] and [T]!.
func (t *TypeRef) IsList() bool {
	if t.IsNonNull() {
		t = t.OfType
	}
	return t != nil && t.Kind == TypeRefKindList
}

// Unwrap peels one List or Non-Null layer. Named references return
// themselves.
func (t *TypeRef) Unwrap() *TypeRef {
	if t == nil || t.Kind == TypeRefKindNamed {
		return t
	}
	return t.OfType
}

// GetNamedType returns the name at the bottom of the wrappers.
func (t *TypeRef) GetNamedType() string {
	for ; t != nil; t = t.OfType {
		if t.Kind == TypeRefKindNamed {
			return t.Named
		}
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[Flavour!]".
func (t *TypeRef) String() string { return renderTypeRef(t) }

func IsNonNull(t *TypeRef) bool      { return t.IsNonNull() }
func IsList(t *TypeRef) bool         { return t.IsList() }
func Unwrap(t *TypeRef) *TypeRef     { return t.Unwrap() }
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
