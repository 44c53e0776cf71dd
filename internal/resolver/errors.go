package resolver

import (
	"errors"
	"maps"

	"github.com/vektah/gqlparser/v2/gqlerror"

	enum "github.com/hanpama/permgraph/internal/enum"
	executor "github.com/hanpama/permgraph/internal/executor"
)

// ErrorKind classifies field errors for logs and metrics. It never changes
// the wire shape of an error.
type ErrorKind int

const (
	KindResolution ErrorKind = iota
	KindCancelled
	KindEnumCoercion
	KindPermissionDenied
	KindMissingImplementation
	KindPermissionEvaluation
)

func (k ErrorKind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindEnumCoercion:
		return "enum_coercion"
	case KindPermissionDenied:
		return "denied"
	case KindMissingImplementation:
		return "missing_implementation"
	case KindPermissionEvaluation:
		return "evaluation_error"
	default:
		return "resolution"
	}
}

// codeForbidden is the extensions code of denied fields.
const codeForbidden = "FORBIDDEN"

// FieldError is the error of a single field. It is reported at Path and
// leaves the rest of the response intact.
type FieldError struct {
	Kind    ErrorKind
	Message string
	Path    executor.Path
	// Err is the underlying cause, if any.
	Err error
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return e.Err }

// Extensions implements the executor's extensions hook. Permission failures
// report code FORBIDDEN; other errors forward the extensions of a
// *gqlerror.Error cause.
func (e *FieldError) Extensions() map[string]any {
	switch e.Kind {
	case KindPermissionDenied, KindMissingImplementation:
		return map[string]any{"code": codeForbidden}
	}
	var ge *gqlerror.Error
	if errors.As(e.Err, &ge) && len(ge.Extensions) > 0 {
		return maps.Clone(ge.Extensions)
	}
	return nil
}

// fault wraps err raised while resolving the field at path. A *FieldError
// returned by user code is copied, so a shared error value is never written.
func fault(err error, path executor.Path) *FieldError {
	var fe *FieldError
	if errors.As(err, &fe) {
		c := *fe
		if c.Path == nil {
			c.Path = path
		}
		return &c
	}
	kind := KindResolution
	var ce *enum.CoercionError
	if errors.As(err, &ce) {
		kind = KindEnumCoercion
	}
	msg := err.Error()
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		msg = ge.Message
	}
	return &FieldError{Kind: kind, Message: msg, Path: path, Err: err}
}
