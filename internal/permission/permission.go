// Package permission evaluates field-level authorization checks before a
// resolver runs.
//
// A Check is any value with HasPermission and Message. Checks are attached to
// a field in order and evaluated in that order; the first check that says no
// stops evaluation and its message becomes the field error.
package permission

import (
	"context"
	"errors"
)

// MissingImplementationMessage is reported when a check never provided its
// own HasPermission.
const MissingImplementationMessage = "Permission classes should override has_permission method"

// ErrMissingImplementation is returned by Base.HasPermission.
var ErrMissingImplementation = errors.New(MissingImplementationMessage)

// Check decides whether a field may be resolved.
//
// source is the parent object the field is resolved on (nil for root
// fields), args are the field arguments after coercion. Request scoped values
// travel in ctx. A returned error is a fault of the check itself, never a
// denial.
type Check interface {
	HasPermission(ctx context.Context, source any, args map[string]any) (bool, error)
	Message() string
}

// Base is meant to be embedded by checks. It supplies Message from Reason and
// a HasPermission that reports ErrMissingImplementation, so a check type that
// forgets to define its own HasPermission is caught at resolution time.
type Base struct {
	Reason string
}

func (b Base) Message() string { return b.Reason }

func (Base) HasPermission(context.Context, any, map[string]any) (bool, error) {
	return false, ErrMissingImplementation
}

// Func adapts a function to Check.
type Func struct {
	message string
	fn      func(ctx context.Context, source any, args map[string]any) (bool, error)
}

// New returns a Check that denies with message whenever fn returns false.
func New(message string, fn func(ctx context.Context, source any, args map[string]any) (bool, error)) *Func {
	return &Func{message: message, fn: fn}
}

func (f *Func) Message() string { return f.message }

func (f *Func) HasPermission(ctx context.Context, source any, args map[string]any) (bool, error) {
	if f.fn == nil {
		return false, ErrMissingImplementation
	}
	return f.fn(ctx, source, args)
}
