package permission

import (
	"context"
	"errors"
	"fmt"
)

// Gate holds the ordered checks of one field. It never changes after
// NewGate and may be shared by concurrent resolutions.
type Gate struct {
	checks []Check
}

func NewGate(checks ...Check) *Gate {
	return &Gate{checks: append([]Check(nil), checks...)}
}

// Len reports the number of checks.
func (g *Gate) Len() int {
	if g == nil {
		return 0
	}
	return len(g.checks)
}

// Check evaluates the checks in order. It returns a Denial for the first
// check answering false, an *EvaluationError when a check fails to evaluate,
// and (nil, nil) when every check allows the field.
func (g *Gate) Check(ctx context.Context, source any, args map[string]any) (*Denial, error) {
	if g == nil {
		return nil, nil
	}
	for i, c := range g.checks {
		ok, err := evaluate(ctx, c, source, args)
		if err != nil {
			return nil, &EvaluationError{Check: c, Index: i, Err: err}
		}
		if !ok {
			return &Denial{Check: c, Index: i, Message: c.Message()}, nil
		}
	}
	return nil, nil
}

func evaluate(ctx context.Context, c Check, source any, args map[string]any) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("permission check panicked: %v", r)
		}
	}()
	return c.HasPermission(ctx, source, args)
}

// Denial is the outcome of a check that answered false.
type Denial struct {
	Check   Check
	Index   int
	Message string
}

func (d *Denial) Error() string { return d.Message }

// EvaluationError is a check that could not be evaluated. It is not a
// denial; Missing tells configuration errors apart from runtime faults.
type EvaluationError struct {
	Check Check
	Index int
	Err   error
}

func (e *EvaluationError) Error() string {
	if e.Missing() {
		return MissingImplementationMessage
	}
	return e.Err.Error()
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Missing reports whether the check never implemented HasPermission.
func (e *EvaluationError) Missing() bool {
	return errors.Is(e.Err, ErrMissingImplementation)
}
