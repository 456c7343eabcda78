package inventory

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so the transport can pick a status.
type Kind int

const (
	// KindInternal is an unclassified store failure.
	KindInternal Kind = iota
	// KindInvalidInput is a malformed IP or a missing required field.
	KindInvalidInput
	// KindNotFound is a lookup by key that matched nothing.
	KindNotFound
	// KindConflict is a uniqueness violation or a reference to a used or
	// missing resource.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

// Error is returned by every Service operation that fails.
type Error struct {
	// Op is the operation name, e.g. "add ip"
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of err. Errors that did not come from the service
// are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func invalidf(op, format string, args ...any) *Error {
	return newError(op, KindInvalidInput, fmt.Errorf(format, args...))
}

func notFoundf(op, format string, args ...any) *Error {
	return newError(op, KindNotFound, fmt.Errorf(format, args...))
}

func conflictf(op, format string, args ...any) *Error {
	return newError(op, KindConflict, fmt.Errorf(format, args...))
}
