package mojen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels of the runtime.
var (
	// ErrNotFound is returned by Repositories.Get for a missing row. A
	// missing row behind an optional join ends that branch of the cascade.
	ErrNotFound = errors.New("mojen: row not found")

	// ErrCascade is matched by every CascadeError.
	ErrCascade = errors.New("mojen: cascade failed")
)

// NotFoundError is a missing row of a schema type, optionally with the
// key it was looked up by. It matches ErrNotFound.
type NotFoundError struct {
	typeName string
	key      any
}

func (e *NotFoundError) Error() string {
	if e.key == nil {
		return fmt.Sprintf("mojen: %s not found", e.typeName)
	}
	return fmt.Sprintf("mojen: %s not found (key=%v)", e.typeName, e.key)
}

func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the name of the type of the missing row.
func (e *NotFoundError) Label() string {
	return e.typeName
}

// Key returns the key of the missing row, or nil.
func (e *NotFoundError) Key() any {
	return e.key
}

// NewNotFoundError reports a missing row of typeName.
func NewNotFoundError(typeName string) *NotFoundError {
	return &NotFoundError{typeName: typeName}
}

// NewNotFoundErrorWithKey reports a missing row of typeName with the given key.
func NewNotFoundErrorWithKey(typeName string, key any) *NotFoundError {
	return &NotFoundError{typeName: typeName, key: key}
}

// IsNotFound reports whether a row lookup in err's chain came back empty.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// CascadeError wraps an error raised while propagating an operation
// from one row into a related row.
type CascadeError struct {
	Op   Op
	Type string // Type of the row being propagated from
	Prop string // Reference the propagation went through
	Err  error
}

func (e *CascadeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mojen: %s cascade", e.Op)
	if e.Type != "" {
		b.WriteString(" from ")
		b.WriteString(e.Type)
		if e.Prop != "" {
			b.WriteString(".")
			b.WriteString(e.Prop)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CascadeError) Unwrap() error { return e.Err }

// Is matches ErrCascade.
func (e *CascadeError) Is(target error) bool {
	return target == ErrCascade
}

// NewCascadeError reports err raised while propagating op from a row of typ
// through its reference prop.
func NewCascadeError(op Op, typ, prop string, err error) *CascadeError {
	return &CascadeError{Op: op, Type: typ, Prop: prop, Err: err}
}

// WrapCascadeError wraps err raised while propagating op from typ through
// prop. An err that already is a CascadeError was raised deeper in the same
// cascade and is returned as is.
func WrapCascadeError(op Op, typ, prop string, err error) error {
	var e *CascadeError
	if errors.As(err, &e) {
		return err
	}
	return NewCascadeError(op, typ, prop, err)
}

// IsCascadeError reports whether err's chain holds a CascadeError.
func IsCascadeError(err error) bool {
	var e *CascadeError
	return errors.As(err, &e)
}
