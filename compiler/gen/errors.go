package gen

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Sentinels matched by the structured errors below. Graph.Build collects
// many of them at once; use Errors to split the result.
var (
	// ErrInvalidSchema is matched by SchemaError.
	ErrInvalidSchema = errors.New("mojen: invalid schema")
	// ErrMissingConfig is matched by ConfigError.
	ErrMissingConfig = errors.New("mojen: missing configuration")
	// ErrInvalidReference is matched by ReferenceError.
	ErrInvalidReference = errors.New("mojen: invalid reference definition")
	// ErrGenerationFailed is matched by GenerationError.
	ErrGenerationFailed = errors.New("mojen: code generation failed")
	// ErrValidationFailed is matched by ValidationError.
	ErrValidationFailed = errors.New("mojen: validation failed")
	// ErrNotFound is matched by NotFoundError.
	ErrNotFound = errors.New("mojen: not found")
)

// describe renders "mojen: <what><where>: <message>: <cause>", leaving out
// the empty parts.
func describe(what, where, message string, cause error) string {
	var b strings.Builder
	b.WriteString("mojen: ")
	b.WriteString(what)
	b.WriteString(where)
	if message != "" {
		b.WriteString(": ")
		b.WriteString(message)
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

// onTypeProp locates an error at a type and one of its props.
func onTypeProp(typ, prop string) string {
	var where string
	if typ != "" {
		where = " on type " + typ
	}
	if prop != "" {
		where += " prop " + prop
	}
	return where
}

// SchemaError reports a malformed declaration: an unknown kind or prop
// type, a bad store, a constraint member or default that does not fit.
type SchemaError struct {
	Type    string
	Prop    string // empty for errors of the type itself
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	return describe("schema error", onTypeProp(e.Type, e.Prop), e.Message, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// Is matches ErrInvalidSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError returns a SchemaError of typeName, or of its prop propName.
func NewSchemaError(typeName, propName, message string, cause error) *SchemaError {
	return &SchemaError{Type: typeName, Prop: propName, Message: message, Cause: cause}
}

// ConfigError reports an option of the generator config with a bad value.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("mojen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("mojen: config error for %q: %s", e.Option, e.Message)
}

// Is matches ErrMissingConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError returns a ConfigError of option.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// ReferenceError reports a reference that cannot be resolved: a missing
// target, back-reference or owning prop, a foreign key paired with the wrong
// navigation, or a collection whose items have no key back at the owner.
type ReferenceError struct {
	From    string
	To      string
	Prop    string
	Message string
	Cause   error
}

func (e *ReferenceError) Error() string {
	var where string
	if e.Prop != "" {
		where = " on prop " + e.Prop
	}
	switch {
	case e.From != "" && e.To != "":
		where += fmt.Sprintf(" (%s -> %s)", e.From, e.To)
	case e.From != "":
		where += " from " + e.From
	}
	return describe("reference error", where, e.Message, e.Cause)
}

func (e *ReferenceError) Unwrap() error { return e.Cause }

// Is matches ErrInvalidReference.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

// NewReferenceError returns a ReferenceError of prop propName of from,
// pointing at to.
func NewReferenceError(from, to, propName, message string, cause error) *ReferenceError {
	return &ReferenceError{From: from, To: to, Prop: propName, Message: message, Cause: cause}
}

// GenerationError reports a failure after the graph was built, while
// compiling plans, emitting code or writing files.
type GenerationError struct {
	Phase   string // "plan", "emit" or "write"
	File    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	var where string
	if e.Phase != "" {
		where = " in phase " + e.Phase
	}
	if e.File != "" {
		where += " (file: " + e.File + ")"
	}
	return describe("generation error", where, e.Message, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Is matches ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError returns a GenerationError of phase.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{Phase: phase, File: file, Message: message, Cause: cause}
}

// ValidationError reports a graph invariant that does not hold over the
// declarations as a whole, like a required back-reference on a type with
// several parent types.
type ValidationError struct {
	Type    string
	Prop    string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return describe("validation error", onTypeProp(e.Type, e.Prop), e.Message, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Is matches ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewValidationError returns a ValidationError of typeName, or of its prop propName.
func NewValidationError(typeName, propName, message string) *ValidationError {
	return &ValidationError{Type: typeName, Prop: propName, Message: message}
}

// NotFoundError is returned by the Must and Get lookups of types, props
// and references.
type NotFoundError struct {
	Kind  string // "type", "prop" or "reference"
	Name  string
	Owner string
}

func (e *NotFoundError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("mojen: %s %q not found on %s", e.Kind, e.Name, e.Owner)
	}
	return fmt.Sprintf("mojen: %s %q not found", e.Kind, e.Name)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsSchemaError reports whether the error is a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsReferenceError reports whether the error is a ReferenceError.
func IsReferenceError(err error) bool {
	var refErr *ReferenceError
	return errors.As(err, &refErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsValidationError reports whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsNotFound reports whether the error is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Errors splits an error returned by Graph.Build into the individual
// schema errors it aggregates.
func Errors(err error) []error {
	return multierr.Errors(err)
}
