// Package mojen holds the runtime contracts shared by interpreted and generated
// cascades. A cascade walks the reference graph of a schema starting at one row
// and propagates an operation (nested add/update, delete, soft delete, restore)
// into every related row selected by the compiled plan.
package mojen

import (
	"context"
	"fmt"
	"reflect"
)

// Op is a cascading operation kind.
type Op int

// Cascading operations.
const (
	OpUnknown Op = iota
	OpAddNested
	OpUpdateNested
	OpDelete
	OpSoftDelete
	OpRestore
)

var opNames = [...]string{
	OpUnknown:      "unknown",
	OpAddNested:    "add-nested",
	OpUpdateNested: "update-nested",
	OpDelete:       "delete",
	OpSoftDelete:   "soft-delete",
	OpRestore:      "restore",
}

// String returns the operation name.
func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

// Ops returns all known operations in declaration order.
func Ops() []Op {
	return []Op{OpAddNested, OpUpdateNested, OpDelete, OpSoftDelete, OpRestore}
}

// ParseOp returns the operation with the given name.
func ParseOp(name string) (Op, error) {
	for i, n := range opNames {
		if n == name && Op(i) != OpUnknown {
			return Op(i), nil
		}
	}
	return OpUnknown, fmt.Errorf("mojen: unknown operation %q", name)
}

// Row is a single stored instance of a schema type.
type Row interface {
	// TypeName returns the name of the most derived schema type of the row.
	TypeName() string
	// Key returns the primary key value.
	Key() any
	// Value returns the value at the given (possibly dotted) property path.
	// Missing values are reported as nil.
	Value(path string) any
}

// Condition is an equality filter: the value at Path equals Value.
type Condition struct {
	Path  string
	Value any
	// Optional marks a join that may be absent for a given row. Rows of a type
	// with several parents only populate one of their back-references.
	Optional bool
}

// String implements the fmt.Stringer interface.
func (c Condition) String() string {
	if c.Optional {
		return fmt.Sprintf("%s ?= %v", c.Path, c.Value)
	}
	return fmt.Sprintf("%s == %v", c.Path, c.Value)
}

// Repositories gives a cascade access to stored rows.
type Repositories interface {
	// Get returns the row of the named type with the given key.
	// It returns an error matching ErrNotFound if there is no such row.
	Get(ctx context.Context, typeName string, key any) (Row, error)
	// Query returns all rows of the named type matching every condition.
	Query(ctx context.Context, typeName string, where ...Condition) ([]Row, error)
	// Apply performs the operation on a single row.
	Apply(ctx context.Context, op Op, row Row) error
}

// zeroGUID is the string form of the nil UUID.
const zeroGUID = "00000000-0000-0000-0000-000000000000"

// IsZero reports whether a key or foreign-key value is absent: nil, the zero
// value of its type, or a value printing as the nil UUID.
func IsZero(v any) bool {
	if v == nil || reflect.ValueOf(v).IsZero() {
		return true
	}
	if s, ok := v.(fmt.Stringer); ok {
		str := s.String()
		return str == "" || str == zeroGUID
	}
	return false
}

// Visited is the set of rows a cascade has reached. It guards cascades over
// cyclic ownership graphs against visiting a row twice.
type Visited map[string]struct{}

// Visit marks the row as visited. It reports false if it was visited before.
func (v Visited) Visit(row Row) bool {
	k := fmt.Sprintf("%s/%T/%v", row.TypeName(), row.Key(), row.Key())
	if _, ok := v[k]; ok {
		return false
	}
	v[k] = struct{}{}
	return true
}
