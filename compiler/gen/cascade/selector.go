// Package cascade compiles the schema graph into per-type operation plans
// for nested add, nested update, delete, soft delete and restore, and runs
// or emits them.
package cascade

import (
	"github.com/syssam/mojen"
	"github.com/syssam/mojen/compiler/gen"
)

// Selector parameterizes the cascade compiler for one operation.
type Selector struct {
	// Op is the operation propagated into the selected rows.
	Op mojen.Op
	// Method is the name of the emitted entry point, e.g. "DeleteCascade".
	Method string
	// ThreadsContext emits free functions taking the repositories as an
	// argument instead of methods on a struct holding them.
	ThreadsContext bool
	// RequireDeletedMarker fails compilation when a selected target type has
	// no deleted marker prop.
	RequireDeletedMarker bool
	// Refs selects the reference props of a type to propagate into.
	Refs func(*gen.Prop) bool
	// Softs selects the soft references, pointing at a type, to propagate into.
	Softs func(*gen.SoftReference) bool
}

// Match is a predicate over the binding and multiplicity of a reference.
// A selector built from a Match applies the same rule to hard and soft
// references.
type Match func(gen.Binding, gen.Multiplicity) bool

// NewSelector returns a selector applying m to references and soft references.
func NewSelector(op mojen.Op, method string, threads bool, m Match) *Selector {
	return &Selector{
		Op:             op,
		Method:         method,
		ThreadsContext: threads,
		Refs: func(p *gen.Prop) bool {
			return m(p.Reference.Binding, p.Reference.Multiplicity)
		},
		Softs: func(s *gen.SoftReference) bool {
			return m(s.Binding, s.Multiplicity)
		},
	}
}

// Cascadable reports whether p can carry a cascade at all: a to-one
// reference with a foreign key or a to-many collection, that does not
// point back at a parent.
func Cascadable(p *gen.Prop) bool {
	ref := p.Reference
	if ref.IsNone() || ref.Axis == gen.AxisToParent {
		return false
	}
	switch {
	case ref.IsToMany():
		return true
	case ref.IsToOne():
		return p.ForeignKey() != nil
	}
	return false
}

// Built-in selectors.
var (
	// AddNested propagates the add of a row into its nested owned rows.
	AddNested = NewSelector(mojen.OpAddNested, "AddNested", false, func(b gen.Binding, _ gen.Multiplicity) bool {
		return b.Has(gen.Nested | gen.Owned)
	})

	// UpdateNested propagates the update of a row into its nested rows,
	// leaving loose lookups alone.
	UpdateNested = NewSelector(mojen.OpUpdateNested, "UpdateNested", false, func(b gen.Binding, _ gen.Multiplicity) bool {
		return b.Has(gen.Nested) && !b.HasAny(gen.Loose)
	})

	// Delete deletes owned rows together with their owner.
	Delete = NewSelector(mojen.OpDelete, "DeleteCascade", true, func(b gen.Binding, _ gen.Multiplicity) bool {
		return b.Has(gen.Owned)
	})

	// SoftDelete marks owned rows, and independent collection items, deleted
	// together with their owner.
	SoftDelete = softSelector(mojen.OpSoftDelete, "SoftDeleteCascade")

	// Restore undoes SoftDelete. It selects exactly the same rows.
	Restore = softSelector(mojen.OpRestore, "RestoreCascade")
)

func softSelector(op mojen.Op, method string) *Selector {
	s := NewSelector(op, method, true, func(b gen.Binding, m gen.Multiplicity) bool {
		return b.Has(gen.Owned) || (m.IsToMany() && b.Has(gen.Independent))
	})
	s.RequireDeletedMarker = true
	return s
}

// Selectors returns the built-in selectors in operation order.
func Selectors() []*Selector {
	return []*Selector{AddNested, UpdateNested, Delete, SoftDelete, Restore}
}

// SelectorFor returns the built-in selector of an operation.
func SelectorFor(op mojen.Op) (*Selector, bool) {
	for _, s := range Selectors() {
		if s.Op == op {
			return s, true
		}
	}
	return nil, false
}
