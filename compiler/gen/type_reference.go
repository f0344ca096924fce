package gen

import (
	"fmt"
	"strings"
)

// Binding describes the lifetime and ownership semantics of a reference.
// The flags are independent axes and may be combined, e.g. Nested|Owned
// for an inline object that is deleted together with its owner.
type Binding uint8

// Binding flags.
const (
	// Nested references are serialized inline with the owning row.
	Nested Binding = 1 << iota
	// Owned references share the lifetime of the owning row.
	Owned
	// Independent references have their own lifetime (e.g. many-to-many).
	Independent
	// Loose references are plain lookups without lifecycle implication.
	Loose
	// Associated references link rows without a foreign key of their own.
	Associated

	// BindingNone is the zero value.
	BindingNone Binding = 0
)

var bindingNames = []struct {
	flag Binding
	name string
}{
	{Nested, "Nested"},
	{Owned, "Owned"},
	{Independent, "Independent"},
	{Loose, "Loose"},
	{Associated, "Associated"},
}

// Has reports whether all bits of f are set in b.
// Has(BindingNone) is false, so the zero value never matches a filter.
func (b Binding) Has(f Binding) bool {
	return f != 0 && b&f == f
}

// HasAny reports whether any bit of f is set in b.
func (b Binding) HasAny(f Binding) bool {
	return b&f != 0
}

// String returns the flags joined with "|", or "None".
func (b Binding) String() string {
	if b == 0 {
		return "None"
	}
	var parts []string
	for _, n := range bindingNames {
		if b&n.flag != 0 {
			parts = append(parts, n.name)
			b &^= n.flag
		}
	}
	if b != 0 {
		parts = append(parts, fmt.Sprintf("Binding(%#x)", uint8(b)))
	}
	return strings.Join(parts, "|")
}

// ParseBinding parses a "|" or "," separated list of binding names.
func ParseBinding(s string) (Binding, error) {
	var b Binding
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(part)
		if part == "" || strings.EqualFold(part, "none") {
			continue
		}
		found := false
		for _, n := range bindingNames {
			if strings.EqualFold(part, n.name) {
				b |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("mojen: unknown binding %q", part)
		}
	}
	return b, nil
}

// Multiplicity is the cardinality of a reference.
type Multiplicity uint8

// Multiplicity flags.
const (
	ToZero Multiplicity = 1 << iota
	ToOne
	ToMany

	// ToOneOrZero is an optional to-one reference.
	ToOneOrZero = ToOne | ToZero
	// ToZeroOrMany is a to-many reference that may be empty.
	ToZeroOrMany = ToMany | ToZero

	// MultiplicityNone is the zero value.
	MultiplicityNone Multiplicity = 0
)

// Has reports whether all bits of f are set in m.
func (m Multiplicity) Has(f Multiplicity) bool {
	return f != 0 && m&f == f
}

// HasAny reports whether any bit of f is set in m.
func (m Multiplicity) HasAny(f Multiplicity) bool {
	return m&f != 0
}

// IsToOne reports whether m denotes a single row.
func (m Multiplicity) IsToOne() bool {
	return m.Has(ToOne) && !m.Has(ToMany)
}

// IsToMany reports whether m denotes a collection.
func (m Multiplicity) IsToMany() bool {
	return m.Has(ToMany)
}

// String returns the flags joined with "|", or "None".
func (m Multiplicity) String() string {
	if m == 0 {
		return "None"
	}
	var parts []string
	if m.Has(ToZero) {
		parts = append(parts, "Zero")
	}
	if m.Has(ToOne) {
		parts = append(parts, "One")
	}
	if m.Has(ToMany) {
		parts = append(parts, "Many")
	}
	if rest := m &^ (ToZero | ToOne | ToMany); rest != 0 {
		parts = append(parts, fmt.Sprintf("Multiplicity(%#x)", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseMultiplicity parses "one", "zero-or-one", "many", "zero-or-many"
// or a "|" separated list of "zero", "one" and "many".
func ParseMultiplicity(s string) (Multiplicity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one-or-zero", "zero-or-one", "optional":
		return ToOneOrZero, nil
	case "zero-or-many":
		return ToZeroOrMany, nil
	}
	var m Multiplicity
	for _, part := range strings.Split(s, "|") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "zero":
			m |= ToZero
		case "one":
			m |= ToOne
		case "many":
			m |= ToMany
		case "", "none":
		default:
			return 0, fmt.Errorf("mojen: unknown multiplicity %q", part)
		}
	}
	return m, nil
}

// Axis classifies the direction of a reference within an ownership tree.
type Axis uint8

// Axis values.
const (
	AxisNone Axis = iota
	// AxisToChild points from an owner at an owned row.
	AxisToChild
	// AxisToParent points from an owned row back at its owner.
	AxisToParent
	// AxisToCollectionItem points from an owner at the items of a collection.
	AxisToCollectionItem
)

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case AxisToChild:
		return "ToChild"
	case AxisToParent:
		return "ToParent"
	case AxisToCollectionItem:
		return "ToCollectionItem"
	default:
		return "None"
	}
}

// ParseAxis parses an axis name, case-insensitively. The empty string is AxisNone.
func ParseAxis(s string) (Axis, error) {
	for a := AxisNone; a <= AxisToCollectionItem; a++ {
		if equalFold(s, a.String()) {
			return a, nil
		}
	}
	if s == "" {
		return AxisNone, nil
	}
	return 0, fmt.Errorf("mojen: unknown axis %q", s)
}

// Reference describes the relationship of a property to another type.
// Every property carries one; IsNone reports a property without relationship.
type Reference struct {
	// ToType is the referenced type.
	ToType *Type
	// Binding holds the ownership flags.
	Binding Binding
	// Multiplicity holds the cardinality flags.
	Multiplicity Multiplicity
	// Axis is the direction within an ownership tree.
	Axis Axis

	// ForeignKey is the scalar property carrying the key. It is nil for
	// collections and navigation-only views.
	ForeignKey *Prop
	// NavigationProp is the object valued counterpart of ForeignKey.
	NavigationProp *Prop
	// ChildToParentProp is, on an owning reference, the back-reference
	// of the child that points at the owner.
	ChildToParentProp *Prop
	// OwnedByProp is, on a back-reference, the owning property of the parent.
	OwnedByProp *Prop

	// names resolved at Build.
	backRefName string
	ownedByName string
}

// IsNone reports whether the reference is absent.
func (r *Reference) IsNone() bool {
	return r == nil || r.ToType == nil
}

// IsToOne reports whether the reference points at a single row.
func (r *Reference) IsToOne() bool {
	return !r.IsNone() && r.Multiplicity.IsToOne()
}

// IsToMany reports whether the reference points at a collection.
func (r *Reference) IsToMany() bool {
	return !r.IsNone() && r.Multiplicity.IsToMany()
}

// IsChildToParent reports whether the reference is a back-reference.
func (r *Reference) IsChildToParent() bool {
	return !r.IsNone() && r.Axis == AxisToParent
}

// Is reports whether the reference has all the given binding flags.
func (r *Reference) Is(b Binding) bool {
	return !r.IsNone() && r.Binding.Has(b)
}

// Clone returns a shallow copy of the reference. The property pointers are
// shared; they point at canonical properties, never at views.
func (r *Reference) Clone() *Reference {
	if r == nil {
		return &Reference{}
	}
	c := *r
	return &c
}

// String implements fmt.Stringer.
func (r *Reference) String() string {
	if r.IsNone() {
		return "None"
	}
	return fmt.Sprintf("%s(%s, %s, %s)", r.ToType.Name, r.Binding, r.Multiplicity, r.Axis)
}

// SoftCondition is the equality between a (dotted) path on the child row
// and a property of the parent row.
type SoftCondition struct {
	ChildPath  string
	ParentProp string
}

// SoftReference is a relationship that is not backed by a foreign key of
// the declaring type. It is expressed as a filter predicate over the rows
// of Owner, optionally reached through Path.
type SoftReference struct {
	// Owner is the declaring type whose rows are filtered.
	Owner *Type
	// ToType is the related type.
	ToType       *Type
	Axis         Axis
	Binding      Binding
	Multiplicity Multiplicity
	// Path navigates from Owner to the row that carries the key of ToType.
	Path *FormedNavigationPath
	// Conditions of the predicate. Derived from Path when empty.
	Conditions []SoftCondition
	// Expr is an opaque predicate for external generators.
	Expr string
}

// Predicate returns the conditions of the soft reference. When none were
// declared, the condition is derived from Path: the formed foreign key
// path of its last step equals the key of ToType.
func (s *SoftReference) Predicate() []SoftCondition {
	if len(s.Conditions) > 0 {
		return s.Conditions
	}
	if s.Path.IsEmpty() {
		return nil
	}
	last := s.Path.Last()
	fk := last.SourceProp.ForeignKeyOrSelf()
	child := fk.Name
	if s.Path.Len() > 1 {
		child = s.Path.Prefix(s.Path.Len()-1).TargetPath() + "." + fk.Name
	}
	parent := "Id"
	if s.ToType != nil {
		if key := s.ToType.GetKey(); key != nil {
			parent = key.Name
		}
	}
	return []SoftCondition{{ChildPath: child, ParentProp: parent}}
}
