package gen

import (
	"fmt"
	"slices"
)

// IndexMemberKind is the role of a member of an index or unique config.
type IndexMemberKind uint8

// Index member kinds.
const (
	// IndexMemberIndex is a regular member of the index.
	IndexMemberIndex IndexMemberKind = iota
	// IndexMemberTenant is the tenant discriminator member.
	IndexMemberTenant
	// IndexMemberStartSelector selects the start bound of a sequence.
	IndexMemberStartSelector
	// IndexMemberEndSelector selects the end bound of a sequence.
	IndexMemberEndSelector
)

// String returns the kind name.
func (k IndexMemberKind) String() string {
	switch k {
	case IndexMemberTenant:
		return "Tenant"
	case IndexMemberStartSelector:
		return "StartSelector"
	case IndexMemberEndSelector:
		return "EndSelector"
	default:
		return "Index"
	}
}

// IsIndex reports whether the member takes part in the index itself.
func (k IndexMemberKind) IsIndex() bool {
	return k == IndexMemberIndex || k == IndexMemberTenant
}

// IndexMember is a member of an index or unique config. Prop is resolved
// from the member name on Graph.Build.
type IndexMember struct {
	Kind IndexMemberKind
	Prop *Prop

	name string
}

// Name returns the member prop name.
func (m IndexMember) Name() string {
	if m.Prop != nil {
		return m.Prop.Name
	}
	return m.name
}

// Member returns a regular index member.
func Member(name string) IndexMember {
	return IndexMember{Kind: IndexMemberIndex, name: name}
}

// TenantMember returns the tenant discriminator member.
func TenantMember(name string) IndexMember {
	return IndexMember{Kind: IndexMemberTenant, name: name}
}

// StartSelectorMember returns a member selecting a sequence start bound.
func StartSelectorMember(name string) IndexMember {
	return IndexMember{Kind: IndexMemberStartSelector, name: name}
}

// EndSelectorMember returns a member selecting a sequence end bound.
func EndSelectorMember(name string) IndexMember {
	return IndexMember{Kind: IndexMemberEndSelector, name: name}
}

func indexMembers(members []IndexMember) []IndexMember {
	var out []IndexMember
	for _, m := range members {
		if m.Kind.IsIndex() {
			out = append(out, m)
		}
	}
	return out
}

// IndexConfig is an ordered index over the members and the annotated prop.
type IndexConfig struct {
	Is           bool
	IsUnique     bool
	Members      []IndexMember
	ErrorMessage string
}

// GetMembers returns the index and tenant members, skipping sequence
// bound selectors.
func (c *IndexConfig) GetMembers() []IndexMember {
	if c == nil {
		return nil
	}
	return indexMembers(c.Members)
}

func (c *IndexConfig) clone() *IndexConfig {
	if c == nil {
		return nil
	}
	cc := *c
	cc.Members = slices.Clone(c.Members)
	return &cc
}

// UniqueConfig is a set of props that jointly scope a uniqueness check.
type UniqueConfig struct {
	Members      []IndexMember
	ErrorMessage string
}

// GetMembers returns the index and tenant members, skipping sequence
// bound selectors.
func (c *UniqueConfig) GetMembers() []IndexMember {
	return indexMembers(c.Members)
}

// GetParams returns the de-duplicated props scoping the uniqueness check.
// The tenant member is left out unless includeTenant is set.
func (c *UniqueConfig) GetParams(includeTenant bool) []*Prop {
	var (
		params []*Prop
		seen   = make(map[*Prop]bool)
	)
	for _, m := range c.GetMembers() {
		if m.Prop == nil || seen[m.Prop] {
			continue
		}
		if m.Kind == IndexMemberTenant && !includeTenant {
			continue
		}
		seen[m.Prop] = true
		params = append(params, m.Prop)
	}
	return params
}

// DbPropAnnotation holds the storage annotations of an Entity prop.
type DbPropAnnotation struct {
	Prop     *Prop
	Index    *IndexConfig
	Sequence *SequenceConfig
}

// Clone returns a copy of the annotation with its own member slices.
func (a *DbPropAnnotation) Clone() *DbPropAnnotation {
	c := *a
	c.Index = a.Index.clone()
	if a.Sequence != nil {
		s := *a.Sequence
		s.Scope = slices.Clone(a.Sequence.Scope)
		c.Sequence = &s
	}
	return &c
}

// GetIndexMembers returns the members of the index followed by the
// annotated prop itself.
func (a *DbPropAnnotation) GetIndexMembers() []IndexMember {
	members := a.Index.GetMembers()
	out := make([]IndexMember, 0, len(members)+1)
	for _, m := range members {
		if m.Prop != nil && m.Prop.Canonical() == a.Prop.Canonical() {
			continue
		}
		out = append(out, m)
	}
	return append(out, IndexMember{Kind: IndexMemberIndex, Prop: a.Prop})
}

// GetIndexMemberIndex returns the ordinal of p within the index. The
// annotated prop is always last, regardless of registration order.
func (a *DbPropAnnotation) GetIndexMemberIndex(p *Prop) (int, error) {
	for i, m := range a.GetIndexMembers() {
		if m.Prop != nil && m.Prop.Canonical() == p.Canonical() {
			return i, nil
		}
	}
	return -1, &NotFoundError{Kind: "index member", Name: p.Name, Owner: a.Prop.String()}
}

// SequenceConfig describes a sequence value generator.
type SequenceConfig struct {
	Name      string
	Start     int64
	End       int64
	Increment int64
	Min       int64
	Max       int64
	PerTenant bool
	// Scope holds the props the sequence is numbered per.
	Scope []*Prop
	// StartSelector and EndSelector navigate, from the annotated type, to
	// the prop holding the start and end bound of the sequence.
	StartSelector *FormedNavigationPath
	EndSelector   *FormedNavigationPath
}

// SequenceBound is a resolved sequence bound: the value at ValuePath of
// the row referenced by ForeignKey.
type SequenceBound struct {
	// ForeignKey is the foreign key of the root step of the path.
	ForeignKey *Prop
	Path       *FormedNavigationPath
	// ValuePath is the dotted path of the bound, relative to the annotated row.
	ValuePath string
}

// Bound resolves the start (end=false) or end (end=true) bound selector.
// It returns nil if the selector is not set. A selector without steps, or
// whose root step is not a foreign key reference, is an error.
func (c *SequenceConfig) Bound(end bool) (*SequenceBound, error) {
	sel, which := c.StartSelector, "start"
	if end {
		sel, which = c.EndSelector, "end"
	}
	if sel == nil {
		return nil, nil
	}
	if sel.IsEmpty() {
		return nil, NewValidationError("", c.Name, fmt.Sprintf("sequence %s bound path has no steps", which))
	}
	root := sel.Root()
	fk := root.SourceProp.ForeignKey()
	if fk == nil || !root.SourceProp.Reference.IsToOne() {
		return nil, NewValidationError(root.SourceType.Name, root.SourceProp.Name,
			fmt.Sprintf("sequence %s bound path must start at a to-one foreign key", which))
	}
	value := sel.TargetPath()
	if last := sel.Last(); last.TargetProp != nil {
		value += "." + last.TargetProp.Name
	}
	return &SequenceBound{ForeignKey: fk, Path: sel, ValuePath: value}, nil
}
