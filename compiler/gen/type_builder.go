package gen

import "fmt"

// AddProp declares a prop on t.
func (t *Type) AddProp(name string, pt PropType, opts ...PropOption) *Prop {
	p := t.graph.newProp(t, name)
	if err := p.SetType(pt); err != nil {
		t.graph.addErr(err)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddKey declares the key prop of t.
func (t *Type) AddKey(name string, pt PropType, opts ...PropOption) *Prop {
	return t.AddProp(name, pt, append([]PropOption{AsKey(), Required()}, opts...)...)
}

type refSpec struct {
	required      bool
	fkName        string
	backRef       string
	ownedBy       string
	childToParent bool
	hidden        bool
	axis          Axis
	axisSet       bool
	propOpts      []PropOption
}

// RefOption configures a reference on creation.
type RefOption func(*refSpec)

// RefRequired marks the navigation prop and its foreign key as required.
func RefRequired() RefOption {
	return func(s *refSpec) { s.required = true }
}

// WithForeignKeyName sets the name of the foreign key prop of a to-one
// reference. It defaults to the navigation name suffixed with "Id".
func WithForeignKeyName(name string) RefOption {
	return func(s *refSpec) { s.fkName = name }
}

// WithBackReference names the prop of the target type that points back at
// the owner of the reference.
func WithBackReference(name string) RefOption {
	return func(s *refSpec) { s.backRef = name }
}

// ChildToParent marks the reference as pointing back at the owner of t.
// ownedBy optionally names the owning prop of the parent.
func ChildToParent(ownedBy string) RefOption {
	return func(s *refSpec) {
		s.childToParent = true
		s.ownedBy = ownedBy
	}
}

// HiddenCollection marks a to-many reference whose items do not expose a
// foreign key back at the owner.
func HiddenCollection() RefOption {
	return func(s *refSpec) { s.hidden = true }
}

// WithAxis overrides the axis derived from binding and multiplicity.
func WithAxis(a Axis) RefOption {
	return func(s *refSpec) {
		s.axis = a
		s.axisSet = true
	}
}

// WithPropOptions applies prop options to the navigation prop.
func WithPropOptions(opts ...PropOption) RefOption {
	return func(s *refSpec) { s.propOpts = append(s.propOpts, opts...) }
}

// defaultAxis derives the axis of a reference that did not set one.
func (s *refSpec) defaultAxis(b Binding, m Multiplicity) Axis {
	switch {
	case s.axisSet:
		return s.axis
	case s.childToParent:
		return AxisToParent
	case m.IsToMany():
		return AxisToCollectionItem
	case b.HasAny(Owned | Nested):
		return AxisToChild
	default:
		return AxisNone
	}
}

// AddReference declares a reference from t to the given type and returns its
// navigation prop. A to-one reference also declares the foreign key prop;
// its type is resolved from the key of the target on Graph.Build.
func (t *Type) AddReference(name string, to *Type, binding Binding, multiplicity Multiplicity, opts ...RefOption) *Prop {
	var spec refSpec
	for _, opt := range opts {
		opt(&spec)
	}
	if to == nil {
		t.graph.addErr(NewReferenceError(t.Name, "", name, "reference target is nil", nil))
		return t.AddProp(name, PropType{})
	}
	pt := TypeOf(to)
	if multiplicity.IsToMany() {
		pt = CollectionOf(to)
	}
	nav := t.AddProp(name, pt, spec.propOpts...)
	nav.IsNavigation = true
	nav.IsHiddenCollectionNavigationProp = spec.hidden
	ref := &Reference{
		ToType:         to,
		Binding:        binding,
		Multiplicity:   multiplicity,
		Axis:           spec.defaultAxis(binding, multiplicity),
		NavigationProp: nav,
		backRefName:    spec.backRef,
		ownedByName:    spec.ownedBy,
	}
	nav.Reference = ref
	if spec.required {
		Required()(nav)
	}
	if !multiplicity.IsToOne() {
		return nav
	}
	fkName := spec.fkName
	if fkName == "" {
		fkName = name + "Id"
	}
	fk := t.graph.newProp(t, fkName)
	fk.IsForeignKey = true
	ref.ForeignKey = fk
	fk.Reference = ref.Clone()
	if spec.required {
		Required()(fk)
	}
	return nav
}

// AddSoftReference declares a relationship of t to the given type that is
// expressed as a predicate over rows of t. The predicate is derived from
// path when no conditions are given. The reference points at a parent and
// has Owned binding and to-many multiplicity unless changed by the caller.
func (t *Type) AddSoftReference(to *Type, path *FormedNavigationPath, conds ...SoftCondition) *SoftReference {
	t.graph.mustMutable()
	s := &SoftReference{
		Owner:        t,
		ToType:       to,
		Axis:         AxisToParent,
		Binding:      Owned,
		Multiplicity: ToMany,
		Path:         path,
		Conditions:   conds,
	}
	t.SoftReferences = append(t.SoftReferences, s)
	return s
}

// AddUnique declares a uniqueness scope over the given members.
func (t *Type) AddUnique(members ...IndexMember) *UniqueConfig {
	t.graph.mustMutable()
	u := &UniqueConfig{Members: members}
	t.Uniques = append(t.Uniques, u)
	return u
}

// AddIndex declares an index over the given members.
func (t *Type) AddIndex(unique bool, members ...IndexMember) *IndexConfig {
	t.graph.mustMutable()
	idx := &IndexConfig{Is: true, IsUnique: unique, Members: members}
	t.Indexes = append(t.Indexes, idx)
	return idx
}

// Extends sets the base class of t.
func (t *Type) Extends(base *Type) *Type {
	t.graph.mustMutable()
	if base == t || (base != nil && base.Is(t)) {
		t.graph.addErr(NewSchemaError(t.Name, "", fmt.Sprintf("cyclic inheritance through %s", base), nil))
		return t
	}
	t.BaseClass = base
	return t
}

// StoredAs sets the store of a Model, recording an error on failure.
func (t *Type) StoredAs(store *Type) *Type {
	t.graph.mustMutable()
	if err := t.SetStore(store); err != nil {
		t.graph.addErr(err)
	}
	return t
}
