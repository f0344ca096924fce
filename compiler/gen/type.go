package gen

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Kind is the kind of a schema type.
type Kind uint8

// Type kinds.
const (
	Entity Kind = iota + 1
	Model
	Complex
	Enum
	Interface
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Entity:
		return "Entity"
	case Model:
		return "Model"
	case Complex:
		return "Complex"
	case Enum:
		return "Enum"
	case Interface:
		return "Interface"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for k := Entity; k <= Interface; k++ {
		if equalFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("mojen: unknown type kind %q", s)
}

// The following types and their exported methods are the schema metamodel
// consumed by the generators.
type (
	// Type is a node of the schema graph: a named element holding props,
	// references to other types and constraints.
	Type struct {
		graph *Graph

		// ID is the identity of the type. Derived from Name unless set.
		ID uuid.UUID
		// Name holds the type name.
		Name        string
		PluralName  string
		DisplayName string
		Kind        Kind
		// BaseClass is the parent in the single inheritance chain.
		BaseClass *Type
		// Store is the Entity a Model is persisted as.
		Store *Type
		// LocalProps holds the props declared by this type, in order.
		LocalProps []*Prop
		// SoftReferences are relationships expressed as filter predicates.
		SoftReferences []*SoftReference
		Uniques        []*UniqueConfig
		Indexes        []*IndexConfig
		Interfaces     []string
		Pick           *PickConfig
		IsAbstract     bool
		// EnumValues holds the values of an Enum type.
		EnumValues []string

		// table is the layered prop table, root ancestor first.
		table []propEntry
	}

	// PickConfig selects the props used when a row of the type is picked
	// from a list: the displayed value and the key that is stored.
	PickConfig struct {
		DisplayProp string
		KeyProp     string
	}

	// Pick is a resolved PickConfig.
	Pick struct {
		Type    *Type
		Display *Prop
		Key     *Prop
	}

	propEntry struct {
		prop *Prop
		// hidden entries were replaced by a New or Override prop.
		hidden bool
	}
)

// Is reports whether t is o or derives from it.
func (t *Type) Is(o *Type) bool {
	for c := t; c != nil; c = c.BaseClass {
		if c == o {
			return true
		}
	}
	return false
}

// Ancestors returns the inheritance chain, root ancestor first and t last.
func (t *Type) Ancestors() []*Type {
	var chain []*Type
	seen := make(map[*Type]bool)
	for c := t; c != nil && !seen[c]; c = c.BaseClass {
		seen[c] = true
		chain = append(chain, c)
	}
	slices.Reverse(chain)
	return chain
}

// SetStore sets the Entity a Model is persisted as.
func (t *Type) SetStore(store *Type) error {
	if t.Kind != Model {
		return NewSchemaError(t.Name, "", fmt.Sprintf("only models have a store, not %s", t.Kind), nil)
	}
	if store == nil || store.Kind != Entity {
		return NewSchemaError(t.Name, "", "store must be an entity", nil)
	}
	t.Store = store
	return nil
}

// layer computes the layered prop table from the root ancestor down to t.
// Errors are returned as a list instead of stopping at the first conflict.
func (t *Type) layer() ([]propEntry, []error) {
	var (
		table []propEntry
		errs  []error
		index = make(map[string]int)
	)
	for _, c := range t.Ancestors() {
		local := make(map[string]bool)
		for _, p := range c.LocalProps {
			if local[p.Name] {
				errs = append(errs, NewSchemaError(c.Name, p.Name, "prop declared twice", nil))
				continue
			}
			local[p.Name] = true
			i, ok := index[p.Name]
			if ok {
				base := table[i].prop
				switch {
				case p.New:
				case p.Override && base.Virtual:
				case p.Override:
					errs = append(errs, NewSchemaError(c.Name, p.Name,
						fmt.Sprintf("override of non-virtual prop %s", base), nil))
				default:
					errs = append(errs, NewSchemaError(c.Name, p.Name,
						fmt.Sprintf("prop hides %s without New or Override", base), nil))
				}
				table[i].hidden = true
			}
			index[p.Name] = len(table)
			table = append(table, propEntry{prop: p})
		}
	}
	return table, errs
}

func (t *Type) entries() []propEntry {
	if t.table != nil {
		return t.table
	}
	table, _ := t.layer()
	return table
}

// GetProps returns the props of t and its ancestors, root ancestor first.
// Custom props are skipped unless custom is set. Props hidden by a New or
// Override prop are kept in front of their replacement if overridden is set.
func (t *Type) GetProps(custom, overridden bool) []*Prop {
	var props []*Prop
	for _, e := range t.entries() {
		if e.hidden && !overridden {
			continue
		}
		if e.prop.Custom && !custom {
			continue
		}
		props = append(props, e.prop)
	}
	return props
}

// Props returns all effective props, custom ones included.
func (t *Type) Props() []*Prop {
	return t.GetProps(true, false)
}

// FindProp returns the effective prop with the given name, or nil.
func (t *Type) FindProp(name string) *Prop {
	for _, e := range t.entries() {
		if !e.hidden && e.prop.Name == name {
			return e.prop
		}
	}
	return nil
}

// GetProp returns the effective prop with the given name.
func (t *Type) GetProp(name string) (*Prop, error) {
	if p := t.FindProp(name); p != nil {
		return p, nil
	}
	return nil, &NotFoundError{Kind: "prop", Name: name, Owner: t.Name}
}

// MustGetProp is like GetProp but panics if the prop does not exist.
func (t *Type) MustGetProp(name string) *Prop {
	p, err := t.GetProp(name)
	if err != nil {
		panic(err)
	}
	return p
}

// GetReferenceProps returns the reference props matching all given binding
// and multiplicity flags. Zero values match any reference. A foreign key is
// left out when its navigation prop is part of the result.
func (t *Type) GetReferenceProps(binding Binding, multiplicity Multiplicity) []*Prop {
	return t.referenceProps(func(p *Prop) bool {
		ref := p.Reference
		if binding != 0 && !ref.Binding.Has(binding) {
			return false
		}
		return multiplicity == 0 || ref.Multiplicity.Has(multiplicity)
	})
}

// referenceProps returns the reference props accepted by fn, preferring a
// navigation prop over its foreign key.
func (t *Type) referenceProps(fn func(*Prop) bool) []*Prop {
	var (
		props []*Prop
		navs  = make(map[*Prop]bool)
	)
	for _, p := range t.GetProps(true, false) {
		if p.Reference.IsNone() || !fn(p) {
			continue
		}
		props = append(props, p)
		if p.IsNavigation {
			navs[p] = true
		}
	}
	return slices.DeleteFunc(props, func(p *Prop) bool {
		return p.IsForeignKey && p.Reference.NavigationProp != nil && navs[p.Reference.NavigationProp]
	})
}

// GetKey returns the key prop, or nil.
func (t *Type) GetKey() *Prop {
	for _, p := range t.GetProps(true, false) {
		if p.IsKey {
			return p
		}
	}
	if t.Store != nil && t.Store != t {
		return t.Store.GetKey()
	}
	return nil
}

// FindTenantKey returns the tenant discriminator prop, or nil.
func (t *Type) FindTenantKey() *Prop {
	for _, p := range t.GetProps(true, false) {
		if p.IsTenantKey {
			return p
		}
	}
	return nil
}

// IsTenant reports whether rows of t are scoped by a tenant.
func (t *Type) IsTenant() bool {
	return t.FindTenantKey() != nil
}

// FindDeletedMarker returns the first prop classified with the given
// marker. DeletedMarkerNone matches any marker.
func (t *Type) FindDeletedMarker(kind DeletedMarker) *Prop {
	for _, p := range t.GetProps(true, false) {
		if p.DeletedMarker == DeletedMarkerNone {
			continue
		}
		if kind == DeletedMarkerNone || p.DeletedMarker == kind {
			return p
		}
	}
	return nil
}

// FindPick returns the pick configuration of t or its closest ancestor.
// Without configuration it falls back to a "DisplayName" or "Name" prop and
// the key of t. It returns nil if no display prop is found.
func (t *Type) FindPick() *Pick {
	for c := t; c != nil; c = c.BaseClass {
		if c.Pick == nil {
			continue
		}
		pick := &Pick{Type: t, Display: t.FindProp(c.Pick.DisplayProp), Key: t.GetKey()}
		if c.Pick.KeyProp != "" {
			pick.Key = t.FindProp(c.Pick.KeyProp)
		}
		if pick.Display == nil {
			return nil
		}
		return pick
	}
	for _, name := range []string{"DisplayName", "Name"} {
		if p := t.FindProp(name); p != nil && p.Reference.IsNone() {
			return &Pick{Type: t, Display: p, Key: t.GetKey()}
		}
	}
	return nil
}

// GetIndexProps returns the props annotated with an index.
func (t *Type) GetIndexProps() []*Prop {
	var props []*Prop
	for _, p := range t.GetProps(true, false) {
		if p.DbAnno != nil && p.DbAnno.Index != nil && p.DbAnno.Index.Is {
			props = append(props, p)
		}
	}
	return props
}

// FindReferenceWithForeignKey returns the to-one navigation prop of t whose
// foreign key points at to, at the store of to, or at a type stored as to.
// If no or more than one such prop exists, an error is returned when required
// is set and nil otherwise.
func (t *Type) FindReferenceWithForeignKey(to *Type, required bool) (*Prop, error) {
	var found []*Prop
	for _, p := range t.GetProps(true, false) {
		ref := p.Reference
		if !p.IsNavigation || !ref.IsToOne() || ref.ForeignKey == nil {
			continue
		}
		if ref.ToType == to || (to.Store != nil && ref.ToType == to.Store) || (ref.ToType.Store != nil && ref.ToType.Store == to) {
			found = append(found, p)
		}
	}
	switch {
	case len(found) == 1:
		return found[0], nil
	case !required:
		return nil, nil
	case len(found) == 0:
		return nil, NewReferenceError(t.Name, to.Name, "", "no reference with foreign key", nil)
	default:
		names := make([]string, len(found))
		for i, p := range found {
			names[i] = p.Name
		}
		return nil, NewReferenceError(t.Name, to.Name, "",
			fmt.Sprintf("ambiguous reference with foreign key: %v", names), nil)
	}
}

// GetOwnedByRefProps returns the back-references of t that are linked to
// the owning prop of their parent.
func (t *Type) GetOwnedByRefProps() []*Prop {
	return t.referenceProps(func(p *Prop) bool {
		return p.Reference.OwnedByProp != nil
	})
}

// GetBackReferenceProps returns all back-references of t.
func (t *Type) GetBackReferenceProps() []*Prop {
	return t.referenceProps(func(p *Prop) bool {
		return p.Reference.IsChildToParent()
	})
}

// GetBackReferencePropsTo returns the back-references of t pointing at to
// or at an ancestor of to.
func (t *Type) GetBackReferencePropsTo(to *Type) []*Prop {
	return t.referenceProps(func(p *Prop) bool {
		return p.Reference.IsChildToParent() && to.Is(p.Reference.ToType)
	})
}

// String implements fmt.Stringer.
func (t *Type) String() string {
	return t.Name
}
