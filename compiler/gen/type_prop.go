package gen

import (
	"fmt"
	"slices"
	"strings"
)

// PropType describes the value type of a property: a primitive, an enum
// or another schema type, with nullability and collection flags.
type PropType struct {
	// Name of the primitive type. Empty for enum and type references.
	Name string
	// Enum is set for enum valued properties.
	Enum *Type
	// Type is set for object valued properties.
	Type *Type

	Nullable   bool
	Collection bool
}

// Primitive property types.
var (
	TypeString   = PropType{Name: "string"}
	TypeInt      = PropType{Name: "int"}
	TypeInt64    = PropType{Name: "int64"}
	TypeBool     = PropType{Name: "bool"}
	TypeDecimal  = PropType{Name: "decimal"}
	TypeDateTime = PropType{Name: "datetime"}
	TypeGuid     = PropType{Name: "guid"}
	TypeBinary   = PropType{Name: "binary"}

	primitives = []PropType{TypeString, TypeInt, TypeInt64, TypeBool, TypeDecimal, TypeDateTime, TypeGuid, TypeBinary}
)

// PrimitiveType returns the primitive type with the given name.
func PrimitiveType(name string) (PropType, bool) {
	for _, p := range primitives {
		if p.Name == name {
			return p, true
		}
	}
	return PropType{}, false
}

// TypeOf returns the property type of a single t value.
func TypeOf(t *Type) PropType {
	if t != nil && t.Kind == Enum {
		return PropType{Enum: t}
	}
	return PropType{Type: t}
}

// CollectionOf returns the property type of a collection of t values.
func CollectionOf(t *Type) PropType {
	pt := TypeOf(t)
	pt.Collection = true
	return pt
}

// AsNullable returns a nullable copy of pt.
func (pt PropType) AsNullable() PropType {
	pt.Nullable = true
	return pt
}

// IsZero reports whether the type was not set.
func (pt PropType) IsZero() bool {
	return pt.Name == "" && pt.Enum == nil && pt.Type == nil
}

// IsPrimitive reports whether pt is a primitive type.
func (pt PropType) IsPrimitive() bool {
	return pt.Name != ""
}

// String implements fmt.Stringer.
func (pt PropType) String() string {
	var s string
	switch {
	case pt.Enum != nil:
		s = pt.Enum.Name
	case pt.Type != nil:
		s = pt.Type.Name
	default:
		s = pt.Name
	}
	if pt.Nullable {
		s += "?"
	}
	if pt.Collection {
		s = "[]" + s
	}
	return s
}

// DeletedMarker classifies properties that carry soft-delete state.
type DeletedMarker uint8

// DeletedMarker values.
const (
	DeletedMarkerNone DeletedMarker = iota
	// DeletedMarkerEffective is the combined state of self and cascade.
	DeletedMarkerEffective
	// DeletedMarkerSelf is set when the row itself was deleted.
	DeletedMarkerSelf
	// DeletedMarkerCascade is set when an owner of the row was deleted.
	DeletedMarkerCascade
)

// String returns the marker name.
func (m DeletedMarker) String() string {
	switch m {
	case DeletedMarkerEffective:
		return "Effective"
	case DeletedMarkerSelf:
		return "Self"
	case DeletedMarkerCascade:
		return "Cascade"
	default:
		return "None"
	}
}

// ParseDeletedMarker parses a marker name, case-insensitively.
func ParseDeletedMarker(s string) (DeletedMarker, error) {
	for m := DeletedMarkerNone; m <= DeletedMarkerCascade; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	if s == "" {
		return DeletedMarkerNone, nil
	}
	return 0, fmt.Errorf("mojen: unknown deleted marker %q", s)
}

// RuleKind is the kind of a property validation rule.
type RuleKind uint8

// Rule kinds.
const (
	RuleRequired RuleKind = iota + 1
	RuleMin
	RuleMax
	RuleLength
	RuleRegex
)

// Rule is a validation rule attached to a property.
type Rule struct {
	Kind    RuleKind
	Value   any
	Message string
}

// DefaultKind is the kind of a default value.
type DefaultKind uint8

// Default value kinds.
const (
	DefaultConst DefaultKind = iota + 1
	DefaultNow
	DefaultNewGuid
	DefaultCurrentTenant
)

// DefaultValue configures the value a property is initialized with.
type DefaultValue struct {
	Kind  DefaultKind
	Value any
}

// Prop is a property of a schema type.
//
// Props are created by the builder methods of Type and are immutable after
// Graph.Build. A prop reached through a navigation path is represented by a
// view: a clone of the canonical prop with FormedNavigationFrom set, cached
// by the graph.
type Prop struct {
	id int
	// base is the canonical prop of a view.
	base *Prop

	// DeclaringType is the type that declares the prop.
	DeclaringType *Type
	Name          string
	Alias         string
	Type          PropType
	// Reference is never nil. Reference.IsNone reports a plain prop.
	Reference     *Reference
	DbAnno        *DbPropAnnotation
	DeletedMarker DeletedMarker
	Default       *DefaultValue
	Rules         []Rule

	IsKey                            bool
	IsTenantKey                      bool
	IsForeignKey                     bool
	IsNavigation                     bool
	IsHiddenCollectionNavigationProp bool

	// New hides a base prop with the same name.
	New      bool
	// Override replaces a Virtual base prop with the same name.
	Override bool
	Virtual  bool
	// Custom props are declared by hand and skipped by generators by default.
	Custom   bool

	// Store is the counterpart of a Model prop on the Model's store type.
	Store *Prop
	// FormedNavigationFrom is the path a view was reached through.
	FormedNavigationFrom *FormedNavigationPath
}

// ID returns the arena id of the canonical prop.
func (p *Prop) ID() int {
	return p.Canonical().id
}

// Canonical returns the prop a view was specialized from, or p itself.
func (p *Prop) Canonical() *Prop {
	if p.base != nil {
		return p.base
	}
	return p
}

// IsView reports whether p is a path specialized view.
func (p *Prop) IsView() bool {
	return p.base != nil
}

// SetType sets the value type of the prop. An Entity prop can never be of
// a Model type.
func (p *Prop) SetType(pt PropType) error {
	if p.DeclaringType != nil && p.DeclaringType.Kind == Entity && pt.Type != nil && pt.Type.Kind == Model {
		return NewSchemaError(p.DeclaringType.Name, p.Name,
			fmt.Sprintf("entity prop cannot be of model type %s", pt.Type.Name), nil)
	}
	p.Type = pt
	return nil
}

// HasRule reports whether the prop carries a rule of the given kind.
func (p *Prop) HasRule(kind RuleKind) bool {
	return slices.ContainsFunc(p.Rules, func(r Rule) bool { return r.Kind == kind })
}

// Required reports whether the prop, or its navigation/foreign key
// counterpart, is required.
func (p *Prop) Required() bool {
	if p.HasRule(RuleRequired) {
		return true
	}
	switch {
	case p.IsNavigation && p.Reference.ForeignKey != nil && p.Reference.ForeignKey != p:
		return p.Reference.ForeignKey.HasRule(RuleRequired)
	case p.IsForeignKey && p.Reference.NavigationProp != nil && p.Reference.NavigationProp != p:
		return p.Reference.NavigationProp.HasRule(RuleRequired)
	}
	return false
}

// Navigation returns the navigation prop of a reference, or nil.
func (p *Prop) Navigation() *Prop {
	switch {
	case p.IsNavigation:
		return p
	case p.IsForeignKey:
		return p.Reference.NavigationProp
	}
	return nil
}

// ForeignKey returns the foreign key prop of a reference, or nil.
func (p *Prop) ForeignKey() *Prop {
	switch {
	case p.IsForeignKey:
		return p
	case p.IsNavigation:
		return p.Reference.ForeignKey
	}
	return nil
}

// ForeignKeyOrSelf returns the foreign key prop of a reference, or p.
func (p *Prop) ForeignKeyOrSelf() *Prop {
	if fk := p.ForeignKey(); fk != nil {
		return fk
	}
	return p
}

// Clone returns a deep copy of the prop. The reference, the db annotation,
// the default value and the rules are copied; pointers at other types and
// canonical props are shared.
func (p *Prop) Clone() *Prop {
	c := *p
	c.Reference = p.Reference.Clone()
	if p.DbAnno != nil {
		c.DbAnno = p.DbAnno.Clone()
		c.DbAnno.Prop = &c
	}
	if p.Default != nil {
		d := *p.Default
		c.Default = &d
	}
	c.Rules = slices.Clone(p.Rules)
	return &c
}

// FormedTargetPath returns the dotted path of the prop as seen from the
// origin of its navigation path, e.g. "BusinessContact.Salutation".
func (p *Prop) FormedTargetPath() string {
	return p.formedPath(p.Name)
}

// GetFormedForeignKeyPath returns the dotted path of the foreign key of the
// prop. It is prefixed with the source path of FormedNavigationFrom when the
// prop was reached indirectly ("BusinessContact.SalutationId"), and is just
// the foreign key name otherwise ("SalutationId").
func (p *Prop) GetFormedForeignKeyPath() string {
	return p.formedPath(p.ForeignKeyOrSelf().Name)
}

func (p *Prop) formedPath(name string) string {
	if p.FormedNavigationFrom.IsEmpty() {
		return name
	}
	return p.FormedNavigationFrom.TargetPath() + "." + name
}

// String implements fmt.Stringer.
func (p *Prop) String() string {
	if p.DeclaringType == nil {
		return p.Name
	}
	return p.DeclaringType.Name + "." + p.Name
}

// PropOption configures a prop on creation.
type PropOption func(*Prop)

// Required adds a required rule.
func Required() PropOption {
	return func(p *Prop) {
		if !p.HasRule(RuleRequired) {
			p.Rules = append(p.Rules, Rule{Kind: RuleRequired})
		}
	}
}

// WithRule adds a validation rule.
func WithRule(r Rule) PropOption {
	return func(p *Prop) { p.Rules = append(p.Rules, r) }
}

// Nullable marks the prop type as nullable.
func Nullable() PropOption {
	return func(p *Prop) { p.Type.Nullable = true }
}

// AsKey marks the prop as the key of its type.
func AsKey() PropOption {
	return func(p *Prop) { p.IsKey = true }
}

// AsTenantKey marks the prop as the tenant discriminator.
func AsTenantKey() PropOption {
	return func(p *Prop) { p.IsTenantKey = true }
}

// AsNew marks the prop as hiding a base prop.
func AsNew() PropOption {
	return func(p *Prop) { p.New = true }
}

// AsOverride marks the prop as overriding a virtual base prop.
func AsOverride() PropOption {
	return func(p *Prop) { p.Override = true }
}

// AsVirtual allows derived types to override the prop.
func AsVirtual() PropOption {
	return func(p *Prop) { p.Virtual = true }
}

// AsCustom marks the prop as hand written.
func AsCustom() PropOption {
	return func(p *Prop) { p.Custom = true }
}

// WithAlias sets the alias of the prop.
func WithAlias(alias string) PropOption {
	return func(p *Prop) { p.Alias = alias }
}

// WithDeletedMarker classifies the prop as soft-delete state.
func WithDeletedMarker(m DeletedMarker) PropOption {
	return func(p *Prop) { p.DeletedMarker = m }
}

// WithDefault sets the default value.
func WithDefault(kind DefaultKind, value any) PropOption {
	return func(p *Prop) { p.Default = &DefaultValue{Kind: kind, Value: value} }
}

// Indexed annotates the prop with an index scoped by the given members.
func Indexed(members ...IndexMember) PropOption {
	return func(p *Prop) {
		p.dbAnno().Index = &IndexConfig{Is: true, Members: members}
	}
}

// Unique annotates the prop with a unique index scoped by the given members.
func Unique(members ...IndexMember) PropOption {
	return func(p *Prop) {
		p.dbAnno().Index = &IndexConfig{Is: true, IsUnique: true, Members: members}
	}
}

// WithSequence annotates the prop with a sequence value generator.
func WithSequence(seq *SequenceConfig) PropOption {
	return func(p *Prop) { p.dbAnno().Sequence = seq }
}

func (p *Prop) dbAnno() *DbPropAnnotation {
	if p.DbAnno == nil {
		p.DbAnno = &DbPropAnnotation{Prop: p}
	}
	return p.DbAnno
}
