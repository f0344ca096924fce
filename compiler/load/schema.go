// Package load reads declarative schema descriptors and builds the schema
// graph from them.
package load

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the root of a descriptor file.
type Document struct {
	Types []*Schema `json:"types" yaml:"types"`
}

// Schema describes a single schema type.
type Schema struct {
	Name string `json:"name" yaml:"name"`
	// Kind is one of Entity, Model, Complex, Enum or Interface. Defaults to Entity.
	Kind        string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	PluralName  string   `json:"plural,omitempty" yaml:"plural,omitempty"`
	DisplayName string   `json:"display,omitempty" yaml:"display,omitempty"`
	Base        string   `json:"base,omitempty" yaml:"base,omitempty"`
	Store       string   `json:"store,omitempty" yaml:"store,omitempty"`
	Abstract    bool     `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Interfaces  []string `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	// Values holds the values of an Enum.
	Values         []string         `json:"values,omitempty" yaml:"values,omitempty"`
	Pick           *Pick            `json:"pick,omitempty" yaml:"pick,omitempty"`
	Props          []*Prop          `json:"props,omitempty" yaml:"props,omitempty"`
	References     []*Reference     `json:"references,omitempty" yaml:"references,omitempty"`
	SoftReferences []*SoftReference `json:"soft_references,omitempty" yaml:"soft_references,omitempty"`
	Uniques        []*Index         `json:"uniques,omitempty" yaml:"uniques,omitempty"`
	Indexes        []*Index         `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Pick names the displayed and the stored prop of a picked row.
type Pick struct {
	Display string `json:"display" yaml:"display"`
	Key     string `json:"key" yaml:"key"`
}

// Prop describes a plain prop.
type Prop struct {
	Name string `json:"name" yaml:"name"`
	// Type is a primitive or a type name. A "?" suffix marks it nullable
	// and a "[]" prefix a collection.
	Type          string    `json:"type" yaml:"type"`
	Alias         string    `json:"alias,omitempty" yaml:"alias,omitempty"`
	Required      bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Key           bool      `json:"key,omitempty" yaml:"key,omitempty"`
	TenantKey     bool      `json:"tenant_key,omitempty" yaml:"tenant_key,omitempty"`
	New           bool      `json:"new,omitempty" yaml:"new,omitempty"`
	Override      bool      `json:"override,omitempty" yaml:"override,omitempty"`
	Virtual       bool      `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	Custom        bool      `json:"custom,omitempty" yaml:"custom,omitempty"`
	DeletedMarker string    `json:"deleted_marker,omitempty" yaml:"deleted_marker,omitempty"`
	Default       *Default  `json:"default,omitempty" yaml:"default,omitempty"`
	Index         *Index    `json:"index,omitempty" yaml:"index,omitempty"`
	Sequence      *Sequence `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Rules         []*Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Default is the default value of a prop. Kind is one of const, now,
// new_guid or current_tenant.
type Default struct {
	Kind  string `json:"kind" yaml:"kind"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Rule is a validation rule. Kind is one of required, min, max, length or regex.
type Rule struct {
	Kind    string `json:"kind" yaml:"kind"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Reference describes a reference prop.
type Reference struct {
	Name string `json:"name" yaml:"name"`
	To   string `json:"to" yaml:"to"`
	// Binding is a "|" separated list of binding flags.
	Binding      string `json:"binding" yaml:"binding"`
	Multiplicity string `json:"multiplicity" yaml:"multiplicity"`
	Required     bool   `json:"required,omitempty" yaml:"required,omitempty"`
	// ForeignKey overrides the foreign key name of a to-one reference.
	ForeignKey    string `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	BackReference string `json:"back_reference,omitempty" yaml:"back_reference,omitempty"`
	// Parent marks the reference as pointing back at the owner of the type.
	Parent  bool   `json:"parent,omitempty" yaml:"parent,omitempty"`
	OwnedBy string `json:"owned_by,omitempty" yaml:"owned_by,omitempty"`
	Hidden  bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Axis    string `json:"axis,omitempty" yaml:"axis,omitempty"`
}

// SoftReference describes a relationship expressed as a predicate.
type SoftReference struct {
	To string `json:"to" yaml:"to"`
	// Path holds the navigation names from the declaring type.
	Path       []string     `json:"path,omitempty" yaml:"path,omitempty"`
	Conditions []*Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Expr       string       `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// Condition equates a child path and a parent prop.
type Condition struct {
	Child  string `json:"child" yaml:"child"`
	Parent string `json:"parent" yaml:"parent"`
}

// Index describes an index or a uniqueness scope.
type Index struct {
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	Members []Member `json:"members,omitempty" yaml:"members,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Member is a member of an index. Kind is one of index, tenant,
// start_selector or end_selector and defaults to index. A member may be
// written as a plain prop name.
type Member struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler for Member.
func (m *Member) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*m = Member{Name: node.Value}
		return nil
	case yaml.MappingNode:
		type plain Member
		return node.Decode((*plain)(m))
	default:
		return fmt.Errorf("member: expected name or mapping, got %v", node.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Member.
func (m *Member) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*m = Member{Name: name}
		return nil
	}
	type plain Member
	return json.Unmarshal(b, (*plain)(m))
}

// Sequence describes a sequence value generator. The selectors are dotted
// paths from the declaring type, ending at the bound prop.
type Sequence struct {
	Name          string   `json:"name" yaml:"name"`
	Start         int64    `json:"start,omitempty" yaml:"start,omitempty"`
	End           int64    `json:"end,omitempty" yaml:"end,omitempty"`
	Increment     int64    `json:"increment,omitempty" yaml:"increment,omitempty"`
	Min           int64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max           int64    `json:"max,omitempty" yaml:"max,omitempty"`
	PerTenant     bool     `json:"per_tenant,omitempty" yaml:"per_tenant,omitempty"`
	Scope         []string `json:"scope,omitempty" yaml:"scope,omitempty"`
	StartSelector string   `json:"start_selector,omitempty" yaml:"start_selector,omitempty"`
	EndSelector   string   `json:"end_selector,omitempty" yaml:"end_selector,omitempty"`
}
