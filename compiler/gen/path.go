package gen

import (
	"fmt"
	"slices"
	"strings"
)

// Step is a single navigation from a prop of SourceType to TargetType.
// TargetProp is the prop the path continues with on TargetType, or the
// final prop of the path.
type Step struct {
	SourceType *Type
	SourceProp *Prop
	TargetType *Type
	TargetProp *Prop
}

func (s Step) key() string {
	return s.SourceType.Name + "." + s.SourceProp.Name
}

// FormedNavigationPath is an immutable chain of navigations from an origin
// type to a prop several hops away. The nil value is the empty path.
type FormedNavigationPath struct {
	steps []Step

	targetPath string
	names      []string
	key        string
}

// NewPath returns a path of the given steps. Steps must be contiguous.
func NewPath(steps ...Step) (*FormedNavigationPath, error) {
	var p *FormedNavigationPath
	for _, s := range steps {
		next, err := p.Via(s.SourceType, s.SourceProp)
		if err != nil {
			return nil, err
		}
		p = next
	}
	if len(steps) > 0 {
		if last := steps[len(steps)-1].TargetProp; last != nil {
			p = p.WithTarget(last)
		}
	}
	return p.orEmpty(), nil
}

// PathFrom resolves a path by walking the named reference props from t.
func PathFrom(t *Type, names ...string) (*FormedNavigationPath, error) {
	var p *FormedNavigationPath
	cur := t
	for _, name := range names {
		prop, err := cur.GetProp(name)
		if err != nil {
			return nil, err
		}
		if p, err = p.Via(cur, prop); err != nil {
			return nil, err
		}
		cur = prop.Reference.ToType
	}
	return p.orEmpty(), nil
}

func (p *FormedNavigationPath) orEmpty() *FormedNavigationPath {
	if p == nil {
		return &FormedNavigationPath{}
	}
	return p
}

// Via returns the path extended by navigating prop of t. The prop must be
// a reference declared on t or one of its ancestors, and t must be the
// target of the current last step.
func (p *FormedNavigationPath) Via(t *Type, prop *Prop) (*FormedNavigationPath, error) {
	if t == nil || prop == nil {
		return nil, NewReferenceError("", "", "", "navigation step needs a type and a prop", nil)
	}
	if prop.Reference.IsNone() {
		return nil, NewReferenceError(t.Name, "", prop.Name, "prop is not a reference", nil)
	}
	if prop.DeclaringType != nil && !t.Is(prop.DeclaringType) {
		return nil, NewReferenceError(t.Name, prop.Reference.ToType.Name, prop.Name,
			fmt.Sprintf("prop is declared on %s", prop.DeclaringType.Name), nil)
	}
	steps := p.Steps()
	if n := len(steps); n > 0 {
		if steps[n-1].TargetType != t {
			return nil, NewReferenceError(t.Name, "", prop.Name,
				fmt.Sprintf("step does not continue from %s", steps[n-1].TargetType.Name), nil)
		}
		steps[n-1].TargetProp = prop.Canonical()
	}
	steps = append(steps, Step{
		SourceType: t,
		SourceProp: prop.Canonical(),
		TargetType: prop.Reference.ToType,
	})
	return build(steps), nil
}

// ViaPath returns the path extended by all steps of o.
func (p *FormedNavigationPath) ViaPath(o *FormedNavigationPath) (*FormedNavigationPath, error) {
	cur := p
	for i, s := range o.Steps() {
		next, err := cur.Via(s.SourceType, s.SourceProp)
		if err != nil {
			return nil, err
		}
		cur = next
		if i == o.Len()-1 && s.TargetProp != nil {
			cur = cur.WithTarget(s.TargetProp)
		}
	}
	return cur.orEmpty(), nil
}

// WithTarget returns the path with the final prop of its last step set.
func (p *FormedNavigationPath) WithTarget(prop *Prop) *FormedNavigationPath {
	steps := p.Steps()
	if len(steps) == 0 {
		return p.orEmpty()
	}
	steps[len(steps)-1].TargetProp = prop.Canonical()
	return build(steps)
}

// Prefix returns the path of the first n steps.
func (p *FormedNavigationPath) Prefix(n int) *FormedNavigationPath {
	steps := p.Steps()
	if n >= len(steps) {
		return p.orEmpty()
	}
	if n <= 0 {
		return &FormedNavigationPath{}
	}
	return build(steps[:n])
}

// build computes the composed strings of the path.
func build(steps []Step) *FormedNavigationPath {
	p := &FormedNavigationPath{
		steps: steps,
		names: make([]string, len(steps)),
	}
	keys := make([]string, len(steps))
	for i, s := range steps {
		p.names[i] = s.SourceProp.Name
		keys[i] = s.key()
	}
	p.targetPath = strings.Join(p.names, ".")
	p.key = strings.Join(keys, "/")
	return p
}

// Steps returns a copy of the steps.
func (p *FormedNavigationPath) Steps() []Step {
	if p == nil {
		return nil
	}
	return slices.Clone(p.steps)
}

// Len returns the number of steps.
func (p *FormedNavigationPath) Len() int {
	if p == nil {
		return 0
	}
	return len(p.steps)
}

// IsEmpty reports whether the path has no steps.
func (p *FormedNavigationPath) IsEmpty() bool {
	return p.Len() == 0
}

// Root returns the first step, or the zero step.
func (p *FormedNavigationPath) Root() Step {
	if p.IsEmpty() {
		return Step{}
	}
	return p.steps[0]
}

// Last returns the last step, or the zero step.
func (p *FormedNavigationPath) Last() Step {
	if p.IsEmpty() {
		return Step{}
	}
	return p.steps[len(p.steps)-1]
}

// TargetType returns the type the path ends at.
func (p *FormedNavigationPath) TargetType() *Type {
	return p.Last().TargetType
}

// TargetPath returns the dotted names of the navigated props,
// e.g. "BusinessContact.Salutation".
func (p *FormedNavigationPath) TargetPath() string {
	if p == nil {
		return ""
	}
	return p.targetPath
}

// StepPropNames returns the names of the navigated props in order.
func (p *FormedNavigationPath) StepPropNames() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.names)
}

// Key identifies the path. Paths with equal source steps have equal keys.
func (p *FormedNavigationPath) Key() string {
	if p == nil {
		return ""
	}
	return p.key
}

// Equal reports whether both paths have the same steps.
func (p *FormedNavigationPath) Equal(o *FormedNavigationPath) bool {
	return slices.Equal(p.Steps(), o.Steps())
}

// String implements fmt.Stringer.
func (p *FormedNavigationPath) String() string {
	if p.IsEmpty() {
		return "<empty>"
	}
	return p.Root().SourceType.Name + ":" + p.TargetPath()
}

// FormedType is a type reached through a navigation path. Its props are
// views specialized for the path.
type FormedType struct {
	Type *Type
	Path *FormedNavigationPath
}

// Formed returns t as the origin of an empty path.
func (t *Type) Formed() *FormedType {
	return &FormedType{Type: t, Path: &FormedNavigationPath{}}
}

// Get returns the view of the named prop, or nil if t has no such prop.
func (f *FormedType) Get(name string) *Prop {
	p := f.Type.FindProp(name)
	if p == nil {
		return nil
	}
	return f.Prop(p)
}

// Prop returns the view of p for the path. Repeated calls return the same
// view. With an empty path the canonical prop is returned.
func (f *FormedType) Prop(p *Prop) *Prop {
	if f.Path.IsEmpty() {
		return p.Canonical()
	}
	return f.Type.graph.view(p.Canonical(), f.Path)
}

// Props returns the views of all effective props of the type.
func (f *FormedType) Props() []*Prop {
	props := f.Type.GetProps(true, false)
	views := make([]*Prop, len(props))
	for i, p := range props {
		views[i] = f.Prop(p)
	}
	return views
}

// Via navigates the named reference prop and returns the formed target type.
func (f *FormedType) Via(name string) (*FormedType, error) {
	prop, err := f.Type.GetProp(name)
	if err != nil {
		return nil, err
	}
	path, err := f.Path.Via(f.Type, prop)
	if err != nil {
		return nil, err
	}
	return &FormedType{Type: prop.Reference.ToType, Path: path}, nil
}
