package gen

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TypeNamespace is the namespace of type IDs derived from type names.
var TypeNamespace = uuid.MustParse("8a5d6f3e-2c41-4b7a-9e0d-5f6a7b8c9d0e")

// Graph holds the schema types and is the explicit context object passed
// to every query and builder. It is mutable until Build succeeds or fails;
// afterwards only the view cache changes.
type Graph struct {
	*Config
	// Types holds the types in declaration order.
	Types []*Type

	types map[string]*Type
	// props is the arena of canonical props, indexed by prop id.
	props []*Prop
	errs  []error

	built    bool
	buildErr error

	mu    sync.Mutex
	views map[viewKey]*Prop
}

// viewKey identifies a prop specialized for a navigation path.
type viewKey struct {
	prop int
	path string
}

// NewGraph returns an empty graph with the given configuration.
func NewGraph(c *Config) *Graph {
	if c == nil {
		c = &Config{}
	}
	return &Graph{
		Config: c,
		types:  make(map[string]*Type),
		views:  make(map[viewKey]*Prop),
	}
}

// NewType declares a type of the given kind. Declaring a name twice is
// reported by Build.
func (g *Graph) NewType(name string, kind Kind) *Type {
	g.mustMutable()
	t := &Type{
		graph:       g,
		ID:          uuid.NewSHA1(TypeNamespace, []byte(name)),
		Name:        name,
		PluralName:  inflect.Pluralize(name),
		DisplayName: displayName(name),
		Kind:        kind,
	}
	if _, ok := g.types[name]; ok {
		g.addErr(NewSchemaError(name, "", "type declared twice", nil))
	} else {
		g.types[name] = t
	}
	g.Types = append(g.Types, t)
	return t
}

// Entity declares an Entity type.
func (g *Graph) Entity(name string) *Type { return g.NewType(name, Entity) }

// Model declares a Model type.
func (g *Graph) Model(name string) *Type { return g.NewType(name, Model) }

// Complex declares a Complex type.
func (g *Graph) Complex(name string) *Type { return g.NewType(name, Complex) }

// Enum declares an Enum type with the given values.
func (g *Graph) Enum(name string, values ...string) *Type {
	t := g.NewType(name, Enum)
	t.EnumValues = values
	return t
}

// Interface declares an Interface type.
func (g *Graph) Interface(name string) *Type { return g.NewType(name, Interface) }

// FindType returns the type with the given name, or nil.
func (g *Graph) FindType(name string) *Type {
	return g.types[name]
}

// GetType returns the type with the given name.
func (g *Graph) GetType(name string) (*Type, error) {
	if t, ok := g.types[name]; ok {
		return t, nil
	}
	return nil, &NotFoundError{Kind: "type", Name: name}
}

// Built reports whether Build was called.
func (g *Graph) Built() bool {
	return g.built
}

// Prop returns the canonical prop with the given arena id, or nil.
func (g *Graph) Prop(id int) *Prop {
	if id < 0 || id >= len(g.props) {
		return nil
	}
	return g.props[id]
}

func (g *Graph) newProp(t *Type, name string) *Prop {
	g.mustMutable()
	p := &Prop{
		id:            len(g.props),
		DeclaringType: t,
		Name:          name,
		Reference:     &Reference{},
	}
	g.props = append(g.props, p)
	t.LocalProps = append(t.LocalProps, p)
	return p
}

func (g *Graph) addErr(err error) {
	g.errs = append(g.errs, err)
}

func (g *Graph) mustMutable() {
	if g.built {
		panic("mojen: graph is sealed after Build")
	}
}

// Build resolves the layered prop tables and the references of the graph,
// runs the validation pass and seals the graph. All errors found are
// returned together; use Errors to split them.
func (g *Graph) Build() error {
	if g.built {
		return g.buildErr
	}
	log := g.Log()
	errs := append([]error(nil), g.errs...)
	for _, t := range g.Types {
		table, terrs := t.layer()
		t.table = table
		errs = append(errs, terrs...)
	}
	errs = append(errs, g.resolve()...)
	errs = append(errs, g.validate()...)
	g.built = true
	g.buildErr = multierr.Combine(errs...)
	if g.buildErr != nil {
		log.Warn("schema graph has errors", zap.Int("errors", len(errs)))
		return g.buildErr
	}
	log.Info("schema graph built",
		zap.Int("types", len(g.Types)),
		zap.Int("props", len(g.props)),
	)
	return nil
}

// resolve links back-references, foreign key types, store props and
// constraint members.
func (g *Graph) resolve() []error {
	var errs []error
	for _, p := range g.props {
		if err := g.resolveReference(p); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range g.props {
		if p.IsForeignKey && p.Type.IsZero() && p.Reference.ToType != nil {
			pt := TypeGuid
			if key := p.Reference.ToType.GetKey(); key != nil && key != p {
				pt = key.Type
			}
			pt.Nullable = !p.Required()
			p.Type = pt
		}
		if t := p.DeclaringType; t.Kind == Model && t.Store != nil && p.Store == nil {
			p.Store = t.Store.FindProp(p.Name)
		}
	}
	for _, t := range g.Types {
		for _, u := range t.Uniques {
			errs = append(errs, resolveMembers(t, "unique", u.Members)...)
		}
		for _, idx := range t.Indexes {
			errs = append(errs, resolveMembers(t, "index", idx.Members)...)
		}
		for _, p := range t.LocalProps {
			if p.DbAnno != nil && p.DbAnno.Index != nil {
				errs = append(errs, resolveMembers(t, "index", p.DbAnno.Index.Members)...)
			}
		}
	}
	return errs
}

func (g *Graph) resolveReference(p *Prop) error {
	ref := p.Reference
	if ref.IsNone() {
		return nil
	}
	owner := p.DeclaringType
	if name := ref.backRefName; name != "" && ref.ChildToParentProp == nil {
		child := ref.ToType.FindProp(name)
		if child == nil || child.Reference.IsNone() || !owner.Is(child.Reference.ToType) {
			return NewReferenceError(owner.Name, ref.ToType.Name, p.Name,
				fmt.Sprintf("back-reference %q not found", name), nil)
		}
		ref.ChildToParentProp = navOrSelf(child)
		for _, r := range pairedRefs(child) {
			r.Axis = AxisToParent
			if r.OwnedByProp == nil {
				r.OwnedByProp = navOrSelf(p)
			}
		}
	}
	if name := ref.ownedByName; name != "" && ref.OwnedByProp == nil {
		parent := ref.ToType.FindProp(name)
		if parent == nil || parent.Reference.IsNone() || !owner.Is(parent.Reference.ToType) {
			return NewReferenceError(owner.Name, ref.ToType.Name, p.Name,
				fmt.Sprintf("owning prop %q not found", name), nil)
		}
		ref.OwnedByProp = navOrSelf(parent)
		for _, r := range pairedRefs(parent) {
			if r.ChildToParentProp == nil {
				r.ChildToParentProp = navOrSelf(p)
			}
		}
	}
	return nil
}

func navOrSelf(p *Prop) *Prop {
	if nav := p.Navigation(); nav != nil {
		return nav
	}
	return p
}

// pairedRefs returns the references of p and of its navigation or foreign
// key counterpart.
func pairedRefs(p *Prop) []*Reference {
	refs := []*Reference{p.Reference}
	if nav := p.Navigation(); nav != nil && nav != p {
		refs = append(refs, nav.Reference)
	}
	if fk := p.ForeignKey(); fk != nil && fk != p {
		refs = append(refs, fk.Reference)
	}
	return refs
}

func resolveMembers(t *Type, what string, members []IndexMember) []error {
	var errs []error
	for i, m := range members {
		if m.Prop != nil {
			continue
		}
		p := t.FindProp(m.name)
		if p == nil {
			errs = append(errs, NewValidationError(t.Name, m.name,
				fmt.Sprintf("%s member is not a prop of the type", what)))
			continue
		}
		members[i].Prop = p
	}
	return errs
}

// ParentReferencesTo returns the navigation props, over all types, that own
// rows of t: Owned or Nested references to t that are not back-references.
func (g *Graph) ParentReferencesTo(t *Type) []*Prop {
	var props []*Prop
	for _, o := range g.Types {
		for _, p := range o.LocalProps {
			ref := p.Reference
			if !p.IsNavigation || ref.ToType != t || ref.Axis == AxisToParent {
				continue
			}
			if ref.Binding.HasAny(Owned | Nested) {
				props = append(props, p)
			}
		}
	}
	return props
}

// ParentTypes returns the distinct types that own rows of t, through a
// back-reference of t or an owning reference over the graph. Types related
// by inheritance count once.
func (g *Graph) ParentTypes(t *Type) []*Type {
	var types []*Type
	add := func(o *Type) {
		if o == nil || slices.ContainsFunc(types, func(x *Type) bool { return o.Is(x) || x.Is(o) }) {
			return
		}
		types = append(types, o)
	}
	for _, b := range t.GetBackReferenceProps() {
		add(b.Reference.ToType)
	}
	for _, p := range g.ParentReferencesTo(t) {
		add(p.DeclaringType)
	}
	return types
}

// SoftReferencesTo returns the soft references, over all types, that point
// at t or at an ancestor of t as their parent.
func (g *Graph) SoftReferencesTo(t *Type) []*SoftReference {
	var refs []*SoftReference
	for _, o := range g.Types {
		for _, s := range o.SoftReferences {
			if s.Axis == AxisToParent && s.ToType != nil && t.Is(s.ToType) {
				refs = append(refs, s)
			}
		}
	}
	return refs
}

// view returns the specialization of p for path. Each (prop, path) pair is
// cloned once and cached; the canonical prop is never mutated.
func (g *Graph) view(p *Prop, path *FormedNavigationPath) *Prop {
	key := viewKey{prop: p.id, path: path.Key()}
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.views[key]; ok {
		return v
	}
	v := p.Clone()
	v.base = p
	v.FormedNavigationFrom = path
	g.views[key] = v
	return v
}

// NumViews returns the number of cached prop views.
func (g *Graph) NumViews() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.views)
}
