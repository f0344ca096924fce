package load

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/syssam/mojen/compiler/gen"
)

// Build declares the schemas on a new graph and builds it. Descriptor
// errors and graph errors are returned together; use gen.Errors to split
// them. The graph is returned even on error for diagnostics.
func Build(schemas []*Schema, c *gen.Config) (*gen.Graph, error) {
	b := &builder{
		g:     gen.NewGraph(c),
		types: make(map[*Schema]*gen.Type, len(schemas)),
	}
	b.declare(schemas)
	b.link(schemas)
	b.props(schemas)
	b.references(schemas)
	b.constraints(schemas)
	b.g.Log().Debug("schema descriptors declared",
		zap.Int("types", len(schemas)),
		zap.Int("errors", len(b.errs)),
	)
	err := multierr.Append(multierr.Combine(b.errs...), b.g.Build())
	return b.g, err
}

// LoadGraph loads the schemas at path and builds their graph.
func LoadGraph(path string, c *gen.Config) (*gen.Graph, error) {
	schemas, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Build(schemas, c)
}

type builder struct {
	g     *gen.Graph
	types map[*Schema]*gen.Type
	// seqs are sequences whose scope and selectors are resolved once all
	// props and references are declared.
	seqs []pendingSequence
	errs []error
}

type pendingSequence struct {
	typ  *gen.Type
	desc *Sequence
	cfg  *gen.SequenceConfig
}

func (b *builder) errorf(typ, prop string, cause error, format string, args ...any) {
	b.errs = append(b.errs, gen.NewSchemaError(typ, prop, fmt.Sprintf(format, args...), cause))
}

// declare creates the types.
func (b *builder) declare(schemas []*Schema) {
	for _, s := range schemas {
		kind := gen.Entity
		if s.Kind != "" {
			k, err := gen.ParseKind(s.Kind)
			if err != nil {
				b.errorf(s.Name, "", err, "invalid kind")
				continue
			}
			kind = k
		}
		var t *gen.Type
		if kind == gen.Enum {
			t = b.g.Enum(s.Name, s.Values...)
		} else {
			t = b.g.NewType(s.Name, kind)
		}
		if s.ID != "" {
			id, err := uuid.Parse(s.ID)
			if err != nil {
				b.errorf(s.Name, "", err, "invalid id")
			} else {
				t.ID = id
			}
		}
		if s.PluralName != "" {
			t.PluralName = s.PluralName
		}
		if s.DisplayName != "" {
			t.DisplayName = s.DisplayName
		}
		t.IsAbstract = s.Abstract
		t.Interfaces = s.Interfaces
		if s.Pick != nil {
			t.Pick = &gen.PickConfig{DisplayProp: s.Pick.Display, KeyProp: s.Pick.Key}
		}
		b.types[s] = t
	}
}

func (b *builder) lookup(from, prop, name string) *gen.Type {
	t, err := b.g.GetType(name)
	if err != nil {
		b.errorf(from, prop, err, "unknown type %q", name)
		return nil
	}
	return t
}

// link sets base classes and stores.
func (b *builder) link(schemas []*Schema) {
	for _, s := range schemas {
		t, ok := b.types[s]
		if !ok {
			continue
		}
		if s.Base != "" {
			if base := b.lookup(s.Name, "", s.Base); base != nil {
				t.Extends(base)
			}
		}
		if s.Store != "" {
			if store := b.lookup(s.Name, "", s.Store); store != nil {
				t.StoredAs(store)
			}
		}
	}
}

func (b *builder) props(schemas []*Schema) {
	for _, s := range schemas {
		t, ok := b.types[s]
		if !ok {
			continue
		}
		for _, pd := range s.Props {
			b.prop(t, pd)
		}
	}
}

func (b *builder) prop(t *gen.Type, pd *Prop) {
	pt, err := b.propType(pd.Type)
	if err != nil {
		b.errorf(t.Name, pd.Name, err, "invalid prop type")
		return
	}
	opts, err := propOptions(pd)
	if err != nil {
		b.errorf(t.Name, pd.Name, err, "invalid prop")
		return
	}
	var seq *gen.SequenceConfig
	if d := pd.Sequence; d != nil {
		seq = &gen.SequenceConfig{
			Name:      d.Name,
			Start:     d.Start,
			End:       d.End,
			Increment: d.Increment,
			Min:       d.Min,
			Max:       d.Max,
			PerTenant: d.PerTenant,
		}
		opts = append(opts, gen.WithSequence(seq))
	}
	var p *gen.Prop
	if pd.Key {
		p = t.AddKey(pd.Name, pt, opts...)
	} else {
		p = t.AddProp(pd.Name, pt, opts...)
	}
	if pd.Index != nil && pd.Index.Message != "" {
		p.DbAnno.Index.ErrorMessage = pd.Index.Message
	}
	if seq != nil {
		b.seqs = append(b.seqs, pendingSequence{typ: t, desc: pd.Sequence, cfg: seq})
	}
}

// propType parses a descriptor type such as "int", "string?" or "[]Address".
func (b *builder) propType(s string) (gen.PropType, error) {
	name := strings.TrimSpace(s)
	nullable := strings.HasSuffix(name, "?")
	name = strings.TrimSuffix(name, "?")
	collection := strings.HasPrefix(name, "[]")
	name = strings.TrimPrefix(name, "[]")
	var pt gen.PropType
	if p, ok := gen.PrimitiveType(name); ok {
		pt = p
	} else if t := b.g.FindType(name); t != nil {
		pt = gen.TypeOf(t)
	} else {
		return pt, fmt.Errorf("unknown type %q", s)
	}
	pt.Nullable = nullable
	pt.Collection = collection
	return pt, nil
}

var (
	defaultKinds = map[string]gen.DefaultKind{
		"const":          gen.DefaultConst,
		"now":            gen.DefaultNow,
		"new_guid":       gen.DefaultNewGuid,
		"current_tenant": gen.DefaultCurrentTenant,
	}
	ruleKinds = map[string]gen.RuleKind{
		"required": gen.RuleRequired,
		"min":      gen.RuleMin,
		"max":      gen.RuleMax,
		"length":   gen.RuleLength,
		"regex":    gen.RuleRegex,
	}
)

func propOptions(pd *Prop) ([]gen.PropOption, error) {
	var opts []gen.PropOption
	flags := []struct {
		set bool
		opt gen.PropOption
	}{
		{pd.Required, gen.Required()},
		{pd.TenantKey, gen.AsTenantKey()},
		{pd.New, gen.AsNew()},
		{pd.Override, gen.AsOverride()},
		{pd.Virtual, gen.AsVirtual()},
		{pd.Custom, gen.AsCustom()},
	}
	for _, f := range flags {
		if f.set {
			opts = append(opts, f.opt)
		}
	}
	if pd.Alias != "" {
		opts = append(opts, gen.WithAlias(pd.Alias))
	}
	if pd.DeletedMarker != "" {
		m, err := gen.ParseDeletedMarker(pd.DeletedMarker)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gen.WithDeletedMarker(m))
	}
	if d := pd.Default; d != nil {
		kind, ok := defaultKinds[strings.ToLower(d.Kind)]
		if !ok {
			return nil, fmt.Errorf("unknown default kind %q", d.Kind)
		}
		opts = append(opts, gen.WithDefault(kind, d.Value))
	}
	for _, r := range pd.Rules {
		kind, ok := ruleKinds[strings.ToLower(r.Kind)]
		if !ok {
			return nil, fmt.Errorf("unknown rule kind %q", r.Kind)
		}
		if kind == gen.RuleRequired && r.Message == "" {
			opts = append(opts, gen.Required())
			continue
		}
		opts = append(opts, gen.WithRule(gen.Rule{Kind: kind, Value: r.Value, Message: r.Message}))
	}
	if idx := pd.Index; idx != nil {
		members, err := indexMembers(idx.Members)
		if err != nil {
			return nil, err
		}
		if idx.Unique {
			opts = append(opts, gen.Unique(members...))
		} else {
			opts = append(opts, gen.Indexed(members...))
		}
	}
	return opts, nil
}

func indexMembers(members []Member) ([]gen.IndexMember, error) {
	out := make([]gen.IndexMember, 0, len(members))
	for _, m := range members {
		switch strings.ToLower(m.Kind) {
		case "", "index":
			out = append(out, gen.Member(m.Name))
		case "tenant":
			out = append(out, gen.TenantMember(m.Name))
		case "start_selector":
			out = append(out, gen.StartSelectorMember(m.Name))
		case "end_selector":
			out = append(out, gen.EndSelectorMember(m.Name))
		default:
			return nil, fmt.Errorf("unknown member kind %q of %s", m.Kind, m.Name)
		}
	}
	return out, nil
}

func (b *builder) references(schemas []*Schema) {
	for _, s := range schemas {
		t, ok := b.types[s]
		if !ok {
			continue
		}
		for _, rd := range s.References {
			b.reference(t, rd)
		}
	}
}

func (b *builder) reference(t *gen.Type, rd *Reference) {
	to := b.lookup(t.Name, rd.Name, rd.To)
	if to == nil {
		return
	}
	binding, err := gen.ParseBinding(rd.Binding)
	if err != nil {
		b.errorf(t.Name, rd.Name, err, "invalid binding")
		return
	}
	multiplicity, err := gen.ParseMultiplicity(rd.Multiplicity)
	if err != nil {
		b.errorf(t.Name, rd.Name, err, "invalid multiplicity")
		return
	}
	var opts []gen.RefOption
	if rd.Required {
		opts = append(opts, gen.RefRequired())
	}
	if rd.ForeignKey != "" {
		opts = append(opts, gen.WithForeignKeyName(rd.ForeignKey))
	}
	if rd.BackReference != "" {
		opts = append(opts, gen.WithBackReference(rd.BackReference))
	}
	if rd.Parent || rd.OwnedBy != "" {
		opts = append(opts, gen.ChildToParent(rd.OwnedBy))
	}
	if rd.Hidden {
		opts = append(opts, gen.HiddenCollection())
	}
	if rd.Axis != "" {
		axis, err := gen.ParseAxis(rd.Axis)
		if err != nil {
			b.errorf(t.Name, rd.Name, err, "invalid axis")
			return
		}
		opts = append(opts, gen.WithAxis(axis))
	}
	t.AddReference(rd.Name, to, binding, multiplicity, opts...)
}

// constraints declares soft references, uniques and indexes, and resolves
// the pending sequences. It runs last as paths may cross any type.
func (b *builder) constraints(schemas []*Schema) {
	for _, s := range schemas {
		t, ok := b.types[s]
		if !ok {
			continue
		}
		for _, sd := range s.SoftReferences {
			b.softReference(t, sd)
		}
		for _, u := range s.Uniques {
			members, err := indexMembers(u.Members)
			if err != nil {
				b.errorf(t.Name, "", err, "invalid unique")
				continue
			}
			t.AddUnique(members...).ErrorMessage = u.Message
		}
		for _, idx := range s.Indexes {
			members, err := indexMembers(idx.Members)
			if err != nil {
				b.errorf(t.Name, "", err, "invalid index")
				continue
			}
			t.AddIndex(idx.Unique, members...).ErrorMessage = idx.Message
		}
	}
	for _, ps := range b.seqs {
		b.sequence(ps)
	}
}

func (b *builder) softReference(t *gen.Type, sd *SoftReference) {
	to := b.lookup(t.Name, "", sd.To)
	if to == nil {
		return
	}
	var path *gen.FormedNavigationPath
	if len(sd.Path) > 0 {
		p, err := gen.PathFrom(t, sd.Path...)
		if err != nil {
			b.errorf(t.Name, "", err, "soft reference to %s", sd.To)
			return
		}
		path = p
	}
	conds := make([]gen.SoftCondition, 0, len(sd.Conditions))
	for _, c := range sd.Conditions {
		conds = append(conds, gen.SoftCondition{ChildPath: c.Child, ParentProp: c.Parent})
	}
	t.AddSoftReference(to, path, conds...).Expr = sd.Expr
}

func (b *builder) sequence(ps pendingSequence) {
	for _, name := range ps.desc.Scope {
		p, err := ps.typ.GetProp(name)
		if err != nil {
			b.errorf(ps.typ.Name, ps.desc.Name, err, "sequence scope")
			continue
		}
		ps.cfg.Scope = append(ps.cfg.Scope, p)
	}
	var err error
	if ps.cfg.StartSelector, err = selector(ps.typ, ps.desc.StartSelector); err != nil {
		b.errorf(ps.typ.Name, ps.desc.Name, err, "sequence start selector")
	}
	if ps.cfg.EndSelector, err = selector(ps.typ, ps.desc.EndSelector); err != nil {
		b.errorf(ps.typ.Name, ps.desc.Name, err, "sequence end selector")
	}
}

// selector resolves a dotted path such as "Company.FirstNumber" from t.
// The last name is the bound prop on the type the navigations lead to.
func selector(t *gen.Type, s string) (*gen.FormedNavigationPath, error) {
	if s == "" {
		return nil, nil
	}
	names := strings.Split(s, ".")
	if len(names) < 2 {
		return nil, fmt.Errorf("selector %q does not navigate to another type", s)
	}
	path, err := gen.PathFrom(t, names[:len(names)-1]...)
	if err != nil {
		return nil, err
	}
	target, err := path.TargetType().GetProp(names[len(names)-1])
	if err != nil {
		return nil, err
	}
	return path.WithTarget(target), nil
}
