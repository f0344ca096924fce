package gen

import (
	"fmt"

	"go.uber.org/zap"
)

// validate runs the graph invariant checks. It is called by Build after
// the prop tables and references were resolved.
func (g *Graph) validate() []error {
	var errs []error
	for _, t := range g.Types {
		errs = append(errs, g.validateType(t)...)
	}
	g.logOwnershipCycles()
	return errs
}

func (g *Graph) validateType(t *Type) []error {
	var errs []error
	if t.Store != nil && (t.Kind != Model || t.Store.Kind != Entity) {
		errs = append(errs, NewSchemaError(t.Name, "", "only a model can have a store and it must be an entity", nil))
	}
	for _, p := range t.LocalProps {
		errs = append(errs, validateProp(t, p)...)
	}
	for _, p := range t.GetProps(true, false) {
		if p.DbAnno != nil && p.DbAnno.Sequence != nil {
			errs = append(errs, validateSequence(t, p, p.DbAnno.Sequence)...)
		}
	}
	for _, s := range t.SoftReferences {
		if err := validateSoftReference(t, s); err != nil {
			errs = append(errs, err)
		}
	}
	// A required back-reference is never populated for rows that belong to
	// one of the other parents.
	if len(g.ParentTypes(t)) > 1 {
		for _, b := range t.GetBackReferenceProps() {
			if b.Required() {
				errs = append(errs, NewValidationError(t.Name, b.Name,
					"required back-reference on a type with more than one parent"))
			}
		}
	}
	return errs
}

func validateProp(t *Type, p *Prop) []error {
	var errs []error
	if t.Kind == Entity && p.Type.Type != nil && p.Type.Type.Kind == Model {
		errs = append(errs, NewSchemaError(t.Name, p.Name, "entity prop cannot be of a model type", nil))
	}
	if p.DbAnno != nil && t.Kind != Entity && (t.Kind != Model || t.Store == nil) {
		errs = append(errs, NewSchemaError(t.Name, p.Name, "db annotations need an entity or a stored model", nil))
	}
	ref := p.Reference
	if ref.IsNone() {
		if p.IsNavigation || p.IsForeignKey {
			errs = append(errs, NewReferenceError(t.Name, "", p.Name, "reference prop without target", nil))
		}
		return errs
	}
	switch {
	case p.IsNavigation && ref.IsToOne() && ref.ForeignKey == nil:
		errs = append(errs, NewReferenceError(t.Name, ref.ToType.Name, p.Name, "to-one navigation without foreign key", nil))
	case p.IsNavigation && ref.ForeignKey != nil && ref.ForeignKey.Reference.NavigationProp != p:
		errs = append(errs, NewReferenceError(t.Name, ref.ToType.Name, p.Name, "foreign key is paired with another navigation prop", nil))
	case p.IsForeignKey && ref.NavigationProp != nil && ref.NavigationProp.Reference.ForeignKey != p:
		errs = append(errs, NewReferenceError(t.Name, ref.ToType.Name, p.Name, "navigation prop is paired with another foreign key", nil))
	}
	// Collection items expose exactly one key back at the owner.
	if p.IsNavigation && ref.IsToMany() && ref.Axis != AxisToParent && !p.IsHiddenCollectionNavigationProp {
		if _, err := ResolveJoin(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateSequence(t *Type, p *Prop, seq *SequenceConfig) []error {
	var errs []error
	for _, s := range seq.Scope {
		if s == nil || t.FindProp(s.Name) == nil {
			name := "<nil>"
			if s != nil {
				name = s.Name
			}
			errs = append(errs, NewValidationError(t.Name, p.Name,
				fmt.Sprintf("sequence scope %s is not a prop of the type", name)))
		}
	}
	for _, end := range []bool{false, true} {
		if _, err := seq.Bound(end); err != nil {
			errs = append(errs, NewValidationError(t.Name, p.Name, err.Error()))
		}
	}
	return errs
}

func validateSoftReference(t *Type, s *SoftReference) error {
	if s.ToType == nil {
		return NewReferenceError(t.Name, "", "", "soft reference without target", nil)
	}
	if s.Path.IsEmpty() {
		if len(s.Conditions) == 0 {
			return NewReferenceError(t.Name, s.ToType.Name, "", "soft reference needs a path or conditions", nil)
		}
		return nil
	}
	if root := s.Path.Root().SourceType; !t.Is(root) {
		return NewReferenceError(t.Name, s.ToType.Name, "",
			fmt.Sprintf("soft reference path starts at %s", root.Name), nil)
	}
	if target := s.Path.TargetType(); !target.Is(s.ToType) && target.Store != s.ToType {
		return NewReferenceError(t.Name, s.ToType.Name, "",
			fmt.Sprintf("soft reference path %s ends at %s", s.Path.TargetPath(), target.Name), nil)
	}
	return nil
}

// logOwnershipCycles reports cycles over Owned references. Cycles are legal;
// the cascade dispatcher guards against revisiting a row.
func (g *Graph) logOwnershipCycles() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Type]int)
	var visit func(t *Type, stack []*Type)
	visit = func(t *Type, stack []*Type) {
		state[t] = visiting
		stack = append(stack, t)
		for _, p := range t.GetReferenceProps(Owned, 0) {
			if p.Reference.Axis == AxisToParent {
				continue
			}
			next := p.Reference.ToType
			switch state[next] {
			case unvisited:
				visit(next, stack)
			case visiting:
				g.Log().Debug("ownership cycle",
					zap.String("type", next.Name),
					zap.Strings("through", typeNames(stack)),
				)
			}
		}
		state[t] = done
	}
	for _, t := range g.Types {
		if state[t] == unvisited {
			visit(t, nil)
		}
	}
}
