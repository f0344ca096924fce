package gen

import "fmt"

// Join describes how rows of Target are related to a row of Owner through
// an owning reference prop. It is the single source of the optionality
// rule shared by every cascade.
type Join struct {
	// Prop is the navigation prop of the owner.
	Prop   *Prop
	Owner  *Type
	Target *Type
	// ForeignKey is, for a to-one reference, the foreign key of the owner.
	ForeignKey *Prop
	// BackReference is the navigation prop of the target pointing at the
	// owner. It is nil for to-one references without back-reference and
	// for hidden collections.
	BackReference *Prop
	// BackForeignKey is the foreign key of BackReference.
	BackForeignKey *Prop
	// MultiParent is set if rows of Target have more than one possible owner type.
	MultiParent bool
	// Optional is set if the related row may legitimately be absent.
	Optional bool
}

// ResolveJoin resolves the join of a reference prop.
//
// The join is optional when rows of the target have more than one parent
// type, counted over its back-references and the owning references of the
// graph, since only one of the back-references is populated per row. Otherwise the
// requiredness of the back-reference decides, and without back-reference the
// requiredness of the foreign key of a to-one reference.
func ResolveJoin(p *Prop) (*Join, error) {
	nav := navOrSelf(p)
	ref := nav.Reference
	if ref.IsNone() {
		return nil, NewReferenceError(nav.DeclaringType.Name, "", nav.Name, "prop is not a reference", nil)
	}
	owner, target := nav.DeclaringType, ref.ToType
	j := &Join{
		Prop:       nav,
		Owner:      owner,
		Target:     target,
		ForeignKey: nav.ForeignKey(),
	}
	j.MultiParent = len(owner.graph.ParentTypes(target)) > 1

	switch {
	case ref.ChildToParentProp != nil:
		j.BackReference = ref.ChildToParentProp
	default:
		to := target.GetBackReferencePropsTo(owner)
		switch len(to) {
		case 0:
		case 1:
			j.BackReference = to[0]
		default:
			return nil, NewReferenceError(owner.Name, target.Name, nav.Name,
				fmt.Sprintf("ambiguous back-reference: %d props of %s point at %s", len(to), target.Name, owner.Name), nil)
		}
	}
	if j.BackReference != nil {
		j.BackForeignKey = j.BackReference.ForeignKeyOrSelf()
	}
	if ref.IsToMany() && j.BackReference == nil && !nav.IsHiddenCollectionNavigationProp {
		return nil, NewReferenceError(owner.Name, target.Name, nav.Name,
			"collection items have no foreign key back to the owner", nil)
	}

	switch {
	case j.MultiParent:
		j.Optional = true
	case j.BackReference != nil:
		j.Optional = !j.BackReference.Required()
	case j.ForeignKey != nil:
		j.Optional = !j.ForeignKey.Required()
	default:
		j.Optional = true
	}
	return j, nil
}
