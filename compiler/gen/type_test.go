package gen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractGraph declares Contract -> BusinessContact (nested) -> Salutation (loose)
// and a second path into Contact through Invoice.
func contractGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(nil)
	salutation := g.Entity("Salutation")
	salutation.AddKey("Id", TypeInt)
	salutation.AddProp("Name", TypeString)
	contact := g.Entity("Contact")
	contact.AddKey("Id", TypeInt)
	contact.AddProp("LastName", TypeString, Required())
	contact.AddReference("Salutation", salutation, Loose, ToOneOrZero)
	contract := g.Entity("Contract")
	contract.AddKey("Id", TypeGuid)
	contract.AddReference("BusinessContact", contact, Nested, ToOne, RefRequired())
	invoice := g.Entity("Invoice")
	invoice.AddKey("Id", TypeInt)
	invoice.AddReference("Contact", contact, Loose, ToOneOrZero)
	require.NoError(t, g.Build())
	return g
}

// =============================================================================
// Type
// =============================================================================

func TestType(t *testing.T) {
	require := require.New(t)
	g := NewGraph(nil)
	typ := g.Entity("JobTimeRange")
	require.Equal("JobTimeRange", typ.Name)
	require.Equal("JobTimeRanges", typ.PluralName)
	require.Equal("Job Time Range", typ.DisplayName)
	require.Equal(Entity, typ.Kind)
	require.Equal(uuid.NewSHA1(TypeNamespace, []byte("JobTimeRange")), typ.ID)
	require.Same(typ, g.FindType("JobTimeRange"))
	require.Equal("Categories", g.Model("Category").PluralName)

	_, err := g.GetType("Missing")
	require.Error(err)
	require.True(IsNotFound(err))
}

func TestType_Kind(t *testing.T) {
	for _, k := range []Kind{Entity, Model, Complex, Enum, Interface} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	k, err := ParseKind("entity")
	require.NoError(t, err)
	assert.Equal(t, Entity, k)
	_, err = ParseKind("table")
	assert.Error(t, err)
}

func TestType_DeclaredTwice(t *testing.T) {
	g := NewGraph(nil)
	g.Entity("Contact")
	g.Model("Contact")
	err := g.Build()
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
	assert.Contains(t, err.Error(), "type declared twice")
}

func TestType_GetProps(t *testing.T) {
	g := NewGraph(nil)
	base := g.Entity("Base")
	base.AddKey("Id", TypeInt)
	base.AddProp("Title", TypeString, AsVirtual())
	base.AddProp("Note", TypeString)
	base.AddProp("Custom", TypeString, AsCustom())
	derived := g.Entity("Derived").Extends(base)
	title := derived.AddProp("Title", TypeString, AsOverride(), Required())
	note := derived.AddProp("Note", TypeInt, AsNew())
	derived.AddProp("Extra", TypeBool)
	require.NoError(t, g.Build())

	names := func(props []*Prop) []string {
		var s []string
		for _, p := range props {
			s = append(s, p.String())
		}
		return s
	}
	assert.Equal(t, []string{"Base.Id", "Base.Custom", "Derived.Title", "Derived.Note", "Derived.Extra"}, names(derived.Props()))
	assert.Equal(t, []string{"Base.Id", "Derived.Title", "Derived.Note", "Derived.Extra"}, names(derived.GetProps(false, false)))
	assert.Equal(t,
		[]string{"Base.Id", "Base.Title", "Base.Note", "Base.Custom", "Derived.Title", "Derived.Note", "Derived.Extra"},
		names(derived.GetProps(true, true)))
	assert.Same(t, title, derived.FindProp("Title"))
	assert.Same(t, note, derived.MustGetProp("Note"))
	assert.Equal(t, []*Type{base, derived}, derived.Ancestors())
	assert.True(t, derived.Is(base))
	assert.False(t, base.Is(derived))

	_, err := derived.GetProp("Missing")
	assert.True(t, IsNotFound(err))
	assert.Panics(t, func() { derived.MustGetProp("Missing") })
}

func TestType_HidingErrors(t *testing.T) {
	g := NewGraph(nil)
	base := g.Entity("Base")
	base.AddProp("Title", TypeString)
	base.AddProp("Note", TypeString)
	derived := g.Entity("Derived").Extends(base)
	derived.AddProp("Title", TypeString, AsOverride())
	derived.AddProp("Note", TypeString)
	derived.AddProp("Extra", TypeString)
	derived.AddProp("Extra", TypeString)

	err := g.Build()
	require.Error(t, err)
	errs := Errors(err)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "override of non-virtual prop Base.Title")
	assert.Contains(t, errs[1].Error(), "hides Base.Note without New or Override")
	assert.Contains(t, errs[2].Error(), "prop declared twice")
	for _, e := range errs {
		assert.True(t, IsSchemaError(e))
	}
}

func TestType_Extends(t *testing.T) {
	g := NewGraph(nil)
	a := g.Entity("A")
	b := g.Entity("B").Extends(a)
	a.Extends(b)
	assert.Nil(t, a.BaseClass)
	err := g.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic inheritance")
}

func TestType_Store(t *testing.T) {
	g := NewGraph(nil)
	contact := g.Entity("Contact")
	contact.AddKey("Id", TypeInt)
	contact.AddProp("LastName", TypeString)
	view := g.Model("ContactView").StoredAs(contact)
	name := view.AddProp("LastName", TypeString)
	label := view.AddProp("Label", TypeString)
	other := g.Complex("Address")

	require.Error(t, contact.SetStore(contact), "entities have no store")
	require.Error(t, g.Model("Other").SetStore(other), "store must be an entity")

	entity := g.Entity("Order")
	entity.AddProp("View", TypeOf(view))
	err := g.Build()
	require.Error(t, err)
	require.Len(t, Errors(err), 1)
	assert.Contains(t, err.Error(), "entity prop cannot be of model type ContactView")

	assert.Same(t, contact.MustGetProp("LastName"), name.Store)
	assert.Nil(t, label.Store)
	assert.Same(t, contact.GetKey(), view.GetKey())
}

func TestType_SealedAfterBuild(t *testing.T) {
	g := contractGraph(t)
	assert.True(t, g.Built())
	assert.NoError(t, g.Build())
	assert.Panics(t, func() { g.Entity("Late") })
	assert.Panics(t, func() { g.FindType("Contact").AddProp("Late", TypeInt) })
}

func TestType_GetReferenceProps(t *testing.T) {
	g := contractGraph(t)
	contract := g.FindType("Contract")
	contact := g.FindType("Contact")

	refs := contract.GetReferenceProps(0, 0)
	require.Len(t, refs, 1, "foreign key is folded into its navigation")
	assert.Equal(t, "BusinessContact", refs[0].Name)
	assert.Len(t, contract.GetReferenceProps(Nested, ToOne), 1)
	assert.Empty(t, contract.GetReferenceProps(Owned, 0))
	assert.Empty(t, contract.GetReferenceProps(0, ToMany))
	assert.Len(t, contact.GetReferenceProps(Loose, ToZero), 1)

	fk := contract.MustGetProp("BusinessContactId")
	assert.True(t, fk.IsForeignKey)
	assert.Same(t, refs[0], fk.Navigation())
	assert.Same(t, fk, refs[0].ForeignKey())
	assert.Equal(t, PropType{Name: "int"}, fk.Type, "required foreign key")
	assert.True(t, contact.MustGetProp("SalutationId").Type.Nullable)
	assert.True(t, fk.Required())
}

func TestType_FindReferenceWithForeignKey(t *testing.T) {
	g := NewGraph(nil)
	contact := g.Entity("Contact")
	contact.AddKey("Id", TypeInt)
	view := g.Model("ContactView").StoredAs(contact)
	company := g.Entity("Company")
	company.AddKey("Id", TypeInt)
	contract := g.Entity("Contract")
	contract.AddKey("Id", TypeInt)
	signer := contract.AddReference("Signer", contact, Loose, ToOne)
	order := g.Entity("Order")
	order.AddReference("Buyer", contact, Loose, ToOne)
	order.AddReference("Seller", contact, Loose, ToOne)
	require.NoError(t, g.Build())

	p, err := contract.FindReferenceWithForeignKey(contact, true)
	require.NoError(t, err)
	assert.Same(t, signer, p)

	p, err = contract.FindReferenceWithForeignKey(view, true)
	require.NoError(t, err)
	assert.Same(t, signer, p, "matched through the store")

	p, err = contract.FindReferenceWithForeignKey(company, false)
	require.NoError(t, err)
	assert.Nil(t, p)
	_, err = contract.FindReferenceWithForeignKey(company, true)
	assert.True(t, IsReferenceError(err))

	p, err = order.FindReferenceWithForeignKey(contact, false)
	require.NoError(t, err)
	assert.Nil(t, p)
	_, err = order.FindReferenceWithForeignKey(contact, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestType_BackReferences(t *testing.T) {
	g := NewGraph(nil)
	work := g.Entity("WorkTime")
	work.AddKey("Id", TypeInt)
	brk := g.Entity("BreakTime")
	brk.AddKey("Id", TypeInt)
	jtr := g.Entity("JobTimeRange")
	jtr.AddKey("Id", TypeInt)
	toWork := jtr.AddReference("WorkTime", work, Loose, ToOneOrZero)
	toBreak := jtr.AddReference("BreakTime", brk, Loose, ToOneOrZero)
	ranges := work.AddReference("Ranges", jtr, Nested|Owned, ToMany, WithBackReference("WorkTime"))
	brk.AddReference("Ranges", jtr, Nested|Owned, ToMany, WithBackReference("BreakTime"))
	require.NoError(t, g.Build())

	assert.Equal(t, []*Prop{toWork, toBreak}, jtr.GetBackReferenceProps())
	assert.Equal(t, []*Prop{toWork}, jtr.GetBackReferencePropsTo(work))
	assert.Equal(t, []*Prop{toWork, toBreak}, jtr.GetOwnedByRefProps())
	assert.Same(t, ranges, toWork.Reference.OwnedByProp)
	assert.Same(t, toWork, ranges.Reference.ChildToParentProp)
	assert.Equal(t, AxisToParent, jtr.MustGetProp("WorkTimeId").Reference.Axis)
	assert.Len(t, g.ParentReferencesTo(jtr), 2)
}

func TestType_FindDeletedMarker(t *testing.T) {
	g := NewGraph(nil)
	typ := g.Entity("Task")
	typ.AddKey("Id", TypeInt)
	self := typ.AddProp("IsSelfDeleted", TypeBool, WithDeletedMarker(DeletedMarkerSelf))
	cascade := typ.AddProp("IsCascadeDeleted", TypeBool, WithDeletedMarker(DeletedMarkerCascade))
	plain := g.Entity("Plain")
	require.NoError(t, g.Build())

	assert.Same(t, self, typ.FindDeletedMarker(DeletedMarkerNone))
	assert.Same(t, cascade, typ.FindDeletedMarker(DeletedMarkerCascade))
	assert.Nil(t, typ.FindDeletedMarker(DeletedMarkerEffective))
	assert.Nil(t, plain.FindDeletedMarker(DeletedMarkerNone))

	m, err := ParseDeletedMarker("cascade")
	require.NoError(t, err)
	assert.Equal(t, DeletedMarkerCascade, m)
	m, err = ParseDeletedMarker("")
	require.NoError(t, err)
	assert.Equal(t, DeletedMarkerNone, m)
	_, err = ParseDeletedMarker("gone")
	assert.Error(t, err)
}

func TestType_FindPick(t *testing.T) {
	g := NewGraph(nil)
	country := g.Entity("Country")
	key := country.AddKey("Id", TypeInt)
	name := country.AddProp("Name", TypeString)
	code := country.AddProp("Code", TypeString)
	region := g.Entity("Region").Extends(country)
	city := g.Entity("City")
	city.AddKey("Id", TypeInt)
	require.NoError(t, g.Build())

	pick := country.FindPick()
	require.NotNil(t, pick)
	assert.Same(t, name, pick.Display)
	assert.Same(t, key, pick.Key)
	assert.Nil(t, city.FindPick())

	country.Pick = &PickConfig{DisplayProp: "Name", KeyProp: "Code"}
	pick = region.FindPick()
	require.NotNil(t, pick)
	assert.Same(t, region, pick.Type)
	assert.Same(t, code, pick.Key)
}

func TestType_Tenant(t *testing.T) {
	g := NewGraph(nil)
	typ := g.Entity("Order")
	typ.AddKey("Id", TypeInt)
	tenant := typ.AddProp("TenantId", TypeGuid, AsTenantKey(), WithDefault(DefaultCurrentTenant, nil))
	require.NoError(t, g.Build())
	assert.True(t, typ.IsTenant())
	assert.Same(t, tenant, typ.FindTenantKey())
	assert.Equal(t, DefaultCurrentTenant, tenant.Default.Kind)
}

// =============================================================================
// Prop
// =============================================================================

func TestProp_Clone(t *testing.T) {
	g := NewGraph(nil)
	typ := g.Entity("Order")
	p := typ.AddProp("Number", TypeInt, Required(), Unique(), WithDefault(DefaultConst, 1))
	c := p.Clone()

	require.NotSame(t, p.Reference, c.Reference)
	require.NotSame(t, p.DbAnno, c.DbAnno)
	assert.Same(t, c, c.DbAnno.Prop)
	assert.Same(t, p, p.DbAnno.Prop)
	require.NotSame(t, p.Default, c.Default)

	c.Rules = append(c.Rules[:0], Rule{Kind: RuleMax, Value: 10})
	assert.True(t, p.HasRule(RuleRequired))
	c.DbAnno.Index.IsUnique = false
	assert.True(t, p.DbAnno.Index.IsUnique)
}

func TestProp_TypeString(t *testing.T) {
	g := NewGraph(nil)
	status := g.Enum("Status", "Open", "Closed")
	contact := g.Entity("Contact")
	assert.Equal(t, "string", TypeString.String())
	assert.Equal(t, "int?", TypeInt.AsNullable().String())
	assert.Equal(t, "[]Contact", CollectionOf(contact).String())
	assert.Equal(t, "Status", TypeOf(status).String())
	assert.Same(t, status, TypeOf(status).Enum)
	assert.True(t, PropType{}.IsZero())

	pt, ok := PrimitiveType("decimal")
	require.True(t, ok)
	assert.Equal(t, TypeDecimal, pt)
	assert.True(t, pt.IsPrimitive())
	_, ok = PrimitiveType("money")
	assert.False(t, ok)
}
