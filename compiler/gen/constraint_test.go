package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDbPropAnnotation_GetIndexMemberIndex(t *testing.T) {
	g := NewGraph(nil)
	doc := g.Entity("Document")
	doc.AddKey("Id", TypeInt)
	a := doc.AddProp("A", TypeString, Indexed(Member("B"), Member("C")))
	b := doc.AddProp("B", TypeString)
	c := doc.AddProp("C", TypeString)
	d := doc.AddProp("D", TypeString, Unique(Member("D"), Member("B")))
	e := doc.AddProp("E", TypeString)
	require.NoError(t, g.Build())

	tests := []struct {
		anno *DbPropAnnotation
		prop *Prop
		want int
	}{
		{a.DbAnno, b, 0},
		{a.DbAnno, c, 1},
		{a.DbAnno, a, 2},
		// The annotated prop is last even when registered first.
		{d.DbAnno, b, 0},
		{d.DbAnno, d, 1},
	}
	for _, tt := range tests {
		got, err := tt.anno.GetIndexMemberIndex(tt.prop)
		require.NoError(t, err, "%s in %s", tt.prop, tt.anno.Prop)
		assert.Equal(t, tt.want, got, "%s in %s", tt.prop, tt.anno.Prop)
	}

	_, err := a.DbAnno.GetIndexMemberIndex(e)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	assert.Equal(t, []*Prop{a, d}, doc.GetIndexProps())
	assert.True(t, d.DbAnno.Index.IsUnique)
}

func TestUniqueConfig(t *testing.T) {
	g := NewGraph(nil)
	contract := g.Entity("Contract")
	contract.AddKey("Id", TypeInt)
	tenant := contract.AddProp("TenantId", TypeGuid, AsTenantKey())
	number := contract.AddProp("Number", TypeString)
	year := contract.AddProp("Year", TypeInt)
	u := contract.AddUnique(
		TenantMember("TenantId"),
		Member("Number"),
		Member("Year"),
		Member("Number"),
		StartSelectorMember("Year"),
	)
	u.ErrorMessage = "contract number is taken"
	require.NoError(t, g.Build())

	members := u.GetMembers()
	require.Len(t, members, 4)
	for _, m := range members {
		assert.True(t, m.Kind.IsIndex(), m.Kind.String())
	}
	assert.Equal(t, []*Prop{number, year}, u.GetParams(false))
	assert.Equal(t, []*Prop{tenant, number, year}, u.GetParams(true))
	assert.Equal(t, "Number", members[1].Name())
	assert.Equal(t, "StartSelector", IndexMemberStartSelector.String())
	assert.False(t, IndexMemberEndSelector.IsIndex())
}

func TestConstraint_UnknownMember(t *testing.T) {
	g := NewGraph(nil)
	typ := g.Entity("Contract")
	typ.AddKey("Id", TypeInt)
	typ.AddUnique(Member("Missing"))
	typ.AddIndex(false, Member("Number"))
	typ.AddProp("Code", TypeString, Indexed(Member("Other")))

	err := g.Build()
	require.Error(t, err)
	errs := Errors(err)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.True(t, IsValidationError(e))
	}
	assert.Contains(t, errs[0].Error(), "prop Missing: unique member is not a prop of the type")
}

// sequenceGraph numbers contracts per company, bounded by the company's
// first and last contract number.
func sequenceGraph(t *testing.T, bounds func(contract *Type) (*FormedNavigationPath, *FormedNavigationPath)) (*Graph, *Prop) {
	t.Helper()
	g := NewGraph(nil)
	company := g.Entity("Company")
	company.AddKey("Id", TypeInt)
	company.AddProp("FirstNumber", TypeInt64)
	company.AddProp("LastNumber", TypeInt64)
	contract := g.Entity("Contract")
	contract.AddKey("Id", TypeInt)
	contract.AddReference("Company", company, Loose, ToOne, RefRequired())
	start, end := bounds(contract)
	seq := &SequenceConfig{
		Name:          "ContractNumber",
		Start:         1,
		Increment:     1,
		Scope:         []*Prop{contract.MustGetProp("CompanyId")},
		StartSelector: start,
		EndSelector:   end,
	}
	number := contract.AddProp("Number", TypeInt64, WithSequence(seq))
	return g, number
}

func TestSequenceConfig_Bound(t *testing.T) {
	g, number := sequenceGraph(t, func(contract *Type) (*FormedNavigationPath, *FormedNavigationPath) {
		company := contract.MustGetProp("Company").Reference.ToType
		p, err := PathFrom(contract, "Company")
		require.NoError(t, err)
		return p.WithTarget(company.MustGetProp("FirstNumber")), nil
	})
	require.NoError(t, g.Build())

	seq := number.DbAnno.Sequence
	start, err := seq.Bound(false)
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.Equal(t, "CompanyId", start.ForeignKey.Name)
	assert.Equal(t, "Company.FirstNumber", start.ValuePath)

	end, err := seq.Bound(true)
	require.NoError(t, err)
	assert.Nil(t, end)
}

func TestSequenceConfig_BoundErrors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		g, _ := sequenceGraph(t, func(*Type) (*FormedNavigationPath, *FormedNavigationPath) {
			return nil, &FormedNavigationPath{}
		})
		err := g.Build()
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "end bound path has no steps")
	})

	t.Run("root is not a foreign key", func(t *testing.T) {
		g, _ := sequenceGraph(t, func(contract *Type) (*FormedNavigationPath, *FormedNavigationPath) {
			company := contract.MustGetProp("Company").Reference.ToType
			lines := company.AddReference("Contracts", contract, Independent, ToMany, HiddenCollection())
			p, err := NewPath(Step{SourceType: company, SourceProp: lines})
			require.NoError(t, err)
			return p, nil
		})
		err := g.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must start at a to-one foreign key")
	})

	t.Run("scope outside of the type", func(t *testing.T) {
		g, number := sequenceGraph(t, func(*Type) (*FormedNavigationPath, *FormedNavigationPath) {
			return nil, nil
		})
		other := g.Entity("Other")
		number.DbAnno.Sequence.Scope = append(number.DbAnno.Sequence.Scope, other.AddProp("X", TypeInt))
		err := g.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sequence scope X is not a prop of the type")
	})
}
