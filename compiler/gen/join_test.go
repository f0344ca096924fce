package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJoin(t *testing.T) {
	t.Run("multi parent is optional", func(t *testing.T) {
		g := jobTimeGraph(false)
		require.NoError(t, g.Build())
		for _, owner := range []string{"WorkTime", "BreakTime"} {
			j, err := ResolveJoin(g.FindType(owner).MustGetProp("Ranges"))
			require.NoError(t, err)
			assert.True(t, j.MultiParent, owner)
			assert.True(t, j.Optional, owner)
			assert.Equal(t, owner+"Id", j.BackForeignKey.Name)
			assert.Nil(t, j.ForeignKey)
		}
	})

	t.Run("single required back-reference", func(t *testing.T) {
		g := NewGraph(nil)
		order := g.Entity("Order")
		order.AddKey("Id", TypeInt)
		line := g.Entity("OrderLine")
		line.AddKey("Id", TypeInt)
		back := line.AddReference("Order", order, Loose, ToOne, ChildToParent(""), RefRequired())
		lines := order.AddReference("Lines", line, Owned, ToMany)
		require.NoError(t, g.Build())

		j, err := ResolveJoin(lines)
		require.NoError(t, err)
		assert.False(t, j.MultiParent)
		assert.False(t, j.Optional)
		assert.Same(t, back, j.BackReference)
		assert.Equal(t, "OrderId", j.BackForeignKey.Name)
		assert.Same(t, order, j.Owner)
		assert.Same(t, line, j.Target)
	})

	t.Run("to-one follows the foreign key", func(t *testing.T) {
		g := contractGraph(t)
		contract := g.FindType("Contract")

		j, err := ResolveJoin(contract.MustGetProp("BusinessContactId"))
		require.NoError(t, err)
		assert.Same(t, contract.MustGetProp("BusinessContact"), j.Prop, "foreign key resolves to its navigation")
		assert.False(t, j.Optional)

		j, err = ResolveJoin(g.FindType("Contact").MustGetProp("Salutation"))
		require.NoError(t, err)
		assert.True(t, j.Optional)
		assert.Nil(t, j.BackReference)
	})

	t.Run("plain prop", func(t *testing.T) {
		g := contractGraph(t)
		_, err := ResolveJoin(g.FindType("Contact").MustGetProp("LastName"))
		assert.True(t, IsReferenceError(err))
	})
}
