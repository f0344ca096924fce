package cascade

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/mojen"
	"github.com/syssam/mojen/compiler/gen"
)

// =============================================================================
// Fixtures
// =============================================================================

type memRow struct {
	typ    string
	key    any
	values map[string]any
}

func (r *memRow) TypeName() string { return r.typ }
func (r *memRow) Key() any { return r.key }

func (r *memRow) Value(path string) any {
	if path == "Id" {
		return r.key
	}
	return r.values[path]
}

func newRow(typ string, key any, kv ...any) *memRow {
	r := &memRow{typ: typ, key: key, values: make(map[string]any)}
	for i := 0; i+1 < len(kv); i += 2 {
		r.values[kv[i].(string)] = kv[i+1]
	}
	return r
}

// memRepos is an in-memory mojen.Repositories recording every call.
type memRepos struct {
	rows    map[string][]*memRow
	applied []string
	queries []string
}

func newRepos(rows ...*memRow) *memRepos {
	r := &memRepos{rows: make(map[string][]*memRow)}
	for _, row := range rows {
		r.rows[row.typ] = append(r.rows[row.typ], row)
	}
	return r
}

func (r *memRepos) Get(_ context.Context, typ string, key any) (mojen.Row, error) {
	for _, row := range r.rows[typ] {
		if row.key == key {
			return row, nil
		}
	}
	return nil, mojen.NewNotFoundErrorWithKey(typ, key)
}

func (r *memRepos) Query(_ context.Context, typ string, where ...mojen.Condition) ([]mojen.Row, error) {
	r.queries = append(r.queries, fmt.Sprintf("%s %v", typ, where))
	var out []mojen.Row
	for _, row := range r.rows[typ] {
		match := true
		for _, c := range where {
			if row.Value(c.Path) != c.Value {
				match = false
			}
		}
		if match {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRepos) Apply(_ context.Context, op mojen.Op, row mojen.Row) error {
	r.applied = append(r.applied, fmt.Sprintf("%s %s/%v", op, row.TypeName(), row.Key()))
	return nil
}

func deletedMarker() gen.PropOption {
	return gen.WithDeletedMarker(gen.DeletedMarkerSelf)
}

// invoiceGraph: Invoice owns a required Address.
func invoiceGraph(t *testing.T) *gen.Graph {
	t.Helper()
	g := gen.NewGraph(nil)
	address := g.Entity("Address")
	address.AddKey("Id", gen.TypeInt)
	address.AddProp("Street", gen.TypeString)
	address.AddProp("IsDeleted", gen.TypeBool, deletedMarker())
	invoice := g.Entity("Invoice")
	invoice.AddKey("Id", gen.TypeInt)
	invoice.AddReference("Address", address, gen.Owned, gen.ToOne, gen.RefRequired())
	require.NoError(t, g.Build())
	return g
}

// projectGraph: Project has independent Tasks pointing back with ProjectId,
// and Comments related to the project through their task.
func projectGraph(t *testing.T) *gen.Graph {
	t.Helper()
	g := gen.NewGraph(nil)
	project := g.Entity("Project")
	project.AddKey("Id", gen.TypeInt)
	project.AddProp("IsDeleted", gen.TypeBool, deletedMarker())
	task := g.Entity("Task")
	task.AddKey("Id", gen.TypeInt)
	task.AddProp("IsDeleted", gen.TypeBool, deletedMarker())
	task.AddReference("Project", project, gen.Loose, gen.ToOne, gen.ChildToParent(""), gen.RefRequired())
	project.AddReference("Tasks", task, gen.Independent, gen.ToMany, gen.WithBackReference("Project"))
	comment := g.Entity("Comment")
	comment.AddKey("Id", gen.TypeInt)
	comment.AddProp("IsDeleted", gen.TypeBool, deletedMarker())
	comment.AddReference("Task", task, gen.Loose, gen.ToOne)
	path, err := gen.PathFrom(comment, "Task", "Project")
	require.NoError(t, err)
	comment.AddSoftReference(project, path)
	require.NoError(t, g.Build())
	return g
}

// jobTimeGraph: JobTimeRange rows belong either to a WorkTime or to a BreakTime.
func jobTimeGraph(t *testing.T) *gen.Graph {
	t.Helper()
	g := gen.NewGraph(nil)
	jtr := g.Entity("JobTimeRange")
	jtr.AddKey("Id", gen.TypeInt)
	jtr.AddProp("IsDeleted", gen.TypeBool, deletedMarker())
	work := g.Entity("WorkTime")
	work.AddKey("Id", gen.TypeInt)
	brk := g.Entity("BreakTime")
	brk.AddKey("Id", gen.TypeInt)
	jtr.AddReference("WorkTime", work, gen.Loose, gen.ToOneOrZero, gen.ChildToParent(""))
	jtr.AddReference("BreakTime", brk, gen.Loose, gen.ToOneOrZero, gen.ChildToParent(""))
	work.AddReference("Ranges", jtr, gen.Nested|gen.Owned, gen.ToMany, gen.WithBackReference("WorkTime"))
	brk.AddReference("Ranges", jtr, gen.Nested|gen.Owned, gen.ToMany, gen.WithBackReference("BreakTime"))
	require.NoError(t, g.Build())
	return g
}

// orderGraph: OrderLine rows belong to exactly one Order by a required key.
func orderGraph(t *testing.T) *gen.Graph {
	t.Helper()
	g := gen.NewGraph(nil)
	order := g.Entity("Order")
	order.AddKey("Id", gen.TypeInt)
	line := g.Entity("OrderLine")
	line.AddKey("Id", gen.TypeInt)
	line.AddProp("IsDeleted", gen.TypeBool, deletedMarker())
	line.AddReference("Order", order, gen.Loose, gen.ToOne, gen.ChildToParent(""), gen.RefRequired())
	order.AddReference("Lines", line, gen.Nested|gen.Owned, gen.ToMany, gen.WithBackReference("Order"))
	require.NoError(t, g.Build())
	return g
}

func compile(t *testing.T, g *gen.Graph, sel *Selector) *Plan {
	t.Helper()
	plan, err := Compile(context.Background(), g, sel)
	require.NoError(t, err)
	return plan
}
