package cascade

import (
	"context"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/mojen"
	"github.com/syssam/mojen/compiler/gen"
)

const runtimePkg = "github.com/syssam/mojen"

// emitter renders one plan. Plans that thread the repositories through emit
// free functions; the others emit methods on a struct named after the plan.
type emitter struct {
	plan *Plan
	// prefix of the unexported helpers, e.g. "deleteCascade".
	prefix string
}

// Emit returns the Go source of the plan: one function per type, the
// any-type dispatch function and the exported entry point.
func Emit(plan *Plan, c *gen.Config) *jen.File {
	var f *jen.File
	if c != nil && c.Package != "" {
		f = jen.NewFilePath(c.Package)
	} else {
		f = jen.NewFile("cascade")
	}
	f.HeaderComment(c.HeaderText())
	e := &emitter{plan: plan, prefix: lowerFirst(plan.Method)}
	if !plan.ThreadsContext {
		e.genStruct(f)
	}
	e.genEntry(f)
	e.genDispatch(f)
	e.genApply(f)
	for _, tp := range plan.Types {
		e.genType(f, tp)
	}
	return f
}

// Files compiles the plans of the enabled operations and emits one file each.
func Files(ctx context.Context, g *gen.Graph) ([]gen.GeneratedFile, error) {
	plans, err := CompileAll(ctx, g)
	if err != nil {
		return nil, err
	}
	files := make([]gen.GeneratedFile, len(plans))
	for i, p := range plans {
		files[i] = gen.GeneratedFile{Name: snake(p.Method) + ".go", File: Emit(p, g.Config)}
	}
	return files, nil
}

func (e *emitter) genStruct(f *jen.File) {
	name := e.plan.Method
	f.Commentf("%s propagates %s into related rows.", name, e.plan.Op)
	f.Type().Id(name).Struct(
		jen.Id("Repos").Qual(runtimePkg, "Repositories"),
	)
}

// fn starts a function or method declaration.
func (e *emitter) fn(name string) *jen.Statement {
	if e.plan.ThreadsContext {
		return jen.Func().Id(name)
	}
	return jen.Func().Params(jen.Id("c").Op("*").Id(e.plan.Method)).Id(name)
}

// params returns the parameters of the helpers.
func (e *emitter) params(seen bool) []jen.Code {
	ps := []jen.Code{jen.Id("ctx").Qual("context", "Context")}
	if e.plan.ThreadsContext {
		ps = append(ps, jen.Id("repos").Qual(runtimePkg, "Repositories"))
	}
	ps = append(ps, jen.Id("row").Qual(runtimePkg, "Row"))
	if seen {
		ps = append(ps, jen.Id("seen").Qual(runtimePkg, "Visited"))
	}
	return ps
}

// call calls a helper with the row expression.
func (e *emitter) call(name string, row string) *jen.Statement {
	if e.plan.ThreadsContext {
		return jen.Id(name).Call(jen.Id("ctx"), jen.Id("repos"), jen.Id(row), jen.Id("seen"))
	}
	return jen.Id("c").Dot(name).Call(jen.Id("ctx"), jen.Id(row), jen.Id("seen"))
}

func (e *emitter) repos() *jen.Statement {
	if e.plan.ThreadsContext {
		return jen.Id("repos")
	}
	return jen.Id("c").Dot("Repos")
}

func (e *emitter) genEntry(f *jen.File) {
	name := e.plan.Method
	if !e.plan.ThreadsContext {
		name = "Dispatch"
	}
	f.Commentf("%s propagates %s from a row of any type into its related rows.", name, e.plan.Op)
	f.Add(e.fn(name).Params(e.params(false)...).Error().Block(
		jen.Id("seen").Op(":=").Qual(runtimePkg, "Visited").Values(),
		jen.Id("seen").Dot("Visit").Call(jen.Id("row")),
		jen.Return(e.call(e.prefix+"Dispatch", "row")),
	))
}

func (e *emitter) genDispatch(f *jen.File) {
	f.Add(e.fn(e.prefix+"Dispatch").Params(e.params(true)...).Error().Block(
		jen.Switch(jen.Id("row").Dot("TypeName").Call()).BlockFunc(func(grp *jen.Group) {
			for _, tp := range e.plan.Types {
				grp.Case(jen.Lit(tp.Type.Name)).Block(
					jen.Return(e.call(e.prefix+tp.Type.Name, "row")),
				)
			}
		}),
		jen.Return(jen.Nil()),
	))
}

func (e *emitter) genApply(f *jen.File) {
	f.Add(e.fn(e.prefix+"Apply").Params(e.params(true)...).Error().Block(
		jen.If(jen.Op("!").Id("seen").Dot("Visit").Call(jen.Id("row"))).Block(
			jen.Return(jen.Nil()),
		),
		jen.If(
			jen.Id("err").Op(":=").Add(e.repos()).Dot("Apply").Call(jen.Id("ctx"), e.op(), jen.Id("row")),
			jen.Id("err").Op("!=").Nil(),
		).Block(
			jen.Return(jen.Id("err")),
		),
		jen.Return(e.call(e.prefix+"Dispatch", "row")),
	))
}

func (e *emitter) op() *jen.Statement {
	switch e.plan.Op {
	case mojen.OpAddNested:
		return jen.Qual(runtimePkg, "OpAddNested")
	case mojen.OpUpdateNested:
		return jen.Qual(runtimePkg, "OpUpdateNested")
	case mojen.OpDelete:
		return jen.Qual(runtimePkg, "OpDelete")
	case mojen.OpSoftDelete:
		return jen.Qual(runtimePkg, "OpSoftDelete")
	case mojen.OpRestore:
		return jen.Qual(runtimePkg, "OpRestore")
	}
	return jen.Qual(runtimePkg, "Op").Call(jen.Lit(int(e.plan.Op)))
}

func (e *emitter) cascadeErr(tp *TypePlan, s *Step) *jen.Statement {
	return jen.Qual(runtimePkg, "NewCascadeError").Call(e.op(), jen.Lit(tp.Type.Name), jen.Lit(s.Name()), jen.Id("err"))
}

// wrapErr wraps the error of a nested apply. Errors of deeper steps are
// already cascade errors and pass through.
func (e *emitter) wrapErr(tp *TypePlan, s *Step) *jen.Statement {
	return jen.Qual(runtimePkg, "WrapCascadeError").Call(e.op(), jen.Lit(tp.Type.Name), jen.Lit(s.Name()), jen.Id("err"))
}

func (e *emitter) genType(f *jen.File, tp *TypePlan) {
	f.Commentf("%s%s propagates %s from %s rows.", e.prefix, tp.Type.Name, e.plan.Op, tp.Type.Name)
	f.Add(e.fn(e.prefix+tp.Type.Name).Params(e.params(true)...).Error().BlockFunc(func(grp *jen.Group) {
		for _, s := range tp.Steps {
			switch s.Kind {
			case StepLookup:
				e.genLookup(grp, tp, s)
			default:
				e.genQuery(grp, tp, s)
			}
		}
		grp.Return(jen.Nil())
	}))
}

// genLookup emits the lookup of a single row by foreign key.
func (e *emitter) genLookup(grp *jen.Group, tp *TypePlan, s *Step) {
	grp.Commentf("%s: lookup by %s.", s.Name(), s.ForeignKey().Name)
	grp.If(
		jen.Id("key").Op(":=").Id("row").Dot("Value").Call(jen.Lit(s.ForeignKey().Name)),
		jen.Op("!").Qual(runtimePkg, "IsZero").Call(jen.Id("key")),
	).BlockFunc(func(b *jen.Group) {
		b.List(jen.Id("rel"), jen.Id("err")).Op(":=").Add(e.repos()).Dot("Get").Call(
			jen.Id("ctx"), jen.Lit(s.Target.Name), jen.Id("key"),
		)
		b.Switch().BlockFunc(func(sw *jen.Group) {
			if s.Optional {
				sw.Case(jen.Qual(runtimePkg, "IsNotFound").Call(jen.Id("err"))).Block()
			}
			sw.Case(jen.Id("err").Op("!=").Nil()).Block(
				jen.Return(e.cascadeErr(tp, s)),
			)
			sw.Default().Block(
				jen.If(jen.Id("err").Op(":=").Add(e.call(e.prefix+"Apply", "rel")), jen.Id("err").Op("!=").Nil()).Block(
					jen.Return(e.wrapErr(tp, s)),
				),
			)
		})
	})
}

// genQuery emits the query of the rows pointing back at the row.
func (e *emitter) genQuery(grp *jen.Group, tp *TypePlan, s *Step) {
	var where []jen.Code
	switch s.Kind {
	case StepQuery:
		grp.Commentf("%s: query by %s.", s.Name(), s.BackForeignKey().Name)
		where = append(where, e.condition(s.BackForeignKey().Name, jen.Id("row").Dot("Key").Call(), s.Optional))
	case StepSoft:
		grp.Commentf("%s: soft reference.", s.Name())
		for _, c := range s.Conditions {
			where = append(where, e.condition(c.ChildPath, jen.Id("row").Dot("Value").Call(jen.Lit(c.ParentProp)), s.Optional))
		}
	}
	grp.BlockFunc(func(b *jen.Group) {
		b.List(jen.Id("rows"), jen.Id("err")).Op(":=").Add(e.repos()).Dot("Query").Call(
			append([]jen.Code{jen.Id("ctx"), jen.Lit(s.Target.Name)}, where...)...,
		)
		b.If(jen.Id("err").Op("!=").Nil()).Block(
			jen.Return(e.cascadeErr(tp, s)),
		)
		b.For(jen.List(jen.Id("_"), jen.Id("rel")).Op(":=").Range().Id("rows")).Block(
			jen.If(jen.Id("err").Op(":=").Add(e.call(e.prefix+"Apply", "rel")), jen.Id("err").Op("!=").Nil()).Block(
				jen.Return(e.wrapErr(tp, s)),
			),
		)
	})
}

func (e *emitter) condition(path string, value jen.Code, optional bool) jen.Code {
	fields := jen.Dict{
		jen.Id("Path"):  jen.Lit(path),
		jen.Id("Value"): value,
	}
	if optional {
		fields[jen.Id("Optional")] = jen.True()
	}
	return jen.Qual(runtimePkg, "Condition").Values(fields)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// snake converts a Pascal cased name, e.g. "DeleteCascade" gives "delete_cascade".
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
