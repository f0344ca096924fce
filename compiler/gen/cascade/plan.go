package cascade

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/mojen"
	"github.com/syssam/mojen/compiler/gen"
)

// StepKind is the way a step reaches the related rows.
type StepKind uint8

// Step kinds.
const (
	// StepLookup looks up a single row by the foreign key of the owner.
	StepLookup StepKind = iota + 1
	// StepQuery queries the rows whose back-reference equals the owner key.
	StepQuery
	// StepSoft queries the rows matching a soft reference predicate.
	StepSoft
)

// String returns the kind name.
func (k StepKind) String() string {
	switch k {
	case StepLookup:
		return "lookup"
	case StepQuery:
		return "query"
	case StepSoft:
		return "soft"
	default:
		return fmt.Sprintf("StepKind(%d)", uint8(k))
	}
}

// Step propagates the operation from a row into related rows of Target.
type Step struct {
	Kind   StepKind
	Target *gen.Type
	// Prop is the reference prop of the owner. Nil for soft steps.
	Prop *gen.Prop
	// Join is the resolved join of Prop. Nil for soft steps.
	Join *gen.Join
	// Soft is the soft reference of a soft step.
	Soft *gen.SoftReference
	// Conditions of a soft step.
	Conditions []gen.SoftCondition
	// Optional steps tolerate a missing related row.
	Optional bool
}

// Name returns the name of the step as used in errors and emitted code.
func (s *Step) Name() string {
	if s.Prop != nil {
		return s.Prop.Name
	}
	return s.Target.Name
}

// ForeignKey returns the foreign key of a lookup step.
func (s *Step) ForeignKey() *gen.Prop {
	if s.Join == nil {
		return nil
	}
	return s.Join.ForeignKey
}

// BackForeignKey returns the back-reference foreign key of a query step.
func (s *Step) BackForeignKey() *gen.Prop {
	if s.Join == nil {
		return nil
	}
	return s.Join.BackForeignKey
}

// Where returns the conditions selecting the related rows of owner.
func (s *Step) Where(owner mojen.Row) []mojen.Condition {
	switch s.Kind {
	case StepQuery:
		return []mojen.Condition{{Path: s.BackForeignKey().Name, Value: owner.Key(), Optional: s.Optional}}
	case StepSoft:
		where := make([]mojen.Condition, len(s.Conditions))
		for i, c := range s.Conditions {
			where[i] = mojen.Condition{Path: c.ChildPath, Value: owner.Value(c.ParentProp), Optional: s.Optional}
		}
		return where
	}
	return nil
}

// TypePlan is the ordered list of steps of one type.
type TypePlan struct {
	Type  *gen.Type
	Steps []*Step
}

// Plan is the compiled cascade of one operation over a graph.
type Plan struct {
	Op             mojen.Op
	Method         string
	ThreadsContext bool
	// Types holds the plans of the types with at least one step, in graph order.
	Types []*TypePlan

	byType map[string]*TypePlan
}

// For returns the plan of the named type, or nil if rows of the type do not
// propagate the operation.
func (p *Plan) For(typeName string) *TypePlan {
	return p.byType[typeName]
}

// Reachable returns the names of the types the operation can reach from
// the given type, in breadth-first order. The root is not included.
func (p *Plan) Reachable(root string) []string {
	var (
		order []string
		seen  = map[string]bool{root: true}
		queue = []string{root}
	)
	for len(queue) > 0 {
		tp := p.For(queue[0])
		queue = queue[1:]
		if tp == nil {
			continue
		}
		for _, s := range tp.Steps {
			if name := s.Target.Name; !seen[name] {
				seen[name] = true
				order = append(order, name)
				queue = append(queue, name)
			}
		}
	}
	return order
}

// Compile compiles the cascade of sel over a built graph. Types are compiled
// in parallel; the plan lists them in graph order. All errors are returned
// together.
func Compile(ctx context.Context, g *gen.Graph, sel *Selector) (*Plan, error) {
	if !g.Built() {
		return nil, gen.NewGenerationError("plan", "", "graph is not built", nil)
	}
	var (
		plans = make([]*TypePlan, len(g.Types))
		errs  = make([]error, len(g.Types))
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.NumWorkers())
	for i, t := range g.Types {
		i, t := i, t
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plans[i], errs[i] = compileType(g, sel, t)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	plan := &Plan{
		Op:             sel.Op,
		Method:         sel.Method,
		ThreadsContext: sel.ThreadsContext,
		byType:         make(map[string]*TypePlan),
	}
	for _, tp := range plans {
		if tp != nil && len(tp.Steps) > 0 {
			plan.Types = append(plan.Types, tp)
			plan.byType[tp.Type.Name] = tp
		}
	}
	g.Log().Debug("cascade compiled",
		zap.Stringer("op", sel.Op),
		zap.Int("types", len(plan.Types)),
	)
	return plan, nil
}

// CompileAll compiles the selectors of the operations enabled by the
// graph config.
func CompileAll(ctx context.Context, g *gen.Graph) ([]*Plan, error) {
	var plans []*Plan
	for _, op := range g.Ops() {
		sel, ok := SelectorFor(op)
		if !ok {
			continue
		}
		plan, err := Compile(ctx, g, sel)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func compileType(g *gen.Graph, sel *Selector, t *gen.Type) (*TypePlan, error) {
	if t.Kind == gen.Enum || t.Kind == gen.Interface {
		return nil, nil
	}
	var (
		tp   = &TypePlan{Type: t}
		errs []error
	)
	for _, p := range t.GetReferenceProps(0, 0) {
		if !Cascadable(p) || (sel.Refs != nil && !sel.Refs(p)) {
			continue
		}
		j, err := gen.ResolveJoin(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		step := &Step{Kind: StepLookup, Target: j.Target, Prop: j.Prop, Join: j, Optional: j.Optional}
		if p.Reference.IsToMany() {
			if j.BackForeignKey == nil {
				g.Log().Debug("skipping hidden collection",
					zap.String("type", t.Name),
					zap.String("prop", p.Name),
				)
				continue
			}
			step.Kind = StepQuery
		}
		if err := checkMarker(sel, t, step); err != nil {
			errs = append(errs, err)
			continue
		}
		tp.Steps = append(tp.Steps, step)
	}
	for _, s := range g.SoftReferencesTo(t) {
		if sel.Softs == nil || !sel.Softs(s) {
			continue
		}
		conds := s.Predicate()
		if len(conds) == 0 {
			errs = append(errs, gen.NewReferenceError(s.Owner.Name, t.Name, "", "soft reference has no predicate", nil))
			continue
		}
		step := &Step{Kind: StepSoft, Target: s.Owner, Soft: s, Conditions: conds, Optional: true}
		if err := checkMarker(sel, t, step); err != nil {
			errs = append(errs, err)
			continue
		}
		tp.Steps = append(tp.Steps, step)
	}
	return tp, multierr.Combine(errs...)
}

func checkMarker(sel *Selector, t *gen.Type, s *Step) error {
	if !sel.RequireDeletedMarker || s.Target.FindDeletedMarker(gen.DeletedMarkerNone) != nil {
		return nil
	}
	return gen.NewSchemaError(t.Name, s.Name(),
		fmt.Sprintf("%s cascade target %s has no deleted marker", sel.Op, s.Target.Name), nil)
}
