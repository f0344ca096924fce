package cascade

import (
	"context"

	"go.uber.org/zap"

	"github.com/syssam/mojen"
)

// Dispatcher runs a compiled plan against stored rows. It is the
// interpreted counterpart of the code produced by Emit.
type Dispatcher struct {
	plan *Plan
	log  *zap.Logger
}

// NewDispatcher returns a dispatcher of the plan. A nil logger disables logging.
func NewDispatcher(plan *Plan, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{plan: plan, log: log}
}

// Plan returns the plan of the dispatcher.
func (d *Dispatcher) Plan() *Plan {
	return d.plan
}

// Dispatch propagates the operation from row, of any type, into all related
// rows selected by the plan, recursively. The operation is not applied to
// row itself. Every row is visited at most once.
func (d *Dispatcher) Dispatch(ctx context.Context, repos mojen.Repositories, row mojen.Row) error {
	seen := mojen.Visited{}
	seen.Visit(row)
	return d.propagate(ctx, repos, row, seen)
}

func (d *Dispatcher) propagate(ctx context.Context, repos mojen.Repositories, row mojen.Row, seen mojen.Visited) error {
	tp := d.plan.For(row.TypeName())
	if tp == nil {
		return nil
	}
	for _, s := range tp.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		related, err := d.related(ctx, repos, row, s)
		if err != nil {
			return mojen.NewCascadeError(d.plan.Op, tp.Type.Name, s.Name(), err)
		}
		for _, rel := range related {
			if !seen.Visit(rel) {
				continue
			}
			d.log.Debug("cascade",
				zap.Stringer("op", d.plan.Op),
				zap.String("from", tp.Type.Name),
				zap.String("via", s.Name()),
				zap.String("to", rel.TypeName()),
				zap.Any("key", rel.Key()),
			)
			if err := repos.Apply(ctx, d.plan.Op, rel); err != nil {
				return mojen.WrapCascadeError(d.plan.Op, tp.Type.Name, s.Name(), err)
			}
			if err := d.propagate(ctx, repos, rel, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// related returns the rows a step reaches from row.
func (d *Dispatcher) related(ctx context.Context, repos mojen.Repositories, row mojen.Row, s *Step) ([]mojen.Row, error) {
	if s.Kind != StepLookup {
		return repos.Query(ctx, s.Target.Name, s.Where(row)...)
	}
	key := row.Value(s.ForeignKey().Name)
	if mojen.IsZero(key) {
		return nil, nil
	}
	rel, err := repos.Get(ctx, s.Target.Name, key)
	switch {
	case mojen.IsNotFound(err) && s.Optional:
		return nil, nil
	case err != nil:
		return nil, err
	}
	return []mojen.Row{rel}, nil
}
