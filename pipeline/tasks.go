package pipeline

import (
	"context"

	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/index"
	"github.com/vegasq/colframe/table"
	"github.com/vegasq/colframe/view"
)

// Select filters src with e and hands the selection to sink. The task
// reports the selection size as its rows.
func Select(name string, src *table.Table, e expr.Expr, params expr.Params, sink func(*view.Filtered[table.Row]) error) Task {
	return Func(name, func(context.Context) (int, error) {
		f, err := view.Filter(src, e, params)
		if err != nil {
			return 0, err
		}
		if sink != nil {
			if err := sink(f); err != nil {
				return f.Size(), err
			}
		}
		return f.Size(), nil
	})
}

// Process runs view.Process over outer and reports how many rows of the
// builder's table were appended while it ran. out may be nil.
func Process(name string, outer *table.Table, out *table.Builder, fn func(table.Row) error, parts ...*view.Partition) Task {
	return Func(name, func(context.Context) (int, error) {
		before := 0
		if out != nil {
			before = out.Table().Len()
		}
		err := view.Process(outer, fn, parts...)
		if out == nil {
			return outer.Len(), err
		}
		return out.Table().Len() - before, err
	})
}

// Index builds the index table described by spec over outer.
func Index(name string, reg *table.Registry, spec index.Spec, outer *table.Table) Task {
	return Func(name, func(context.Context) (int, error) {
		t, err := index.Build(reg, spec, outer)
		if err != nil {
			return 0, err
		}
		return t.Len(), nil
	})
}
