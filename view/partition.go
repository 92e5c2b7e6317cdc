package view

import (
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/table"
)

// State is the computation state of a Partition.
type State int

const (
	// Uncomputed means the selection for the current context is stale.
	Uncomputed State = iota
	// Computed means the selection for the current context is cached.
	Computed
)

func (s State) String() string {
	if s == Computed {
		return "computed"
	}
	return "uncomputed"
}

// Partition is the filtered subset of an inner table that belongs to the
// current outer row. Entering a new outer row marks it Uncomputed; the
// first read computes and caches the selection, later reads in the same
// context return the cache without rescanning.
type Partition struct {
	inner *table.Table
	group *Grouping
	pred  *expr.Predicate

	state State
	outer int
	pos   []int
	scans int
}

// NewPartition binds e against inner. With a grouping column the
// partition only considers inner rows whose index column points at the
// current outer row; with column "" it considers the whole inner table.
// A nil e selects every considered row.
func NewPartition(inner *table.Table, column string, e expr.Expr, params expr.Params) (*Partition, error) {
	p := &Partition{inner: inner, outer: -1}
	if column != "" {
		g, err := NewGrouping(inner, column)
		if err != nil {
			return nil, err
		}
		p.group = g
	}
	if e != nil {
		pred, err := expr.Bind(e, inner, params)
		if err != nil {
			return nil, err
		}
		p.pred = pred
	}
	return p, nil
}

// Enter switches the partition to the outer row at pos. Entering the
// current context again keeps the cached selection.
func (p *Partition) Enter(pos int) {
	if pos == p.outer {
		return
	}
	p.outer = pos
	p.state = Uncomputed
}

// Invalidate forces recomputation on the next read.
func (p *Partition) Invalidate() {
	p.state = Uncomputed
}

// State returns the current state.
func (p *Partition) State() State {
	return p.state
}

// Context returns the current outer position, -1 before the first Enter.
func (p *Partition) Context() int {
	return p.outer
}

// Scans returns how many times the selection was computed.
func (p *Partition) Scans() int {
	return p.scans
}

func (p *Partition) compute() error {
	if p.outer < 0 {
		return fmt.Errorf("%w: %s", ErrNoContext, p.inner.ID())
	}
	if p.state == Computed {
		return nil
	}

	p.pos = nil
	if p.group != nil {
		for _, i := range p.group.Slice(p.outer) {
			if p.pred == nil || p.pred.Eval(i) {
				p.pos = append(p.pos, i)
			}
		}
	} else {
		n := p.inner.Len()
		for i := 0; i < n; i++ {
			if p.pred == nil || p.pred.Eval(i) {
				p.pos = append(p.pos, i)
			}
		}
	}
	p.state = Computed
	p.scans++
	logutil.Debug("partition computed",
		zap.Stringer("table", p.inner.ID()),
		zap.Int("outer", p.outer),
		zap.Int("selected", len(p.pos)))
	return nil
}

// Size returns the number of selected rows in the current context.
func (p *Partition) Size() (int, error) {
	if err := p.compute(); err != nil {
		return 0, err
	}
	return len(p.pos), nil
}

// At returns the i-th selected row in the current context.
func (p *Partition) At(i int) (table.Row, error) {
	if err := p.compute(); err != nil {
		return table.Row{}, err
	}
	if i < 0 || i >= len(p.pos) {
		return table.Row{}, fmt.Errorf("%w: %d not in [0, %d) of partition", table.ErrRowOutOfRange, i, len(p.pos))
	}
	return p.inner.RowAt(p.pos[i]), nil
}

// Positions returns the selected inner positions in the current context.
func (p *Partition) Positions() ([]int, error) {
	if err := p.compute(); err != nil {
		return nil, err
	}
	return slices.Clone(p.pos), nil
}

// Rows iterates the selected rows in the current context. The selection is
// computed before the first row is yielded; the returned error reports a
// read before Enter.
func (p *Partition) Rows() (iter.Seq2[int, table.Row], error) {
	if err := p.compute(); err != nil {
		return nil, err
	}
	sel := p.pos
	return func(yield func(int, table.Row) bool) {
		for _, i := range sel {
			if !yield(i, p.inner.RowAt(i)) {
				return
			}
		}
	}, nil
}

// Process iterates the outer table in order. For each outer row it enters
// every partition, then calls fn. The first error returned by fn stops
// the loop and is returned.
func Process(outer *table.Table, fn func(table.Row) error, parts ...*Partition) error {
	for i, row := range outer.Rows() {
		for _, part := range parts {
			part.Enter(i)
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s: %w", row, err)
		}
	}
	return nil
}
