package view

import (
	"fmt"
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/table"
)

// Filtered is the immutable selection of the rows of a source that
// satisfied a predicate when the view was built.
type Filtered[R any] struct {
	src  Source[R]
	pred *expr.Predicate
	bits *roaring.Bitmap
	pos  []int
}

// Filter binds e against src and scans src once.
func Filter[R any](src Source[R], e expr.Expr, params expr.Params) (*Filtered[R], error) {
	pred, err := expr.Bind(e, src, params)
	if err != nil {
		return nil, err
	}
	return NewFiltered(src, pred), nil
}

// NewFiltered scans src once in row order with a predicate already bound
// to it.
func NewFiltered[R any](src Source[R], pred *expr.Predicate) *Filtered[R] {
	f := &Filtered[R]{src: src, pred: pred, bits: roaring.New()}
	n := src.Len()
	for p := 0; p < n; p++ {
		if pred.Eval(p) {
			f.pos = append(f.pos, p)
			f.bits.Add(uint32(p))
		}
	}
	return f
}

// Source returns the view's source.
func (f *Filtered[R]) Source() Source[R] {
	return f.src
}

// Predicate returns the bound predicate the view was built with.
func (f *Filtered[R]) Predicate() *expr.Predicate {
	return f.pred
}

// Size returns the number of selected rows.
func (f *Filtered[R]) Size() int {
	return len(f.pos)
}

// At returns the i-th selected row.
func (f *Filtered[R]) At(i int) (R, error) {
	if i < 0 || i >= len(f.pos) {
		var zero R
		return zero, fmt.Errorf("%w: %d not in [0, %d) of filtered view", table.ErrRowOutOfRange, i, len(f.pos))
	}
	return f.src.RowAt(f.pos[i]), nil
}

// Rows iterates the selected rows in source order, yielding the source
// position with each row.
func (f *Filtered[R]) Rows() iter.Seq2[int, R] {
	return func(yield func(int, R) bool) {
		for _, p := range f.pos {
			if !yield(p, f.src.RowAt(p)) {
				return
			}
		}
	}
}

// Positions returns the selected source positions in ascending order.
func (f *Filtered[R]) Positions() []int {
	return slices.Clone(f.pos)
}

// Contains reports whether the source row at pos was selected.
func (f *Filtered[R]) Contains(pos int) bool {
	return pos >= 0 && f.bits.Contains(uint32(pos))
}

// Bitmap returns a copy of the selection.
func (f *Filtered[R]) Bitmap() *roaring.Bitmap {
	return f.bits.Clone()
}

// Columns returns the source column names.
func (f *Filtered[R]) Columns() []string {
	return f.src.Columns()
}

// Record returns the values of the i-th selected row.
func (f *Filtered[R]) Record(i int) ([]any, error) {
	if i < 0 || i >= len(f.pos) {
		return nil, fmt.Errorf("%w: %d not in [0, %d) of filtered view", table.ErrRowOutOfRange, i, len(f.pos))
	}
	return f.src.Record(f.pos[i])
}
