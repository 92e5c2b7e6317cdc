package table

import "fmt"

// Row is a transient, non-owning view of one row of a table. Appends never
// move existing rows; a SetColumns load replaces what every row reads.
type Row struct {
	t   *Table
	pos int
}

// Table returns the table the row belongs to.
func (r Row) Table() *Table {
	return r.t
}

// Index returns the row position within its table.
func (r Row) Index() int {
	return r.pos
}

func (r Row) String() string {
	return fmt.Sprintf("%s[%d]", r.t.schema.id, r.pos)
}

// Get returns the value of the named column. Array columns are returned as
// a slice view into the column store.
func (r Row) Get(name string) (any, error) {
	i, err := r.t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	return r.t.vecs[i].valueAt(r.pos), nil
}

// Float64 returns a scalar column converted to float64.
func (r Row) Float64(name string) (float64, error) {
	i, err := r.t.columnIndex(name)
	if err != nil {
		return 0, err
	}
	if r.t.schema.columns[i].Type.IsArray() {
		return 0, fmt.Errorf("%w: %s.%s is an array column", ErrTypeMismatch, r.t.schema.id, name)
	}
	return r.t.vecs[i].float64At(r.pos, 0), nil
}

// Values returns all column values in declared order.
func (r Row) Values() []any {
	out := make([]any, len(r.t.vecs))
	for i, v := range r.t.vecs {
		out[i] = v.valueAt(r.pos)
	}
	return out
}

// ValueOf returns the typed value of a scalar column.
func ValueOf[T Scalar](r Row, name string) (T, error) {
	var zero T
	i, err := r.t.columnIndex(name)
	if err != nil {
		return zero, err
	}
	v, ok := r.t.vecs[i].(*vec[T])
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s is %s, not %T", ErrTypeMismatch, r.t.schema.id, name, r.t.schema.columns[i].Type, zero)
	}
	if v.t.IsArray() {
		return zero, fmt.Errorf("%w: %s.%s is an array column", ErrTypeMismatch, r.t.schema.id, name)
	}
	return v.vals[r.pos], nil
}

// Elements returns a read-only slice view of an array column.
func Elements[T Scalar](r Row, name string) ([]T, error) {
	i, err := r.t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	v, ok := r.t.vecs[i].(*vec[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %s.%s is %s, not %T", ErrTypeMismatch, r.t.schema.id, name, r.t.schema.columns[i].Type, zero)
	}
	return v.slice(r.pos), nil
}

func (r Row) indexColumn(name string) (ColumnSpec, *vec[int32], error) {
	i, err := r.t.columnIndex(name)
	if err != nil {
		return ColumnSpec{}, nil, err
	}
	c := r.t.schema.columns[i]
	if !c.IsIndex() {
		return ColumnSpec{}, nil, fmt.Errorf("%w: %s.%s is not an index column", ErrTypeMismatch, r.t.schema.id, name)
	}
	return c, r.t.vecs[i].(*vec[int32]), nil
}

// Reference returns the stored position of slot i of an index column,
// Unset when there is none.
func (r Row) Reference(name string, slot int) (int32, error) {
	c, v, err := r.indexColumn(name)
	if err != nil {
		return Unset, err
	}
	if slot < 0 || slot >= c.Type.Width {
		return Unset, fmt.Errorf("%w: slot %d of %s.%s (width %d)", ErrRowOutOfRange, slot, r.t.schema.id, name, c.Type.Width)
	}
	return v.at(r.pos, slot), nil
}

// HasReference reports whether a singular index column is set.
func (r Row) HasReference(name string) (bool, error) {
	return r.HasReferenceAt(name, 0)
}

// HasReferenceAt reports whether slot i of an index column is set.
func (r Row) HasReferenceAt(name string, slot int) (bool, error) {
	p, err := r.Reference(name, slot)
	if err != nil {
		return false, err
	}
	return p != Unset, nil
}

// Follow returns the row referenced by a singular index column.
func (r Row) Follow(name string) (Row, error) {
	return r.FollowAt(name, 0)
}

// FollowAt returns the row referenced by slot i of an index column. An
// unset slot fails with ErrUnresolvedReference.
func (r Row) FollowAt(name string, slot int) (Row, error) {
	p, err := r.Reference(name, slot)
	if err != nil {
		return Row{}, err
	}
	if p == Unset {
		return Row{}, fmt.Errorf("%w: %s.%s is unset", ErrUnresolvedReference, r, name)
	}
	i, _ := r.t.indexColumn(name)
	target, err := r.t.referent(i)
	if err != nil {
		return Row{}, err
	}
	return target.Row(int(p))
}
