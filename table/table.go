package table

import (
	"fmt"
	"iter"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Table is one instance of a declared schema: a column store holding one
// typed array per column. Rows are appended one at a time or replaced as a
// whole by SetColumns.
type Table struct {
	schema   *Schema
	instance uuid.UUID
	reg      *Registry
	vecs     []vector
	// refs holds the bound referent of each index column, nil when unbound
	refs   []*Table
	n      int
	loads  int
	frozen bool
}

// ID returns the declared table identifier.
func (t *Table) ID() ID {
	return t.schema.id
}

// Loads counts the successful SetColumns calls, which replace rows
// instead of appending them.
func (t *Table) Loads() int {
	return t.loads
}

// Schema returns the table schema.
func (t *Table) Schema() *Schema {
	return t.schema
}

// Instance returns the unique id of this table instance.
func (t *Table) Instance() uuid.UUID {
	return t.instance
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.n
}

// Size is Len, for use where tables and views are interchangeable.
func (t *Table) Size() int {
	return t.n
}

// Columns returns the column names in declared order.
func (t *Table) Columns() []string {
	return t.schema.Names()
}

// Frozen reports whether the table rejects further writes.
func (t *Table) Frozen() bool {
	return t.frozen
}

// Freeze makes the table read-only.
func (t *Table) Freeze() {
	t.frozen = true
}

func (t *Table) String() string {
	return fmt.Sprintf("%s(%d rows)", t.schema.id, t.n)
}

// Row returns a view of the row at pos.
func (t *Table) Row(pos int) (Row, error) {
	if pos < 0 || pos >= t.n {
		return Row{}, fmt.Errorf("%w: %d not in [0, %d) of %s", ErrRowOutOfRange, pos, t.n, t.schema.id)
	}
	return Row{t: t, pos: pos}, nil
}

// RowAt returns a view of the row at pos without bounds checking.
// Callers iterating 0..Len()-1 use it to avoid the error path.
func (t *Table) RowAt(pos int) Row {
	return Row{t: t, pos: pos}
}

// Rows iterates all rows in order.
func (t *Table) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := 0; i < t.n; i++ {
			if !yield(i, Row{t: t, pos: i}) {
				return
			}
		}
	}
}

// Record returns the values of row i in declared column order.
func (t *Table) Record(i int) ([]any, error) {
	r, err := t.Row(i)
	if err != nil {
		return nil, err
	}
	return r.Values(), nil
}

// Column returns the backing array of the named column. The slice must be
// treated as read-only; array columns are returned flattened.
func (t *Table) Column(name string) (any, error) {
	i, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	return t.vecs[i].data(), nil
}

func (t *Table) columnIndex(name string) (int, error) {
	i, ok := t.schema.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q in %s", ErrUnknownColumn, name, t.schema.id)
	}
	return i, nil
}

// Referent returns the table the named index column points into: the
// instance bound to it, or the live instance of the referenced id when
// the column is unbound.
func (t *Table) Referent(name string) (*Table, error) {
	i, err := t.indexColumn(name)
	if err != nil {
		return nil, err
	}
	return t.referent(i)
}

// BindReferent pins the named index column to target, which must be an
// instance of the referenced table. Later instances created for that id
// do not change where the column points.
func (t *Table) BindReferent(name string, target *Table) error {
	i, err := t.indexColumn(name)
	if err != nil {
		return err
	}
	c := t.schema.columns[i]
	if target == nil || target.ID() != *c.Ref {
		return fmt.Errorf("%w: %s.%s references %s", ErrTypeMismatch, t.schema.id, name, c.Ref)
	}
	t.refs[i] = target
	return nil
}

func (t *Table) indexColumn(name string) (int, error) {
	i, err := t.columnIndex(name)
	if err != nil {
		return 0, err
	}
	if !t.schema.columns[i].IsIndex() {
		return 0, fmt.Errorf("%w: %s.%s is not an index column", ErrTypeMismatch, t.schema.id, name)
	}
	return i, nil
}

// referent resolves index column i.
func (t *Table) referent(i int) (*Table, error) {
	if target := t.refs[i]; target != nil {
		return target, nil
	}
	c := t.schema.columns[i]
	if t.reg == nil {
		return nil, fmt.Errorf("%w: %s has no registry", ErrUnresolvedReference, t.schema.id)
	}
	target, ok := t.reg.Lookup(*c.Ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s points to %s which has no instance", ErrUnresolvedReference, t.schema.id, c.Name, c.Ref)
	}
	return target, nil
}

// SetColumns replaces the table contents with one array per declared
// column, as supplied by a loader. The arrays are used without copying.
// Array columns take the flattened values (Width per row). Nothing is
// changed unless every array is valid; accessors bound earlier read the
// new contents.
func (t *Table) SetColumns(arrays map[string]any) error {
	if t.frozen {
		return fmt.Errorf("%w: %s", ErrReadOnly, t.schema.id)
	}
	for name := range arrays {
		if _, ok := t.schema.byName[name]; !ok {
			return fmt.Errorf("%w: %q in %s", ErrUnknownColumn, name, t.schema.id)
		}
	}
	if len(arrays) != t.schema.Len() {
		var missing []string
		for _, c := range t.schema.columns {
			if _, ok := arrays[c.Name]; !ok {
				missing = append(missing, c.Name)
			}
		}
		sort.Strings(missing)
		return fmt.Errorf("%w: %s: missing columns %s", ErrArityMismatch, t.schema.id, strings.Join(missing, ", "))
	}

	rows := -1
	for _, c := range t.schema.columns {
		n, err := newVector(c.Type).set(arrays[c.Name])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.schema.id, c.Name, err)
		}
		if rows >= 0 && n != rows {
			return fmt.Errorf("%w: %s.%s has %d rows, expected %d", ErrArityMismatch, t.schema.id, c.Name, n, rows)
		}
		rows = n
	}
	if rows < 0 {
		rows = 0
	}

	// the vectors stay in place so that bound accessors follow the new data
	for i, c := range t.schema.columns {
		if _, err := t.vecs[i].set(arrays[c.Name]); err != nil {
			return fmt.Errorf("%s.%s: %w", t.schema.id, c.Name, err)
		}
	}
	t.n = rows
	t.loads++
	return nil
}

// Accessor is a non-allocating numeric reader of one column element by row
// position, used by the filter evaluator. Booleans read as 0 or 1. Values
// read through an unresolved reference are NaN and not Valid.
type Accessor interface {
	Float64(pos int) float64
	Valid(pos int) bool
}

// Accessor returns a reader for element elem of the named column. The name
// may be a dotted path "ref.column" where ref is a singular index column;
// the path is resolved against the referent of the index column.
func (t *Table) Accessor(name string, elem int) (Accessor, error) {
	head, rest, dotted := strings.Cut(name, ".")
	i, err := t.columnIndex(head)
	if err != nil {
		return nil, err
	}
	c := t.schema.columns[i]

	if !dotted {
		if elem < 0 || elem >= c.Type.Width {
			return nil, fmt.Errorf("%w: %s.%s[%d] exceeds width %d", ErrUnknownColumn, t.schema.id, name, elem, c.Type.Width)
		}
		if c.IsIndex() {
			return &indexAccessor{v: t.vecs[i].(*vec[int32]), elem: elem}, nil
		}
		return &columnAccessor{v: t.vecs[i], elem: elem}, nil
	}

	if err := t.followable(i); err != nil {
		return nil, err
	}
	target, err := t.referent(i)
	if err != nil {
		return nil, err
	}
	return t.refAccessor(i, target, rest, elem)
}

// AccessorThrough is Accessor for the path link.name with the link
// resolved into target instead of the column's referent. Target must be
// an instance of the table link references.
func (t *Table) AccessorThrough(link string, target *Table, name string, elem int) (Accessor, error) {
	i, err := t.columnIndex(link)
	if err != nil {
		return nil, err
	}
	if err := t.followable(i); err != nil {
		return nil, err
	}
	if target == nil || target.ID() != *t.schema.columns[i].Ref {
		return nil, fmt.Errorf("%w: %s.%s does not reference the given table", ErrTypeMismatch, t.schema.id, link)
	}
	return t.refAccessor(i, target, name, elem)
}

func (t *Table) followable(i int) error {
	c := t.schema.columns[i]
	if !c.IsIndex() {
		return fmt.Errorf("%w: %s.%s is not an index column", ErrUnknownColumn, t.schema.id, c.Name)
	}
	if c.Type.IsArray() {
		return fmt.Errorf("%w: %s.%s is a compound index column and cannot be followed by name", ErrUnknownColumn, t.schema.id, c.Name)
	}
	return nil
}

func (t *Table) refAccessor(i int, target *Table, name string, elem int) (Accessor, error) {
	inner, err := target.Accessor(name, elem)
	if err != nil {
		return nil, err
	}
	return &refAccessor{idx: t.vecs[i].(*vec[int32]), target: target, inner: inner}, nil
}

type columnAccessor struct {
	v    vector
	elem int
}

func (a *columnAccessor) Float64(pos int) float64 {
	return a.v.float64At(pos, a.elem)
}

func (a *columnAccessor) Valid(int) bool {
	return true
}

type indexAccessor struct {
	v    *vec[int32]
	elem int
}

func (a *indexAccessor) Float64(pos int) float64 {
	return float64(a.v.at(pos, a.elem))
}

func (a *indexAccessor) Valid(pos int) bool {
	return a.v.at(pos, a.elem) >= 0
}

type refAccessor struct {
	idx    *vec[int32]
	target *Table
	inner  Accessor
}

func (a *refAccessor) resolve(pos int) (int, bool) {
	p := int(a.idx.at(pos, 0))
	return p, p >= 0 && p < a.target.n
}

func (a *refAccessor) Float64(pos int) float64 {
	p, ok := a.resolve(pos)
	if !ok {
		return math.NaN()
	}
	return a.inner.Float64(p)
}

func (a *refAccessor) Valid(pos int) bool {
	p, ok := a.resolve(pos)
	return ok && a.inner.Valid(p)
}
