package view

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/vegasq/colframe/table"
)

type joinMode int

const (
	zipJoin joinMode = iota
	indexJoin
)

// Joined presents rows of several tables as one. Source 0 is the left (or
// first zipped) table. In a zip join row i combines row i of every source;
// in an index join row i combines left row i with the rows its index
// columns point at.
type Joined struct {
	mode    joinMode
	sources []*table.Table
	links   []string
	n       int

	names  []string
	colSrc []int
	colOf  []string
}

// Zip joins tables of equal length position by position.
func Zip(tables ...*table.Table) (*Joined, error) {
	if len(tables) == 0 {
		return nil, errors.New("zip: no tables")
	}
	n := tables[0].Len()
	for _, t := range tables[1:] {
		if t.Len() != n {
			return nil, fmt.Errorf("%w: %s has %d rows, %s has %d", ErrJoinLengthMismatch, tables[0].ID(), n, t.ID(), t.Len())
		}
	}
	j := &Joined{mode: zipJoin, sources: tables, n: n}
	j.layout()
	return j, nil
}

// IndexJoin joins left with the current referent of each named index
// column. The referents are captured when the join is built.
func IndexJoin(left *table.Table, columns ...string) (*Joined, error) {
	j := &Joined{mode: indexJoin, sources: []*table.Table{left}, n: left.Len()}
	for _, name := range columns {
		c, err := left.Schema().Column(name)
		if err != nil {
			return nil, err
		}
		if !c.IsIndex() || c.Type.IsArray() {
			return nil, fmt.Errorf("%w: %s.%s is not a singular index column", table.ErrTypeMismatch, left.ID(), name)
		}
		target, err := left.Referent(name)
		if err != nil {
			return nil, err
		}
		j.sources = append(j.sources, target)
		j.links = append(j.links, name)
	}
	j.layout()
	return j, nil
}

// layout names the output columns, qualifying names present in more than
// one source as TAG.name.
func (j *Joined) layout() {
	seen := make(map[string]int)
	for _, t := range j.sources {
		for _, name := range t.Columns() {
			seen[name]++
		}
	}
	for k, t := range j.sources {
		for _, name := range t.Columns() {
			out := name
			if seen[name] > 1 {
				out = t.ID().Tag + "." + name
			}
			j.names = append(j.names, out)
			j.colSrc = append(j.colSrc, k)
			j.colOf = append(j.colOf, name)
		}
	}
}

// Len returns the number of joined rows.
func (j *Joined) Len() int {
	return j.n
}

// Size is Len.
func (j *Joined) Size() int {
	return j.n
}

// Sources returns the joined tables, left first.
func (j *Joined) Sources() []*table.Table {
	return j.sources
}

// Columns returns the output column names; names present in more than one
// source are qualified with their table tag.
func (j *Joined) Columns() []string {
	return j.names
}

func (j *Joined) String() string {
	ids := make([]string, len(j.sources))
	for i, t := range j.sources {
		ids[i] = t.ID().String()
	}
	sep := " | "
	if j.mode == indexJoin {
		sep = " -> "
	}
	return strings.Join(ids, sep)
}

// Row returns the joined row at pos.
func (j *Joined) Row(pos int) (JoinedRow, error) {
	if pos < 0 || pos >= j.n {
		return JoinedRow{}, fmt.Errorf("%w: %d not in [0, %d) of %s", table.ErrRowOutOfRange, pos, j.n, j)
	}
	return JoinedRow{j: j, pos: pos}, nil
}

// RowAt returns the joined row at pos without bounds checking.
func (j *Joined) RowAt(pos int) JoinedRow {
	return JoinedRow{j: j, pos: pos}
}

// Rows iterates all joined rows in order.
func (j *Joined) Rows() iter.Seq2[int, JoinedRow] {
	return func(yield func(int, JoinedRow) bool) {
		for i := 0; i < j.n; i++ {
			if !yield(i, JoinedRow{j: j, pos: i}) {
				return
			}
		}
	}
}

// Record returns the values of the joined row at pos in Columns order.
// Columns of an unmatched source are nil.
func (j *Joined) Record(pos int) ([]any, error) {
	r, err := j.Row(pos)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(j.names))
	for k := range j.sources {
		src, err := r.Source(k)
		if err != nil {
			out = append(out, make([]any, j.sources[k].Schema().Len())...)
			continue
		}
		out = append(out, src.Values()...)
	}
	return out, nil
}

// sourceByTag returns the source whose tag (or full id) is tag.
func (j *Joined) sourceByTag(tag string) (int, bool, error) {
	found := -1
	for k, t := range j.sources {
		if t.ID().Tag == tag || t.ID().String() == tag {
			if found >= 0 {
				return 0, false, fmt.Errorf("%w: %s names more than one source of %s", ErrAmbiguousColumn, tag, j)
			}
			found = k
		}
	}
	return found, found >= 0, nil
}

// owner returns the single source declaring column name.
func (j *Joined) owner(name string) (int, error) {
	found := -1
	var tags []string
	for k, t := range j.sources {
		if _, ok := t.Schema().Lookup(name); ok {
			if found < 0 {
				found = k
			}
			tags = append(tags, t.ID().Tag)
		}
	}
	switch {
	case found < 0:
		return 0, fmt.Errorf("%w: %q in %s", table.ErrUnknownColumn, name, j)
	case len(tags) > 1:
		return 0, fmt.Errorf("%w: %q is declared by %s; qualify it as TAG.%s", ErrAmbiguousColumn, name, strings.Join(tags, ", "), name)
	}
	return found, nil
}

// resolve splits an optionally qualified name into source and local name.
func (j *Joined) resolve(name string) (int, string, error) {
	if head, rest, ok := strings.Cut(name, "."); ok {
		k, found, err := j.sourceByTag(head)
		if err != nil {
			return 0, "", err
		}
		if found {
			return k, rest, nil
		}
	}
	head, _, _ := strings.Cut(name, ".")
	k, err := j.owner(head)
	if err != nil {
		return 0, "", err
	}
	return k, name, nil
}

// Accessor implements expr.Resolver. Names may be qualified as TAG.name;
// unqualified names must be unique across sources.
func (j *Joined) Accessor(name string, elem int) (table.Accessor, error) {
	k, local, err := j.resolve(name)
	if err != nil {
		return nil, err
	}
	if k == 0 || j.mode == zipJoin {
		return j.sources[k].Accessor(local, elem)
	}
	// right side of an index join: read through the left index column
	return j.sources[0].AccessorThrough(j.links[k-1], j.sources[k], local, elem)
}

// JoinedRow is a transient view of one joined row.
type JoinedRow struct {
	j   *Joined
	pos int
}

// Index returns the joined row position.
func (r JoinedRow) Index() int {
	return r.pos
}

func (r JoinedRow) String() string {
	return fmt.Sprintf("%s[%d]", r.j, r.pos)
}

// HasMatch reports whether every index reference of the row resolves. Zip
// rows always match.
func (r JoinedRow) HasMatch() bool {
	if r.j.mode == zipJoin {
		return true
	}
	left := r.j.sources[0].RowAt(r.pos)
	for k, link := range r.j.links {
		p, err := left.Reference(link, 0)
		if err != nil || p == table.Unset || int(p) >= r.j.sources[k+1].Len() {
			return false
		}
	}
	return true
}

// Source returns the row of source k that contributes to this joined row.
// An unmatched index side fails with table.ErrUnresolvedReference.
func (r JoinedRow) Source(k int) (table.Row, error) {
	if k < 0 || k >= len(r.j.sources) {
		return table.Row{}, fmt.Errorf("%w: source %d of %s", table.ErrUnknownTable, k, r.j)
	}
	if k == 0 || r.j.mode == zipJoin {
		return r.j.sources[k].Row(r.pos)
	}
	p, err := r.j.sources[0].RowAt(r.pos).Reference(r.j.links[k-1], 0)
	if err != nil {
		return table.Row{}, err
	}
	if p == table.Unset {
		return table.Row{}, fmt.Errorf("%w: %s.%s is unset", table.ErrUnresolvedReference, r.j.sources[0].RowAt(r.pos), r.j.links[k-1])
	}
	return r.j.sources[k].Row(int(p))
}

// Get returns the value of a column by unqualified or TAG-qualified name.
func (r JoinedRow) Get(name string) (any, error) {
	k, local, err := r.j.resolve(name)
	if err != nil {
		return nil, err
	}
	src, err := r.Source(k)
	if err != nil {
		return nil, err
	}
	return src.Get(local)
}

// GetFrom returns the value of a column of the source declared as id.
func (r JoinedRow) GetFrom(id table.ID, name string) (any, error) {
	for k, t := range r.j.sources {
		if t.ID() == id {
			src, err := r.Source(k)
			if err != nil {
				return nil, err
			}
			return src.Get(name)
		}
	}
	return nil, fmt.Errorf("%w: %s is not part of %s", table.ErrUnknownTable, id, r.j)
}
