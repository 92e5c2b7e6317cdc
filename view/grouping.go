package view

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/table"
)

// Grouping maps each outer row to the inner rows whose index column points
// at it. Inner positions of one group are ascending. The lookup is rebuilt
// when the inner table has grown or been reloaded since the last build.
type Grouping struct {
	inner  *table.Table
	column string
	ref    table.Accessor
	built  int
	loads  int
	groups map[int][]int
	unset  int
}

// NewGrouping builds the lookup for the singular index column of inner.
func NewGrouping(inner *table.Table, column string) (*Grouping, error) {
	c, err := inner.Schema().Column(column)
	if err != nil {
		return nil, err
	}
	if !c.IsIndex() || c.Type.IsArray() {
		return nil, fmt.Errorf("%w: %s.%s is not a singular index column", table.ErrTypeMismatch, inner.ID(), column)
	}
	ref, err := inner.Accessor(column, 0)
	if err != nil {
		return nil, err
	}
	g := &Grouping{inner: inner, column: column, ref: ref, built: -1}
	g.refresh()
	return g, nil
}

// Inner returns the grouped table.
func (g *Grouping) Inner() *table.Table {
	return g.inner
}

// Column returns the index column the grouping is keyed on.
func (g *Grouping) Column() string {
	return g.column
}

func (g *Grouping) refresh() {
	n := g.inner.Len()
	if n == g.built && g.inner.Loads() == g.loads {
		return
	}
	g.groups = make(map[int][]int)
	g.unset = 0
	for p := 0; p < n; p++ {
		if !g.ref.Valid(p) {
			g.unset++
			continue
		}
		outer := int(g.ref.Float64(p))
		g.groups[outer] = append(g.groups[outer], p)
	}
	g.built = n
	g.loads = g.inner.Loads()
	logutil.Debug("grouping built",
		zap.Stringer("table", g.inner.ID()),
		zap.String("column", g.column),
		zap.Int("rows", n),
		zap.Int("groups", len(g.groups)),
		zap.Int("unset", g.unset))
}

// Slice returns the inner positions referencing outer, ascending. The
// returned slice must not be modified.
func (g *Grouping) Slice(outer int) []int {
	g.refresh()
	return g.groups[outer]
}

// First returns the lowest inner position referencing outer.
func (g *Grouping) First(outer int) (int, bool) {
	s := g.Slice(outer)
	if len(s) == 0 {
		return 0, false
	}
	return s[0], true
}

// Unset returns the number of inner rows without a reference.
func (g *Grouping) Unset() int {
	g.refresh()
	return g.unset
}
