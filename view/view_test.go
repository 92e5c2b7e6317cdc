package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/table"
)

var (
	collisionsID = table.ID{Origin: "AOD", Tag: "COLLISION"}
	tracksID     = table.ID{Origin: "AOD", Tag: "TRACK"}
	mcTracksID   = table.ID{Origin: "AOD", Tag: "MCTRACK"}
)

type event struct {
	reg        *table.Registry
	collisions *table.Table
	tracks     *table.Table
}

// newEvent returns 3 collisions and 6 tracks; track 3 has no collision.
func newEvent(t *testing.T) event {
	t.Helper()
	reg := table.NewRegistry()
	_, err := reg.Declare(collisionsID, table.Value("posZ", table.Float32), table.Value("mult", table.Int32))
	require.NoError(t, err)
	_, err = reg.Declare(tracksID,
		table.IndexColumn("collision", collisionsID),
		table.Value("pt", table.Float32),
		table.Value("eta", table.Float32),
	)
	require.NoError(t, err)

	colls, err := reg.NewTable(collisionsID)
	require.NoError(t, err)
	require.NoError(t, colls.SetColumns(map[string]any{
		"posZ": []float32{-5, 5, 1},
		"mult": []int32{10, 20, 30},
	}))

	trk, err := reg.NewTable(tracksID)
	require.NoError(t, err)
	require.NoError(t, trk.SetColumns(map[string]any{
		"collision": []int32{0, 0, 1, table.Unset, 2, 1},
		"pt":        []float32{0.5, 1.5, 2.5, 3.5, 4.5, 5.5},
		"eta":       []float32{0.1, -0.9, 0.5, 1.2, -0.3, 0.7},
	}))
	return event{reg: reg, collisions: colls, tracks: trk}
}

func TestFilter_SelectsInOrder(t *testing.T) {
	ev := newEvent(t)
	e := expr.MustParse("eta < 0.8 && eta > -0.8")

	f, err := Filter(ev.tracks, e, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Size())
	assert.Equal(t, []int{0, 2, 4, 5}, f.Positions())

	count := 0
	for pos := 0; pos < ev.tracks.Len(); pos++ {
		if f.Predicate().Eval(pos) {
			count++
		}
	}
	assert.Equal(t, count, f.Size())

	prev := -1
	for pos, row := range f.Rows() {
		assert.Greater(t, pos, prev)
		assert.Equal(t, pos, row.Index())
		ok, err := f.Predicate().Evaluate(row)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, f.Contains(pos))
		prev = pos
	}
	assert.False(t, f.Contains(1))
	assert.False(t, f.Contains(-1))
	assert.Equal(t, uint64(4), f.Bitmap().GetCardinality())

	row, err := f.At(1)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Index())
	_, err = f.At(4)
	assert.ErrorIs(t, err, table.ErrRowOutOfRange)
}

func TestFilter_IgnoresLaterAppends(t *testing.T) {
	ev := newEvent(t)
	f, err := Filter(ev.tracks, expr.Gt(expr.Col("pt"), expr.Const(0)), nil)
	require.NoError(t, err)
	require.Equal(t, 6, f.Size())

	require.NoError(t, ev.tracks.Builder().Append(float32(9), float32(0)))
	assert.Equal(t, 7, ev.tracks.Len())
	assert.Equal(t, 6, f.Size())
}

func TestFilter_UnboundColumnBeforeScan(t *testing.T) {
	ev := newEvent(t)
	_, err := Filter(ev.collisions, expr.MustParse("eta < 0.8 && eta > -0.8"), nil)
	assert.ErrorIs(t, err, expr.ErrUnboundColumn)
}

func TestFilter_Record(t *testing.T) {
	ev := newEvent(t)
	f, err := Filter(ev.collisions, expr.MustParse("mult >= 20"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"posZ", "mult"}, f.Columns())

	rec, err := f.Record(1)
	require.NoError(t, err)
	assert.Equal(t, []any{float32(1), int32(30)}, rec)
}

func TestGrouping(t *testing.T) {
	ev := newEvent(t)
	g, err := NewGrouping(ev.tracks, "collision")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, g.Slice(0))
	assert.Equal(t, []int{2, 5}, g.Slice(1))
	assert.Equal(t, []int{4}, g.Slice(2))
	assert.Empty(t, g.Slice(7))
	assert.Equal(t, 1, g.Unset())

	first, ok := g.First(1)
	assert.True(t, ok)
	assert.Equal(t, 2, first)

	require.NoError(t, ev.tracks.Builder().Append(int32(2), float32(1), float32(0)))
	assert.Equal(t, []int{4, 6}, g.Slice(2), "grouping follows appends")

	_, err = NewGrouping(ev.tracks, "pt")
	assert.ErrorIs(t, err, table.ErrTypeMismatch)
}

func TestPartition_StateMachine(t *testing.T) {
	ev := newEvent(t)
	p, err := NewPartition(ev.tracks, "collision", expr.MustParse("pt > $ptMin"), expr.ParamMap{"ptMin": 1})
	require.NoError(t, err)

	_, err = p.Size()
	assert.ErrorIs(t, err, ErrNoContext)
	assert.Equal(t, Uncomputed, p.State())

	p.Enter(0)
	assert.Equal(t, Uncomputed, p.State())
	first, err := p.Positions()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, first)
	assert.Equal(t, Computed, p.State())

	again, err := p.Positions()
	require.NoError(t, err)
	assert.Equal(t, first, again)
	n, err := p.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, p.Scans(), "reads in one context must not rescan")

	p.Enter(0)
	_, err = p.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, p.Scans(), "re-entering the same context keeps the cache")

	p.Enter(1)
	assert.Equal(t, Uncomputed, p.State())
	second, err := p.Positions()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, second)
	assert.Equal(t, 2, p.Scans())

	p.Invalidate()
	_, err = p.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, p.Scans())

	row, err := p.At(1)
	require.NoError(t, err)
	assert.Equal(t, 5, row.Index())
	_, err = p.At(2)
	assert.ErrorIs(t, err, table.ErrRowOutOfRange)
}

func TestPartition_WholeTable(t *testing.T) {
	ev := newEvent(t)
	p, err := NewPartition(ev.tracks, "", expr.MustParse("nabs(eta) < 0.5"), nil)
	require.NoError(t, err)

	p.Enter(0)
	rows, err := p.Rows()
	require.NoError(t, err)
	var got []int
	for pos := range rows {
		got = append(got, pos)
	}
	assert.Equal(t, []int{0, 4}, got)
}

func TestPartition_BoundBeforeLoad(t *testing.T) {
	reg := table.NewRegistry()
	_, err := reg.Declare(tracksID, table.IndexColumn("collision", collisionsID), table.Value("pt", table.Float32))
	require.NoError(t, err)
	trk, err := reg.NewTable(tracksID)
	require.NoError(t, err)

	p, err := NewPartition(trk, "collision", expr.MustParse("pt > 1"), nil)
	require.NoError(t, err)
	pred, err := expr.Bind(expr.MustParse("pt > 1"), trk, nil)
	require.NoError(t, err)

	require.NoError(t, trk.SetColumns(map[string]any{
		"collision": []int32{0, 0, 1},
		"pt":        []float32{0.5, 1.5, 2.5},
	}))

	p.Enter(0)
	n, err := p.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	p.Enter(1)
	got, err := p.Positions()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)

	row, err := trk.Row(2)
	require.NoError(t, err)
	ok, err := pred.Evaluate(row)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, trk.SetColumns(map[string]any{
		"collision": []int32{1, 1, 1},
		"pt":        []float32{0.5, 1.5, 2.5},
	}))
	p.Invalidate()
	got, err = p.Positions()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got, "a reload of the same length regroups")
}

func TestPartition_BindErrors(t *testing.T) {
	ev := newEvent(t)
	_, err := NewPartition(ev.tracks, "collision", expr.Col("phi"), nil)
	assert.ErrorIs(t, err, expr.ErrUnboundColumn)

	_, err = NewPartition(ev.tracks, "nope", nil, nil)
	assert.ErrorIs(t, err, table.ErrUnknownColumn)
}

func TestProcess(t *testing.T) {
	ev := newEvent(t)
	all, err := NewPartition(ev.tracks, "collision", nil, nil)
	require.NoError(t, err)
	hard, err := NewPartition(ev.tracks, "collision", expr.MustParse("pt > 2"), nil)
	require.NoError(t, err)

	var sizes, hardSizes []int
	err = Process(ev.collisions, func(row table.Row) error {
		n, err := all.Size()
		if err != nil {
			return err
		}
		sizes = append(sizes, n)
		n, err = hard.Size()
		if err != nil {
			return err
		}
		hardSizes = append(hardSizes, n)
		return nil
	}, all, hard)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []int{0, 2, 1}, hardSizes)
	assert.Equal(t, 3, all.Scans())
}

func TestZip(t *testing.T) {
	reg := table.NewRegistry()
	declare := func(tag string, n int) *table.Table {
		id := table.ID{Origin: "AOD", Tag: tag}
		_, err := reg.Declare(id, table.Value("x", table.Int32))
		require.NoError(t, err)
		tbl, err := reg.NewTable(id)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.NoError(t, tbl.Builder().Append(int32(i)))
		}
		return tbl
	}
	a, b, c := declare("A", 4), declare("B", 4), declare("C", 3)

	j, err := Zip(a, b)
	require.NoError(t, err)
	assert.Equal(t, 4, j.Len())
	assert.Equal(t, []string{"A.x", "B.x"}, j.Columns())

	_, err = Zip(c, a)
	assert.ErrorIs(t, err, ErrJoinLengthMismatch)
}

func TestZip_AmbiguousColumns(t *testing.T) {
	ev := newEvent(t)
	_, err := ev.reg.Declare(mcTracksID, table.Value("pt", table.Float32), table.Value("pdg", table.Int32))
	require.NoError(t, err)
	mc, err := ev.reg.NewTable(mcTracksID)
	require.NoError(t, err)
	require.NoError(t, mc.SetColumns(map[string]any{
		"pt":  []float32{0.4, 1.6, 2.4, 3.6, 4.4, 5.6},
		"pdg": []int32{211, 211, 321, 2212, 211, -211},
	}))

	j, err := Zip(ev.tracks, mc)
	require.NoError(t, err)

	_, err = Filter(j, expr.MustParse("pt > 1"), nil)
	assert.ErrorIs(t, err, ErrAmbiguousColumn)

	f, err := Filter(j, expr.MustParse("MCTRACK.pt > TRACK.pt && pdg == 211"), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, f.Positions())

	row := j.RowAt(0)
	_, err = row.Get("pt")
	assert.ErrorIs(t, err, ErrAmbiguousColumn)
	v, err := row.GetFrom(mcTracksID, "pt")
	require.NoError(t, err)
	assert.Equal(t, float32(0.4), v)
	v, err = row.Get("TRACK.pt")
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), v)
	assert.True(t, row.HasMatch())
}

func TestIndexJoin(t *testing.T) {
	ev := newEvent(t)
	j, err := IndexJoin(ev.tracks, "collision")
	require.NoError(t, err)
	assert.Equal(t, ev.tracks.Len(), j.Len())
	assert.Equal(t, []string{"collision", "pt", "eta", "posZ", "mult"}, j.Columns())

	for i, row := range j.Rows() {
		left, err := row.Source(0)
		require.NoError(t, err)
		k, err := left.Reference("collision", 0)
		require.NoError(t, err)

		if k == table.Unset {
			assert.False(t, row.HasMatch())
			_, err := row.Source(1)
			assert.ErrorIs(t, err, table.ErrUnresolvedReference)
			_, err = row.Get("posZ")
			assert.ErrorIs(t, err, table.ErrUnresolvedReference)
			continue
		}

		assert.True(t, row.HasMatch(), "row %d", i)
		right, err := row.Source(1)
		require.NoError(t, err)
		want, err := ev.collisions.Row(int(k))
		require.NoError(t, err)
		assert.Equal(t, want.Values(), right.Values())
	}

	rec, err := j.Record(3)
	require.NoError(t, err)
	assert.Equal(t, []any{table.Unset, float32(3.5), float32(1.2), nil, nil}, rec)

	rec, err = j.Record(0)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(0), float32(0.5), float32(0.1), float32(-5), int32(10)}, rec)
}

func TestIndexJoin_FilterOnRightSide(t *testing.T) {
	ev := newEvent(t)
	j, err := IndexJoin(ev.tracks, "collision")
	require.NoError(t, err)

	f, err := Filter(j, expr.MustParse("posZ > 0 && mult < 30"), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, f.Positions())

	f, err = Filter(j, expr.MustParse("COLLISION.posZ > 0"), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5}, f.Positions())
}

func TestIndexJoin_SourceMatchesColumns(t *testing.T) {
	ev := newEvent(t)
	j, err := IndexJoin(ev.tracks, "collision")
	require.NoError(t, err)

	later, err := ev.reg.NewTable(collisionsID)
	require.NoError(t, err)
	require.NoError(t, later.SetColumns(map[string]any{
		"posZ": []float32{100, 200, 300},
		"mult": []int32{0, 0, 0},
	}))

	row, err := j.Row(2)
	require.NoError(t, err)
	right, err := row.Source(1)
	require.NoError(t, err)
	assert.Same(t, ev.collisions, right.Table())
	v, err := row.Get("posZ")
	require.NoError(t, err)
	assert.Equal(t, float32(5), v)

	f, err := Filter(j, expr.MustParse("posZ > 0"), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5}, f.Positions())
}

func TestIndexJoin_Errors(t *testing.T) {
	ev := newEvent(t)
	_, err := IndexJoin(ev.tracks, "pt")
	assert.ErrorIs(t, err, table.ErrTypeMismatch)
	_, err = IndexJoin(ev.tracks, "nope")
	assert.ErrorIs(t, err, table.ErrUnknownColumn)
}
