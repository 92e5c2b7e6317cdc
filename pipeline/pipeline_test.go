package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/index"
	"github.com/vegasq/colframe/table"
	"github.com/vegasq/colframe/view"
)

var (
	collisionsID = table.ID{Origin: "AOD", Tag: "COLLISION"}
	tracksID     = table.ID{Origin: "AOD", Tag: "TRACK"}
	firstID      = table.ID{Origin: "AOD", Tag: "FIRSTTRACK"}
	summaryID    = table.ID{Origin: "AOD", Tag: "SUMMARY"}
)

func newRunner(t *testing.T, workers int) (*Runner, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	r, err := NewRunner(workers, m)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r, reg
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	r, _ := newRunner(t, 2)

	var running, peak atomic.Int32
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Func("sleep", func(context.Context) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return 1, nil
		})
	}

	require.NoError(t, r.Run(context.Background(), tasks...))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.Metrics().TaskCounter.WithLabelValues("ok")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.Metrics().RowsCounter.WithLabelValues("sleep")))
}

func TestRunner_JoinsErrors(t *testing.T) {
	r, _ := newRunner(t, 4)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	err := r.Run(context.Background(),
		Func("a", func(context.Context) (int, error) { return 0, errA }),
		Func("ok", func(context.Context) (int, error) { return 3, nil }),
		Func("b", func(context.Context) (int, error) { return 0, errB }),
		Func("panics", func(context.Context) (int, error) { panic("boom") }),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.ErrorIs(t, err, ErrTaskPanicked)
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Metrics().TaskCounter.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics().TaskCounter.WithLabelValues("ok")))
}

func TestRunner_SkipsAfterCancel(t *testing.T) {
	r, _ := newRunner(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := r.Run(ctx, Func("late", func(context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics().TaskCounter.WithLabelValues("skipped")))
}

func TestNewMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func event(t *testing.T) (*table.Registry, *table.Table, *table.Table) {
	t.Helper()
	reg := table.NewRegistry()
	_, err := reg.Declare(collisionsID, table.Value("posZ", table.Float32))
	require.NoError(t, err)
	_, err = reg.Declare(tracksID,
		table.IndexColumn("collision", collisionsID),
		table.Value("pt", table.Float32),
	)
	require.NoError(t, err)

	colls, err := reg.NewTable(collisionsID)
	require.NoError(t, err)
	require.NoError(t, colls.SetColumns(map[string]any{"posZ": []float32{-2, 0, 3}}))
	trk, err := reg.NewTable(tracksID)
	require.NoError(t, err)
	require.NoError(t, trk.SetColumns(map[string]any{
		"collision": []int32{0, 0, 2, table.Unset, 2},
		"pt":        []float32{0.2, 1.4, 0.7, 2.2, 3.1},
	}))
	return reg, colls, trk
}

func TestTasks(t *testing.T) {
	reg, colls, trk := event(t)
	_, err := reg.Declare(summaryID, table.Value("nTracks", table.Int32), table.Value("sumPt", table.Float64))
	require.NoError(t, err)
	summary, err := reg.NewTable(summaryID)
	require.NoError(t, err)
	out := summary.Builder()

	part, err := view.NewPartition(trk, "collision", expr.MustParse("pt > $ptMin"), expr.ParamMap{"ptMin": 0.5})
	require.NoError(t, err)

	var selected []int
	r, _ := newRunner(t, 3)
	err = r.Run(context.Background(),
		Select("select", trk, expr.MustParse("pt > 1"), nil, func(f *view.Filtered[table.Row]) error {
			selected = f.Positions()
			return nil
		}),
		Process("summary", colls, out, func(table.Row) error {
			rows, err := part.Rows()
			if err != nil {
				return err
			}
			var n int32
			var sum float64
			for _, row := range rows {
				pt, err := row.Float64("pt")
				if err != nil {
					return err
				}
				n++
				sum += pt
			}
			return out.Append(n, sum)
		}, part),
		Index("first-track", reg, index.Spec{
			ID:    firstID,
			Links: []index.Link{{Column: "track", Source: trk, Match: index.ByReference("collision")}},
		}, colls),
	)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, selected)
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Metrics().RowsCounter.WithLabelValues("select")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Metrics().RowsCounter.WithLabelValues("summary")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Metrics().RowsCounter.WithLabelValues("first-track")))

	n, err := summary.Column("nTracks")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 0, 2}, n)

	first, ok := reg.Lookup(firstID)
	require.True(t, ok)
	track, err := first.Column("track")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, table.Unset, 2}, track)
}

func TestSelect_BindError(t *testing.T) {
	_, _, trk := event(t)
	r, _ := newRunner(t, 1)
	err := r.Run(context.Background(), Select("bad", trk, expr.MustParse("phi > 0"), nil, nil))
	assert.ErrorIs(t, err, expr.ErrUnboundColumn)
}
