package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/colframe/config"
	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/reader"
	"github.com/vegasq/colframe/table"
	"github.com/vegasq/colframe/view"
)

type collisionRow struct {
	PosZ float32 `parquet:"posZ"`
}

type trackRow struct {
	Collision int32   `parquet:"collision"`
	Pt        float32 `parquet:"pt"`
	Label     string  `parquet:"label"`
}

const runConfig = `
[log]
level = "error"

[params]
ptMin = 0.5

[axes.pt]
bins = 2
min = 0.0
max = 2.0

[[tables]]
id = "AOD/COLLISION"
files = "collisions.parquet"

[[tables]]
id = "AOD/TRACK"
files = "tracks-*.parquet"
refs = { collision = "AOD/COLLISION" }
skip = ["label"]
`

func writeParquet[T any](t *testing.T, path string, rows []T) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[T](f)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

// fixture writes three collisions, five tracks split over two files and
// the run configuration, and returns the configuration path.
func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "collisions.parquet"), []collisionRow{{PosZ: -2}, {PosZ: 0}, {PosZ: 3}})
	writeParquet(t, filepath.Join(dir, "tracks-1.parquet"), []trackRow{
		{Collision: 0, Pt: 0.2, Label: "a"},
		{Collision: 0, Pt: 1.4},
		{Collision: 2, Pt: 0.7},
	})
	writeParquet(t, filepath.Join(dir, "tracks-2.parquet"), []trackRow{
		{Collision: -1, Pt: 2.2},
		{Collision: 2, Pt: 3.1},
	})
	path := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(runConfig), 0o644))
	return path
}

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun(t *testing.T) {
	cfg := fixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "filter csv",
			args: []string{"-c", cfg, "-t", "AOD/TRACK", "-q", "pt > 1", "-f", "csv"},
			want: "collision,pt\n0,1.4\n-1,2.2\n2,3.1\n",
		},
		{
			name: "param and limit",
			args: []string{"-c", cfg, "-t", "AOD/TRACK", "-q", "pt > $ptMin", "-f", "csv", "-limit", "2"},
			want: "collision,pt\n0,1.4\n2,0.7\n",
		},
		{
			name: "no filter",
			args: []string{"-c", cfg, "-t", "AOD/COLLISION", "-f", "csv"},
			want: "posZ\n-2\n0\n3\n",
		},
		{
			name: "follow index column",
			args: []string{"-c", cfg, "-t", "AOD/TRACK", "-follow", "collision", "-q", "posZ > 0"},
			want: "{\"collision\":2,\"posZ\":3,\"pt\":0.7}\n{\"collision\":2,\"posZ\":3,\"pt\":3.1}\n",
		},
		{
			name: "dotted path",
			args: []string{"-c", cfg, "-t", "AOD/TRACK", "-q", "isset(collision) && collision.posZ < 0", "-f", "csv"},
			want: "collision,pt\n0,0.2\n0,1.4\n",
		},
		{
			name: "group by outer rows",
			args: []string{"-c", cfg, "-t", "AOD/TRACK", "-group", "collision", "-outer", "AOD/COLLISION", "-q", "pt > $ptMin", "-f", "csv", "-every", "2"},
			want: "outer,rows\n0,1\n1,0\n2,2\n",
		},
		{
			name: "histogram of selected rows",
			args: []string{"-c", cfg, "-t", "AOD/TRACK", "-hist", "pt", "-value", "pt", "-q", "isset(collision)", "-f", "csv"},
			want: "bin,low,high,entries\n0,0,1,2\n1,1,2,1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runArgs(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRun_Schema(t *testing.T) {
	out, err := runArgs(t, "-c", fixture(t), "-schema")
	require.NoError(t, err)
	assert.Contains(t, out, "AOD/TRACK")
	assert.Contains(t, out, "AOD/COLLISION")
	assert.Contains(t, out, "collision")
	assert.Contains(t, out, "float32")
	assert.NotContains(t, out, "label")
}

func TestRun_WritesParquet(t *testing.T) {
	cfg := fixture(t)
	path := filepath.Join(t.TempDir(), "selected.parquet")

	_, err := runArgs(t, "-c", cfg, "-t", "AOD/TRACK", "-q", "pt > 1", "-o", path)
	require.NoError(t, err)

	r, err := reader.NewReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Equal(t, int64(3), r.NumRows())

	_, err = runArgs(t, "-c", cfg, "-t", "AOD/TRACK", "-follow", "collision", "-o", path)
	assert.Error(t, err)
}

func TestRun_Errors(t *testing.T) {
	cfg := fixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "no config", args: []string{"-t", "AOD/TRACK"}, wantMsg: "missing -c"},
		{name: "no table", args: []string{"-c", cfg}, wantMsg: "missing -t"},
		{name: "negative limit", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-limit", "-1"}, wantMsg: "non-negative"},
		{name: "schema with query", args: []string{"-c", cfg, "-schema", "-q", "pt > 1"}, wantMsg: "-schema"},
		{name: "group without outer", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-group", "collision"}, wantMsg: "-outer"},
		{name: "unknown table", args: []string{"-c", cfg, "-t", "AOD/V0"}, wantMsg: "not loaded"},
		{name: "bad filter", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-q", "pt >"}, wantMsg: "invalid filter"},
		{name: "unknown column", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-q", "phi > 1"}, wantMsg: "Available columns: collision, pt"},
		{name: "unknown format", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-f", "xml"}, wantMsg: "supported formats"},
		{name: "hist without value", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-hist", "pt"}, wantMsg: "-value"},
		{name: "hist with follow", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-hist", "pt", "-value", "pt", "-follow", "collision"}, wantMsg: "-hist cannot"},
		{name: "unknown axis", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-hist", "eta", "-value", "pt"}, wantMsg: "no axis eta"},
		{name: "unknown value column", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-hist", "pt", "-value", "phi"}, wantErr: expr.ErrUnboundColumn},
		{name: "zip length", args: []string{"-c", cfg, "-t", "AOD/TRACK", "-join", "AOD/COLLISION"}, wantErr: view.ErrJoinLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runArgs(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.True(t, strings.Contains(err.Error(), tt.wantMsg), err.Error())
			}
		})
	}
}

func TestFillHistogram_Edges(t *testing.T) {
	reg := table.NewRegistry()
	id := table.ID{Origin: "AOD", Tag: "TRACK"}
	_, err := reg.Declare(id, table.Value("eta", table.Float32))
	require.NoError(t, err)
	tracks, err := reg.NewTable(id)
	require.NoError(t, err)
	require.NoError(t, tracks.SetColumns(map[string]any{"eta": []float32{-1.2, -0.4, 0.1, 0.3, 0.9, 2}}))

	axis := config.Axis{Edges: []float64{0, 0.5, 1.5}}
	hist, err := fillHistogram(reg, tracks, expr.True(), expr.MustParse("nabs(eta)"), nil, axis)
	require.NoError(t, err)
	assert.True(t, hist.Frozen())

	entries, err := hist.Column("entries")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, entries)
	high, err := hist.Column("high")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, high)
}
