package reader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/table"
)

// Load creates a new instance of the declared table id, which becomes the
// live instance, and appends every row of the files matching pattern.
func Load(reg *table.Registry, id table.ID, pattern string) (*table.Table, error) {
	files, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	t, err := reg.NewTable(id)
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		if err := LoadFile(t, path); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadFile appends the rows of one parquet file to t. Every value column
// of t must be present in the file; extra file columns are ignored.
func LoadFile(t *table.Table, path string) error {
	r, err := NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	cols := t.Schema().Columns()
	fileCols := make(map[string]bool)
	for _, f := range r.Schema().Fields() {
		fileCols[f.Name()] = true
	}
	for _, c := range cols {
		if !c.IsIndex() && !fileCols[c.Name] {
			return fmt.Errorf("%w: %s has no column %s of %s", table.ErrArityMismatch, path, c.Name, t.ID())
		}
	}

	b := t.Builder()
	values := make([]any, len(cols))
	n := 0
	err = r.Rows(func(row map[string]any) error {
		for i, c := range cols {
			values[i] = cellValue(c, row[c.Name])
		}
		if err := b.Append(values...); err != nil {
			return fmt.Errorf("%s row %d: %w", path, n, err)
		}
		n++
		return nil
	})
	if err != nil {
		return err
	}

	logutil.Debug("table loaded",
		zap.Stringer("table", t.ID()),
		zap.String("file", path),
		zap.Int("rows", n))
	return nil
}

// cellValue adapts a parquet cell to what the builder accepts. Nulls and
// absent cells of index columns become unset references.
func cellValue(c table.ColumnSpec, v any) any {
	if v != nil || !c.IsIndex() {
		return v
	}
	if c.Type.Width == 1 {
		return table.Unset
	}
	s := make([]int32, c.Type.Width)
	for i := range s {
		s[i] = table.Unset
	}
	return s
}
