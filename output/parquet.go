package output

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/colframe/table"
)

// WriteParquet persists a result with the column types of schema, which
// must declare every result column. Array columns are not supported.
// Index columns are written as plain int32 positions.
func WriteParquet(path string, schema *table.Schema, res Result) error {
	columns := res.Columns()
	group := make(parquet.Group, len(columns))
	for _, name := range columns {
		c, err := schema.Column(name)
		if err != nil {
			return err
		}
		if c.Type.IsArray() {
			return fmt.Errorf("%w: array column %s cannot be written", table.ErrTypeMismatch, name)
		}
		node, err := leafOf(c.Type.Kind)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		group[name] = node
	}

	pqSchema := parquet.NewSchema(schema.ID().Tag, group)
	// parquet orders group fields by name; map result columns onto leaves
	leaf := make(map[string]int, len(columns))
	for i, path := range pqSchema.Columns() {
		leaf[path[0]] = i
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := parquet.NewWriter(f, pqSchema)

	row := make(parquet.Row, len(columns))
	for i := 0; i < res.Size(); i++ {
		rec, err := res.Record(i)
		if err != nil {
			_ = f.Close()
			return err
		}
		for c, name := range columns {
			col := leaf[name]
			v, err := valueOf(rec[c])
			if err != nil {
				_ = f.Close()
				return fmt.Errorf("%s row %d: %w", name, i, err)
			}
			row[col] = v.Level(0, 0, col)
		}
		if _, err := w.WriteRows([]parquet.Row{row}); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return f.Close()
}

func leafOf(k table.Kind) (parquet.Node, error) {
	switch k {
	case table.KindBool:
		return parquet.Leaf(parquet.BooleanType), nil
	case table.KindInt8:
		return parquet.Int(8), nil
	case table.KindInt16:
		return parquet.Int(16), nil
	case table.KindInt32:
		return parquet.Int(32), nil
	case table.KindInt64:
		return parquet.Int(64), nil
	case table.KindUint8:
		return parquet.Uint(8), nil
	case table.KindUint16:
		return parquet.Uint(16), nil
	case table.KindUint32:
		return parquet.Uint(32), nil
	case table.KindUint64:
		return parquet.Uint(64), nil
	case table.KindFloat32:
		return parquet.Leaf(parquet.FloatType), nil
	case table.KindFloat64:
		return parquet.Leaf(parquet.DoubleType), nil
	}
	return nil, fmt.Errorf("%w: no parquet type for %s", table.ErrTypeMismatch, k)
}

// valueOf converts a stored value to its physical parquet value.
func valueOf(v any) (parquet.Value, error) {
	switch x := v.(type) {
	case bool:
		return parquet.BooleanValue(x), nil
	case int8:
		return parquet.Int32Value(int32(x)), nil
	case int16:
		return parquet.Int32Value(int32(x)), nil
	case int32:
		return parquet.Int32Value(x), nil
	case int64:
		return parquet.Int64Value(x), nil
	case uint8:
		return parquet.Int32Value(int32(x)), nil
	case uint16:
		return parquet.Int32Value(int32(x)), nil
	case uint32:
		return parquet.Int32Value(int32(x)), nil
	case uint64:
		return parquet.Int64Value(int64(x)), nil
	case float32:
		return parquet.FloatValue(x), nil
	case float64:
		return parquet.DoubleValue(x), nil
	}
	return parquet.Value{}, fmt.Errorf("%w: cannot write %T", table.ErrTypeMismatch, v)
}
