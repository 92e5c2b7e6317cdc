package reader

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/colframe/table"
)

// SchemaInfo describes one leaf column of a parquet file.
type SchemaInfo struct {
	Name         string `json:"name"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Kind         string `json:"kind"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// Options controls how parquet columns map to table columns.
type Options struct {
	// Refs declares index columns and the table each one points into.
	Refs map[string]table.ID
	// Widths gives the element count of repeated columns.
	Widths map[string]int
	// Skip lists file columns left out of the table.
	Skip []string
}

// ExtractSchemaInfo lists the leaf columns of a parquet file. Nested
// fields use dot notation (e.g. "track.pt").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	reader, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	var infos []SchemaInfo
	for _, field := range reader.Schema().Fields() {
		infos = append(infos, extractFieldInfo(field, "", false)...)
	}
	return infos, nil
}

// extractFieldInfo recursively collects leaf fields, tracking whether any
// parent is repeated.
func extractFieldInfo(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []SchemaInfo
		for _, child := range children {
			infos = append(infos, extractFieldInfo(child, name, repeated)...)
		}
		return infos
	}

	info := SchemaInfo{
		Name:         name,
		PhysicalType: getPhysicalType(field),
		LogicalType:  getLogicalType(field),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}
	if k, err := kindOf(field); err == nil {
		info.Kind = k.String()
	}
	return []SchemaInfo{info}
}

// InferColumns derives column declarations from the leaf columns of a
// parquet file, in file order. Index columns must be named in opts.Refs
// and repeated columns need a width in opts.Widths.
func InferColumns(path string, opts Options) ([]table.ColumnSpec, error) {
	reader, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	skip := make(map[string]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s] = true
	}

	var cols []table.ColumnSpec
	for _, field := range reader.Schema().Fields() {
		name := field.Name()
		if skip[name] {
			continue
		}
		if len(field.Fields()) > 0 {
			return nil, fmt.Errorf("%w: %s is a nested group", table.ErrTypeMismatch, name)
		}

		width := 1
		if field.Repeated() {
			w, ok := opts.Widths[name]
			if !ok {
				return nil, fmt.Errorf("%w: repeated column %s needs a declared width", table.ErrTypeMismatch, name)
			}
			width = w
		}

		if ref, ok := opts.Refs[name]; ok {
			if width == 1 {
				cols = append(cols, table.IndexColumn(name, ref))
			} else {
				cols = append(cols, table.IndexArray(name, ref, width))
			}
			continue
		}

		kind, err := kindOf(field)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		t := table.Type{Kind: kind, Width: 1}
		if width > 1 {
			t = table.ArrayOf(t, width)
		}
		cols = append(cols, table.Value(name, t))
	}
	return cols, nil
}

// kindOf maps a parquet leaf type to a column kind, using the integer
// logical type to narrow INT32 and INT64.
func kindOf(field parquet.Field) (table.Kind, error) {
	typ := field.Type()
	if typ == nil {
		return table.KindInvalid, fmt.Errorf("%w: group field", table.ErrTypeMismatch)
	}

	if lt := typ.LogicalType(); lt != nil && lt.Integer != nil {
		signed := lt.Integer.IsSigned
		switch lt.Integer.BitWidth {
		case 8:
			return pick(signed, table.KindInt8, table.KindUint8), nil
		case 16:
			return pick(signed, table.KindInt16, table.KindUint16), nil
		case 32:
			return pick(signed, table.KindInt32, table.KindUint32), nil
		case 64:
			return pick(signed, table.KindInt64, table.KindUint64), nil
		}
	}

	switch typ.Kind() {
	case parquet.Boolean:
		return table.KindBool, nil
	case parquet.Int32:
		return table.KindInt32, nil
	case parquet.Int64:
		return table.KindInt64, nil
	case parquet.Float:
		return table.KindFloat32, nil
	case parquet.Double:
		return table.KindFloat64, nil
	}
	return table.KindInvalid, fmt.Errorf("%w: unsupported parquet type %s", table.ErrTypeMismatch, getPhysicalType(field))
}

func pick(signed bool, s, u table.Kind) table.Kind {
	if signed {
		return s
	}
	return u
}

// getPhysicalType returns the physical type name of a parquet field.
func getPhysicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}

	switch field.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// getLogicalType returns the logical type name of a parquet field.
func getLogicalType(field parquet.Field) string {
	if field.Type() == nil {
		return ""
	}
	lt := field.Type().LogicalType()
	if lt == nil {
		return ""
	}
	return lt.String()
}
