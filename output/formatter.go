package output

import (
	"fmt"
	"io"
	"strings"
)

// Result is a rectangular, ordered set of rows.
type Result interface {
	Columns() []string
	Size() int
	Record(i int) ([]any, error)
}

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a result in the target
// format and SetOutput to change the output destination.
type Formatter interface {
	// Format writes every record of res.
	Format(res Result) error

	// SetOutput changes the output writer.
	SetOutput(w io.Writer)
}

// New returns the formatter registered under name: jsonl (or json), csv
// or table.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "jsonl", "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "table":
		return NewTableFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format: %s", name)
}

// Limit caps a result at its first n records.
func Limit(res Result, n int) Result {
	if n < 0 || n >= res.Size() {
		return res
	}
	return limited{Result: res, n: n}
}

type limited struct {
	Result
	n int
}

func (l limited) Size() int {
	return l.n
}

// formatValue converts a value to text for CSV and table output.
func formatValue(v any) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		// array columns
		return fmt.Sprintf("%v", val)
	}
}
