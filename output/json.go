package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter outputs rows as JSON Lines format.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer.
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per record.
func (j *JSONFormatter) Format(res Result) error {
	encoder := json.NewEncoder(j.writer)
	columns := res.Columns()
	obj := make(map[string]any, len(columns))
	for i := 0; i < res.Size(); i++ {
		rec, err := res.Record(i)
		if err != nil {
			return err
		}
		for c, name := range columns {
			obj[name] = rec[c]
		}
		if err := encoder.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}
