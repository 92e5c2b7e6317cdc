package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableFormatter outputs rows as an aligned text table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new text table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer.
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format renders the whole result once all records are read.
func (t *TableFormatter) Format(res Result) error {
	tw := tablewriter.NewWriter(t.writer)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(res.Columns())

	for i := 0; i < res.Size(); i++ {
		rec, err := res.Record(i)
		if err != nil {
			return err
		}
		line := make([]string, len(rec))
		for c, v := range rec {
			line[c] = formatValue(v)
		}
		tw.Append(line)
	}
	tw.Render()
	return nil
}

// WriteTable renders a header and rows of preformatted cells, as used for
// schema listings.
func WriteTable(w io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader(header)
	tw.AppendBulk(rows)
	tw.Render()
}
