// Package output renders tables and views.
//
// Every formatter consumes a Result: anything with ordered column names
// and positional records, which tables, filtered views and joined views
// all provide.
//
// # Supported Formats
//
//   - JSON Lines: one JSON object per row (suitable for streaming)
//   - CSV: comma-separated values with a header row
//   - Table: aligned text table for terminals
//
// Results can also be persisted as parquet with WriteParquet.
//
// # Basic Usage
//
//	f, err := view.Filter(tracks, expr.MustParse("pt > 1"), nil)
//	if err != nil {
//	    return err
//	}
//	formatter := output.NewCSVFormatter(os.Stdout)
//	if err := formatter.Format(f); err != nil {
//	    return err
//	}
//
// # Type Handling
//
//   - Numbers and booleans are written directly
//   - Array columns become JSON arrays, and "[a b c]" in CSV and text
//   - Unmatched sides of a join (nil values) are null in JSON and empty
//     elsewhere
package output
