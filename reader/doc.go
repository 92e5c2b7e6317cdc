// Package reader loads Apache Parquet files into tables.
//
// A table is declared first (by hand or from a file with InferColumns),
// then filled from one file or a glob of files:
//
//	cols, err := reader.InferColumns("tracks.parquet", reader.Options{
//	    Refs: map[string]table.ID{"collision": collisionsID},
//	})
//	if err != nil {
//	    return err
//	}
//	if _, err := reg.Declare(tracksID, cols...); err != nil {
//	    return err
//	}
//	tracks, err := reader.Load(reg, tracksID, "data/tracks-*.parquet")
//
// Files are read in lexical order of their paths, rows in file order.
// Index columns that are missing from a file or null are stored unset.
//
// The package uses github.com/parquet-go/parquet-go for the underlying
// parquet file operations.
package reader
