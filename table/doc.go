// Package table provides typed, append-only columnar tables for event data.
//
// A table is declared once in a Registry under an ID made of an origin and a
// short tag. Its schema is an ordered list of columns; each column stores one
// contiguous typed array. A column is either a plain value column (a numeric
// scalar, a boolean or a fixed-size array of scalars) or an index column that
// stores row positions into another declared table.
//
// # Declaring tables
//
//	reg := table.NewRegistry()
//	collisions := table.ID{Origin: "AOD", Tag: "COLLISION"}
//	_, err := reg.Declare(collisions,
//	    table.Value("posZ", table.Float32),
//	)
//	_, err = reg.Declare(table.ID{Origin: "AOD", Tag: "TRACK"},
//	    table.IndexColumn("collision", collisions),
//	    table.Value("pt", table.Float32),
//	    table.Value("eta", table.Float32),
//	)
//
// # Filling tables
//
// Tables are filled either by a loader through SetColumns, which takes
// ownership of one typed slice per column, or row by row through a Builder:
//
//	tracks, _ := reg.NewTable(table.ID{Origin: "AOD", Tag: "TRACK"})
//	b := tracks.Builder()
//	if err := b.Append(0, 1.2, -0.3); err != nil {
//	    return err
//	}
//
// # Reading rows
//
// A Row is a transient view of one position. Accessors read the column
// arrays directly; nothing is copied when the row is created:
//
//	row, _ := tracks.Row(0)
//	pt, _ := table.ValueOf[float32](row, "pt")
//	if ok, _ := row.HasReference("collision"); ok {
//	    coll, _ := row.Follow("collision")
//	    z, _ := table.ValueOf[float32](coll, "posZ")
//	}
//
// Tables are not safe for concurrent mutation. Independent tables may be
// processed by different goroutines as long as each table has one writer.
package table
