// Package view provides read-only views over tables: filtered selections,
// per-context partitions and joins.
//
// Views never copy column data. They hold row positions into the tables
// they were built from and hand out row views on demand. A view reflects
// the rows present when it was computed; rebuilding after appends is the
// caller's job (partitions do it on Enter and Invalidate).
//
// Views are not safe for concurrent use. Each view is read by one
// traversal at a time, on the goroutine that computed it.
package view
