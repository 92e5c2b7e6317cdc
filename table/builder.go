package table

import "fmt"

// Builder appends rows to exactly one table. It is the write side handed to
// tasks that produce derived tables. A Builder is not safe for concurrent use.
type Builder struct {
	t *Table
}

// Builder returns the append cursor of the table.
func (t *Table) Builder() *Builder {
	return &Builder{t: t}
}

// Table returns the table being filled.
func (b *Builder) Table() *Table {
	return b.t
}

// Append adds one row. values holds either one value per value column in
// declared order, in which case index columns are stored unset, or one
// value per column. Appended rows are never modified afterwards.
func (b *Builder) Append(values ...any) error {
	t := b.t
	if t.frozen {
		return fmt.Errorf("%w: %s", ErrReadOnly, t.schema.id)
	}

	all := len(values) == t.schema.Len()
	if !all && len(values) != t.schema.values {
		return fmt.Errorf("%w: %s takes %d values (or %d with index columns), got %d",
			ErrArityMismatch, t.schema.id, t.schema.values, t.schema.Len(), len(values))
	}

	next := 0
	for i, c := range t.schema.columns {
		var v any
		if c.IsIndex() && !all {
			v = unsetValue(c.Type.Width)
		} else {
			v = values[next]
			next++
		}
		if err := t.vecs[i].appendValue(v); err != nil {
			for _, done := range t.vecs[:i] {
				done.truncate(t.n)
			}
			return fmt.Errorf("%s.%s: %w", t.schema.id, c.Name, err)
		}
	}
	t.n++
	return nil
}

func unsetValue(width int) any {
	if width == 1 {
		return Unset
	}
	s := make([]int32, width)
	for i := range s {
		s[i] = Unset
	}
	return s
}
