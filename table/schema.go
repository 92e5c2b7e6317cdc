package table

import (
	"fmt"
	"strings"
)

// ID identifies a declared table by origin namespace and short tag.
// Two IDs with the same tag and different origins are different tables.
type ID struct {
	Origin string
	Tag    string
}

func (id ID) String() string {
	return id.Origin + "/" + id.Tag
}

// ParseID parses "ORIGIN/TAG".
func ParseID(s string) (ID, error) {
	origin, tag, ok := strings.Cut(s, "/")
	if !ok || origin == "" || tag == "" {
		return ID{}, fmt.Errorf("invalid table id %q, expected ORIGIN/TAG", s)
	}
	return ID{Origin: origin, Tag: tag}, nil
}

// Unset is the stored value of an index column that references nothing.
const Unset int32 = -1

// ColumnSpec declares one column of a table.
type ColumnSpec struct {
	Name string
	Type Type
	// Ref is the referenced table for index columns, nil for value columns.
	Ref *ID
}

// Value declares a plain value column.
func Value(name string, t Type) ColumnSpec {
	return ColumnSpec{Name: name, Type: t}
}

// IndexColumn declares a singular index column referencing ref.
func IndexColumn(name string, ref ID) ColumnSpec {
	return IndexArray(name, ref, 1)
}

// IndexArray declares a compound index column holding n references into ref.
func IndexArray(name string, ref ID, n int) ColumnSpec {
	r := ref
	return ColumnSpec{Name: name, Type: Type{Kind: KindInt32, Width: n}, Ref: &r}
}

// IsIndex reports whether the column stores references into another table.
func (c ColumnSpec) IsIndex() bool {
	return c.Ref != nil
}

func (c ColumnSpec) equal(o ColumnSpec) bool {
	if c.Name != o.Name || c.Type != o.Type || c.IsIndex() != o.IsIndex() {
		return false
	}
	return !c.IsIndex() || *c.Ref == *o.Ref
}

func (c ColumnSpec) String() string {
	if c.IsIndex() {
		return fmt.Sprintf("%s %s -> %s", c.Name, c.Type, c.Ref)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

// Schema is the immutable, ordered column list of a declared table.
type Schema struct {
	id      ID
	columns []ColumnSpec
	byName  map[string]int
	values  int
}

func newSchema(id ID, cols []ColumnSpec) (*Schema, error) {
	s := &Schema{
		id:      id,
		columns: make([]ColumnSpec, len(cols)),
		byName:  make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Name == "" || strings.ContainsAny(c.Name, ". \t") {
			return nil, fmt.Errorf("%w: %s: invalid column name %q", ErrInvalidSchema, id, c.Name)
		}
		if !c.Type.valid() {
			return nil, fmt.Errorf("%w: %s: column %q has invalid type %s", ErrInvalidSchema, id, c.Name, c.Type)
		}
		if c.IsIndex() && c.Type.Kind != KindInt32 {
			return nil, fmt.Errorf("%w: %s: index column %q must be stored as int32", ErrInvalidSchema, id, c.Name)
		}
		if _, dup := s.byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidSchema, id, c.Name)
		}
		if c.IsIndex() {
			ref := *c.Ref
			c.Ref = &ref
		} else {
			s.values++
		}
		s.columns[i] = c
		s.byName[c.Name] = i
	}
	return s, nil
}

// ID returns the table identifier.
func (s *Schema) ID() ID {
	return s.id
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns a copy of the column specs in declared order.
func (s *Schema) Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in declared order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// At returns the i-th column spec.
func (s *Schema) At(i int) ColumnSpec {
	return s.columns[i]
}

// Lookup returns the position of the named column.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Column resolves a column spec by name.
func (s *Schema) Column(name string) (ColumnSpec, error) {
	i, ok := s.byName[name]
	if !ok {
		return ColumnSpec{}, fmt.Errorf("%w: %q in %s", ErrUnknownColumn, name, s.id)
	}
	return s.columns[i], nil
}

// Equal reports whether both schemas have the same ID and columns.
func (s *Schema) Equal(o *Schema) bool {
	return s.id == o.id && s.Compatible(o)
}

// Compatible reports whether both schemas declare the same columns,
// regardless of their identity. Stored and ephemeral variants of the same
// content are compatible but not equal.
func (s *Schema) Compatible(o *Schema) bool {
	if len(s.columns) != len(o.columns) {
		return false
	}
	for i := range s.columns {
		if !s.columns[i].equal(o.columns[i]) {
			return false
		}
	}
	return true
}
