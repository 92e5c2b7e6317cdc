package table

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is the catalog of declared schemas and of the live table instance
// for each of them. An index column follows the referent instance bound to
// it, falling back to the live instance while none is bound.
//
// The registry itself is safe for concurrent use; the tables it hands out
// are not.
type Registry struct {
	mu      sync.RWMutex
	schemas map[ID]*Schema
	live    map[ID]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[ID]*Schema),
		live:    make(map[ID]*Table),
	}
}

// Declare registers the schema of id. Declaring the same columns again
// returns the existing schema; declaring different columns under an existing
// id fails with ErrSchemaConflict.
func (r *Registry) Declare(id ID, cols ...ColumnSpec) (*Schema, error) {
	if id.Origin == "" || id.Tag == "" {
		return nil, fmt.Errorf("%w: table id %q needs origin and tag", ErrInvalidSchema, id)
	}
	s, err := newSchema(id, cols)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.schemas[id]; ok {
		if !existing.Equal(s) {
			return nil, fmt.Errorf("%w: %s is already declared with different columns", ErrSchemaConflict, id)
		}
		return existing, nil
	}
	r.schemas[id] = s
	return s, nil
}

// Schema returns the schema declared for id.
func (r *Registry) Schema(id ID) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, id)
	}
	return s, nil
}

// Column resolves a column of a declared table.
func (r *Registry) Column(id ID, name string) (ColumnSpec, error) {
	s, err := r.Schema(id)
	if err != nil {
		return ColumnSpec{}, err
	}
	return s.Column(name)
}

// IDs returns every declared id, sorted.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// NewTable creates an empty instance of a declared table and makes it the
// live instance for id. Each index column is bound to the live instance of
// its referenced table, if there is one yet; see Table.BindReferent.
func (r *Registry) NewTable(id ID) (*Table, error) {
	s, err := r.Schema(id)
	if err != nil {
		return nil, err
	}
	t := &Table{
		schema:   s,
		instance: uuid.New(),
		reg:      r,
		vecs:     make([]vector, s.Len()),
		refs:     make([]*Table, s.Len()),
	}

	r.mu.Lock()
	for i, c := range s.columns {
		t.vecs[i] = newVector(c.Type)
		switch {
		case !c.IsIndex():
		case *c.Ref == id:
			t.refs[i] = t
		default:
			t.refs[i] = r.live[*c.Ref]
		}
	}
	r.live[id] = t
	r.mu.Unlock()
	return t, nil
}

// Lookup returns the live instance of id.
func (r *Registry) Lookup(id ID) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.live[id]
	return t, ok
}
