// Package index builds index tables: one row per outer row, each column
// pointing at the first matching row of another table.
package index

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"

	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/table"
	"github.com/vegasq/colframe/view"
)

// ErrRequiredMatchMissing is returned when a required link finds no match
// for an outer row.
var ErrRequiredMatchMissing = errors.New("required match missing")

// Spec describes an index table.
type Spec struct {
	// ID of the produced table.
	ID table.ID
	// Self, when set, names an index column pointing back at the outer row.
	Self string
	// Links are the matched columns, in declared order.
	Links []Link
	// Required turns an unmatched outer row into ErrRequiredMatchMissing.
	Required bool
}

// Link fills one index column with the position of the first row of Source
// matching the outer row.
type Link struct {
	Column string
	Source *table.Table
	Match  Matcher
}

// Matcher finds, for every outer row, the first matching row of a source.
type Matcher interface {
	prepare(outer, inner *table.Table) (func(outerPos int) int32, error)
}

// Build runs one batch pass over outer and returns the frozen index table,
// which also becomes the live instance of spec.ID in reg. Its columns stay
// bound to outer and to the link sources it was built from. Inner rows are
// scanned in ascending position, so the first match wins and rebuilding
// on unchanged inputs gives identical output.
func Build(reg *table.Registry, spec Spec, outer *table.Table) (*table.Table, error) {
	if len(spec.Links) == 0 {
		return nil, fmt.Errorf("%w: index %s has no links", table.ErrInvalidSchema, spec.ID)
	}

	var cols []table.ColumnSpec
	if spec.Self != "" {
		cols = append(cols, table.IndexColumn(spec.Self, outer.ID()))
	}
	finders := make([]func(int) int32, len(spec.Links))
	for i, l := range spec.Links {
		if l.Source == nil || l.Match == nil {
			return nil, fmt.Errorf("%w: link %s of %s needs a source and a matcher", table.ErrInvalidSchema, l.Column, spec.ID)
		}
		cols = append(cols, table.IndexColumn(l.Column, l.Source.ID()))
		find, err := l.Match.prepare(outer, l.Source)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", spec.ID, l.Column, err)
		}
		finders[i] = find
	}

	if _, err := reg.Declare(spec.ID, cols...); err != nil {
		return nil, err
	}

	n := outer.Len()
	arrays := make([][]int32, len(cols))
	for i := range arrays {
		arrays[i] = make([]int32, n)
	}
	offset := 0
	if spec.Self != "" {
		for p := 0; p < n; p++ {
			arrays[0][p] = int32(p)
		}
		offset = 1
	}

	unmatched := 0
	for p := 0; p < n; p++ {
		for i, find := range finders {
			m := find(p)
			if m == table.Unset {
				if spec.Required {
					return nil, fmt.Errorf("%w: %s row %d has no %s in %s",
						ErrRequiredMatchMissing, outer.ID(), p, spec.Links[i].Column, spec.Links[i].Source.ID())
				}
				unmatched++
			}
			arrays[offset+i][p] = m
		}
	}

	out, err := reg.NewTable(spec.ID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]any, len(cols))
	for i, c := range cols {
		byName[c.Name] = arrays[i]
	}
	if err := out.SetColumns(byName); err != nil {
		return nil, err
	}
	if spec.Self != "" {
		if err := out.BindReferent(spec.Self, outer); err != nil {
			return nil, err
		}
	}
	for _, l := range spec.Links {
		if err := out.BindReferent(l.Column, l.Source); err != nil {
			return nil, err
		}
	}
	out.Freeze()

	logutil.Debug("index built",
		zap.Stringer("index", spec.ID),
		zap.Stringer("outer", outer.ID()),
		zap.Int("rows", n),
		zap.Int("unmatched", unmatched))
	return out, nil
}

type byReference struct {
	column string
}

// ByReference matches the inner rows whose index column points at the
// outer row.
func ByReference(innerColumn string) Matcher {
	return byReference{column: innerColumn}
}

func (m byReference) prepare(outer, inner *table.Table) (func(int) int32, error) {
	c, err := inner.Schema().Column(m.column)
	if err != nil {
		return nil, err
	}
	if c.Ref == nil || *c.Ref != outer.ID() {
		return nil, fmt.Errorf("%w: %s.%s does not reference %s", table.ErrTypeMismatch, inner.ID(), m.column, outer.ID())
	}
	g, err := view.NewGrouping(inner, m.column)
	if err != nil {
		return nil, err
	}
	return func(p int) int32 {
		if first, ok := g.First(p); ok {
			return int32(first)
		}
		return table.Unset
	}, nil
}

type byEqual struct {
	outerColumn, innerColumn string
}

// ByEqual matches inner rows whose innerColumn equals the outer row's
// outerColumn. Both must be scalar columns. Values compare exactly across
// kinds, so 64-bit ids beyond float64 precision stay distinct.
func ByEqual(outerColumn, innerColumn string) Matcher {
	return byEqual{outerColumn: outerColumn, innerColumn: innerColumn}
}

func (m byEqual) prepare(outer, inner *table.Table) (func(int) int32, error) {
	outerKey, err := keysOf(outer, m.outerColumn)
	if err != nil {
		return nil, err
	}
	innerKey, err := keysOf(inner, m.innerColumn)
	if err != nil {
		return nil, err
	}

	first := make(map[equalKey]int32)
	n := inner.Len()
	for p := 0; p < n; p++ {
		k, ok := innerKey(p)
		if !ok {
			continue
		}
		if _, seen := first[k]; !seen {
			first[k] = int32(p)
		}
	}
	return func(p int) int32 {
		k, ok := outerKey(p)
		if !ok {
			return table.Unset
		}
		if i, found := first[k]; found {
			return i
		}
		return table.Unset
	}, nil
}

// equalKey is the exact identity of a scalar. Integral values share the
// signed class whatever their storage kind.
type equalKey struct {
	class uint8
	bits  uint64
}

const (
	signedKey uint8 = iota
	unsignedKey
	floatKey
)

// keysOf returns the key of each row of a scalar column; the second
// result is false for unset references and NaN.
func keysOf(t *table.Table, name string) (func(int) (equalKey, bool), error) {
	c, err := t.Schema().Column(name)
	if err != nil {
		return nil, err
	}
	if c.Type.IsArray() {
		return nil, fmt.Errorf("%w: %s.%s is an array column", table.ErrTypeMismatch, t.ID(), name)
	}
	data, err := t.Column(name)
	if err != nil {
		return nil, err
	}

	switch d := data.(type) {
	case []bool:
		return func(p int) (equalKey, bool) {
			if d[p] {
				return equalKey{class: signedKey, bits: 1}, true
			}
			return equalKey{class: signedKey}, true
		}, nil
	case []int8:
		return signedKeys(d), nil
	case []int16:
		return signedKeys(d), nil
	case []int32:
		keys := signedKeys(d)
		if c.IsIndex() {
			return func(p int) (equalKey, bool) {
				if d[p] == table.Unset {
					return equalKey{}, false
				}
				return keys(p)
			}, nil
		}
		return keys, nil
	case []int64:
		return signedKeys(d), nil
	case []uint8:
		return unsignedKeys(d), nil
	case []uint16:
		return unsignedKeys(d), nil
	case []uint32:
		return unsignedKeys(d), nil
	case []uint64:
		return unsignedKeys(d), nil
	case []float32:
		return func(p int) (equalKey, bool) { return floatKeyOf(float64(d[p])) }, nil
	case []float64:
		return func(p int) (equalKey, bool) { return floatKeyOf(d[p]) }, nil
	}
	return nil, fmt.Errorf("%w: %s.%s cannot be compared", table.ErrTypeMismatch, t.ID(), name)
}

func signedKeys[T constraints.Signed](d []T) func(int) (equalKey, bool) {
	return func(p int) (equalKey, bool) {
		return equalKey{class: signedKey, bits: uint64(int64(d[p]))}, true
	}
}

func unsignedKeys[T constraints.Unsigned](d []T) func(int) (equalKey, bool) {
	return func(p int) (equalKey, bool) {
		v := uint64(d[p])
		if v > math.MaxInt64 {
			return equalKey{class: unsignedKey, bits: v}, true
		}
		return equalKey{class: signedKey, bits: v}, true
	}
}

func floatKeyOf(v float64) (equalKey, bool) {
	switch {
	case math.IsNaN(v):
		return equalKey{}, false
	case v == math.Trunc(v) && v >= -(1<<63) && v < 1<<63:
		return equalKey{class: signedKey, bits: uint64(int64(v))}, true
	case v == math.Trunc(v) && v >= 1<<63 && v < 1<<64:
		return equalKey{class: unsignedKey, bits: uint64(v)}, true
	}
	return equalKey{class: floatKey, bits: math.Float64bits(v)}, true
}

// MatchFunc reports whether inner matches outer.
type MatchFunc func(outer, inner table.Row) bool

type byFunc struct {
	fn MatchFunc
}

// ByFunc matches with an arbitrary condition by scanning the inner table
// for every outer row.
func ByFunc(fn MatchFunc) Matcher {
	return byFunc{fn: fn}
}

func (m byFunc) prepare(outer, inner *table.Table) (func(int) int32, error) {
	return func(p int) int32 {
		o := outer.RowAt(p)
		n := inner.Len()
		for i := 0; i < n; i++ {
			if m.fn(o, inner.RowAt(i)) {
				return int32(i)
			}
		}
		return table.Unset
	}, nil
}
