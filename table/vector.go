package table

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Number is the set of numeric element types a column can store.
type Number interface {
	constraints.Integer | constraints.Float
}

// Scalar is the set of element types a column can store.
type Scalar interface {
	~bool | Number
}

// vector is the storage of one column. The set of implementations is closed:
// newVector maps every Kind to one instantiation of vec.
type vector interface {
	typ() Type
	rows() int
	float64At(row, elem int) float64
	valueAt(row int) any
	appendValue(v any) error
	truncate(rows int)
	set(data any) (int, error)
	data() any
}

type vec[T Scalar] struct {
	t    Type
	vals []T
	toF  func(T) float64
	conv func(any) (T, bool)
}

func newVector(t Type) vector {
	integral := t.Kind != KindFloat32 && t.Kind != KindFloat64
	switch t.Kind {
	case KindBool:
		return &vec[bool]{t: t, toF: boolToFloat, conv: toBool}
	case KindInt8:
		return newNumVec[int8](t, integral)
	case KindInt16:
		return newNumVec[int16](t, integral)
	case KindInt32:
		return newNumVec[int32](t, integral)
	case KindInt64:
		return newNumVec[int64](t, integral)
	case KindUint8:
		return newNumVec[uint8](t, integral)
	case KindUint16:
		return newNumVec[uint16](t, integral)
	case KindUint32:
		return newNumVec[uint32](t, integral)
	case KindUint64:
		return newNumVec[uint64](t, integral)
	case KindFloat32:
		return newNumVec[float32](t, integral)
	case KindFloat64:
		return newNumVec[float64](t, integral)
	}
	panic(fmt.Sprintf("table: no storage for %s", t))
}

func newNumVec[T Number](t Type, integral bool) *vec[T] {
	return &vec[T]{
		t:   t,
		toF: func(x T) float64 { return float64(x) },
		conv: func(v any) (T, bool) {
			return convertNumber[T](v, integral)
		},
	}
}

func (v *vec[T]) typ() Type {
	return v.t
}

func (v *vec[T]) rows() int {
	return len(v.vals) / v.t.Width
}

func (v *vec[T]) float64At(row, elem int) float64 {
	return v.toF(v.vals[row*v.t.Width+elem])
}

func (v *vec[T]) at(row, elem int) T {
	return v.vals[row*v.t.Width+elem]
}

func (v *vec[T]) slice(row int) []T {
	lo := row * v.t.Width
	hi := lo + v.t.Width
	return v.vals[lo:hi:hi]
}

func (v *vec[T]) valueAt(row int) any {
	if v.t.IsArray() {
		return v.slice(row)
	}
	return v.vals[row]
}

func (v *vec[T]) appendValue(value any) error {
	if !v.t.IsArray() {
		x, ok := v.conv(value)
		if !ok {
			return fmt.Errorf("%w: cannot store %T in %s column", ErrTypeMismatch, value, v.t)
		}
		v.vals = append(v.vals, x)
		return nil
	}

	elems, ok := v.elements(value)
	if !ok {
		return fmt.Errorf("%w: cannot store %T in %s column", ErrTypeMismatch, value, v.t)
	}
	if len(elems) != v.t.Width {
		return fmt.Errorf("%w: %s column needs %d elements, got %d", ErrTypeMismatch, v.t, v.t.Width, len(elems))
	}
	v.vals = append(v.vals, elems...)
	return nil
}

// elements converts the supported slice forms of an array value.
func (v *vec[T]) elements(value any) ([]T, bool) {
	switch s := value.(type) {
	case []T:
		return s, true
	case []any:
		return convertAll(s, v.conv)
	case []int:
		return convertAll(s, v.conv)
	case []int32:
		return convertAll(s, v.conv)
	case []int64:
		return convertAll(s, v.conv)
	case []float32:
		return convertAll(s, v.conv)
	case []float64:
		return convertAll(s, v.conv)
	}
	return nil, false
}

func convertAll[S any, T Scalar](in []S, conv func(any) (T, bool)) ([]T, bool) {
	out := make([]T, len(in))
	for i, x := range in {
		y, ok := conv(x)
		if !ok {
			return nil, false
		}
		out[i] = y
	}
	return out, true
}

func (v *vec[T]) truncate(rows int) {
	v.vals = v.vals[:rows*v.t.Width]
}

func (v *vec[T]) set(data any) (int, error) {
	vals, ok := data.([]T)
	if !ok {
		return 0, fmt.Errorf("%w: %s column needs %T, got %T", ErrTypeMismatch, v.t, v.vals, data)
	}
	if len(vals)%v.t.Width != 0 {
		return 0, fmt.Errorf("%w: %d values is not a multiple of width %d", ErrTypeMismatch, len(vals), v.t.Width)
	}
	v.vals = vals
	return v.rows(), nil
}

func (v *vec[T]) data() any {
	return v.vals[:len(v.vals):len(v.vals)]
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func toBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// convertNumber converts a Go numeric value into T. Conversions that lose
// information (fractions into integer kinds, overflow, sign) are rejected.
func convertNumber[T Number](v any, integral bool) (T, bool) {
	switch x := v.(type) {
	case T:
		return x, true
	case int:
		return fromInt[T](int64(x))
	case int8:
		return fromInt[T](int64(x))
	case int16:
		return fromInt[T](int64(x))
	case int32:
		return fromInt[T](int64(x))
	case int64:
		return fromInt[T](x)
	case uint:
		return fromUint[T](uint64(x))
	case uint8:
		return fromUint[T](uint64(x))
	case uint16:
		return fromUint[T](uint64(x))
	case uint32:
		return fromUint[T](uint64(x))
	case uint64:
		return fromUint[T](x)
	case float32:
		return fromFloat[T](float64(x), integral)
	case float64:
		return fromFloat[T](x, integral)
	}
	var zero T
	return zero, false
}

func fromInt[T Number](x int64) (T, bool) {
	y := T(x)
	return y, int64(y) == x && (x < 0) == (y < 0)
}

func fromUint[T Number](x uint64) (T, bool) {
	y := T(x)
	return y, y >= 0 && uint64(y) == x
}

func fromFloat[T Number](x float64, integral bool) (T, bool) {
	var zero T
	if !integral {
		return T(x), true
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
		return zero, false
	}
	y := T(x)
	return y, float64(y) == x
}
