package table

import (
	"fmt"
	"strings"
)

// Kind is the storage kind of a column element.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the kind named by s (as printed by Kind.String).
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := KindBool; k <= KindFloat64; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: unknown kind %q", ErrInvalidSchema, s)
}

// Type describes the element stored per row: a scalar of Kind when Width is 1,
// a fixed-size array of Width scalars otherwise.
type Type struct {
	Kind  Kind
	Width int
}

// Scalar types.
var (
	Bool    = Type{Kind: KindBool, Width: 1}
	Int8    = Type{Kind: KindInt8, Width: 1}
	Int16   = Type{Kind: KindInt16, Width: 1}
	Int32   = Type{Kind: KindInt32, Width: 1}
	Int64   = Type{Kind: KindInt64, Width: 1}
	Uint8   = Type{Kind: KindUint8, Width: 1}
	Uint16  = Type{Kind: KindUint16, Width: 1}
	Uint32  = Type{Kind: KindUint32, Width: 1}
	Uint64  = Type{Kind: KindUint64, Width: 1}
	Float32 = Type{Kind: KindFloat32, Width: 1}
	Float64 = Type{Kind: KindFloat64, Width: 1}
)

// ArrayOf returns the fixed-size array type of n elements of t's kind.
func ArrayOf(t Type, n int) Type {
	return Type{Kind: t.Kind, Width: n}
}

// IsArray reports whether the type holds more than one element per row.
func (t Type) IsArray() bool {
	return t.Width > 1
}

func (t Type) String() string {
	if t.IsArray() {
		return fmt.Sprintf("%s[%d]", t.Kind, t.Width)
	}
	return t.Kind.String()
}

func (t Type) valid() bool {
	return t.Kind > KindInvalid && t.Kind <= KindFloat64 && t.Width >= 1
}
