package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnboundColumn is returned when a referenced column does not exist in
	// the source an expression is bound to.
	ErrUnboundColumn = errors.New("unbound column")

	// ErrUnboundParam is returned when a parameter has no value.
	ErrUnboundParam = errors.New("unbound parameter")

	// ErrNotBoolean is returned when a numeric expression is used as a condition.
	ErrNotBoolean = errors.New("expression is not a condition")

	// ErrSyntax is returned for malformed expression text.
	ErrSyntax = errors.New("syntax error")

	// ErrForeignRow is returned when a predicate is evaluated on a row of a
	// table other than the one it was bound to.
	ErrForeignRow = errors.New("row is not from the bound table")
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Logical.
	TokenAnd TokenType = iota
	TokenOr
	TokenNot

	// Comparison.
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Arithmetic.
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenBitAnd // &

	// Literals.
	TokenNumber
	TokenIdent
	TokenParam
	TokenBool

	// Delimiters.
	TokenComma        // ,
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBracket  // [
	TokenRightBracket // ]

	// Special.
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenNot:          "!",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenLessEqual:    "<=",
	TokenGreaterEqual: ">=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenBitAnd:       "&",
	TokenNumber:       "number",
	TokenIdent:        "identifier",
	TokenParam:        "parameter",
	TokenBool:         "boolean",
	TokenComma:        ",",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBracket:  "[",
	TokenRightBracket: "]",
	TokenEOF:          "end of input",
	TokenError:        "invalid token",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
}

// Expr is a node of a filter expression tree.
type Expr interface {
	String() string
	node()
}

// ColumnRef references one element of a column (Elem is 0 for scalars).
type ColumnRef struct {
	Column string
	Elem   int
}

// Literal is a numeric or boolean constant.
type Literal struct {
	Value  float64
	IsBool bool
}

// ParamRef is a named configuration value resolved at bind time.
type ParamRef struct {
	Name string
}

// UnaryExpr is a negation (TokenMinus) or logical not (TokenNot).
type UnaryExpr struct {
	Operator TokenType
	Operand  Expr
}

// CallExpr is a built-in function call: abs, nabs or isset.
type CallExpr struct {
	Func string
	Args []Expr
}

// BinaryExpr is an arithmetic, comparison or logical operation.
type BinaryExpr struct {
	Left     Expr
	Operator TokenType
	Right    Expr
}

func (*ColumnRef) node()  {}
func (*Literal) node()    {}
func (*ParamRef) node()   {}
func (*UnaryExpr) node()  {}
func (*CallExpr) node()   {}
func (*BinaryExpr) node() {}

func (c *ColumnRef) String() string {
	if c.Elem > 0 {
		return fmt.Sprintf("%s[%d]", c.Column, c.Elem)
	}
	return c.Column
}

func (l *Literal) String() string {
	if l.IsBool {
		return strconv.FormatBool(l.Value != 0)
	}
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}

func (p *ParamRef) String() string {
	return "$" + p.Name
}

func (u *UnaryExpr) String() string {
	return u.Operator.String() + "(" + u.Operand.String() + ")"
}

func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}

func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Operator.String() + " " + b.Right.String() + ")"
}

// Col references a scalar column, or a column of a referenced row with
// the dotted form "ref.column".
func Col(name string) Expr { return &ColumnRef{Column: name} }

// ColAt references element i of an array column.
func ColAt(name string, i int) Expr { return &ColumnRef{Column: name, Elem: i} }

// Const is a numeric constant.
func Const(v float64) Expr { return &Literal{Value: v} }

// True is the condition that holds for every row.
func True() Expr { return &Literal{Value: 1, IsBool: true} }

// False is the condition that holds for no row.
func False() Expr { return &Literal{Value: 0, IsBool: true} }

// Param references a configuration value.
func Param(name string) Expr { return &ParamRef{Name: name} }

// Abs is the absolute value of x.
func Abs(x Expr) Expr { return &CallExpr{Func: "abs", Args: []Expr{x}} }

// Neg is the arithmetic negation of x.
func Neg(x Expr) Expr { return &UnaryExpr{Operator: TokenMinus, Operand: x} }

// Not is the logical negation of the condition x.
func Not(x Expr) Expr { return &UnaryExpr{Operator: TokenNot, Operand: x} }

// IsSet tests whether the index column ref holds a reference.
func IsSet(ref string) Expr { return &CallExpr{Func: "isset", Args: []Expr{Col(ref)}} }

// Add is l + r.
func Add(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenPlus, Right: r} }

// Sub is l - r.
func Sub(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenMinus, Right: r} }

// Mul is l * r.
func Mul(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenStar, Right: r} }

// Div is l / r.
func Div(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenSlash, Right: r} }

// BitAnd is the bitwise and of l and r, both truncated to integers.
func BitAnd(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenBitAnd, Right: r} }

// Lt is the condition l < r.
func Lt(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenLess, Right: r} }

// Le is the condition l <= r.
func Le(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenLessEqual, Right: r} }

// Gt is the condition l > r.
func Gt(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenGreater, Right: r} }

// Ge is the condition l >= r.
func Ge(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenGreaterEqual, Right: r} }

// Eq is the condition l == r.
func Eq(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenEqual, Right: r} }

// Ne is the condition l != r.
func Ne(l, r Expr) Expr { return &BinaryExpr{Left: l, Operator: TokenNotEqual, Right: r} }

// And combines conditions left to right.
func And(first Expr, rest ...Expr) Expr {
	return fold(TokenAnd, first, rest)
}

// Or combines conditions left to right.
func Or(first Expr, rest ...Expr) Expr {
	return fold(TokenOr, first, rest)
}

func fold(op TokenType, first Expr, rest []Expr) Expr {
	e := first
	for _, r := range rest {
		e = &BinaryExpr{Left: e, Operator: op, Right: r}
	}
	return e
}
