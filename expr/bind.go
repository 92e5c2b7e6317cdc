package expr

import (
	"errors"
	"fmt"
	"math"

	"github.com/vegasq/colframe/table"
)

// Resolver binds column names to accessors. *table.Table and joined views
// implement it.
type Resolver interface {
	Accessor(name string, elem int) (table.Accessor, error)
}

// Params supplies configuration values for ParamRef nodes.
type Params interface {
	Param(name string) (float64, bool)
}

// ParamMap is a Params backed by a map.
type ParamMap map[string]float64

// Param implements Params.
func (m ParamMap) Param(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// Predicate is a condition bound to one source. Positions passed to Eval
// are row positions of that source.
type Predicate struct {
	root boolNode
	expr Expr
	src  Resolver
}

// Eval evaluates the predicate on the row at pos.
func (p *Predicate) Eval(pos int) bool {
	return p.root.test(pos)
}

// Evaluate evaluates the predicate on a row of the table it was bound to.
// Rows of any other table, including other instances of the same declared
// table, fail with ErrForeignRow.
func (p *Predicate) Evaluate(r table.Row) (bool, error) {
	if t, ok := p.src.(*table.Table); !ok || r.Table() != t {
		return false, fmt.Errorf("%w: %s for %s", ErrForeignRow, r, p.expr)
	}
	return p.root.test(r.Index()), nil
}

// Expr returns the unbound tree.
func (p *Predicate) Expr() Expr {
	return p.expr
}

func (p *Predicate) String() string {
	return p.expr.String()
}

// Numeric is a numeric expression bound to one source.
type Numeric struct {
	root numNode
	expr Expr
}

// Value evaluates the expression on the row at pos.
func (n *Numeric) Value(pos int) float64 {
	return n.root.value(pos)
}

func (n *Numeric) String() string {
	return n.expr.String()
}

// Bind resolves every column reference of e against r and every parameter
// against params, and returns the bound condition. Nothing is evaluated.
func Bind(e Expr, r Resolver, params Params) (*Predicate, error) {
	b := binder{r: r, params: params}
	root, err := b.cond(e)
	if err != nil {
		return nil, err
	}
	return &Predicate{root: root, expr: e, src: r}, nil
}

// BindValue is like Bind for numeric expressions such as histogram fills.
func BindValue(e Expr, r Resolver, params Params) (*Numeric, error) {
	b := binder{r: r, params: params}
	root, err := b.num(e)
	if err != nil {
		return nil, err
	}
	return &Numeric{root: root, expr: e}, nil
}

type binder struct {
	r      Resolver
	params Params
}

func (b binder) column(c *ColumnRef) (table.Accessor, error) {
	a, err := b.r.Accessor(c.Column, c.Elem)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, table.ErrUnknownColumn) || errors.Is(err, table.ErrUnresolvedReference) {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnboundColumn, c, err)
	}
	return nil, fmt.Errorf("%s: %w", c, err)
}

func (b binder) param(ref *ParamRef) (float64, error) {
	if b.params != nil {
		if v, ok := b.params.Param(ref.Name); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: $%s", ErrUnboundParam, ref.Name)
}

// cond binds e where a condition is expected.
func (b binder) cond(e Expr) (boolNode, error) {
	switch n := e.(type) {
	case *BinaryExpr:
		switch n.Operator {
		case TokenAnd, TokenOr:
			l, err := b.cond(n.Left)
			if err != nil {
				return nil, err
			}
			r, err := b.cond(n.Right)
			if err != nil {
				return nil, err
			}
			if n.Operator == TokenAnd {
				return andNode{l, r}, nil
			}
			return orNode{l, r}, nil
		case TokenBitAnd:
			// flag masks read as conditions: flags & 4
			x, err := b.num(e)
			if err != nil {
				return nil, err
			}
			return truthNode{x}, nil
		}
		if isComparison(n.Operator) {
			l, err := b.num(n.Left)
			if err != nil {
				return nil, err
			}
			r, err := b.num(n.Right)
			if err != nil {
				return nil, err
			}
			return newCmpNode(n.Operator, l, r), nil
		}
	case *UnaryExpr:
		if n.Operator == TokenNot {
			x, err := b.cond(n.Operand)
			if err != nil {
				return nil, err
			}
			return notNode{x}, nil
		}
	case *CallExpr:
		if n.Func == "isset" {
			ref, ok := n.Args[0].(*ColumnRef)
			if !ok {
				return nil, fmt.Errorf("%w: isset takes a column, got %s", ErrSyntax, n.Args[0])
			}
			a, err := b.column(ref)
			if err != nil {
				return nil, err
			}
			return validNode{a}, nil
		}
	case *ColumnRef, *Literal, *ParamRef:
		x, err := b.num(e)
		if err != nil {
			return nil, err
		}
		return truthNode{x}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotBoolean, e)
}

// num binds e where a number is expected.
func (b binder) num(e Expr) (numNode, error) {
	switch n := e.(type) {
	case *ColumnRef:
		a, err := b.column(n)
		if err != nil {
			return nil, err
		}
		return colNode{a}, nil
	case *Literal:
		return constNode(n.Value), nil
	case *ParamRef:
		v, err := b.param(n)
		if err != nil {
			return nil, err
		}
		return constNode(v), nil
	case *UnaryExpr:
		if n.Operator == TokenMinus {
			x, err := b.num(n.Operand)
			if err != nil {
				return nil, err
			}
			return negNode{x}, nil
		}
	case *CallExpr:
		if n.Func == "abs" {
			x, err := b.num(n.Args[0])
			if err != nil {
				return nil, err
			}
			return absNode{x}, nil
		}
	case *BinaryExpr:
		switch n.Operator {
		case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenBitAnd:
			l, err := b.num(n.Left)
			if err != nil {
				return nil, err
			}
			r, err := b.num(n.Right)
			if err != nil {
				return nil, err
			}
			return arithNode{op: n.Operator, l: l, r: r}, nil
		}
	}
	// A condition used as a number reads as 0 or 1
	c, err := b.cond(e)
	if err != nil {
		return nil, err
	}
	return boolValueNode{c}, nil
}

type numNode interface {
	value(pos int) float64
}

type boolNode interface {
	test(pos int) bool
}

type colNode struct{ a table.Accessor }

func (n colNode) value(pos int) float64 { return n.a.Float64(pos) }

type constNode float64

func (n constNode) value(int) float64 { return float64(n) }

type negNode struct{ x numNode }

func (n negNode) value(pos int) float64 { return -n.x.value(pos) }

type absNode struct{ x numNode }

func (n absNode) value(pos int) float64 { return math.Abs(n.x.value(pos)) }

type arithNode struct {
	op   TokenType
	l, r numNode
}

func (n arithNode) value(pos int) float64 {
	l, r := n.l.value(pos), n.r.value(pos)
	switch n.op {
	case TokenPlus:
		return l + r
	case TokenMinus:
		return l - r
	case TokenStar:
		return l * r
	case TokenSlash:
		return l / r
	case TokenBitAnd:
		if math.IsNaN(l) || math.IsNaN(r) {
			return math.NaN()
		}
		return float64(int64(l) & int64(r))
	}
	return math.NaN()
}

type boolValueNode struct{ c boolNode }

func (n boolValueNode) value(pos int) float64 {
	if n.c.test(pos) {
		return 1
	}
	return 0
}

type cmpNode struct {
	op   TokenType
	l, r numNode
}

func newCmpNode(op TokenType, l, r numNode) boolNode {
	return cmpNode{op: op, l: l, r: r}
}

func (n cmpNode) test(pos int) bool {
	l, r := n.l.value(pos), n.r.value(pos)
	switch n.op {
	case TokenEqual:
		return l == r
	case TokenNotEqual:
		// unresolved (NaN) operands fail every comparison
		return l != r && !math.IsNaN(l) && !math.IsNaN(r)
	case TokenLess:
		return l < r
	case TokenLessEqual:
		return l <= r
	case TokenGreater:
		return l > r
	case TokenGreaterEqual:
		return l >= r
	}
	return false
}

type andNode struct{ l, r boolNode }

func (n andNode) test(pos int) bool { return n.l.test(pos) && n.r.test(pos) }

type orNode struct{ l, r boolNode }

func (n orNode) test(pos int) bool { return n.l.test(pos) || n.r.test(pos) }

type notNode struct{ x boolNode }

func (n notNode) test(pos int) bool { return !n.x.test(pos) }

type truthNode struct{ x numNode }

func (n truthNode) test(pos int) bool {
	v := n.x.value(pos)
	return v != 0 && !math.IsNaN(v)
}

type validNode struct{ a table.Accessor }

func (n validNode) test(pos int) bool { return n.a.Valid(pos) }
