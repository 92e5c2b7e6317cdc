package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses filter expressions into trees.
type Parser struct {
	tokens       []Token
	pos          int
	depthCounter *depthCounter
}

// NewParser creates a new parser.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:       tokens,
		depthCounter: newDepthCounter(),
	}
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances.
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return p.errorf("expected %v, got %v", tokType, p.current().Type)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}

// Parse parses a filter expression such as
// "nabs(eta) <= $etaCut && trackType != 2".
func Parse(input string) (Expr, error) {
	if err := ValidateExpression(input); err != nil {
		return nil, err
	}

	tokens := Tokenize(input)
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	e, err := parser.parseOr()
	if err != nil {
		return nil, err
	}

	if parser.current().Type == TokenError {
		return nil, parser.errorf("invalid character: %s", parser.current().Value)
	}
	if parser.current().Type != TokenEOF {
		return nil, parser.errorf("unexpected trailing tokens: %s", parser.current().Value)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. It is meant for expressions
// fixed at compile time.
func MustParse(input string) Expr {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

// parseOr parses OR expressions (lowest precedence).
func (p *Parser) parseOr() (Expr, error) {
	if err := p.depthCounter.enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenOr, Right: right}
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR).
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenAnd, Right: right}
	}

	return left, nil
}

// parseNot parses logical negation.
func (p *Parser) parseNot() (Expr, error) {
	if p.current().Type != TokenNot {
		return p.parseComparison()
	}
	if err := p.depthCounter.enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.exit()

	p.advance()
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Operator: TokenNot, Operand: operand}, nil
}

func isComparison(t TokenType) bool {
	switch t {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		return true
	}
	return false
}

// parseComparison parses a single, non-associative comparison.
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}

	op := p.current().Type
	if !isComparison(op) {
		return left, nil
	}
	p.advance()

	right, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	if isComparison(p.current().Type) {
		return nil, p.errorf("chained comparison at %s", p.current().Value)
	}
	return &BinaryExpr{Left: left, Operator: op, Right: right}, nil
}

// parseBitAnd parses bitwise and, used for flag masks.
func (p *Parser) parseBitAnd() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenBitAnd {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenBitAnd, Right: right}
	}

	return left, nil
}

// parseAdditive parses + and -.
func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.current().Type
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseMultiplicative parses * and /.
func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash {
		op := p.current().Type
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseUnary parses unary minus.
func (p *Parser) parseUnary() (Expr, error) {
	if p.current().Type != TokenMinus {
		return p.parsePrimary()
	}
	if err := p.depthCounter.enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.exit()

	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	// Fold negative literals so that "-0.8" stays a constant
	if lit, ok := operand.(*Literal); ok && !lit.IsBool {
		return &Literal{Value: -lit.Value}, nil
	}
	return &UnaryExpr{Operator: TokenMinus, Operand: operand}, nil
}

// parsePrimary parses literals, parameters, columns, calls and groups.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.Value)
		}
		return &Literal{Value: v}, nil

	case TokenBool:
		p.advance()
		if strings.EqualFold(tok.Value, "true") {
			return True(), nil
		}
		return False(), nil

	case TokenParam:
		p.advance()
		return &ParamRef{Name: tok.Value}, nil

	case TokenLeftParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return e, nil

	case TokenIdent:
		p.advance()
		switch p.current().Type {
		case TokenLeftParen:
			return p.parseCall(tok.Value)
		case TokenLeftBracket:
			return p.parseElement(tok.Value)
		}
		if err := validateColumnName(tok.Value); err != nil {
			return nil, p.errorf("%v", err)
		}
		return &ColumnRef{Column: tok.Value}, nil

	case TokenError:
		return nil, p.errorf("invalid character: %s", tok.Value)
	}

	return nil, p.errorf("unexpected %v", tok.Type)
}

// parseElement parses name[i].
func (p *Parser) parseElement(name string) (Expr, error) {
	if err := validateColumnName(name); err != nil {
		return nil, p.errorf("%v", err)
	}
	p.advance() // [
	tok := p.current()
	if tok.Type != TokenNumber {
		return nil, p.errorf("expected element index after %s[, got %v", name, tok.Type)
	}
	i, err := strconv.Atoi(tok.Value)
	if err != nil || i < 0 {
		return nil, p.errorf("invalid element index %q", tok.Value)
	}
	p.advance()
	if err := p.expect(TokenRightBracket); err != nil {
		return nil, err
	}
	return &ColumnRef{Column: name, Elem: i}, nil
}

// parseCall parses the built-in functions.
func (p *Parser) parseCall(name string) (Expr, error) {
	fn := strings.ToLower(name)
	p.advance() // (

	var args []Expr
	if p.current().Type != TokenRightParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}

	if len(args) != 1 {
		return nil, p.errorf("%s takes 1 argument, got %d", fn, len(args))
	}
	switch fn {
	case "abs", "nabs":
		return &CallExpr{Func: "abs", Args: args}, nil
	case "isset":
		ref, ok := args[0].(*ColumnRef)
		if !ok || ref.Elem != 0 {
			return nil, p.errorf("isset takes an index column name")
		}
		return &CallExpr{Func: "isset", Args: args}, nil
	}
	return nil, p.errorf("unknown function %s", name)
}

// validateColumnName rejects dotted names with empty segments.
func validateColumnName(name string) error {
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("malformed column name %q", name)
		}
	}
	return nil
}
