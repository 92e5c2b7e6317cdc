package expr

import (
	"strings"
	"unicode"
)

// Lexer tokenizes filter expression strings.
type Lexer struct {
	input string
	pos   int
	ch    rune
	eof   bool
}

// NewLexer creates a new lexer.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
		l.eof = true
	} else {
		l.ch = rune(l.input[l.pos])
	}
	l.pos++
}

// peekChar looks at the next character without advancing.
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos])
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readNumber reads a decimal number with optional fraction and exponent.
// A C-style float suffix is consumed and dropped.
func (l *Lexer) readNumber() string {
	var result strings.Builder

	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '-' || next == '+' {
			result.WriteRune(l.ch)
			l.readChar()
			result.WriteRune(l.ch)
			l.readChar()
			for unicode.IsDigit(l.ch) {
				result.WriteRune(l.ch)
				l.readChar()
			}
		}
	}
	if l.ch == 'f' || l.ch == 'F' {
		l.readChar()
	}
	return result.String()
}

// readIdentifier reads an identifier or keyword, dots included so that
// ref.column stays one token.
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// twoChar emits a two-character token when the next character matches,
// the fallback otherwise.
func (l *Lexer) twoChar(next rune, double, single TokenType) Token {
	first := l.ch
	if l.peekChar() == next {
		l.readChar()
		l.readChar()
		return Token{Type: double, Value: string([]rune{first, next})}
	}
	l.readChar()
	return Token{Type: single, Value: string(first)}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	var tok Token

	switch l.ch {
	case 0:
		if l.eof {
			tok = Token{Type: TokenEOF, Value: ""}
		} else {
			// a NUL inside the input is not the end of it
			tok = Token{Type: TokenError, Value: "\x00"}
			l.readChar()
		}
	case '=':
		tok = l.twoChar('=', TokenEqual, TokenEqual)
	case '!':
		tok = l.twoChar('=', TokenNotEqual, TokenNot)
	case '<':
		tok = l.twoChar('=', TokenLessEqual, TokenLess)
	case '>':
		tok = l.twoChar('=', TokenGreaterEqual, TokenGreater)
	case '&':
		tok = l.twoChar('&', TokenAnd, TokenBitAnd)
	case '|':
		tok = l.twoChar('|', TokenOr, TokenError)
	case '+':
		tok = Token{Type: TokenPlus, Value: "+"}
		l.readChar()
	case '-':
		tok = Token{Type: TokenMinus, Value: "-"}
		l.readChar()
	case '*':
		tok = Token{Type: TokenStar, Value: "*"}
		l.readChar()
	case '/':
		tok = Token{Type: TokenSlash, Value: "/"}
		l.readChar()
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
		l.readChar()
	case '[':
		tok = Token{Type: TokenLeftBracket, Value: "["}
		l.readChar()
	case ']':
		tok = Token{Type: TokenRightBracket, Value: "]"}
		l.readChar()
	case '$':
		l.readChar()
		name := l.readIdentifier()
		if name == "" {
			tok = Token{Type: TokenError, Value: "$"}
		} else {
			tok = Token{Type: TokenParam, Value: name}
		}
	default:
		if unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())) {
			tok = Token{Type: TokenNumber, Value: l.readNumber()}
		} else if unicode.IsLetter(l.ch) || l.ch == '_' {
			value := l.readIdentifier()
			tok = Token{Type: identifierType(value), Value: value}
		} else {
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	return tok
}

// identifierType determines if an identifier is a keyword.
func identifierType(ident string) TokenType {
	switch strings.ToLower(ident) {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "true", "false":
		return TokenBool
	}
	return TokenIdent
}

// Tokenize converts an expression string into tokens, EOF included.
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
