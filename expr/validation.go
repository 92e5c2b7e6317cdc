package expr

import (
	"errors"
	"fmt"
)

// Validation constants to prevent resource exhaustion on untrusted input.
const (
	// MaxExpressionLength is the maximum allowed expression string length (64KB).
	MaxExpressionLength = 64 * 1024

	// MaxTokens is the maximum number of tokens in an expression.
	MaxTokens = 1000

	// MaxExpressionDepth is the maximum nesting depth for expressions.
	MaxExpressionDepth = 100
)

var (
	// ErrExpressionTooLong is returned when input exceeds MaxExpressionLength.
	ErrExpressionTooLong = errors.New("expression too long")

	// ErrTooManyTokens is returned when input has too many tokens.
	ErrTooManyTokens = errors.New("too many tokens in expression")

	// ErrExpressionTooDeep is returned when expression nesting exceeds limit.
	ErrExpressionTooDeep = errors.New("expression nesting too deep")
)

// ValidateExpression performs length validation on expression input.
func ValidateExpression(input string) error {
	if len(input) > MaxExpressionLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrExpressionTooLong, len(input), MaxExpressionLength)
	}
	return nil
}

// ValidateTokens validates token count.
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}

// depthCounter tracks expression nesting depth.
type depthCounter struct {
	depth    int
	maxDepth int
}

func newDepthCounter() *depthCounter {
	return &depthCounter{maxDepth: MaxExpressionDepth}
}

// enter increments depth and returns error if limit exceeded.
func (c *depthCounter) enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d (max %d)", ErrExpressionTooDeep, c.depth, c.maxDepth)
	}
	return nil
}

func (c *depthCounter) exit() {
	c.depth--
}
