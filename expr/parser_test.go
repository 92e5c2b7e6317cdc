package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"nabs(eta) <= $etaCut && trackType != 2", "((abs(eta) <= $etaCut) && (trackType != 2))"},
		{"eta < 0.8 && eta > -0.8", "((eta < 0.8) && (eta > -0.8))"},
		{"a - 1 > 0", "((a - 1) > 0)"},
		{"flags & 1 == 1", "((flags & 1) == 1)"},
		{"!primary || pt > 1", "(!(primary) || (pt > 1))"},
		{"cov[2] > 0.8f", "(cov[2] > 0.8)"},
		{"isset(collision) and collision.posZ > 0", "(isset(collision) && (collision.posZ > 0))"},
		{"(a or b) and c", "((a || b) && c)"},
		{"a or b and c", "(a || (b && c))"},
		{"1e-3 < x * 2 + y", "(0.001 < ((x * 2) + y))"},
		{"-(pt) < 0", "(-(pt) < 0)"},
		{"primary == true", "(primary == true)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParse_MatchesBuilders(t *testing.T) {
	parsed := MustParse("nabs(eta) <= $etaCut && trackType != 2")
	built := And(
		Le(Abs(Col("eta")), Param("etaCut")),
		Ne(Col("trackType"), Const(2)),
	)
	assert.Equal(t, built, parsed)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"dangling operator", "a <", ErrSyntax},
		{"chained comparison", "a < b < c", ErrSyntax},
		{"lone pipe", "a | b", ErrSyntax},
		{"unknown function", "foo(x)", ErrSyntax},
		{"isset of constant", "isset(1)", ErrSyntax},
		{"abs arity", "abs(a, b)", ErrSyntax},
		{"open bracket", "x[", ErrSyntax},
		{"bare dollar", "$", ErrSyntax},
		{"empty path segment", "a..b > 1", ErrSyntax},
		{"unclosed paren", "(a", ErrSyntax},
		{"trailing tokens", "a b", ErrSyntax},
		{"embedded nul", "pt > 1\x00 && garbage ((", ErrSyntax},
		{"empty", "", ErrSyntax},
		{"too deep", strings.Repeat("(", 200) + "a" + strings.Repeat(")", 200), ErrExpressionTooDeep},
		{"too many tokens", strings.Repeat("a && ", 600) + "a", ErrTooManyTokens},
		{"too long", strings.Repeat(" ", MaxExpressionLength+1), ErrExpressionTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
