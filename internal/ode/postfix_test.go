package ode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(v float64) Token { return number(v) }

func fn(name string) Token { return Token{Kind: TokFunc, Name: name} }

func TestToPostfix(t *testing.T) {
	tests := []struct {
		name    string
		infix   []Token
		postfix string
		value   float64
	}{
		{
			name:    "precedence",
			infix:   []Token{num(2), op(OpAdd), num(3), op(OpMul), num(4)},
			postfix: "2 3 4 * +",
			value:   14,
		},
		{
			name:    "parentheses",
			infix:   []Token{lparen, num(2), op(OpAdd), num(3), rparen, op(OpMul), num(4)},
			postfix: "2 3 + 4 *",
			value:   20,
		},
		{
			name:    "power is right associative",
			infix:   []Token{num(2), op(OpPow), num(3), op(OpPow), num(2)},
			postfix: "2 3 2 ^ ^",
			value:   512,
		},
		{
			name:    "sum is left associative",
			infix:   []Token{num(1), op(OpAdd), num(2), op(OpAdd), num(3)},
			postfix: "1 2 + 3 +",
			value:   6,
		},
		{
			name: "variadic function",
			infix: []Token{
				fn(FuncMin), lparen,
				num(5), comma,
				num(2), op(OpAdd), num(1), comma,
				num(4),
				rparen,
			},
			postfix: "5 2 1 + 4 min:3",
			value:   3,
		},
		{
			name:    "nested functions",
			infix:   []Token{fn(FuncFact), lparen, fn(FuncMin), lparen, num(3), comma, num(4), rparen, rparen, op(OpMul), num(2)},
			postfix: "3 4 min:2 fact:1 2 *",
			value:   12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			postfix, err := ToPostfix(tt.infix)
			require.NoError(t, err)
			assert.Equal(t, tt.postfix, Format(postfix))

			got, err := Eval(postfix, nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.value, got, 1e-12)
		})
	}
}

func TestToPostfix_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		infix []Token
	}{
		{"unclosed paren", []Token{lparen, num(1)}},
		{"stray close paren", []Token{num(1), rparen}},
		{"comma outside call", []Token{num(1), comma, num(2)}},
		{"unknown operator", []Token{num(1), op("%"), num(2)}},
		{"unclosed call", []Token{fn(FuncMin), lparen, num(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToPostfix(tt.infix)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEval_Variables(t *testing.T) {
	x := Token{Kind: TokVar, Name: "x", Var: Variable{State: 7, Delay: 1}}
	postfix := []Token{x, num(2), op(OpPow)}

	got, err := Eval(postfix, Values{{State: 7, Delay: 1}: 3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, got)

	_, err = Eval(postfix, Values{{State: 7}: 3})
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestEval_ZeroToNegativePower(t *testing.T) {
	got, err := Eval([]Token{num(0), num(-1), op(OpPow)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestEval_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		postfix []Token
	}{
		{"empty", nil},
		{"missing operand", []Token{num(1), op(OpAdd)}},
		{"leftover operand", []Token{num(1), num(2)}},
		{"function without arity", []Token{num(1), fn(FuncMin)}},
		{"factorial of two", []Token{num(1), num(2), {Kind: TokFunc, Name: FuncFact, Arity: 2}}},
		{"paren in postfix", []Token{lparen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Eval(tt.postfix, nil)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFormat_Infix(t *testing.T) {
	infix := []Token{
		fn(FuncMin), lparen,
		{Kind: TokVar, Name: "prey", Var: Variable{State: 1, Delay: 2}}, comma,
		num(0.5),
		rparen, op(OpMul), lparen, num(1), op(OpAdd), num(-1), rparen,
	}
	assert.Equal(t, "min(prey[-2], 0.5) * (1 + -1)", Format(infix))
}
