package ode

import (
	"strconv"
	"strings"

	"github.com/roach88/popdyn/internal/model"
)

// TokenKind is the lexical class of a Token.
type TokenKind int

const (
	TokNumber TokenKind = iota
	TokVar
	TokOp
	TokFunc
	TokLParen
	TokRParen
	TokComma
)

// Operators and functions.
const (
	OpAdd = "+"
	OpMul = "*"
	OpPow = "^"

	FuncMin  = "min"
	FuncFact = "fact"
)

// Token is one element of an infix or postfix sequence.
//
// Name carries the operator or function name for TokOp and TokFunc, and the
// display name for TokVar. Arity is the operand count of a TokFunc; it is
// only meaningful in postfix, where ToPostfix fills it from the commas.
type Token struct {
	Kind  TokenKind
	Name  string
	Value float64
	Var   Variable
	Arity int
}

func number(v float64) Token { return Token{Kind: TokNumber, Value: v} }
func op(name string) Token   { return Token{Kind: TokOp, Name: name} }

var (
	lparen = Token{Kind: TokLParen}
	rparen = Token{Kind: TokRParen}
	comma  = Token{Kind: TokComma}
)

func (t Token) String() string {
	switch t.Kind {
	case TokNumber:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case TokVar:
		if t.Var.Delay == 0 {
			return t.Name
		}
		return t.Name + "[-" + strconv.Itoa(t.Var.Delay) + "]"
	case TokOp:
		return t.Name
	case TokFunc:
		if t.Arity > 0 {
			return t.Name + ":" + strconv.Itoa(t.Arity)
		}
		return t.Name
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	case TokComma:
		return ","
	default:
		return "?"
	}
}

// Format renders a token sequence for display. Infix sequences read as
// ordinary arithmetic; postfix sequences are space separated.
func Format(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		switch {
		case i == 0:
		case t.Kind == TokRParen || t.Kind == TokComma:
		case i > 0 && (tokens[i-1].Kind == TokLParen || tokens[i-1].Kind == TokFunc && t.Kind == TokLParen):
		default:
			b.WriteByte(' ')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

// precedence of binary operators; higher binds tighter.
var precedence = map[string]int{
	OpAdd: 1,
	OpMul: 2,
	OpPow: 3,
}

const atomPrecedence = 4

func rightAssociative(name string) bool {
	return name == OpPow
}

// Infix renders the tree rooted at id. names gives the display name of
// each state; unnamed states render as their id.
func (a *Arena) Infix(id NodeID, names map[model.StateID]string) []Token {
	var out []Token
	a.infix(id, names, &out)
	return out
}

func (a *Arena) infix(id NodeID, names map[model.StateID]string, out *[]Token) {
	n := a.Node(id)
	switch n.Kind {
	case KindConst:
		*out = append(*out, number(n.Value))
	case KindVar:
		name, ok := names[n.Var.State]
		if !ok {
			name = "x" + strconv.FormatInt(int64(n.Var.State), 10)
		}
		*out = append(*out, Token{Kind: TokVar, Name: name, Var: n.Var})
	case KindMin, KindFactorial:
		name := FuncMin
		if n.Kind == KindFactorial {
			name = FuncFact
		}
		*out = append(*out, Token{Kind: TokFunc, Name: name}, lparen)
		for i, arg := range n.Args {
			if i > 0 {
				*out = append(*out, comma)
			}
			a.infix(arg, names, out)
		}
		*out = append(*out, rparen)
	default:
		name := nodeOp(n.Kind)
		prec := precedence[name]
		for i, arg := range n.Args {
			if i > 0 {
				*out = append(*out, op(name))
			}
			if a.needsParens(arg, prec, i, rightAssociative(name)) {
				*out = append(*out, lparen)
				a.infix(arg, names, out)
				*out = append(*out, rparen)
			} else {
				a.infix(arg, names, out)
			}
		}
	}
}

// needsParens reports whether operand pos of an operator with precedence
// prec must be parenthesised for the postfix form to keep the tree's
// evaluation order.
func (a *Arena) needsParens(arg NodeID, prec, pos int, rightAssoc bool) bool {
	p := a.precedenceOf(arg)
	if p != prec {
		return p < prec
	}
	if rightAssoc {
		return pos == 0
	}
	return pos > 0
}

func (a *Arena) precedenceOf(id NodeID) int {
	n := a.Node(id)
	switch n.Kind {
	case KindSum, KindProduct, KindPower:
		return precedence[nodeOp(n.Kind)]
	case KindConst:
		if n.Value < 0 {
			// "-1" as an exponent base would read as unary minus.
			return precedence[OpMul]
		}
		return atomPrecedence
	default:
		return atomPrecedence
	}
}

func nodeOp(k Kind) string {
	switch k {
	case KindSum:
		return OpAdd
	case KindProduct:
		return OpMul
	default:
		return OpPow
	}
}
