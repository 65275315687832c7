package ode

import "github.com/roach88/popdyn/internal/kinetics"

// Values maps each variable to its current value.
type Values map[Variable]float64

// ToPostfix converts an infix token sequence to postfix with the
// shunting-yard algorithm. Function tokens in the result carry their
// operand count.
func ToPostfix(infix []Token) ([]Token, error) {
	out := make([]Token, 0, len(infix))
	var stack []Token
	var arity []int

	top := func() (Token, bool) {
		if len(stack) == 0 {
			return Token{}, false
		}
		return stack[len(stack)-1], true
	}
	pop := func() Token {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return t
	}
	// unwind moves operators to the output until the innermost "(".
	unwind := func() error {
		for {
			t, ok := top()
			if !ok {
				return malformed("unbalanced parenthesis or misplaced comma")
			}
			if t.Kind == TokLParen {
				return nil
			}
			out = append(out, pop())
		}
	}

	for _, tok := range infix {
		switch tok.Kind {
		case TokNumber, TokVar:
			out = append(out, tok)
		case TokFunc:
			stack = append(stack, tok)
			arity = append(arity, 1)
		case TokComma:
			if err := unwind(); err != nil {
				return nil, err
			}
			if len(arity) == 0 {
				return nil, malformed("comma outside a function call")
			}
			arity[len(arity)-1]++
		case TokOp:
			prec, ok := precedence[tok.Name]
			if !ok {
				return nil, malformed("unknown operator %q", tok.Name)
			}
			for {
				t, ok := top()
				if !ok || t.Kind != TokOp {
					break
				}
				p := precedence[t.Name]
				if p > prec || p == prec && !rightAssociative(tok.Name) {
					out = append(out, pop())
					continue
				}
				break
			}
			stack = append(stack, tok)
		case TokLParen:
			stack = append(stack, tok)
		case TokRParen:
			if err := unwind(); err != nil {
				return nil, err
			}
			pop()
			if t, ok := top(); ok && t.Kind == TokFunc {
				fn := pop()
				fn.Arity = arity[len(arity)-1]
				arity = arity[:len(arity)-1]
				out = append(out, fn)
			}
		default:
			return nil, malformed("unexpected token %s", tok)
		}
	}

	for len(stack) > 0 {
		t := pop()
		if t.Kind == TokLParen || t.Kind == TokFunc {
			return nil, malformed("unbalanced parenthesis")
		}
		out = append(out, t)
	}
	return out, nil
}

// Eval evaluates a postfix sequence on an operand stack.
func Eval(postfix []Token, values Values) (float64, error) {
	stack := make([]float64, 0, 8)

	need := func(n int, what string) error {
		if len(stack) < n {
			return malformed("%s needs %d operands, have %d", what, n, len(stack))
		}
		return nil
	}

	for _, tok := range postfix {
		switch tok.Kind {
		case TokNumber:
			stack = append(stack, tok.Value)
		case TokVar:
			v, ok := values[tok.Var]
			if !ok {
				return 0, missing(tok.Var)
			}
			stack = append(stack, v)
		case TokOp:
			if err := need(2, tok.Name); err != nil {
				return 0, err
			}
			x, y := stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
			var r float64
			switch tok.Name {
			case OpAdd:
				r = x + y
			case OpMul:
				r = x * y
			case OpPow:
				r = power(x, y)
			default:
				return 0, malformed("unknown operator %q", tok.Name)
			}
			stack = append(stack, r)
		case TokFunc:
			if tok.Arity < 1 {
				return 0, malformed("%s without operands", tok.Name)
			}
			if err := need(tok.Arity, tok.Name); err != nil {
				return 0, err
			}
			args := stack[len(stack)-tok.Arity:]
			var r float64
			switch {
			case tok.Name == FuncMin:
				r = minOf(args)
			case tok.Name == FuncFact && tok.Arity == 1:
				r = kinetics.Factorial(args[0])
			default:
				return 0, malformed("unknown function %s", tok)
			}
			stack = append(stack[:len(stack)-tok.Arity], r)
		default:
			return 0, malformed("unexpected token %s in postfix", tok)
		}
	}

	if len(stack) != 1 {
		return 0, malformed("expression leaves %d values", len(stack))
	}
	return stack[0], nil
}
