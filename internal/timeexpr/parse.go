package timeexpr

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Kind tags the variant held by an Expr.
type Kind int

const (
	// Invalid marks input that matches none of the accepted forms.
	Invalid Kind = iota
	// Constant is a t-independent factor A.
	Constant
	// Linear is A·t.
	Linear
	// ExponentialOfLinear is exp(A·t).
	ExponentialOfLinear
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	case ExponentialOfLinear:
		return "exponential"
	default:
		return "invalid"
	}
}

// Expr is the parse result of a block string.
type Expr struct {
	Kind Kind
	// A is the coefficient of the form. Unused for Invalid.
	A float64
	// Source is the original text.
	Source string
}

// Parse classifies s into one of the accepted forms.
func Parse(s string) Expr {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if e, ok := parseLinear(compact, false); ok {
		e.Source = s
		return e
	}

	if inner, ok := strings.CutPrefix(compact, "exp("); ok {
		if inner, ok = strings.CutSuffix(inner, ")"); ok && strings.HasSuffix(inner, "t") {
			if e, ok := parseLinear(inner, true); ok {
				return Expr{Kind: ExponentialOfLinear, A: e.A, Source: s}
			}
		}
	}

	return Expr{Kind: Invalid, Source: s}
}

// Valid reports whether s parses to any form other than Invalid.
func Valid(s string) bool {
	return Parse(s).Kind != Invalid
}

// parseLinear accepts "", "a", "t", "a*t" and "at". A bare or empty
// coefficient defaults to 1; "*t" has no coefficient and is rejected. With keepT a bare "t" stays linear, which is
// what the exponent of exp(t) needs.
func parseLinear(s string, keepT bool) (Expr, bool) {
	if s == "" {
		return Expr{Kind: Constant, A: 1}, true
	}

	body, linear := strings.CutSuffix(s, "t")
	if linear {
		var star bool
		if body, star = strings.CutSuffix(body, "*"); star && body == "" {
			return Expr{}, false
		}
	}

	a := 1.0
	if body != "" {
		v, err := strconv.ParseFloat(body, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Expr{}, false
		}
		a = v
	}

	switch {
	case linear && body == "" && !keepT:
		return Expr{Kind: Constant, A: 1}, true
	case linear:
		return Expr{Kind: Linear, A: a}, true
	default:
		return Expr{Kind: Constant, A: a}, true
	}
}

// Eval evaluates the expression at time t. Invalid expressions give NaN.
func (e Expr) Eval(t float64) float64 {
	switch e.Kind {
	case Constant:
		return e.A
	case Linear:
		return e.A * t
	case ExponentialOfLinear:
		return math.Exp(e.A * t)
	default:
		return math.NaN()
	}
}

// String renders the canonical form of the expression.
func (e Expr) String() string {
	a := strconv.FormatFloat(e.A, 'g', -1, 64)
	switch e.Kind {
	case Constant:
		return a
	case Linear:
		return a + "*t"
	case ExponentialOfLinear:
		return "exp(" + a + "*t)"
	default:
		return "<invalid>"
	}
}
