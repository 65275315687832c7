// Package timeexpr validates the time-varying scaling expressions attached
// to transitions as "block" strings.
//
// Accepted forms, in variable t, tried in order:
//
//	""          constant 1
//	"a"         constant a
//	"t"         constant 1 (unscaled)
//	"a*t"       linear a·t (the "*" may be omitted)
//	"exp(a*t)"  exponential of a linear form; the inner form must end in t
//
// Whitespace is ignored. Parse never fails: malformed input yields an Expr
// of kind Invalid.
package timeexpr
