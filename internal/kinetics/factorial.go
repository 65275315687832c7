package kinetics

import "math"

// Factorial is the probabilistic extension of n! to non-negative reals.
//
// For x = n + f with integer n and 0 <= f < 1 it is the expectation of the
// factorials of the two neighbouring integers weighted by proximity:
//
//	(1-f)·n! + f·(n+1)!
//
// Integer arguments give the ordinary factorial. Negative arguments are
// treated as 0.
func Factorial(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return 1
	}
	n := math.Floor(x)
	f := x - n
	lower := intFactorial(n)
	if f == 0 {
		return lower
	}
	return (1-f)*lower + f*lower*(n+1)
}

// intFactorial computes n! for a non-negative integral float.
// Large n overflows to +Inf.
func intFactorial(n float64) float64 {
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
		if math.IsInf(result, 1) {
			return result
		}
	}
	return result
}
