package kinetics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactorial_Integers(t *testing.T) {
	want := []float64{1, 1, 2, 6, 24, 120, 720, 5040}
	for n, w := range want {
		assert.Equal(t, w, Factorial(float64(n)), "%d!", n)
	}
}

func TestFactorial_HalfIsMeanOfNeighbours(t *testing.T) {
	for n := 0; n < 8; n++ {
		lower := Factorial(float64(n))
		upper := Factorial(float64(n + 1))
		assert.InDelta(t, (lower+upper)/2, Factorial(float64(n)+0.5), 1e-9, "n=%d", n)
	}
}

func TestFactorial_InterpolatesLinearly(t *testing.T) {
	// 2.25 lies a quarter of the way from 2! to 3!.
	assert.InDelta(t, 0.75*2+0.25*6, Factorial(2.25), 1e-12)
}

func TestFactorial_DiffersFromGamma(t *testing.T) {
	assert.NotEqual(t, math.Gamma(3.5), Factorial(2.5))
}

func TestFactorial_Edges(t *testing.T) {
	assert.Equal(t, 1.0, Factorial(-3))
	assert.Equal(t, 1.0, Factorial(math.NaN()))
	assert.True(t, math.IsInf(Factorial(400), 1))
}
