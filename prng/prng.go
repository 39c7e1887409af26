// Package prng implements the deterministic, seed-addressable RNG facility
// the engine's object/probe initializers draw from. It wraps math/rand the
// same way ntru.RNG wraps it for reproducible test vectors, extended with
// complex Gaussian sampling.
package prng

import (
	"math/rand"
)

// RNG wraps a deterministic *rand.Rand.
type RNG struct {
	r *rand.Rand
}

// New creates an RNG seeded deterministically.
func New(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform float64 in [0,1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// ComplexGaussian draws a single standard complex normal sample: real and
// imaginary parts are independent N(0, 0.5), so E[|z|^2] = 1.
func (g *RNG) ComplexGaussian() complex128 {
	const invSqrt2 = 0.7071067811865476
	re := g.r.NormFloat64() * invSqrt2
	im := g.r.NormFloat64() * invSqrt2
	return complex(re, im)
}

// ComplexGaussianField draws rows*cols independent standard complex normal
// samples in row-major order.
func (g *RNG) ComplexGaussianField(rows, cols int) []complex128 {
	out := make([]complex128, rows*cols)
	for i := range out {
		out[i] = g.ComplexGaussian()
	}
	return out
}
