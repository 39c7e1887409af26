// Package fft2 implements the orthonormal 2D FFT/IFFT facility required by
// spec §6 ("2D FFT facility — orthonormal FFT2/IFFT2 for complex arrays").
// It is the external collaborator the UncertainArray FFT lift (ua.FFT /
// ua.IFFT) and FFTChannel program against, backed by
// gonum.org/v1/gonum/dsp/fourier the way madpsy-ka9q_ubersdr's sstv package
// backs its spectrum view with the same library.
package fft2

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Transformer performs a 2D orthonormal forward/inverse FFT over a
// row-major complex field of the given shape.
type Transformer interface {
	Forward(rows, cols int, field []complex128) []complex128
	Inverse(rows, cols int, field []complex128) []complex128
}

// Gonum is a Transformer backed by gonum.org/v1/gonum/dsp/fourier.CmplxFFT,
// applying the 1D transform along rows then columns (a separable 2D DFT is
// the product of two unitary operators, hence still unitary / orthonormal
// once each pass is individually normalized).
type Gonum struct {
	mu    sync.Mutex
	plans map[int]*fourier.CmplxFFT
}

// New returns a Gonum transformer with an empty plan cache.
func New() *Gonum {
	return &Gonum{plans: make(map[int]*fourier.CmplxFFT)}
}

func (g *Gonum) planFor(n int) *fourier.CmplxFFT {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.plans[n]
	if !ok {
		p = fourier.NewCmplxFFT(n)
		g.plans[n] = p
	}
	return p
}

// Forward computes the orthonormal 2D DFT of field (row-major, rows*cols).
func (g *Gonum) Forward(rows, cols int, field []complex128) []complex128 {
	return g.transform2D(rows, cols, field, false)
}

// Inverse computes the orthonormal 2D inverse DFT of field.
func (g *Gonum) Inverse(rows, cols int, field []complex128) []complex128 {
	return g.transform2D(rows, cols, field, true)
}

func (g *Gonum) transform2D(rows, cols int, field []complex128, inverse bool) []complex128 {
	out := make([]complex128, len(field))
	copy(out, field)

	rowPlan := g.planFor(cols)
	row := make([]complex128, cols)
	for r := 0; r < rows; r++ {
		copy(row, out[r*cols:(r+1)*cols])
		transform1D(rowPlan, row, inverse)
		copy(out[r*cols:(r+1)*cols], row)
	}

	colPlan := g.planFor(rows)
	col := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = out[r*cols+c]
		}
		transform1D(colPlan, col, inverse)
		for r := 0; r < rows; r++ {
			out[r*cols+c] = col[r]
		}
	}
	return out
}

// transform1D applies an orthonormal 1D DFT (or its inverse) in place.
// gonum's Coefficients and Sequence both compute unnormalized sums (a
// Coefficients/Sequence round trip multiplies by n); scaling each by
// 1/sqrt(n) makes both directions unitary.
func transform1D(plan *fourier.CmplxFFT, seq []complex128, inverse bool) {
	n := plan.Len()
	if !inverse {
		scale := 1 / math.Sqrt(float64(n))
		coeffs := plan.Coefficients(nil, seq)
		for i, c := range coeffs {
			seq[i] = c * complex(scale, 0)
		}
		return
	}
	vals := plan.Sequence(nil, seq)
	invScale := 1 / math.Sqrt(float64(n))
	for i, v := range vals {
		seq[i] = v * complex(invScale, 0)
	}
}
