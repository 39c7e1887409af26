// Package ua implements UncertainArray, the complex-mean-plus-precision
// Gaussian message type the rest of the engine passes along the factor
// graph's edges (spec §4.1). Precision is either a single scalar shared by
// every pixel or a per-pixel real field; operands of product/quotient must
// agree on which kind they carry.
package ua

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/prng"
)

// quotientFloor is the minimum precision a Div result may fall to; it
// prevents negative precision after aggressive message cancellation.
const quotientFloor = 1.0

// Region is a half-open rectangular (row-range, col-range) slice of a 2D
// field: rows [R0,R1), cols [C0,C1).
type Region struct {
	R0, R1 int
	C0, C1 int
}

// Rows returns the region's row extent.
func (r Region) Rows() int { return r.R1 - r.R0 }

// Cols returns the region's column extent.
func (r Region) Cols() int { return r.C1 - r.C0 }

func (r Region) valid(rows, cols int) error {
	return r.ValidFor(rows, cols)
}

// ValidFor reports whether the region is a legal (row-range, col-range)
// slice of a rows x cols field.
func (r Region) ValidFor(rows, cols int) error {
	if r.R0 < 0 || r.C0 < 0 || r.R1 > rows || r.C1 > cols || r.R0 >= r.R1 || r.C0 >= r.C1 {
		return fmt.Errorf("ua: region %+v out of bounds for shape (%d,%d)", r, rows, cols)
	}
	return nil
}

// UncertainArray represents N_C(Mean, diag(1/Precision)) over a Rows x Cols
// complex field, Mean and (when present) Precision stored row-major.
type UncertainArray struct {
	Rows, Cols int
	Mean       []complex128

	// Scalar selects which of the two precision representations is live.
	Scalar          bool
	ScalarPrecision float64 // valid when Scalar
	Precision       []float64 // valid when !Scalar, len Rows*Cols
}

func newArrayUA(rows, cols int, mean []complex128, precision []float64) *UncertainArray {
	return &UncertainArray{Rows: rows, Cols: cols, Mean: mean, Scalar: false, Precision: precision}
}

func newScalarUA(rows, cols int, mean []complex128, precision float64) *UncertainArray {
	return &UncertainArray{Rows: rows, Cols: cols, Mean: mean, Scalar: true, ScalarPrecision: precision}
}

// NewScalar builds a UA with a single shared precision value.
func NewScalar(rows, cols int, mean []complex128, precision float64) (*UncertainArray, error) {
	if len(mean) != rows*cols {
		return nil, fmt.Errorf("ua: mean length %d does not match shape (%d,%d)", len(mean), rows, cols)
	}
	if precision <= 0 {
		return nil, fmt.Errorf("ua: non-positive precision %g", precision)
	}
	m := make([]complex128, len(mean))
	copy(m, mean)
	return newScalarUA(rows, cols, m, precision), nil
}

// NewArray builds a UA with a per-pixel precision field.
func NewArray(rows, cols int, mean []complex128, precision []float64) (*UncertainArray, error) {
	if len(mean) != rows*cols {
		return nil, fmt.Errorf("ua: mean length %d does not match shape (%d,%d)", len(mean), rows, cols)
	}
	if len(precision) != rows*cols {
		return nil, fmt.Errorf("ua: precision length %d does not match shape (%d,%d)", len(precision), rows, cols)
	}
	for _, p := range precision {
		if p <= 0 {
			return nil, fmt.Errorf("ua: non-positive precision %g", p)
		}
	}
	m := make([]complex128, len(mean))
	copy(m, mean)
	p := make([]float64, len(precision))
	copy(p, precision)
	return newArrayUA(rows, cols, m, p), nil
}

// Zeros builds a UA with zero mean and unit precision (scalar or array),
// the "zero/Gaussian factory" baseline of spec §4.1.
func Zeros(rows, cols int, scalar bool) *UncertainArray {
	mean := make([]complex128, rows*cols)
	if scalar {
		return newScalarUA(rows, cols, mean, 1.0)
	}
	prec := make([]float64, rows*cols)
	for i := range prec {
		prec[i] = 1.0
	}
	return newArrayUA(rows, cols, mean, prec)
}

// Normal builds a UA with unit precision and a complex-Gaussian mean drawn
// from rng, the randomized counterpart of Zeros.
func Normal(rows, cols int, rng *prng.RNG, scalar bool) *UncertainArray {
	mean := rng.ComplexGaussianField(rows, cols)
	if scalar {
		return newScalarUA(rows, cols, mean, 1.0)
	}
	prec := make([]float64, rows*cols)
	for i := range prec {
		prec[i] = 1.0
	}
	return newArrayUA(rows, cols, mean, prec)
}

// Clone returns a deep copy.
func (a *UncertainArray) Clone() *UncertainArray {
	mean := make([]complex128, len(a.Mean))
	copy(mean, a.Mean)
	if a.Scalar {
		return newScalarUA(a.Rows, a.Cols, mean, a.ScalarPrecision)
	}
	prec := make([]float64, len(a.Precision))
	copy(prec, a.Precision)
	return newArrayUA(a.Rows, a.Cols, mean, prec)
}

func (a *UncertainArray) sameShape(b *UncertainArray) bool {
	return a.Rows == b.Rows && a.Cols == b.Cols
}

func checkOperands(tag string, a, b *UncertainArray) error {
	if !a.sameShape(b) {
		return fmt.Errorf("ua: %s: shape mismatch (%d,%d) vs (%d,%d)", tag, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	if a.Scalar != b.Scalar {
		return fmt.Errorf("ua: %s: precision-kind mismatch", tag)
	}
	return nil
}

// precisionAt returns the precision of pixel i regardless of kind.
func (a *UncertainArray) precisionAt(i int) float64 {
	return a.PrecisionAt(i)
}

// PrecisionAt returns the precision of pixel i regardless of kind (scalar
// or per-pixel).
func (a *UncertainArray) PrecisionAt(i int) float64 {
	if a.Scalar {
		return a.ScalarPrecision
	}
	return a.Precision[i]
}

// Mul computes the Gaussian product a*b: precision adds, mean is the
// precision-weighted average (spec §4.1 "Product").
func (a *UncertainArray) Mul(b *UncertainArray) (*UncertainArray, error) {
	if err := checkOperands("product", a, b); err != nil {
		return nil, err
	}
	n := len(a.Mean)
	mean := make([]complex128, n)
	if a.Scalar {
		pa, pb := a.ScalarPrecision, b.ScalarPrecision
		pSum := pa + pb
		wa, wb := complex(pa, 0), complex(pb, 0)
		for i := 0; i < n; i++ {
			mean[i] = (wa*a.Mean[i] + wb*b.Mean[i]) / complex(pSum, 0)
		}
		return newScalarUA(a.Rows, a.Cols, mean, pSum), nil
	}
	prec := make([]float64, n)
	for i := 0; i < n; i++ {
		pa, pb := a.Precision[i], b.Precision[i]
		pSum := pa + pb
		mean[i] = (complex(pa, 0)*a.Mean[i] + complex(pb, 0)*b.Mean[i]) / complex(pSum, 0)
		prec[i] = pSum
	}
	return newArrayUA(a.Rows, a.Cols, mean, prec), nil
}

// Div computes the Gaussian quotient a/b: precision subtracts (floored at
// quotientFloor to avoid negative precision after message cancellation),
// mean follows the same precision-weighted difference (spec §4.1 "Quotient").
func (a *UncertainArray) Div(b *UncertainArray) (*UncertainArray, error) {
	if err := checkOperands("quotient", a, b); err != nil {
		return nil, err
	}
	n := len(a.Mean)
	mean := make([]complex128, n)
	if a.Scalar {
		pa, pb := a.ScalarPrecision, b.ScalarPrecision
		pDiff := math.Max(pa-pb, quotientFloor)
		wa, wb := complex(pa, 0), complex(pb, 0)
		for i := 0; i < n; i++ {
			mean[i] = (wa*a.Mean[i] - wb*b.Mean[i]) / complex(pDiff, 0)
		}
		return newScalarUA(a.Rows, a.Cols, mean, pDiff), nil
	}
	prec := make([]float64, n)
	for i := 0; i < n; i++ {
		pa, pb := a.Precision[i], b.Precision[i]
		pDiff := math.Max(pa-pb, quotientFloor)
		mean[i] = (complex(pa, 0)*a.Mean[i] - complex(pb, 0)*b.Mean[i]) / complex(pDiff, 0)
		prec[i] = pDiff
	}
	return newArrayUA(a.Rows, a.Cols, mean, prec), nil
}

// DampWith convex-blends a (the "raw" message) with old: mean blends
// linearly, precision blends as the harmonic mean of standard deviations
// (spec §4.1 "Damping blend"). delta must be in [0,1]; the solver's damping
// knob is restricted further to (0,1] at Config validation time (spec §6),
// but the blend itself is a well-defined convex combination at delta=0 (the
// spec's own property 7 exercises damp_with(old, 0.0) == old).
func (a *UncertainArray) DampWith(old *UncertainArray, delta float64) (*UncertainArray, error) {
	if err := checkOperands("damp_with", a, old); err != nil {
		return nil, err
	}
	if delta < 0 || delta > 1 {
		return nil, fmt.Errorf("ua: damp_with: delta %g out of [0,1]", delta)
	}
	n := len(a.Mean)
	mean := make([]complex128, n)
	d, oneMinusD := complex(delta, 0), complex(1-delta, 0)
	blendPrecision := func(pRaw, pOld float64) float64 {
		denom := delta/math.Sqrt(pRaw) + (1-delta)/math.Sqrt(pOld)
		return 1 / (denom * denom)
	}
	if a.Scalar {
		for i := 0; i < n; i++ {
			mean[i] = d*a.Mean[i] + oneMinusD*old.Mean[i]
		}
		return newScalarUA(a.Rows, a.Cols, mean, blendPrecision(a.ScalarPrecision, old.ScalarPrecision)), nil
	}
	prec := make([]float64, n)
	for i := 0; i < n; i++ {
		mean[i] = d*a.Mean[i] + oneMinusD*old.Mean[i]
		prec[i] = blendPrecision(a.Precision[i], old.Precision[i])
	}
	return newArrayUA(a.Rows, a.Cols, mean, prec), nil
}

// ToScalarPrecision downgrades an array-precision UA to scalar precision by
// taking the harmonic mean of the per-pixel variances. A already-scalar UA
// is returned as-is (shared, not cloned — callers must not mutate it).
func (a *UncertainArray) ToScalarPrecision() *UncertainArray {
	if a.Scalar {
		return a
	}
	var sumVar float64
	for _, p := range a.Precision {
		sumVar += 1 / p
	}
	meanVar := sumVar / float64(len(a.Precision))
	mean := make([]complex128, len(a.Mean))
	copy(mean, a.Mean)
	return newScalarUA(a.Rows, a.Cols, mean, 1/meanVar)
}

// ToArrayPrecision upgrades a scalar-precision UA to array precision by
// broadcasting. An already-array UA is returned as-is.
func (a *UncertainArray) ToArrayPrecision() *UncertainArray {
	if !a.Scalar {
		return a
	}
	mean := make([]complex128, len(a.Mean))
	copy(mean, a.Mean)
	prec := make([]float64, len(a.Mean))
	for i := range prec {
		prec[i] = a.ScalarPrecision
	}
	return newArrayUA(a.Rows, a.Cols, mean, prec)
}

// Slice extracts the patch UA over region (spec §4.1 "Patch slice"):
// scalar precision passes through unchanged, array precision is sliced.
func (a *UncertainArray) Slice(region Region) (*UncertainArray, error) {
	if err := region.valid(a.Rows, a.Cols); err != nil {
		return nil, err
	}
	rows, cols := region.Rows(), region.Cols()
	mean := make([]complex128, rows*cols)
	for r := 0; r < rows; r++ {
		src := (region.R0+r)*a.Cols + region.C0
		copy(mean[r*cols:(r+1)*cols], a.Mean[src:src+cols])
	}
	if a.Scalar {
		return newScalarUA(rows, cols, mean, a.ScalarPrecision), nil
	}
	prec := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		src := (region.R0+r)*a.Cols + region.C0
		copy(prec[r*cols:(r+1)*cols], a.Precision[src:src+cols])
	}
	return newArrayUA(rows, cols, mean, prec), nil
}

// Scaled applies the elementwise complex gain g (spec §4.1 "Elementwise
// gain"): mean'=g*mean, precision'=precision/|g|^2. If a carries scalar
// precision and g is non-uniform, the result is promoted to array
// precision so every pixel keeps its own rescaled precision.
func (a *UncertainArray) Scaled(g []complex128) (*UncertainArray, error) {
	if len(g) != len(a.Mean) {
		return nil, fmt.Errorf("ua: scaled: gain length %d does not match shape (%d,%d)", len(g), a.Rows, a.Cols)
	}
	n := len(a.Mean)
	mean := make([]complex128, n)
	for i := 0; i < n; i++ {
		mean[i] = g[i] * a.Mean[i]
	}
	if a.Scalar && uniform(g) {
		g2 := cmplx.Abs(g[0]) * cmplx.Abs(g[0])
		return newScalarUA(a.Rows, a.Cols, mean, a.ScalarPrecision/g2), nil
	}
	prec := make([]float64, n)
	for i := 0; i < n; i++ {
		g2 := cmplx.Abs(g[i]) * cmplx.Abs(g[i])
		prec[i] = a.precisionAt(i) / g2
	}
	return newArrayUA(a.Rows, a.Cols, mean, prec), nil
}

func uniform(g []complex128) bool {
	for _, v := range g[1:] {
		if v != g[0] {
			return false
		}
	}
	return true
}

// FFT lifts the mean through an orthonormal forward 2D FFT, collapsing
// precision to scalar via the harmonic-mean-of-variances surrogate the FFT
// lift always applies (spec §4.1 "FFT / IFFT lift").
func (a *UncertainArray) FFT(t fft2.Transformer) *UncertainArray {
	mean := t.Forward(a.Rows, a.Cols, a.Mean)
	scalarUA := a.ToScalarPrecision()
	return newScalarUA(a.Rows, a.Cols, mean, scalarUA.ScalarPrecision)
}

// IFFT is the inverse of FFT.
func (a *UncertainArray) IFFT(t fft2.Transformer) *UncertainArray {
	mean := t.Inverse(a.Rows, a.Cols, a.Mean)
	scalarUA := a.ToScalarPrecision()
	return newScalarUA(a.Rows, a.Cols, mean, scalarUA.ScalarPrecision)
}
