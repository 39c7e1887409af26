package ua

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/prng"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func approxEqualComplex(a, b complex128, tol float64) bool {
	return cmplx.Abs(a-b) <= tol
}

// S1: a=UA(mean=1, pi=2), b=UA(mean=0.5, pi=1); a*b -> mean=0.833, pi=3.
func TestMulScenarioS1(t *testing.T) {
	a, err := NewScalar(1, 1, []complex128{1 + 0i}, 2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewScalar(1, 1, []complex128{0.5 + 0i}, 1)
	if err != nil {
		t.Fatal(err)
	}
	prod, err := a.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(prod.ScalarPrecision, 3, 1e-9) {
		t.Fatalf("precision = %g, want 3", prod.ScalarPrecision)
	}
	if !approxEqualComplex(prod.Mean[0], 0.8333333333333334+0i, 1e-9) {
		t.Fatalf("mean = %v, want 0.8333", prod.Mean[0])
	}

	quot, err := prod.Div(b)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(quot.ScalarPrecision, 2, 1e-9) {
		t.Fatalf("(a*b)/b precision = %g, want 2", quot.ScalarPrecision)
	}
	if !approxEqualComplex(quot.Mean[0], 1+0i, 1e-6) {
		t.Fatalf("(a*b)/b mean = %v, want 1", quot.Mean[0])
	}
}

// Property 1: (a/b)*b == a when b is "smaller" than a (pi_a > pi_b pointwise).
func TestProductQuotientInverse(t *testing.T) {
	rng := prng.New(7)
	const n = 16
	meanA := rng.ComplexGaussianField(4, 4)
	meanB := rng.ComplexGaussianField(4, 4)
	precA := make([]float64, n)
	precB := make([]float64, n)
	for i := 0; i < n; i++ {
		precB[i] = 1 + rng.Float64()*2
		precA[i] = precB[i] + 1 + rng.Float64()*5
	}
	a, _ := NewArray(4, 4, meanA, precA)
	b, _ := NewArray(4, 4, meanB, precB)

	div, err := a.Div(b)
	if err != nil {
		t.Fatal(err)
	}
	back, err := div.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if !approxEqualComplex(back.Mean[i], a.Mean[i], 1e-5) {
			t.Fatalf("pixel %d: mean = %v, want %v", i, back.Mean[i], a.Mean[i])
		}
		if !approxEqual(back.Precision[i], a.Precision[i], 1e-5) {
			t.Fatalf("pixel %d: precision = %g, want %g", i, back.Precision[i], a.Precision[i])
		}
	}
}

// Property 7: damp_with(1.0) == raw; damp_with(0.0) == old.
func TestDampingIdentity(t *testing.T) {
	raw, _ := NewScalar(1, 1, []complex128{2 + 1i}, 4)
	old, _ := NewScalar(1, 1, []complex128{0 + 0i}, 1)

	full, err := raw.DampWith(old, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqualComplex(full.Mean[0], raw.Mean[0], 1e-12) || !approxEqual(full.ScalarPrecision, raw.ScalarPrecision, 1e-12) {
		t.Fatalf("damp_with(1.0) = %+v, want raw %+v", full, raw)
	}

	none, err := raw.DampWith(old, 0.0)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqualComplex(none.Mean[0], old.Mean[0], 1e-12) || !approxEqual(none.ScalarPrecision, old.ScalarPrecision, 1e-12) {
		t.Fatalf("damp_with(0.0) = %+v, want old %+v", none, old)
	}
}

// Property 4: IFFT(FFT(ua)).mean ~= ua.mean.
func TestFFTRoundTrip(t *testing.T) {
	rng := prng.New(11)
	mean := rng.ComplexGaussianField(8, 8)
	a, _ := NewArray(8, 8, mean, onesOf(64))
	transformer := fft2.New()

	roundTrip := a.FFT(transformer).IFFT(transformer)
	for i := range mean {
		if !approxEqualComplex(roundTrip.Mean[i], mean[i], 1e-4) {
			t.Fatalf("pixel %d: got %v, want %v", i, roundTrip.Mean[i], mean[i])
		}
	}
}

func TestScaledPromotesToArrayWhenNonUniform(t *testing.T) {
	a, _ := NewScalar(1, 2, []complex128{1, 1}, 4)
	gain := []complex128{2, 3}
	out, err := a.Scaled(gain)
	if err != nil {
		t.Fatal(err)
	}
	if out.Scalar {
		t.Fatalf("expected array precision after non-uniform scaling")
	}
	if !approxEqual(out.Precision[0], 4.0/4.0, 1e-9) || !approxEqual(out.Precision[1], 4.0/9.0, 1e-9) {
		t.Fatalf("precisions = %v, want [1, 0.444]", out.Precision)
	}
}

func TestScaledStaysScalarWhenUniform(t *testing.T) {
	a, _ := NewScalar(1, 2, []complex128{1, 1}, 4)
	gain := []complex128{2, 2}
	out, err := a.Scaled(gain)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Scalar {
		t.Fatalf("expected scalar precision preserved under uniform scaling")
	}
}

func TestDivShapeAndKindMismatch(t *testing.T) {
	a, _ := NewScalar(2, 2, make([]complex128, 4), 1)
	b, _ := NewArray(2, 2, make([]complex128, 4), onesOf(4))
	if _, err := a.Div(b); err == nil {
		t.Fatalf("expected precision-kind mismatch error")
	}
	c, _ := NewScalar(3, 3, make([]complex128, 9), 1)
	if _, err := a.Div(c); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
}

func TestConstructionRejectsNonPositivePrecision(t *testing.T) {
	if _, err := NewScalar(1, 1, []complex128{0}, 0); err == nil {
		t.Fatalf("expected error for zero precision")
	}
	if _, err := NewArray(1, 2, make([]complex128, 2), []float64{1, -1}); err == nil {
		t.Fatalf("expected error for negative precision")
	}
}

func onesOf(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
