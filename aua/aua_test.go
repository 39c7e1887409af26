package aua

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/jlazard/goptyep/prng"
	"github.com/jlazard/goptyep/ua"
)

func approxEqualComplex(a, b complex128, tol float64) bool {
	return cmplx.Abs(a-b) <= tol
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Property 2: add then subtract the same UA at the same region restores the
// pre-sequence belief pointwise.
func TestAddSubtractCancel(t *testing.T) {
	acc := New(6, 6)
	region := ua.Region{R0: 1, R1: 4, C0: 2, C1: 5}

	before, err := acc.GetUA(region)
	if err != nil {
		t.Fatal(err)
	}

	rng := prng.New(3)
	mean := rng.ComplexGaussianField(3, 3)
	prec := []float64{2, 3, 1, 4, 2, 5, 1, 3, 2}
	patch, err := ua.NewArray(3, 3, mean, prec)
	if err != nil {
		t.Fatal(err)
	}

	if err := acc.Add(patch, region); err != nil {
		t.Fatal(err)
	}
	if err := acc.Subtract(patch, region); err != nil {
		t.Fatal(err)
	}

	after, err := acc.GetUA(region)
	if err != nil {
		t.Fatal(err)
	}
	for i := range before.Mean {
		if !approxEqualComplex(after.Mean[i], before.Mean[i], 1e-9) {
			t.Fatalf("pixel %d: mean = %v, want %v", i, after.Mean[i], before.Mean[i])
		}
		if !approxEqual(after.Precision[i], before.Precision[i], 1e-9) {
			t.Fatalf("pixel %d: precision = %g, want %g", i, after.Precision[i], before.Precision[i])
		}
	}
}

// Property 3: precision stays strictly positive after a legal add/subtract
// sequence starting from the default state.
func TestPrecisionStaysPositive(t *testing.T) {
	acc := New(4, 4)
	region := ua.Region{R0: 0, R1: 2, C0: 0, C1: 2}
	patch, err := ua.NewArray(2, 2, make([]complex128, 4), []float64{1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Add(patch, region); err != nil {
		t.Fatal(err)
	}
	full, err := acc.ToUA()
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range full.Precision {
		if p <= 0 {
			t.Fatalf("pixel %d: precision %g not positive", i, p)
		}
	}
}

func TestSubtractRejectsNonPositivePrecision(t *testing.T) {
	acc := New(2, 2)
	region := ua.Region{R0: 0, R1: 2, C0: 0, C1: 2}
	// Default precision is 1 everywhere; subtracting precision >= 1 would
	// drive it to <= 0.
	patch, err := ua.NewArray(2, 2, make([]complex128, 4), []float64{2, 2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Subtract(patch, region); err == nil {
		t.Fatalf("expected error when subtract would make precision non-positive")
	}
}

func TestAddRejectsScalarPrecisionUA(t *testing.T) {
	acc := New(2, 2)
	region := ua.Region{R0: 0, R1: 2, C0: 0, C1: 2}
	patch, err := ua.NewScalar(2, 2, make([]complex128, 4), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Add(patch, region); err == nil {
		t.Fatalf("expected error adding scalar-precision UA")
	}
}

func TestAddRejectsShapeMismatch(t *testing.T) {
	acc := New(4, 4)
	region := ua.Region{R0: 0, R1: 2, C0: 0, C1: 2}
	patch, err := ua.NewArray(3, 3, make([]complex128, 9), onesOf(9))
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Add(patch, region); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
}

func TestClearResetsToDefault(t *testing.T) {
	acc := New(3, 3)
	region := ua.Region{R0: 0, R1: 3, C0: 0, C1: 3}
	patch, err := ua.NewArray(3, 3, make([]complex128, 9), []float64{2, 2, 2, 2, 2, 2, 2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Add(patch, region); err != nil {
		t.Fatal(err)
	}
	acc.Clear()
	full, err := acc.ToUA()
	if err != nil {
		t.Fatal(err)
	}
	for i := range full.Mean {
		if full.Mean[i] != 0 {
			t.Fatalf("pixel %d: mean = %v after clear, want 0", i, full.Mean[i])
		}
		if full.Precision[i] != 1 {
			t.Fatalf("pixel %d: precision = %g after clear, want 1", i, full.Precision[i])
		}
	}
}

func onesOf(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
