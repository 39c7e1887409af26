// Package aua implements AccumulativeUncertainArray, the running
// product-of-Gaussians belief the Object node accumulates patch
// contributions into (spec §4.2). It stores the belief in product form
// (numerator = mean·precision, precision) so a patch add or subtract costs
// O(patch area) rather than rebuilding the full N×N posterior.
package aua

import (
	"fmt"

	"github.com/jlazard/goptyep/ua"
)

// AccumulativeUncertainArray holds a running Rows x Cols Gaussian belief in
// product form: numerator = mean*precision, precision. The zero value is
// not usable; construct with New.
type AccumulativeUncertainArray struct {
	Rows, Cols int
	numerator  []complex128
	precision  []float64
}

// New builds an AUA at its default state: numerator=0, precision=1
// everywhere, the implicit zero-mean unit-precision Gaussian prior over the
// belief (spec §4.2 "Lifecycle").
func New(rows, cols int) *AccumulativeUncertainArray {
	a := &AccumulativeUncertainArray{
		Rows:      rows,
		Cols:      cols,
		numerator: make([]complex128, rows*cols),
		precision: make([]float64, rows*cols),
	}
	for i := range a.precision {
		a.precision[i] = 1
	}
	return a
}

func (a *AccumulativeUncertainArray) index(r, c int) int {
	return r*a.Cols + c
}

// Add accumulates ua's contribution into region: numerator[region] +=
// ua.mean*ua.precision; precision[region] += ua.precision.
func (a *AccumulativeUncertainArray) Add(u *ua.UncertainArray, region ua.Region) error {
	return a.apply("add", u, region, +1)
}

// Subtract removes ua's contribution from region. Callers must subtract
// exactly the UA previously added (or a consistently damped successor) to
// preserve positivity of precision (spec §4.2 invariant).
func (a *AccumulativeUncertainArray) Subtract(u *ua.UncertainArray, region ua.Region) error {
	return a.apply("subtract", u, region, -1)
}

func (a *AccumulativeUncertainArray) apply(tag string, u *ua.UncertainArray, region ua.Region, sign float64) error {
	if err := a.checkRegion(tag, u, region); err != nil {
		return err
	}
	rows, cols := region.Rows(), region.Cols()
	idx := 0
	for r := 0; r < rows; r++ {
		dst := a.index(region.R0+r, region.C0)
		for c := 0; c < cols; c++ {
			p := u.Precision[idx]
			a.numerator[dst+c] += complex(sign, 0) * complex(p, 0) * u.Mean[idx]
			newPrec := a.precision[dst+c] + sign*p
			if newPrec <= 0 {
				return fmt.Errorf("aua: %s: precision would become non-positive (%g) at pixel (%d,%d)", tag, newPrec, region.R0+r, region.C0+c)
			}
			a.precision[dst+c] = newPrec
			idx++
		}
	}
	return nil
}

func (a *AccumulativeUncertainArray) checkRegion(tag string, u *ua.UncertainArray, region ua.Region) error {
	if region.R0 < 0 || region.C0 < 0 || region.R1 > a.Rows || region.C1 > a.Cols || region.R0 >= region.R1 || region.C0 >= region.C1 {
		return fmt.Errorf("aua: %s: region %+v out of bounds for shape (%d,%d)", tag, region, a.Rows, a.Cols)
	}
	if region.Rows() != u.Rows || region.Cols() != u.Cols {
		return fmt.Errorf("aua: %s: ua shape (%d,%d) does not match region shape (%d,%d)", tag, u.Rows, u.Cols, region.Rows(), region.Cols())
	}
	if u.Scalar {
		return fmt.Errorf("aua: %s: ua must carry array precision", tag)
	}
	return nil
}

// GetUA returns the belief restricted to region as an array-precision UA:
// mean = numerator[region]/precision[region], precision = precision[region].
func (a *AccumulativeUncertainArray) GetUA(region ua.Region) (*ua.UncertainArray, error) {
	if region.R0 < 0 || region.C0 < 0 || region.R1 > a.Rows || region.C1 > a.Cols || region.R0 >= region.R1 || region.C0 >= region.C1 {
		return nil, fmt.Errorf("aua: get_ua: region %+v out of bounds for shape (%d,%d)", region, a.Rows, a.Cols)
	}
	rows, cols := region.Rows(), region.Cols()
	mean := make([]complex128, rows*cols)
	prec := make([]float64, rows*cols)
	idx := 0
	for r := 0; r < rows; r++ {
		src := a.index(region.R0+r, region.C0)
		for c := 0; c < cols; c++ {
			prec[idx] = a.precision[src+c]
			mean[idx] = a.numerator[src+c] / complex(prec[idx], 0)
			idx++
		}
	}
	return ua.NewArray(rows, cols, mean, prec)
}

// ToUA returns the full Rows x Cols belief as an array-precision UA.
func (a *AccumulativeUncertainArray) ToUA() (*ua.UncertainArray, error) {
	return a.GetUA(ua.Region{R0: 0, R1: a.Rows, C0: 0, C1: a.Cols})
}

// Clear resets the AUA to its default state (numerator=0, precision=1).
func (a *AccumulativeUncertainArray) Clear() {
	for i := range a.numerator {
		a.numerator[i] = 0
		a.precision[i] = 1
	}
}
