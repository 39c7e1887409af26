package solver

import (
	"math"
	"math/cmplx"
)

// NormalizedRMSE computes the global-phase-aligned normalized RMSE between
// a reconstructed field and ground truth, the regression metric the
// original implementation's test suite tracks. Phase retrieval recovers
// the object only up to a global phase factor, so est is first rotated by
// the phase that best aligns it with truth (via the complex inner
// product) before computing the residual norm.
func NormalizedRMSE(est, truth []complex128) float64 {
	if len(est) != len(truth) || len(est) == 0 {
		return 1.0
	}
	var inner complex128
	var truthNorm2 float64
	for i := range truth {
		inner += cmplx.Conj(truth[i]) * est[i]
		truthNorm2 += cmplx.Abs(truth[i]) * cmplx.Abs(truth[i])
	}
	if truthNorm2 == 0 {
		return 0
	}
	if cmplx.Abs(inner) == 0 {
		return 1.0
	}
	phase := inner / complex(cmplx.Abs(inner), 0)

	var residual2 float64
	for i := range truth {
		aligned := est[i] / phase
		d := aligned - truth[i]
		residual2 += cmplx.Abs(d) * cmplx.Abs(d)
	}
	return math.Sqrt(residual2 / truthNorm2)
}
