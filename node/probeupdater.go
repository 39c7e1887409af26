package node

import (
	"fmt"
	"math/cmplx"
)

// gammaFloor keeps EM-refined noise precisions away from zero (spec §7
// "numerical errors", mirrored from the object-variance clip the Python
// reference applies before the EM update).
const gammaFloor = 1e-8

// varianceClip caps the per-pixel object variance fed into the EM probe
// update, preventing an ill-converged belief from dominating the estimate.
const varianceClip = 1e8

// ProbeUpdater implements the EM-style global probe refinement of spec
// §4.8: with the object belief held fixed, it maximizes the likelihood of
// every measurement's exit-wave message jointly over a single shared probe
// field, re-estimating each measurement's noise precision along the way.
type ProbeUpdater struct {
	obj *Object
}

// NewProbeUpdater binds a ProbeUpdater to the object node whose probes it
// refines.
func NewProbeUpdater(o *Object) *ProbeUpdater {
	return &ProbeUpdater{obj: o}
}

// Update runs nIter EM refinement steps (spec §4.8).
func (u *ProbeUpdater) Update(nIter int) error {
	full, err := u.obj.GetBelief()
	if err != nil {
		return fmt.Errorf("node: probe_updater: update: %w", err)
	}

	j := len(u.obj.Probes)
	if j == 0 {
		return nil
	}
	m := u.obj.Probes[0].M
	pixels := m * m

	oMu := make([][]complex128, j)
	oVar := make([][]float64, j)
	phi := make([][]complex128, j)
	gamma := make([]float64, j)

	for k, probe := range u.obj.Probes {
		patch, err := full.Slice(u.obj.Patch(k))
		if err != nil {
			return fmt.Errorf("node: probe_updater: update: %w", err)
		}
		oMu[k] = patch.Mean
		variance := make([]float64, pixels)
		for i := 0; i < pixels; i++ {
			v := 1.0 / patch.PrecisionAt(i)
			if v > varianceClip {
				v = varianceClip
			}
			variance[i] = v
		}
		oVar[k] = variance
		phi[k] = probe.Channel.MsgToProbe.Mean
		gamma[k] = probe.Channel.MsgFromLikelihood.ScalarPrecision
	}

	numerTerm := make([][]complex128, j)
	denomTerm := make([][]float64, j)
	for k := 0; k < j; k++ {
		numerTerm[k] = make([]complex128, pixels)
		denomTerm[k] = make([]float64, pixels)
		for i := 0; i < pixels; i++ {
			numerTerm[k][i] = cmplx.Conj(oMu[k][i]) * phi[k][i]
			absMu2 := cmplx.Abs(oMu[k][i]) * cmplx.Abs(oMu[k][i])
			denomTerm[k][i] = absMu2 + oVar[k][i]
		}
	}

	pEst := make([]complex128, pixels)
	for iter := 0; iter < nIter; iter++ {
		p1 := make([]complex128, pixels)
		p2 := make([]float64, pixels)
		for k := 0; k < j; k++ {
			for i := 0; i < pixels; i++ {
				p1[i] += complex(gamma[k], 0) * numerTerm[k][i]
				p2[i] += gamma[k] * denomTerm[k][i]
			}
		}
		for i := 0; i < pixels; i++ {
			den := p2[i]
			if den < gammaFloor {
				den = gammaFloor
			}
			pEst[i] = p1[i] / complex(den, 0)
		}

		pEstAbs2 := make([]float64, pixels)
		for i := 0; i < pixels; i++ {
			pEstAbs2[i] = cmplx.Abs(pEst[i]) * cmplx.Abs(pEst[i])
		}
		for k := 0; k < j; k++ {
			var sum float64
			for i := 0; i < pixels; i++ {
				diff := phi[k][i] - oMu[k][i]*pEst[i]
				sum += cmplx.Abs(diff)*cmplx.Abs(diff) + oVar[k][i]*pEstAbs2[i]
			}
			g := 1.0 / (sum / float64(pixels))
			if g < gammaFloor {
				g = gammaFloor
			}
			gamma[k] = g
		}
	}

	for _, probe := range u.obj.Probes {
		probe.SetData(pEst)
	}
	for k, probe := range u.obj.Probes {
		probe.Channel.MsgFromLikelihood.ScalarPrecision = gamma[k]
		probe.Channel.MsgToProbe.ScalarPrecision = gamma[k]
	}
	return nil
}
