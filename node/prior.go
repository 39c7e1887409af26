package node

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/jlazard/goptyep/ua"
)

// normalizerFloor keeps the spike/slab normalizer away from zero (spec §7
// "numerical errors ... in spike/slab normalization").
const normalizerFloor = 1e-8

// varianceFloor clips the posterior variance under SparsePrior away from
// zero, mirroring the Laplace posterior's own floor (spec §4.7).
const varianceFloor = 1e-8

// Prior is the optional G1 factor of spec §4.7: a full EP update between
// the object belief and a prior model, run once per outer iteration.
type Prior interface {
	Forward(o *Object) error
}

// SparsePrior implements the Bernoulli-Gaussian spike-and-slab denoiser:
// each pixel is independently drawn from rho*N_C(0,1) + (1-rho)*delta_0.
type SparsePrior struct {
	Rho float64

	msgFromObject *ua.UncertainArray
	belief        *ua.UncertainArray
	msgToObject   *ua.UncertainArray
}

// NewSparsePrior validates rho in (0,1) (spec §7 "Domain errors ... ρ ∉
// (0,1)").
func NewSparsePrior(rho float64) (*SparsePrior, error) {
	if rho <= 0 || rho >= 1 {
		return nil, fmt.Errorf("node: sparse_prior: rho %g out of (0,1)", rho)
	}
	return &SparsePrior{Rho: rho}, nil
}

// Forward runs a full EP update between the object's belief and the
// spike-and-slab model (spec §4.7 "Forward").
func (s *SparsePrior) Forward(o *Object) error {
	belief, err := o.GetBelief()
	if err != nil {
		return fmt.Errorf("node: sparse_prior: forward: %w", err)
	}
	cavity, err := belief.Div(o.MsgFromPrior)
	if err != nil {
		return fmt.Errorf("node: sparse_prior: forward: %w", err)
	}
	s.msgFromObject = cavity

	if err := s.computeBelief(); err != nil {
		return fmt.Errorf("node: sparse_prior: forward: %w", err)
	}

	msgToObject, err := s.belief.Div(s.msgFromObject)
	if err != nil {
		return fmt.Errorf("node: sparse_prior: forward: %w", err)
	}
	s.msgToObject = msgToObject

	full := ua.Region{R0: 0, R1: o.N, C0: 0, C1: o.N}
	if err := o.Belief.Subtract(o.MsgFromPrior, full); err != nil {
		return fmt.Errorf("node: sparse_prior: forward: %w", err)
	}
	if err := o.Belief.Add(msgToObject, full); err != nil {
		return fmt.Errorf("node: sparse_prior: forward: %w", err)
	}
	o.MsgFromPrior = msgToObject
	return nil
}

// computeBelief evaluates the closed-form spike-and-slab posterior of spec
// §4.7 pixelwise over the cavity message N_C(m, v=1/precision).
func (s *SparsePrior) computeBelief() error {
	m := s.msgFromObject
	n := len(m.Mean)
	mean := make([]complex128, n)
	prec := make([]float64, n)

	for i := 0; i < n; i++ {
		v := 1.0 / m.PrecisionAt(i)
		vPost := 1.0 / (1.0 + 1.0/v)
		mPost := complex(vPost, 0) * (m.Mean[i] / complex(v, 0))

		absM2 := cmplx.Abs(m.Mean[i]) * cmplx.Abs(m.Mean[i])
		slab := s.Rho * math.Exp(-absM2/(1.0+v)) / (1.0 + v)
		spike := (1 - s.Rho) * math.Exp(-absM2/v) / v
		z := slab + spike + normalizerFloor

		mu := complex(slab/z, 0) * mPost
		absMPost2 := cmplx.Abs(mPost) * cmplx.Abs(mPost)
		eX2 := (slab / z) * (absMPost2 + vPost)
		absMu2 := cmplx.Abs(mu) * cmplx.Abs(mu)
		variance := eX2 - absMu2
		if variance < varianceFloor {
			variance = varianceFloor
		}

		mean[i] = mu
		prec[i] = 1.0 / variance
	}

	belief, err := ua.NewArray(m.Rows, m.Cols, mean, prec)
	if err != nil {
		return err
	}
	s.belief = belief
	return nil
}
