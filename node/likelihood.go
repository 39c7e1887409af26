package node

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"

	"github.com/jlazard/goptyep/internal/trace"
	"github.com/jlazard/goptyep/ua"
)

// epsLaplace floors |z0| away from zero in the Laplace amplitude posterior
// (spec §7 "ε_Laplace for |z₀|").
const epsLaplace = 1e-8

// precisionFloor clips the Laplace posterior precision away from zero
// (spec §4.5 "clipped at a small positive floor"). The same value also
// floors the posterior variance, which caps the precision at
// 1/precisionFloor.
const precisionFloor = 1e-8

// Likelihood is the amplitude-observation node of spec §4.5: a Laplace
// approximation of y = |z| + noise, n ~ N(0, 1/gamma_w).
type Likelihood struct {
	Channel *FFTChannel

	Y       []float64 // observed amplitude (sqrt intensity), m*m
	GammaW  float64
	Damping float64 // delta in (0,1]

	MsgFromFFT *ua.UncertainArray // scalar precision
	Belief     *ua.UncertainArray // array precision
	Error      float64
}

func newLikelihood(c *FFTChannel) *Likelihood {
	return &Likelihood{Channel: c, Damping: 1.0}
}

// Init records the observed amplitude and noise precision for this
// measurement (spec §3 "Likelihood").
func (l *Likelihood) Init(y []float64, gammaW float64) error {
	if gammaW <= 0 {
		return fmt.Errorf("node: likelihood: non-positive gamma_w %g", gammaW)
	}
	l.Y = make([]float64, len(y))
	copy(l.Y, y)
	l.GammaW = gammaW
	return nil
}

// SetDamping installs the solver's damping coefficient, validated at
// construction time (spec §7 "Domain errors ... δ ∉ (0,1]").
func (l *Likelihood) SetDamping(delta float64) error {
	if delta <= 0 || delta > 1 {
		return fmt.Errorf("node: likelihood: damping %g out of (0,1]", delta)
	}
	l.Damping = delta
	return nil
}

// computeBelief runs the Laplace amplitude approximation of spec §4.5,
// producing an array-precision posterior over z and the amplitude MSE.
func (l *Likelihood) computeBelief() error {
	if l.MsgFromFFT == nil {
		return fmt.Errorf("node: likelihood: compute_belief: msg_from_fft not set")
	}
	n := len(l.MsgFromFFT.Mean)
	mean := make([]complex128, n)
	prec := make([]float64, n)
	sqErr := make([]float64, n)
	v0 := 1.0 / l.MsgFromFFT.ScalarPrecision
	v := 1.0 / l.GammaW

	for i, z0 := range l.MsgFromFFT.Mean {
		absZ0 := cmplx.Abs(z0)
		absSafe := absZ0
		if absSafe < epsLaplace {
			absSafe = epsLaplace
		}
		unitPhase := z0 / complex(absSafe, 0)

		zHatAmp := (v0*l.Y[i] + 2*v*absSafe) / (v0 + 2*v)
		mean[i] = unitPhase * complex(zHatAmp, 0)

		vHat := (v0 * (v0*l.Y[i] + 4*v*absSafe)) / (2.0 * absSafe * (v0 + 2*v))
		if vHat < precisionFloor {
			vHat = precisionFloor
		}
		prec[i] = 1.0 / vHat
		if prec[i] < precisionFloor {
			prec[i] = precisionFloor
		}

		d := absZ0 - l.Y[i]
		sqErr[i] = d * d
	}
	belief, err := ua.NewArray(l.MsgFromFFT.Rows, l.MsgFromFFT.Cols, mean, prec)
	if err != nil {
		return fmt.Errorf("node: likelihood: compute_belief: %w", err)
	}
	l.Belief = belief
	l.Error = stat.Mean(sqErr, nil)
	return nil
}

// Backward computes the Laplace posterior, divides out msg_from_fft, damps
// against the channel's previous msg_from_likelihood, and installs the
// damped result (spec §4.5, control flow step "Likelihood.backward").
func (l *Likelihood) Backward() error {
	if err := l.computeBelief(); err != nil {
		return err
	}
	rawBack, err := l.Belief.ToScalarPrecision().Div(l.MsgFromFFT)
	if err != nil {
		return fmt.Errorf("node: likelihood: backward: %w", err)
	}
	damped, err := rawBack.DampWith(l.Channel.MsgFromLikelihood, l.Damping)
	if err != nil {
		return fmt.Errorf("node: likelihood: backward: %w", err)
	}
	trace.NonFinite("likelihood.backward.mean", damped.Mean)
	l.Channel.MsgFromLikelihood = damped
	return nil
}
