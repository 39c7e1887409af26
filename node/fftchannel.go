package node

import (
	"fmt"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/internal/trace"
	"github.com/jlazard/goptyep/ua"
)

// FFTChannel is the FFT factor of spec §4.4 connecting a Probe's exit-wave
// domain to a Likelihood's diffraction domain.
type FFTChannel struct {
	Probe      *Probe
	Likelihood *Likelihood

	InputBelief       *ua.UncertainArray // from Probe, exit-wave domain
	MsgFromLikelihood *ua.UncertainArray // diffraction domain, scalar precision
	MsgToProbe        *ua.UncertainArray // exit-wave domain
}

func newFFTChannel(p *Probe) *FFTChannel {
	c := &FFTChannel{Probe: p}
	c.Likelihood = newLikelihood(c)
	return c
}

// Init seeds msg_from_likelihood at N_C(FFT(P·O0[patch]), 1.0) (spec §3
// "FFTChannel" initial value) and the Likelihood's observation.
func (c *FFTChannel) Init(t fft2.Transformer, y []float64, gammaW float64, object0Patch []complex128) error {
	exitWave := make([]complex128, len(c.Probe.Data))
	for i, p := range c.Probe.Data {
		exitWave[i] = p * object0Patch[i]
	}
	seed, err := ua.NewScalar(c.Probe.M, c.Probe.M, exitWave, 1.0)
	if err != nil {
		return fmt.Errorf("node: fftchannel: init: %w", err)
	}
	z0 := seed.FFT(t)
	c.MsgFromLikelihood = z0
	return c.Likelihood.Init(y, gammaW)
}

// Forward lifts InputBelief through the forward FFT and divides out the
// current msg_from_likelihood, handing the quotient to the Likelihood as
// its msg_from_fft.
func (c *FFTChannel) Forward(t fft2.Transformer) error {
	if c.InputBelief == nil {
		return fmt.Errorf("node: fftchannel: forward: input_belief is nil")
	}
	outputBelief := c.InputBelief.FFT(t)
	msgFromFFT, err := outputBelief.Div(c.MsgFromLikelihood)
	if err != nil {
		return fmt.Errorf("node: fftchannel: forward: %w", err)
	}
	trace.NonFinite("fftchannel.forward.mean", msgFromFFT.Mean)
	c.Likelihood.MsgFromFFT = msgFromFFT
	return nil
}

// Backward inverse-FFTs the (already damped, by Likelihood.Backward)
// msg_from_likelihood back into the exit-wave domain for the Probe.
func (c *FFTChannel) Backward(t fft2.Transformer) {
	c.MsgToProbe = c.MsgFromLikelihood.IFFT(t)
	trace.NonFinite("fftchannel.backward.mean", c.MsgToProbe.Mean)
}
