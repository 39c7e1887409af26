// Package node implements the factor-graph nodes the EP solver schedules
// each iteration: Probe, FFTChannel, Likelihood, Object, and the optional
// Prior and ProbeUpdater (spec §4). Each node owns the UA state described
// in spec §3 and exposes the forward/backward methods the solver driver
// calls in the fixed schedule of spec §4.9.
package node

import (
	"fmt"
	"math/cmplx"

	"github.com/jlazard/goptyep/internal/trace"
	"github.com/jlazard/goptyep/ua"
)

// epsProbe floors |P|^2 away from zero so the inverse probe gain stays
// finite (spec §7 "numerical errors ... ε_probe for |P|²").
const epsProbe = 1e-8

// Probe is the elementwise complex-gain factor of spec §4.3: forward
// multiplies by P, backward by conj(P)/|P|^2.
type Probe struct {
	M int // side length

	Data []complex128 // m*m
	abs2 []float64    // max(|P|^2, epsProbe)
	inv  []complex128 // conj(P)/abs2

	Channel *FFTChannel

	InputBelief  *ua.UncertainArray
	MsgToObject  *ua.UncertainArray
}

// NewProbe builds a Probe bound to a fresh FFTChannel, the child exactly
// one Probe owns (spec §3 "Ownership").
func NewProbe(m int, data []complex128) (*Probe, error) {
	if len(data) != m*m {
		return nil, fmt.Errorf("node: probe: data length %d does not match shape (%d,%d)", len(data), m, m)
	}
	p := &Probe{M: m}
	p.SetData(data)
	p.Channel = newFFTChannel(p)
	return p, nil
}

// SetData installs new probe data and recomputes the cached derived fields
// atomically (spec §3 "Probe" invariant).
func (p *Probe) SetData(data []complex128) {
	p.Data = make([]complex128, len(data))
	copy(p.Data, data)
	p.abs2 = make([]float64, len(data))
	p.inv = make([]complex128, len(data))
	for i, d := range data {
		a2 := cmplx.Abs(d) * cmplx.Abs(d)
		if a2 < epsProbe {
			a2 = epsProbe
		}
		p.abs2[i] = a2
		p.inv[i] = cmplx.Conj(d) / complex(a2, 0)
	}
}

// Forward scales InputBelief by the probe field and hands it to the child
// FFTChannel as its input_belief. Precision is rescaled through the
// epsProbe-floored p.abs2 cache rather than ua.Scaled's generic |g|^2, since
// the generic path recomputes |P|^2 from raw probe data with no floor and
// produces +Inf precision at near-zero probe pixels (spec §7 "ε_probe").
func (p *Probe) Forward() error {
	if p.InputBelief == nil {
		return fmt.Errorf("node: probe: forward: no input belief")
	}
	mean := make([]complex128, len(p.Data))
	prec := make([]float64, len(p.Data))
	for i, d := range p.Data {
		mean[i] = d * p.InputBelief.Mean[i]
		prec[i] = p.InputBelief.PrecisionAt(i) / p.abs2[i]
	}
	out, err := ua.NewArray(p.InputBelief.Rows, p.InputBelief.Cols, mean, prec)
	if err != nil {
		return fmt.Errorf("node: probe: forward: %w", err)
	}
	trace.NonFinite("probe.forward.mean", out.Mean)
	p.Channel.InputBelief = out
	return nil
}

// Backward scales the child FFTChannel's msg_to_probe by the inverse probe
// gain to produce the message sent back to the Object node. As in Forward,
// precision uses the floored p.abs2 cache directly (precision *= abs2)
// instead of routing through ua.Scaled's generic |g|^2 on p.inv, which
// would divide by a near-zero |inv|^2 at the same pixels and blow up.
func (p *Probe) Backward() error {
	if p.Channel.MsgToProbe == nil {
		return fmt.Errorf("node: probe: backward: channel has no msg_to_probe")
	}
	msg := p.Channel.MsgToProbe
	mean := make([]complex128, len(p.inv))
	prec := make([]float64, len(p.inv))
	for i, g := range p.inv {
		mean[i] = g * msg.Mean[i]
		prec[i] = msg.PrecisionAt(i) * p.abs2[i]
	}
	out, err := ua.NewArray(msg.Rows, msg.Cols, mean, prec)
	if err != nil {
		return fmt.Errorf("node: probe: backward: %w", err)
	}
	trace.NonFinite("probe.backward.mean", out.Mean)
	p.MsgToObject = out
	return nil
}
