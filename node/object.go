package node

import (
	"fmt"

	"github.com/jlazard/goptyep/aua"
	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/ptycho"
	"github.com/jlazard/goptyep/ua"
)

// Object is the global object node of spec §3/§4.6: it holds the AUA
// belief, the per-measurement probes/back-messages, and an optional prior.
type Object struct {
	N int

	Belief       *aua.AccumulativeUncertainArray
	MsgFromPrior *ua.UncertainArray // global, N x N, array precision

	Probes      []*Probe
	patches     []ua.Region
	msgFromData []*ua.UncertainArray // per-j back-message, array precision

	Prior Prior // optional, nil means the implicit Gaussian prior
}

// NewObject builds an Object with a fresh AUA belief and no prior attached.
func NewObject(n int) *Object {
	return &Object{
		N:           n,
		Belief:      aua.New(n, n),
		MsgFromPrior: ua.Zeros(n, n, false),
	}
}

// Register creates a Probe bound to a copy of the global probe field,
// initializes its FFTChannel/Likelihood from the object/probe initial
// guesses, records the patch region, and folds the initial back-message
// into the AUA belief (spec §4.6 "register").
func (o *Object) Register(t fft2.Transformer, m ptycho.Measurement, probe0 []complex128, object0Patch []complex128) error {
	probeM := m.Patch.Rows()
	p, err := NewProbe(probeM, probe0)
	if err != nil {
		return fmt.Errorf("node: object: register: %w", err)
	}
	if err := p.Channel.Init(t, m.Y, m.GammaW, object0Patch); err != nil {
		return fmt.Errorf("node: object: register: %w", err)
	}

	initMsg, err := ua.NewArray(probeM, probeM, object0Patch, onesOf(probeM*probeM))
	if err != nil {
		return fmt.Errorf("node: object: register: %w", err)
	}
	if err := o.Belief.Add(initMsg, m.Patch); err != nil {
		return fmt.Errorf("node: object: register: %w", err)
	}

	o.Probes = append(o.Probes, p)
	o.patches = append(o.patches, m.Patch)
	o.msgFromData = append(o.msgFromData, initMsg)
	return nil
}

func onesOf(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// Forward extracts the belief patch for measurement j and delivers it to
// probe j as its input_belief (spec §4.6 "forward").
func (o *Object) Forward(j int) error {
	patch, err := o.Belief.GetUA(o.patches[j])
	if err != nil {
		return fmt.Errorf("node: object: forward: %w", err)
	}
	o.Probes[j].InputBelief = patch
	return nil
}

// Backward retrieves probe j's new msg_to_object, swaps it into the AUA in
// place of the previous back-message, and records it (spec §4.6
// "backward").
func (o *Object) Backward(j int) error {
	newMsg := o.Probes[j].MsgToObject
	if newMsg == nil {
		return fmt.Errorf("node: object: backward: probe %d has no msg_to_object", j)
	}
	oldMsg := o.msgFromData[j]
	if err := o.Belief.Subtract(oldMsg, o.patches[j]); err != nil {
		return fmt.Errorf("node: object: backward: %w", err)
	}
	if err := o.Belief.Add(newMsg, o.patches[j]); err != nil {
		return fmt.Errorf("node: object: backward: %w", err)
	}
	o.msgFromData[j] = newMsg
	return nil
}

// GetBelief returns the full N x N posterior belief.
func (o *Object) GetBelief() (*ua.UncertainArray, error) {
	return o.Belief.ToUA()
}

// Patch returns the patch region registered for measurement j.
func (o *Object) Patch(j int) ua.Region {
	return o.patches[j]
}
