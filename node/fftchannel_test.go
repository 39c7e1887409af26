package node

import (
	"testing"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/ua"
)

func TestFFTChannelInitSeedsMsgFromLikelihood(t *testing.T) {
	p, err := NewProbe(4, onesComplex(16))
	if err != nil {
		t.Fatal(err)
	}
	transformer := fft2.New()
	object0Patch := make([]complex128, 16)
	for i := range object0Patch {
		object0Patch[i] = 0.5
	}
	if err := p.Channel.Init(transformer, onesFloat(16), 100, object0Patch); err != nil {
		t.Fatal(err)
	}
	if p.Channel.MsgFromLikelihood == nil {
		t.Fatalf("expected msg_from_likelihood to be seeded")
	}
	if !p.Channel.MsgFromLikelihood.Scalar {
		t.Fatalf("expected msg_from_likelihood to carry scalar precision")
	}
	if p.Channel.Likelihood.GammaW != 100 {
		t.Fatalf("likelihood gamma_w = %g, want 100", p.Channel.Likelihood.GammaW)
	}
}

func TestFFTChannelForwardRejectsMissingInputBelief(t *testing.T) {
	p, err := NewProbe(2, onesComplex(4))
	if err != nil {
		t.Fatal(err)
	}
	transformer := fft2.New()
	object0Patch := onesComplex(4)
	if err := p.Channel.Init(transformer, onesFloat(4), 10, object0Patch); err != nil {
		t.Fatal(err)
	}
	if err := p.Channel.Forward(transformer); err == nil {
		t.Fatalf("expected error with no input belief")
	}
}

func TestFFTChannelForwardBackwardCycle(t *testing.T) {
	p, err := NewProbe(4, onesComplex(16))
	if err != nil {
		t.Fatal(err)
	}
	transformer := fft2.New()
	object0Patch := make([]complex128, 16)
	for i := range object0Patch {
		object0Patch[i] = 0.5
	}
	if err := p.Channel.Init(transformer, onesFloat(16), 1e4, object0Patch); err != nil {
		t.Fatal(err)
	}

	mean := make([]complex128, 16)
	copy(mean, object0Patch)
	in, err := ua.NewArray(4, 4, mean, onesFloat(16))
	if err != nil {
		t.Fatal(err)
	}
	p.Channel.InputBelief = in
	if err := p.Channel.Forward(transformer); err != nil {
		t.Fatal(err)
	}
	if p.Channel.Likelihood.MsgFromFFT == nil {
		t.Fatalf("expected likelihood to receive msg_from_fft")
	}
	if err := p.Channel.Likelihood.Backward(); err != nil {
		t.Fatal(err)
	}
	p.Channel.Backward(transformer)
	if p.Channel.MsgToProbe == nil {
		t.Fatalf("expected msg_to_probe to be set")
	}
}
