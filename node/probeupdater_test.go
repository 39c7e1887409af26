package node

import (
	"math/cmplx"
	"testing"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/ptycho"
	"github.com/jlazard/goptyep/ua"
)

func TestProbeUpdaterRefinesProbeTowardTrueGain(t *testing.T) {
	o := NewObject(4)
	transformer := fft2.New()

	trueProbe := make([]complex128, 16)
	for i := range trueProbe {
		trueProbe[i] = complex(2, 0)
	}
	object0 := make([]complex128, 16)
	for i := range object0 {
		object0[i] = complex(0.5, 0)
	}
	meas := ptycho.Measurement{
		Patch:  ua.Region{R0: 0, R1: 4, C0: 0, C1: 4},
		Y:      onesFloat(16),
		GammaW: 1e4,
	}
	// Register with an initial probe guess of 1.0 (off from the true gain
	// of 2.0) so the EM step has something to correct.
	initialGuess := onesComplex(16)
	if err := o.Register(transformer, meas, initialGuess, object0); err != nil {
		t.Fatal(err)
	}

	// Feed the channel the exit-wave message it would see under the true
	// probe, so the EM update has a consistent Phi to fit against.
	exitWave := make([]complex128, 16)
	for i := range exitWave {
		exitWave[i] = trueProbe[i] * object0[i]
	}
	o.Probes[0].Channel.MsgToProbe, _ = ua.NewScalar(4, 4, exitWave, 1.0)
	o.Probes[0].Channel.MsgFromLikelihood, _ = ua.NewScalar(4, 4, exitWave, 1.0)

	// Sharpen the object belief around object0 (mean unchanged, precision
	// raised) so the EM fit is not dominated by posterior uncertainty.
	sharp, err := ua.NewArray(4, 4, object0, onesFloatScaled(16, 1e10))
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Belief.Add(sharp, meas.Patch); err != nil {
		t.Fatal(err)
	}

	updater := NewProbeUpdater(o)
	if err := updater.Update(5); err != nil {
		t.Fatal(err)
	}

	for i, d := range o.Probes[0].Data {
		if cmplx.Abs(d-trueProbe[i]) > 1e-4 {
			t.Fatalf("pixel %d: refined probe = %v, want close to %v", i, d, trueProbe[i])
		}
	}
}

func onesFloatScaled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestProbeUpdaterNoOpWithoutProbes(t *testing.T) {
	o := NewObject(4)
	updater := NewProbeUpdater(o)
	if err := updater.Update(3); err != nil {
		t.Fatal(err)
	}
}
