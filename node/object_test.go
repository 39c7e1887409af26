package node

import (
	"testing"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/ptycho"
	"github.com/jlazard/goptyep/ua"
)

// Register folds a unit-precision initial message (mean 1) into the patch
// (1:3,1:3) of a 4x4 object; a backward pass that subtracts and re-adds that
// same message leaves the belief unchanged, and the registered patch mean is
// the average of the AUA's zero-mean unit-precision baseline and the message.
func TestObjectRegisterThenUnwindIsIdentity(t *testing.T) {
	o := NewObject(4)
	transformer := fft2.New()
	meas := ptycho.Measurement{
		Patch:  ua.Region{R0: 1, R1: 3, C0: 1, C1: 3},
		Y:      []float64{1, 1, 1, 1},
		GammaW: 10,
	}
	object0Patch := make([]complex128, 4)
	for i := range object0Patch {
		object0Patch[i] = 1
	}
	probe0 := onesComplex(4)

	if err := o.Register(transformer, meas, probe0, object0Patch); err != nil {
		t.Fatal(err)
	}

	before, err := o.Belief.GetUA(meas.Patch)
	if err != nil {
		t.Fatal(err)
	}

	// Replay the registration's own add as a backward pass with an
	// identical msg_to_object, which Object.Backward treats as "subtract
	// old, add new" — here old == new, a net no-op.
	o.Probes[0].MsgToObject = o.msgFromData[0]
	if err := o.Backward(0); err != nil {
		t.Fatal(err)
	}

	after, err := o.Belief.GetUA(meas.Patch)
	if err != nil {
		t.Fatal(err)
	}
	for i := range before.Mean {
		if after.Mean[i] != before.Mean[i] || after.Precision[i] != before.Precision[i] {
			t.Fatalf("pixel %d: belief changed after no-op backward: before=%v/%g after=%v/%g",
				i, before.Mean[i], before.Precision[i], after.Mean[i], after.Precision[i])
		}
	}
	// numerator = 0 + 1*1, precision = 1 + 1, so mean = 0.5.
	if want := object0Patch[0] / 2; before.Mean[0] != want {
		t.Fatalf("patch mean = %v, want %v", before.Mean[0], want)
	}
}

func TestObjectForwardBackwardRoundTrip(t *testing.T) {
	o := NewObject(4)
	transformer := fft2.New()
	meas := ptycho.Measurement{
		Patch:  ua.Region{R0: 0, R1: 2, C0: 0, C1: 2},
		Y:      []float64{1, 1, 1, 1},
		GammaW: 10,
	}
	object0Patch := []complex128{0.5, 0.5, 0.5, 0.5}
	probe0 := onesComplex(4)
	if err := o.Register(transformer, meas, probe0, object0Patch); err != nil {
		t.Fatal(err)
	}
	if err := o.Forward(0); err != nil {
		t.Fatal(err)
	}
	if o.Probes[0].InputBelief == nil {
		t.Fatalf("expected probe 0 to receive an input belief")
	}
}

func TestObjectBackwardRejectsMissingMessage(t *testing.T) {
	o := NewObject(4)
	transformer := fft2.New()
	meas := ptycho.Measurement{
		Patch:  ua.Region{R0: 0, R1: 2, C0: 0, C1: 2},
		Y:      []float64{1, 1, 1, 1},
		GammaW: 10,
	}
	object0Patch := []complex128{0.5, 0.5, 0.5, 0.5}
	if err := o.Register(transformer, meas, onesComplex(4), object0Patch); err != nil {
		t.Fatal(err)
	}
	if err := o.Backward(0); err == nil {
		t.Fatalf("expected error with no msg_to_object set")
	}
}
