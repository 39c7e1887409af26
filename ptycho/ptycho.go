// Package ptycho holds the measurement container the solver and classical
// engines alike read from (spec §6 "Ptycho container"): the object/probe
// shapes, the recorded diffraction amplitudes and their patch placements,
// and the initial fields. The core treats it as a read-only external
// collaborator.
package ptycho

import (
	"fmt"

	"github.com/jlazard/goptyep/ua"
)

// Measurement is one recorded diffraction pattern: the object-space patch
// it illuminated, the observed amplitude field (sqrt intensity), and the
// noise precision γ_w for that pattern's Likelihood node.
type Measurement struct {
	Patch  ua.Region
	Y      []float64
	GammaW float64
}

// Ptycho bundles the object side (N x N) and probe side (M x M) shapes with
// the measurement set and initial fields.
type Ptycho struct {
	N int
	M int

	Measurements []Measurement

	Probe0  []complex128 // m*m
	Object0 []complex128 // n*n, may be nil (solver.New then draws a random complex Gaussian field from Config.Seed)
}

// New validates and constructs a Ptycho container.
func New(n, m int, measurements []Measurement, probe0, object0 []complex128) (*Ptycho, error) {
	if n <= 0 || m <= 0 {
		return nil, fmt.Errorf("ptycho: non-positive shape (N=%d, M=%d)", n, m)
	}
	if m > n {
		return nil, fmt.Errorf("ptycho: probe side %d exceeds object side %d", m, n)
	}
	if len(measurements) == 0 {
		return nil, fmt.Errorf("ptycho: no measurements supplied")
	}
	if len(probe0) != m*m {
		return nil, fmt.Errorf("ptycho: probe0 length %d does not match probe shape (%d,%d)", len(probe0), m, m)
	}
	if object0 != nil && len(object0) != n*n {
		return nil, fmt.Errorf("ptycho: object0 length %d does not match object shape (%d,%d)", len(object0), n, n)
	}
	for j, meas := range measurements {
		if meas.Patch.Rows() != m || meas.Patch.Cols() != m {
			return nil, fmt.Errorf("ptycho: measurement %d patch shape (%d,%d) does not match probe shape (%d,%d)", j, meas.Patch.Rows(), meas.Patch.Cols(), m, m)
		}
		if meas.Patch.R0 < 0 || meas.Patch.C0 < 0 || meas.Patch.R1 > n || meas.Patch.C1 > n {
			return nil, fmt.Errorf("ptycho: measurement %d patch %+v out of bounds for object shape (%d,%d)", j, meas.Patch, n, n)
		}
		if len(meas.Y) != m*m {
			return nil, fmt.Errorf("ptycho: measurement %d amplitude length %d does not match probe shape (%d,%d)", j, len(meas.Y), m, m)
		}
		for _, v := range meas.Y {
			if v < 0 {
				return nil, fmt.Errorf("ptycho: measurement %d has negative amplitude %g", j, v)
			}
		}
		if meas.GammaW <= 0 {
			return nil, fmt.Errorf("ptycho: measurement %d has non-positive gamma_w %g", j, meas.GammaW)
		}
	}

	pc := &Ptycho{N: n, M: m, Measurements: make([]Measurement, len(measurements))}
	copy(pc.Measurements, measurements)
	pc.Probe0 = make([]complex128, len(probe0))
	copy(pc.Probe0, probe0)
	if object0 != nil {
		pc.Object0 = make([]complex128, len(object0))
		copy(pc.Object0, object0)
	}
	return pc, nil
}

// NumMeasurements returns J, the measurement count.
func (p *Ptycho) NumMeasurements() int {
	return len(p.Measurements)
}
