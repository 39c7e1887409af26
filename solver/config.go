// Package solver implements the EP driver of spec §4.9: the fixed
// per-iteration schedule over Object/Probe/FFTChannel/Likelihood, optional
// prior and EM probe refinement, and the callback contract of spec §6.
package solver

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// PriorKind selects which optional prior factor the solver attaches to the
// object node (spec §6 "prior ∈ {none (Gaussian-implicit), sparse}").
type PriorKind int

const (
	// PriorNone leaves the implicit zero-mean unit-precision Gaussian
	// prior baked into the AUA's default state (spec §4.7 "Gaussian prior
	// is the default").
	PriorNone PriorKind = iota
	// PriorSparse attaches a SparsePrior (Bernoulli-Gaussian spike-and-slab).
	PriorSparse
)

// Callback is invoked once per iteration with the iteration index, the
// mean likelihood error across all measurements, and a snapshot of the
// current object mean (spec §6 "callback").
type Callback func(iter int, meanError float64, objectMean []complex128)

// Config holds the solver's configuration knobs (spec §6 "Configuration").
type Config struct {
	Damping      float64 // delta in (0,1]
	Prior        PriorKind
	Sparsity     float64 // rho in (0,1), used when Prior == PriorSparse
	NProbeUpdate int     // EM inner iterations per outer iteration; 0 disables
	NIter        int
	Seed         int64
	Callback     Callback
}

// Validate checks Config against spec §7's domain-error taxonomy
// ("δ ∉ (0,1]", "ρ ∉ (0,1)", "unknown prior name").
func (c Config) Validate() error {
	if c.Damping <= 0 || c.Damping > 1 {
		return fmt.Errorf("solver: config: damping %g out of (0,1]", c.Damping)
	}
	switch c.Prior {
	case PriorNone:
	case PriorSparse:
		if c.Sparsity <= 0 || c.Sparsity >= 1 {
			return fmt.Errorf("solver: config: sparsity %g out of (0,1)", c.Sparsity)
		}
	default:
		return fmt.Errorf("solver: config: unknown prior kind %d", c.Prior)
	}
	if c.NProbeUpdate < 0 {
		return fmt.Errorf("solver: config: negative n_probe_update %d", c.NProbeUpdate)
	}
	if c.NIter <= 0 {
		return fmt.Errorf("solver: config: non-positive n_iter %d", c.NIter)
	}
	return nil
}

// Fingerprint returns a short SHAKE-256 digest of the config's numeric
// knobs, logged once at run start so two runs can be compared for
// reproducibility without diffing full structs — the same "hash the
// knobs" idiom the teacher's Merkle leaves apply to each leaf payload.
func (c Config) Fingerprint() [16]byte {
	var buf [40]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(int64(c.Damping*1e9)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(c.Prior))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(int64(c.Sparsity*1e9)))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(c.NProbeUpdate))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.NIter))
	binary.LittleEndian.PutUint64(buf[28:36], uint64(c.Seed))

	var out [16]byte
	h := sha3.NewShake256()
	_, _ = h.Write(buf[:])
	_, _ = h.Read(out[:])
	return out
}
