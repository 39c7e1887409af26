package solver

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/jlazard/goptyep/fft2"
	"github.com/jlazard/goptyep/internal/metrics"
	"github.com/jlazard/goptyep/internal/prof"
	"github.com/jlazard/goptyep/internal/trace"
	"github.com/jlazard/goptyep/node"
	"github.com/jlazard/goptyep/prng"
	"github.com/jlazard/goptyep/ptycho"
	"github.com/jlazard/goptyep/ua"
)

// Solver orchestrates the EP message schedule of spec §4.9 over an Object
// node built from a Ptycho container.
type Solver struct {
	cfg Config
	obj *node.Object
	t   fft2.Transformer

	updater *node.ProbeUpdater
	metrics *metrics.Collector
}

// New builds a Solver: it registers every measurement in pc against a
// fresh Object node, optionally attaches a prior, and wires the EM probe
// updater when NProbeUpdate > 0 (spec §4.9).
func New(pc *ptycho.Ptycho, cfg Config, t fft2.Transformer, mc *metrics.Collector) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obj := node.NewObject(pc.N)
	rng := prng.New(cfg.Seed)

	object0 := pc.Object0
	if object0 == nil {
		object0 = rng.ComplexGaussianField(pc.N, pc.N)
	}

	for _, m := range pc.Measurements {
		patch, err := sliceField(object0, pc.N, m.Patch)
		if err != nil {
			return nil, fmt.Errorf("solver: new: %w", err)
		}
		if err := obj.Register(t, m, pc.Probe0, patch); err != nil {
			return nil, fmt.Errorf("solver: new: %w", err)
		}
	}
	for _, p := range obj.Probes {
		if err := p.Channel.Likelihood.SetDamping(cfg.Damping); err != nil {
			return nil, fmt.Errorf("solver: new: %w", err)
		}
	}

	switch cfg.Prior {
	case PriorSparse:
		prior, err := node.NewSparsePrior(cfg.Sparsity)
		if err != nil {
			return nil, fmt.Errorf("solver: new: %w", err)
		}
		obj.Prior = prior
	}

	s := &Solver{cfg: cfg, obj: obj, t: t, metrics: mc}
	if cfg.NProbeUpdate > 0 {
		s.updater = node.NewProbeUpdater(obj)
	}
	trace.Printf("solver: new: fingerprint=%x measurements=%d n=%d\n", cfg.Fingerprint(), len(pc.Measurements), pc.N)
	return s, nil
}

func sliceField(field []complex128, n int, region ua.Region) ([]complex128, error) {
	if err := region.ValidFor(n, n); err != nil {
		return nil, err
	}
	rows, cols := region.Rows(), region.Cols()
	out := make([]complex128, rows*cols)
	for r := 0; r < rows; r++ {
		src := (region.R0+r)*n + region.C0
		copy(out[r*cols:(r+1)*cols], field[src:src+cols])
	}
	return out, nil
}

// Run executes NIter outer iterations of the EP schedule (spec §4.9),
// invoking Config.Callback (if set) after every iteration.
func (s *Solver) Run() error {
	for it := 0; it < s.cfg.NIter; it++ {
		iterStart := time.Now()
		if s.obj.Prior != nil {
			if err := s.obj.Prior.Forward(s.obj); err != nil {
				return fmt.Errorf("solver: run: iteration %d: prior: %w", it, err)
			}
		}

		perMeasurementErr := make([]float64, len(s.obj.Probes))
		for j := range s.obj.Probes {
			if err := s.runMeasurement(j); err != nil {
				return fmt.Errorf("solver: run: iteration %d: measurement %d: %w", it, j, err)
			}
			perMeasurementErr[j] = s.obj.Probes[j].Channel.Likelihood.Error
		}
		meanErr := stat.Mean(perMeasurementErr, nil)

		if s.updater != nil {
			if err := s.updater.Update(s.cfg.NProbeUpdate); err != nil {
				return fmt.Errorf("solver: run: iteration %d: probe update: %w", it, err)
			}
		}

		belief, err := s.obj.GetBelief()
		if err != nil {
			return fmt.Errorf("solver: run: iteration %d: %w", it, err)
		}
		if trace.NonFinite("solver.belief", belief.Mean) {
			return fmt.Errorf("solver: run: iteration %d: non-finite belief", it)
		}

		if s.metrics != nil {
			s.metrics.ObserveIteration(meanErr)
		}
		if s.cfg.Callback != nil {
			s.cfg.Callback(it, meanErr, belief.Mean)
		}
		prof.Track(iterStart, "solver.iteration")
	}
	return nil
}

// DrainTimings returns and clears the accumulated per-iteration timing
// entries recorded by the most recent Run call(s).
func DrainTimings() []prof.Entry {
	return prof.SnapshotAndReset()
}

func (s *Solver) runMeasurement(j int) error {
	obj := s.obj
	if err := obj.Forward(j); err != nil {
		return err
	}
	probe := obj.Probes[j]
	if err := probe.Forward(); err != nil {
		return err
	}
	if err := probe.Channel.Forward(s.t); err != nil {
		return err
	}
	if err := probe.Channel.Likelihood.Backward(); err != nil {
		return err
	}
	probe.Channel.Backward(s.t)
	if err := probe.Backward(); err != nil {
		return err
	}
	return obj.Backward(j)
}

// GetBelief returns the current object posterior (mean and precision).
func (s *Solver) GetBelief() (*ua.UncertainArray, error) {
	return s.obj.GetBelief()
}

// Probe returns the current shared probe field estimate, valid once at
// least one measurement has been registered.
func (s *Solver) Probe() []complex128 {
	if len(s.obj.Probes) == 0 {
		return nil
	}
	return s.obj.Probes[0].Data
}
