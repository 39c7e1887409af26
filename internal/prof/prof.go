// Package prof collects coarse per-stage timing for the solver loop, the
// same accumulate-then-drain pattern the teacher's measure package used for
// cryptographic benchmarking, repurposed here for EP iteration timing.
package prof

import (
	"sync"
	"time"
)

// Entry is a single timing measurement.
type Entry struct {
	Label string
	Dur   time.Duration
}

var (
	mu     sync.Mutex
	record []Entry
)

// Track appends the elapsed time since start under name. Call as
// defer prof.Track(time.Now(), "solver.iteration").
func Track(start time.Time, name string) {
	elapsed := time.Since(start)
	mu.Lock()
	record = append(record, Entry{Label: name, Dur: elapsed})
	mu.Unlock()
}

// SnapshotAndReset returns the collected entries and clears the buffer.
func SnapshotAndReset() []Entry {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Entry, len(record))
	copy(out, record)
	record = nil
	return out
}
