// Package trace provides the engine's debug-logging and non-finite-value
// detection, mirroring the env-gated fmt.Fprintf pattern the rest of this
// codebase's lineage uses instead of a logging framework.
package trace

import (
	"fmt"
	"io"
	"math/cmplx"
	"os"
)

// Enabled gates Printf. Set by GOPTYEP_DEBUG=1 at process start.
var Enabled = os.Getenv("GOPTYEP_DEBUG") == "1"

// Printf writes to os.Stderr only when Enabled.
func Printf(format string, args ...any) {
	if Enabled {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Fprintf writes to w only when Enabled.
func Fprintf(w io.Writer, format string, args ...any) {
	if Enabled {
		fmt.Fprintf(w, format, args...)
	}
}

// NonFinite reports whether any value in field is NaN or infinite, logging
// the offending node name when it is.
func NonFinite(name string, field []complex128) bool {
	for _, c := range field {
		if cmplx.IsNaN(c) || cmplx.IsInf(c) {
			Printf("trace: non-finite value detected in %s\n", name)
			return true
		}
	}
	return false
}
