// inject.go — child-process propagation (spec §4.9, component C9) and
// launcher/remote-injection core (spec §4.10, component C10).
//
// Two OS families implement Propagator: propagator_linux.go (family A,
// preload-by-inheritance) and propagator_windows.go (family B, entry-point
// hook plus the full remote-thread DLL injection pipeline). Both are
// fail-open per spec §7: a propagation failure must not stop the child
// from starting.
package inject

import (
	"context"
	"os/exec"
	"time"
)

// Config carries the settings a Propagator needs to prepare a child process
// for propagation, mirroring spec §6's launcher/config surface.
type Config struct {
	ProbePath      string // absolute path to the probe shared library/DLL
	Port           int    // 0 requests an OS-assigned port in the child
	Mode           string
	InjectChildren bool
	DenyList       []string // family B only: image-path prefixes to skip
}

// Propagator prepares a not-yet-started command, or a target already
// running suspended, so the probe ends up loaded in that process.
//
// Prepare is used by family A: it mutates cmd's Env/Args before the caller
// calls cmd.Start(), so propagation is intrinsic to process creation.
//
// InjectInto is used by family B: it performs the full out-of-process
// injection sequence against an already-created (suspended) process.
type Propagator interface {
	// Prepare arranges for cmd, once started, to load the probe. Never
	// returns an error that should stop cmd from starting; failures are
	// logged by the caller and launching proceeds probe-less.
	Prepare(cmd *exec.Cmd, cfg Config)

	// InjectInto performs remote injection into pid, which must already be
	// suspended. Returns a *Error carrying one of spec §7's injection error
	// kinds on failure.
	InjectInto(ctx context.Context, pid int, cfg Config) error
}

// remoteThreadTimeout is the 10s-per-wait default of spec §4.10.
const remoteThreadTimeout = 10 * time.Second

// Error is the injector's own error kind, reported to the launcher's stderr
// and mapped to its exit code (spec §6 "Launcher CLI").
type Error struct {
	Kind string // remote-alloc, remote-write, remote-load, remote-init-missing, remote-thread-timeout, target-not-found, build-id-mismatch
	Err  error
}

func (e *Error) Error() string { return e.Kind + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func newError(kind string, err error) *Error { return &Error{Kind: kind, Err: err} }
