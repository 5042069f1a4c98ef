package inject

import (
	"context"
	"os/exec"

	"github.com/cockroachdb/errors"
)

// Launcher starts a target executable with the probe loaded, using
// whichever Propagator matches the build's OS family (spec §4.10, C10).
type Launcher struct {
	propagator Propagator
}

// NewLauncher returns a Launcher bound to the platform's Propagator
// (LinuxPropagator on linux, WindowsPropagator on windows — selected by the
// build-tagged defaultPropagator in propagator_linux.go/propagator_windows.go).
func NewLauncher() *Launcher {
	return &Launcher{propagator: defaultPropagator()}
}

// Result reports the launched process's identity and whether propagation
// succeeded, for the launcher CLI's exit-code decision (spec §6).
type Result struct {
	PID         int
	Propagated  bool
	InjectError error
}

// Launch starts target with args under cfg, arranging for the probe to be
// loaded. On the preload OS family this is intrinsic to process creation;
// on the remote-thread family the process starts suspended and is injected
// before Launch returns. On family A, InjectInto has nothing to do and
// returns nil, so Propagated is true once the target has started with the
// preload environment set.
func (l *Launcher) Launch(ctx context.Context, target string, args []string, cfg Config) (*Result, error) {
	cmd := exec.CommandContext(ctx, target, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	cfg.ProbePath = absOrSelfPortable(cfg.ProbePath)
	l.propagator.Prepare(cmd, cfg)

	if err := cmd.Start(); err != nil {
		return nil, newError("target-not-found", errors.Wrap(err, "inject: start target"))
	}

	pid := cmd.Process.Pid
	result := &Result{PID: pid}

	if injErr := l.propagator.InjectInto(ctx, pid, cfg); injErr != nil {
		result.InjectError = injErr
	} else {
		result.Propagated = true
	}

	if err := cmd.Process.Release(); err != nil {
		return result, errors.Wrap(err, "inject: release target process handle")
	}
	return result, nil
}
