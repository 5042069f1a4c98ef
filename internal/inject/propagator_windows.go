//go:build windows

// Family B propagation (spec §4.9): remote-thread DLL injection. Unlike
// family A, propagation is explicit — the launcher creates the target
// suspended and drives the full sequence in injector_windows.go before
// resuming it. A process's own children are handled the same way, but by
// a hook the probe DLL installs on the process-creation entry point inside
// the target; that hook is native C++ code reached via the probe's own
// cgo export surface and is out of this package's reach. What we provide
// here is the pipeline both the launcher and that in-process hook need to
// drive, exposed as InjectInto so either caller can use it.
package inject

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/windows"
)

const (
	envPort           = "QTMCP_PORT"
	envMode           = "QTMCP_MODE"
	envInjectChildren = "QTMCP_INJECT_CHILDREN"
)

// WindowsPropagator implements Propagator for the remote-thread OS family.
type WindowsPropagator struct {
	DenyList []string
}

var _ Propagator = (*WindowsPropagator)(nil)

// Prepare stamps the child-process-visible config into cmd's environment
// (so a re-injected grandchild's probe reads the same mode/port/opt-in
// settings its parent did) and marks cmd to start suspended, so the caller
// can inject before the target's first user instruction runs.
func (p *WindowsPropagator) Prepare(cmd *exec.Cmd, cfg Config) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &windows.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_SUSPENDED

	cmd.Env = append(cmd.Env,
		fmt.Sprintf("%s=%d", envPort, cfg.Port),
		fmt.Sprintf("%s=%s", envMode, cfg.Mode),
	)
	if cfg.InjectChildren {
		cmd.Env = append(cmd.Env, envInjectChildren+"=1")
	}
}

// InjectInto runs the 11-step sequence of spec §4.10 against pid, which
// must already be suspended, then resumes its initial thread. The target's
// image path is queried from its process handle for deny-list evaluation;
// injection is skipped (fail-open, not an error) if it falls under
// cfg.DenyList.
func (p *WindowsPropagator) InjectInto(ctx context.Context, pid int, cfg Config) error {
	return injectAndResume(ctx, uint32(pid), cfg.ProbePath, cfg.DenyList)
}

func defaultPropagator() Propagator { return &WindowsPropagator{DenyList: DefaultDenyList} }

// absOrSelf normalises a probe path to absolute form; injection writes this
// into the target's address space, where relative paths would resolve
// against the target's own working directory instead of the launcher's.
func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
