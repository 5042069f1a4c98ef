//go:build linux

// Family A propagation (spec §4.9): preload-by-inheritance. The launcher
// sets LD_PRELOAD on the target's environment before exec; every process
// the target forks inherits it automatically, so there is no remote-thread
// work on this OS family at all — InjectInto does nothing and always returns
// nil, never reporting an injection failure.
package inject

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

const (
	envPreload        = "LD_PRELOAD"
	envPort           = "QTMCP_PORT"
	envMode           = "QTMCP_MODE"
	envInjectChildren = "QTMCP_INJECT_CHILDREN"
)

// LinuxPropagator implements Propagator for the preload-based OS family.
type LinuxPropagator struct{}

var _ Propagator = LinuxPropagator{}

// Prepare sets LD_PRELOAD to the probe's shared-object path (the entry is
// appended after the inherited environment, so it replaces any LD_PRELOAD
// already there rather than extending it) and stamps the
// port/mode/inject-children variables the child's probe reads at init.
// Port 0 in cfg propagates as 0, letting each child's probe bind its own
// ephemeral port rather than colliding on a fixed one (spec §4.9).
func (LinuxPropagator) Prepare(cmd *exec.Cmd, cfg Config) {
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	env = append(env, fmt.Sprintf("%s=%s", envPreload, cfg.ProbePath))
	env = append(env, fmt.Sprintf("%s=%d", envPort, cfg.Port))
	env = append(env, fmt.Sprintf("%s=%s", envMode, cfg.Mode))
	if cfg.InjectChildren {
		env = append(env, envInjectChildren+"=1")
	}
	cmd.Env = env
}

// InjectInto is unused on this OS family; preload propagation never needs a
// remote thread.
func (LinuxPropagator) InjectInto(ctx context.Context, pid int, cfg Config) error {
	return nil
}

func defaultPropagator() Propagator { return LinuxPropagator{} }
