//go:build windows

package inject

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestWindowsPrepareMarksSuspendedAndSetsEnv(t *testing.T) {
	cmd := exec.Command("cmd.exe")
	p := &WindowsPropagator{DenyList: DefaultDenyList}

	p.Prepare(cmd, Config{Port: 9119, Mode: "native", InjectChildren: true})

	require.NotNil(t, cmd.SysProcAttr)
	require.NotZero(t, cmd.SysProcAttr.CreationFlags&windows.CREATE_SUSPENDED)
	require.Contains(t, cmd.Env, "QTMCP_PORT=9119")
	require.Contains(t, cmd.Env, "QTMCP_MODE=native")
	require.Contains(t, cmd.Env, "QTMCP_INJECT_CHILDREN=1")
}

func TestWindowsPrepareOmitsInjectChildrenWhenUnset(t *testing.T) {
	cmd := exec.Command("cmd.exe")
	p := &WindowsPropagator{}

	p.Prepare(cmd, Config{Port: 0, Mode: "native"})

	for _, e := range cmd.Env {
		require.NotContains(t, e, "QTMCP_INJECT_CHILDREN")
	}
}
