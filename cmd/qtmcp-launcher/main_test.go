package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/inject"
	"github.com/ssss2art/qtmcp/internal/probe"
)

func TestExitCodeForUsageError(t *testing.T) {
	require.Equal(t, 2, exitCodeFor(usageError{errors.New("bad toml")}))
}

func TestExitCodeForTargetNotFound(t *testing.T) {
	err := &inject.Error{Kind: "target-not-found", Err: errors.New("no such file")}
	require.Equal(t, 3, exitCodeFor(err))
}

func TestExitCodeForRemoteThreadTimeout(t *testing.T) {
	err := &inject.Error{Kind: "remote-thread-timeout", Err: errors.New("deadline exceeded")}
	require.Equal(t, 5, exitCodeFor(err))
}

func TestExitCodeForOtherInjectionErrorsIsFour(t *testing.T) {
	err := &inject.Error{Kind: "remote-alloc", Err: errors.New("out of memory")}
	require.Equal(t, 4, exitCodeFor(err))
}

func TestExitCodeForUnrelatedErrorIsOne(t *testing.T) {
	require.Equal(t, 1, exitCodeFor(errors.New("something else")))
}

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "")
	cmd.Flags().IntVar(&flagPort, "port", -1, "")
	cmd.Flags().StringVar(&flagMode, "mode", "", "")
	cmd.Flags().StringVar(&flagBind, "bind", "", "")
	cmd.Flags().BoolVar(&flagInjectChildren, "inject-children", false, "")
	cmd.Flags().BoolVar(&flagPortZeroChild, "port-zero-children", false, "")
	cmd.Flags().StringVar(&flagProbePath, "probe-path", "", "")
	return cmd
}

func TestApplyFlagOverridesOnlyAppliesChangedFlags(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9191", "--inject-children"}))

	cfg := probe.Config{Port: 0, Mode: probe.ModeNative, Bind: "127.0.0.1"}
	applyFlagOverrides(cmd, &cfg)

	require.Equal(t, 9191, cfg.Port)
	require.True(t, cfg.InjectChildren)
	require.Equal(t, probe.ModeNative, cfg.Mode)
	require.Equal(t, "127.0.0.1", cfg.Bind)
}

func TestApplyFlagOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg := probe.Config{Bind: "127.0.0.1", Mode: probe.ModeNative}
	applyFlagOverrides(cmd, &cfg)

	require.Equal(t, "127.0.0.1", cfg.Bind)
	require.Equal(t, probe.ModeNative, cfg.Mode)
}
