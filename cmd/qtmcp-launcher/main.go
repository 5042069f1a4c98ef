// Command qtmcp-launcher starts a target executable with the probe
// prepared for injection (spec.md §4.9/§4.10, components C9/C10).
//
// Usage:
//
//	qtmcp-launcher [flags] <target-executable> [-- app-args...]
//
// Exit codes:
//
//	0 = target started, probe propagation attempted (success or fail-open)
//	2 = usage error
//	3 = target executable not found
//	4 = injection failed (alloc/write/load errors)
//	5 = injection timed out waiting on the target
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssss2art/qtmcp/internal/config"
	"github.com/ssss2art/qtmcp/internal/inject"
	"github.com/ssss2art/qtmcp/internal/probe"
)

var (
	flagConfigPath     string
	flagPort           int
	flagMode           string
	flagBind           string
	flagInjectChildren bool
	flagPortZeroChild  bool
	flagProbePath      string
)

var rootCmd = &cobra.Command{
	Use:   "qtmcp-launcher <target-executable> [-- app-args...]",
	Short: "Launch a target process with the QtMCP probe prepared for injection",
	Long: `qtmcp-launcher starts <target-executable>, arranging for the QtMCP
probe to be loaded into it: on Linux via LD_PRELOAD inheritance, on Windows
via a suspended-process remote-thread injection sequence.

Configuration cascades defaults < qtmcp.toml (--config) < environment
variables < these flags, the same precedence internal/config documents.

Examples:
  qtmcp-launcher ./myapp
  qtmcp-launcher --port 9119 --inject-children ./myapp -- --app-flag value
  qtmcp-launcher --config ./qtmcp.toml ./myapp`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          runLaunch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to an optional qtmcp.toml overlay")
	rootCmd.Flags().IntVar(&flagPort, "port", -1, "probe listen port (0 = OS-assigned)")
	rootCmd.Flags().StringVar(&flagMode, "mode", "", "probe mode: native|computer_use|chrome|all")
	rootCmd.Flags().StringVar(&flagBind, "bind", "", "probe bind address")
	rootCmd.Flags().BoolVar(&flagInjectChildren, "inject-children", false, "propagate the probe into child processes the target spawns")
	rootCmd.Flags().BoolVar(&flagPortZeroChild, "port-zero-children", false, "zero QTMCP_PORT before spawning children, forcing them to pick a fresh port")
	rootCmd.Flags().StringVar(&flagProbePath, "probe-path", "", "path to the probe shared library/DLL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func runLaunch(cmd *cobra.Command, args []string) error {
	target := args[0]
	appArgs := args[1:]

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return usageError{err}
	}
	applyFlagOverrides(cmd, &cfg)

	injectCfg := inject.Config{
		ProbePath:      cfg.ProbePath,
		Port:           cfg.Port,
		Mode:           string(cfg.Mode),
		InjectChildren: cfg.InjectChildren,
		DenyList:       cfg.DenyList,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	launcher := inject.NewLauncher()
	result, err := launcher.Launch(ctx, target, appArgs, injectCfg)
	if err != nil {
		return err
	}

	if result.InjectError != nil {
		return fmt.Errorf("probe propagation failed for pid %d: %w", result.PID, result.InjectError)
	}

	fmt.Printf("qtmcp-launcher: started pid %d (probe propagated: %v)\n", result.PID, result.Propagated)
	return nil
}

// applyFlagOverrides applies the fourth and highest precedence layer
// (flags) on top of whatever internal/config.Load already resolved from
// defaults/file/env. Only flags the user actually set are applied, so an
// unset --port doesn't clobber a value env/file already chose.
func applyFlagOverrides(cmd *cobra.Command, cfg *probe.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = probe.Mode(flagMode)
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind = flagBind
	}
	if cmd.Flags().Changed("inject-children") {
		cfg.InjectChildren = flagInjectChildren
	}
	if cmd.Flags().Changed("port-zero-children") {
		cfg.PortZeroChildren = flagPortZeroChild
	}
	if cmd.Flags().Changed("probe-path") {
		cfg.ProbePath = flagProbePath
	}
}

// usageError marks an error as a usage problem (exit code 2) rather than a
// runtime failure from the target or the injector.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

// exitCodeFor maps an error returned by runLaunch to spec.md §6's launcher
// exit-code table.
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, err)

	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}

	var injErr *inject.Error
	if errors.As(err, &injErr) {
		switch injErr.Kind {
		case "target-not-found":
			return 3
		case "remote-thread-timeout":
			return 5
		default:
			return 4
		}
	}
	return 1
}
