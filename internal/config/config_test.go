package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/probe"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		envEnabled, envMode, envBind, envPort, envLogLevel, envInjectChildren,
		envPortZeroChildren, envDenyList, envProbePath, envFrameworkVersion, envProtocolVersion,
	} {
		os.Unsetenv(name)
	}
}

func TestLoadWithNoOverlaysReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, probe.ModeNative, cfg.Mode)
	require.Equal(t, "127.0.0.1", cfg.Bind)
	require.True(t, cfg.PortZeroChildren)
}

func TestLoadMissingTomlPathIsNotAnError(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
}

func TestLoadAppliesFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qtmcp.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
bind = "0.0.0.0"
port = 9000
log_level = "debug"
inject_children = true

[inject]
deny_list = ["C:\\Custom"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Bind)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.InjectChildren)
	require.Equal(t, []string{`C:\Custom`}, cfg.DenyList)
}

func TestEnvOverridesFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qtmcp.toml")
	require.NoError(t, os.WriteFile(path, []byte(`bind = "0.0.0.0"`), 0o644))

	os.Setenv(envBind, "127.0.0.2")
	defer os.Unsetenv(envBind)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.2", cfg.Bind)
}

func TestEnvPortMustBeInteger(t *testing.T) {
	clearEnv(t)
	os.Setenv(envPort, "not-a-number")
	defer os.Unsetenv(envPort)

	_, err := Load("")
	require.Error(t, err)
}

func TestEnvBoolRejectsValuesOtherThanZeroOrOne(t *testing.T) {
	clearEnv(t)
	os.Setenv(envInjectChildren, "true")
	defer os.Unsetenv(envInjectChildren)

	_, err := Load("")
	require.Error(t, err)
}

func TestEnvDenyListIsColonSeparated(t *testing.T) {
	clearEnv(t)
	os.Setenv(envDenyList, `C:\Windows:C:\Custom`)
	defer os.Unsetenv(envDenyList)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{`C:\Windows`, `C:\Custom`}, cfg.DenyList)
}
