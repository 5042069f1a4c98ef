package probe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/framework/fake"
)

func baseConfig() Config {
	return Config{
		Enabled: true, Mode: ModeNative, Bind: "127.0.0.1", Port: 0, LogLevel: "info",
		FrameworkVersion: "1.0", ProtocolVersion: "1",
	}
}

func TestInitDisabledSkipsWiringEntirely(t *testing.T) {
	host := fake.New()
	err := Init(Config{Enabled: false, Mode: ModeNative}, host)
	require.NoError(t, err)

	mu.Lock()
	p := current
	mu.Unlock()
	require.Nil(t, p)
}

func TestInitRejectsUnsupportedMode(t *testing.T) {
	host := fake.New()
	err := Init(Config{Enabled: true, Mode: ModeComputerUse}, host)
	require.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestInitThenInitAgainReportsAlreadyRunning(t *testing.T) {
	host := fake.New()
	require.NoError(t, Init(baseConfig(), host))
	defer Shutdown()

	err := Init(baseConfig(), fake.New())
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestShutdownAllowsReInit(t *testing.T) {
	host := fake.New()
	require.NoError(t, Init(baseConfig(), host))
	Shutdown()

	require.NoError(t, Init(baseConfig(), fake.New()))
	Shutdown()
}

func TestInitInstallsHookShim(t *testing.T) {
	host := fake.New()
	require.NoError(t, Init(baseConfig(), host))
	defer Shutdown()

	mu.Lock()
	p := current
	mu.Unlock()
	require.NotNil(t, p)
	require.True(t, p.shim.Installed())
}

func TestShutdownUninstallsHookShim(t *testing.T) {
	host := fake.New()
	require.NoError(t, Init(baseConfig(), host))

	mu.Lock()
	p := current
	mu.Unlock()
	Shutdown()
	require.False(t, p.shim.Installed())
}

func TestInitStartsListenerOnBoundPort(t *testing.T) {
	host := fake.New()
	require.NoError(t, Init(baseConfig(), host))
	defer Shutdown()

	mu.Lock()
	p := current
	mu.Unlock()
	require.NotNil(t, p)
	require.Greater(t, p.server.Port(), 0)
}

func TestShutdownIsSafeWithNoActiveProbe(t *testing.T) {
	Shutdown()
	Shutdown()
}

func TestInjectChildrenZeroesPortEnvWhenConfigured(t *testing.T) {
	os.Setenv("QTMCP_PORT", "9999")
	defer os.Unsetenv("QTMCP_PORT")

	host := fake.New()
	cfg := baseConfig()
	cfg.InjectChildren = true
	cfg.PortZeroChildren = true
	require.NoError(t, Init(cfg, host))
	defer Shutdown()

	require.Equal(t, "0", os.Getenv("QTMCP_PORT"))
}
