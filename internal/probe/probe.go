// probe.go — process-singleton orchestrator.
//
// Wires C1 (hookshim) -> C2 (registry) -> C5 (monitor), starts C7
// (wsserver) and C8 (discovery), and installs C9 (inject) when opted in.
// Exposes Init/Shutdown as the one pair of entry points the cgo bridge in
// cmd/qtmcp-probe calls, guarded by a package-level mutex and singleton
// pointer rather than a sync.Once, so Init can run again after Shutdown
// (spec §9 "Global process state... with explicit teardown").
package probe

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ssss2art/qtmcp/internal/discovery"
	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/hookshim"
	"github.com/ssss2art/qtmcp/internal/inject"
	"github.com/ssss2art/qtmcp/internal/interact"
	"github.com/ssss2art/qtmcp/internal/introspect"
	"github.com/ssss2art/qtmcp/internal/logging"
	"github.com/ssss2art/qtmcp/internal/monitor"
	"github.com/ssss2art/qtmcp/internal/registry"
	"github.com/ssss2art/qtmcp/internal/rpc"
	"github.com/ssss2art/qtmcp/internal/types"
	"github.com/ssss2art/qtmcp/internal/uithread"
	"github.com/ssss2art/qtmcp/internal/wsserver"
)

// Mode selects which method tables register (spec §6's "mode" variable).
// Only ModeNative is fully wired; computer_use/chrome/all are accepted (so a
// launcher built against a future front-end doesn't fail usage validation)
// but rejected cleanly at Init, since their introspection tables belong to
// the coordinate-based and accessibility-tree API surfaces this module
// leaves unspecified.
type Mode string

const (
	ModeNative      Mode = "native"
	ModeComputerUse Mode = "computer_use"
	ModeChrome      Mode = "chrome"
	ModeAll         Mode = "all"
)

// ErrUnsupportedMode is returned by Init for any Mode other than ModeNative.
var ErrUnsupportedMode = errors.New("probe: unsupported mode")

// ErrAlreadyRunning is returned by a second Init before Shutdown.
var ErrAlreadyRunning = errors.New("probe: already running")

// Config is the probe's resolved runtime configuration (spec §6's table),
// produced by internal/config from defaults/file/env/flag precedence.
type Config struct {
	Enabled          bool // hard kill-switch; false skips the entire init (spec §6)
	Mode             Mode
	Bind             string
	Port             int
	LogLevel         string
	InjectChildren   bool
	PortZeroChildren bool
	DenyList         []string
	ProbePath        string // absolute path to this probe's own shared library
	FrameworkVersion string
	ProtocolVersion  string
}

// Probe is the running process-singleton state. Init installs it into the
// package-level singleton; Shutdown tears it down.
type Probe struct {
	host         framework.Host
	shim         *hookshim.Shim
	exec         *uithread.Executor
	server       *wsserver.Server
	uninstallLog func()

	discoveryCancel context.CancelFunc
	wg              sync.WaitGroup
}

var (
	mu      sync.Mutex
	current *Probe
)

// Init installs the probe into host under cfg. Only one Probe may be active
// per process; call Shutdown before calling Init again.
func Init(cfg Config, host framework.Host) error {
	mu.Lock()
	defer mu.Unlock()
	if !cfg.Enabled {
		return nil
	}
	if current != nil {
		return ErrAlreadyRunning
	}
	if cfg.Mode != ModeNative {
		return errors.Wrapf(ErrUnsupportedMode, "mode %q", cfg.Mode)
	}

	logging.Init(cfg.LogLevel)
	log := logging.L()

	exec := uithread.New()
	reg := registry.New()
	in := introspect.New(host)
	it := interact.New(host)
	logs := monitor.NewLogRing()

	engine := rpc.New(reg, in, it, logs, nil, exec, nil)
	signals := monitor.NewSignalMonitor(engine, reg)
	engine.AttachSignals(signals)

	server := wsserver.New(engine)
	engine.SetSender(server)

	shim := hookshim.New(host)
	// engine must run first: it resolves the destroyed object's hierarchical
	// ID through the registry (broadcastLifecycle), which reg.OnDestroyed
	// (below it) then evicts.
	fanoutLifetime := &lifetimeFanout{listeners: []framework.LifetimeListener{engine, reg, signals}}
	fanoutEmission := &emissionFanout{listeners: []framework.EmissionListener{signals}}

	uninstallLog := host.InstallLogHandler(func(rec framework.LogRecord) {
		logs.Add(types.LogEntry{
			Severity: rec.Severity, Text: rec.Text, File: rec.File,
			Line: rec.Line, Function: rec.Function, Timestamp: time.Now(),
		})
	})

	exec.Post(func() {
		shim.Install(fanoutLifetime, fanoutEmission)
	})

	if err := server.Listen(cfg.Bind, cfg.Port); err != nil {
		exec.Stop()
		return errors.Wrap(err, "probe: start websocket server")
	}
	log.Info("probe: listening", zap.Int(logging.FieldPort, server.Port()))

	p := &Probe{host: host, shim: shim, exec: exec, server: server, uninstallLog: uninstallLog}

	broadcaster, err := discovery.New(server.Port(), cfg.FrameworkVersion, cfg.ProtocolVersion)
	if err != nil {
		log.Warn("probe: discovery broadcaster unavailable", zap.Error(err))
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		p.discoveryCancel = cancel
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			broadcaster.Run(ctx)
		}()
	}

	if cfg.PortZeroChildren {
		if err := inject.OverridePortEnvZero(); err != nil {
			log.Warn("probe: failed to zero QTMCP_PORT for children", zap.Error(err))
		}
	}
	if cfg.InjectChildren {
		log.Info("probe: child-process injection enabled")
		// The native entry-point hook that actually intercepts child process
		// creation (family B) is C++ code behind the Host boundary, reached
		// through the probe DLL's own cgo export surface, not this package.
	}

	current = p
	return nil
}

// Shutdown tears down the running Probe, if any. Safe to call when no Probe
// is installed.
func Shutdown() {
	mu.Lock()
	p := current
	current = nil
	mu.Unlock()
	if p == nil {
		return
	}

	if p.discoveryCancel != nil {
		p.discoveryCancel()
	}
	_ = p.server.Shutdown(context.Background())
	p.shim.Uninstall()
	if p.uninstallLog != nil {
		p.uninstallLog()
	}
	p.exec.Stop()
	p.wg.Wait()
}
