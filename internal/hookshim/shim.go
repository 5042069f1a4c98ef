// shim.go — Framework-hook shim (spec §4.1, component C1).
//
// Installs the construction/destruction/signal-spy callbacks exactly once,
// forwards them to whatever LifetimeListener/EmissionListener the registry
// and monitor register, and synthesizes construction events for objects that
// already existed at install time. Mirrors the "lazily-initialised
// process-wide state behind a once-init guard, with explicit teardown...
// that restores displaced handlers" design note (spec §9).
package hookshim

import (
	"sync"

	"github.com/ssss2art/qtmcp/internal/framework"
)

// Shim owns the one installation of the Host's lifetime/emission hooks.
type Shim struct {
	host framework.Host

	mu          sync.Mutex
	installed   bool
	uninstallLifetime func()
	uninstallEmission func()
}

// New returns a shim over the given Host. It does not install anything yet.
func New(host framework.Host) *Shim {
	return &Shim{host: host}
}

// Install wires lifetime to lifetimeSink and emission to emissionSink, then
// synthesizes OnConstructed for every current top-level. A second call
// before Uninstall is a no-op (idempotent per spec §8).
func (s *Shim) Install(lifetimeSink framework.LifetimeListener, emissionSink framework.EmissionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.installed {
		return
	}
	s.uninstallLifetime = s.host.InstallLifetimeHook(lifetimeSink)
	s.uninstallEmission = s.host.InstallEmissionHook(emissionSink)
	s.installed = true

	for _, obj := range s.host.TopLevels() {
		lifetimeSink.OnConstructed(obj)
	}
}

// Uninstall restores whatever hooks were displaced at Install time. Safe to
// call when not installed.
func (s *Shim) Uninstall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installed {
		return
	}
	if s.uninstallLifetime != nil {
		s.uninstallLifetime()
	}
	if s.uninstallEmission != nil {
		s.uninstallEmission()
	}
	s.installed = false
	s.uninstallLifetime = nil
	s.uninstallEmission = nil
}

// Installed reports whether the shim currently owns the Host's hooks.
func (s *Shim) Installed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed
}
