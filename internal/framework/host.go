// host.go — the Framework capability contract (spec §6).
//
// Host is the small interface the rest of the probe programs against instead
// of binding directly to a C++ UI toolkit. A real build satisfies it through
// cgo callbacks registered by the Framework; the in-memory fake in
// internal/framework/fake satisfies it for every test in this module.
package framework

import (
	"image"

	"github.com/ssss2art/qtmcp/internal/types"
)

// LifetimeListener receives construction/destruction notifications.
type LifetimeListener interface {
	OnConstructed(obj types.TrackedObject)
	OnDestroyed(id types.ObjectID)
}

// Emission is one signal-spy invocation: the emitting object, a method index
// into the Framework's own metadata table, and the positional argument
// vector (framework-native values, not yet JSON-coerced).
type Emission struct {
	ObjectID    types.ObjectID
	MethodIndex int
	Signal      string
	Args        []any
}

// EmissionListener receives signal-spy callbacks.
type EmissionListener interface {
	OnEmission(e Emission)
}

// LogRecord is one host log-handler invocation.
type LogRecord struct {
	Severity types.Severity
	Text     string
	File     string
	Line     int
	Function string
}

// LogHandler receives chained log records. It need not call the previously
// installed handler itself: InstallLogHandler chains each new handler to the
// one it displaces.
type LogHandler func(LogRecord)

// Host is the capability contract a live Framework process provides.
type Host interface {
	// InstallLifetimeHook registers construction/destruction callbacks.
	// Returns an uninstall function that restores any previously installed
	// hook. Calling InstallLifetimeHook a second time before uninstalling the
	// first is a no-op that keeps the first listener and returns an
	// uninstall function that does nothing (idempotent per spec §8).
	InstallLifetimeHook(l LifetimeListener) (uninstall func())

	// InstallEmissionHook registers the signal-spy callback.
	InstallEmissionHook(l EmissionListener) (uninstall func())

	// InstallLogHandler installs a pluggable log-handler slot, chaining to
	// whatever was previously installed.
	InstallLogHandler(h LogHandler) (uninstall func())

	// TopLevels returns objects currently reachable as declared top-levels,
	// used by the shim to synthesize construction events for objects that
	// already existed at install time (spec §4.1).
	TopLevels() []types.TrackedObject

	// Reflect returns the metadata for a tracked object, or ok=false if the
	// object no longer exists.
	Reflect(id types.ObjectID) (types.Metadata, bool)

	// GetProperty reads a named property in its native (non-JSON) form.
	GetProperty(id types.ObjectID, name string) (any, error)
	// SetProperty writes a named property from its native form.
	SetProperty(id types.ObjectID, name string, value any) error
	// Invoke calls a named invokable method with positional native args.
	Invoke(id types.ObjectID, method string, args []any) (any, error)

	// Geometry returns a widget's on-screen rect.
	Geometry(id types.ObjectID) (types.Geometry, error)

	// PostInputEvent enqueues a synthesized input event (click or key) onto
	// the Framework's event queue, to be delivered on the UI thread.
	PostInputEvent(ev InputEvent) error

	// Render captures a widget (or, if id is zero, the full screen) to an
	// image.
	Render(id types.ObjectID) (image.Image, error)
}

// InputEventKind enumerates the synthesized input operations (spec §4.4).
type InputEventKind string

const (
	InputClick InputEventKind = "click"
	InputKey   InputEventKind = "key"
)

// InputEvent is a synthesized user action posted to the event queue.
type InputEvent struct {
	Kind     InputEventKind
	TargetID types.ObjectID
	Button   string // left|middle|right, click only
	X, Y     int    // local offset, click only
	UseCentre bool
	Key      string // named key or literal rune, key events only
	Press    bool   // true=press, false=release
	Modifiers []string
}
